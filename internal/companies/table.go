// Package companies provides the preference-group alias table used to decide
// whether a posting's company is one a subscriber asked for.
package companies

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
	"gopkg.in/yaml.v3"
)

// wholeGroupSuffix is appended to a group key to select every company in it.
const wholeGroupSuffix = "전체"

//go:embed groups.yaml
var defaultGroupsYAML []byte

var (
	defaultTable     *Table
	defaultTableOnce sync.Once
)

// Group is one preference group as stored in the alias file.
type Group struct {
	Key       string   `yaml:"key"`
	Aliases   []string `yaml:"aliases,omitempty"`
	Companies []string `yaml:"companies"`
}

type tableFile struct {
	Groups []Group `yaml:"groups"`
}

// Table maps preference-group keys to literal company names. A Table is
// immutable after construction and safe for concurrent use.
type Table struct {
	groups map[string][]string // normalized key or alias -> normalized companies
	keys   []string
}

// Set is a flat set of normalized company names.
type Set map[string]struct{}

// Contains reports whether name, after normalization, is in the set.
func (s Set) Contains(name string) bool {
	if len(s) == 0 {
		return false
	}
	_, ok := s[Normalize(name)]
	return ok
}

// Len returns the number of names in the set.
func (s Set) Len() int {
	return len(s)
}

// NewTable builds a table from group definitions. Later groups with the same
// key replace earlier ones.
func NewTable(groups []Group) *Table {
	t := &Table{groups: make(map[string][]string)}
	for _, g := range groups {
		key := Normalize(g.Key)
		if key == "" {
			continue
		}

		companies := make([]string, 0, len(g.Companies))
		for _, c := range g.Companies {
			if c = Normalize(c); c != "" {
				companies = append(companies, c)
			}
		}

		if _, exists := t.groups[key]; !exists {
			t.keys = append(t.keys, key)
		}
		t.groups[key] = companies
		for _, alias := range g.Aliases {
			if alias = Normalize(alias); alias != "" {
				t.groups[alias] = companies
			}
		}
	}
	sort.Strings(t.keys)
	return t
}

// ParseTable parses a YAML alias document.
func ParseTable(data []byte) (*Table, error) {
	var file tableFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse company groups YAML: %w", err)
	}
	for i, g := range file.Groups {
		if strings.TrimSpace(g.Key) == "" {
			return nil, fmt.Errorf("company group %d has an empty key", i)
		}
	}
	return NewTable(file.Groups), nil
}

// LoadTable reads a YAML alias file from disk.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read company groups file %s: %w", path, err)
	}
	return ParseTable(data)
}

// DefaultTable returns the built-in preference groups.
func DefaultTable() *Table {
	defaultTableOnce.Do(func() {
		t, err := ParseTable(defaultGroupsYAML)
		if err != nil {
			panic(fmt.Sprintf("embedded company groups are invalid: %v", err))
		}
		defaultTable = t
	})
	return defaultTable
}

// Keys returns the canonical group keys in sorted order.
func (t *Table) Keys() []string {
	if t == nil {
		return nil
	}
	return append([]string(nil), t.keys...)
}

// Companies returns the companies of a group key or alias.
func (t *Table) Companies(key string) []string {
	if t == nil {
		return nil
	}
	return append([]string(nil), t.groups[Normalize(key)]...)
}

// Resolve flattens a profile's preferred-company entries into a set.
//
// An entry of the form "<key> 전체" expands to every company of the group. A
// bare group key expands too, unless the key is itself one of the group's
// companies, in which case it is taken literally. Anything else is a literal
// company name.
func (t *Table) Resolve(preferred []string) Set {
	set := make(Set)
	for _, entry := range preferred {
		name := Normalize(entry)
		if name == "" {
			continue
		}

		if t != nil {
			if base, ok := strings.CutSuffix(name, wholeGroupSuffix); ok {
				if companies, found := t.groups[strings.TrimSpace(base)]; found {
					addAll(set, companies)
					continue
				}
			}
			if companies, found := t.groups[name]; found && !contains(companies, name) {
				addAll(set, companies)
			}
		}
		set[name] = struct{}{}
	}
	return set
}

// Normalize canonicalizes a company name for exact comparison: NFC
// composition, full-width folding and whitespace collapsing.
func Normalize(name string) string {
	name = norm.NFC.String(name)
	name = width.Fold.String(name)
	return strings.Join(strings.Fields(name), " ")
}

func addAll(set Set, names []string) {
	for _, n := range names {
		set[n] = struct{}{}
	}
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
