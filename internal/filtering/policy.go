package filtering

import (
	"fmt"
	"strings"
)

// EntryLevelPolicy decides when the experience-level gate applies.
type EntryLevelPolicy string

const (
	// EntryLevelWhenRequested gates only profiles whose career preference
	// names an entry-level marker.
	EntryLevelWhenRequested EntryLevelPolicy = "when_requested"
	// EntryLevelAlways gates every profile.
	EntryLevelAlways EntryLevelPolicy = "always"
	// EntryLevelNever disables the gate.
	EntryLevelNever EntryLevelPolicy = "never"
)

// DefaultEntryLevelMarkers are the experience-level values that denote an
// entry-level posting.
var DefaultEntryLevelMarkers = []string{"신입", "E01"}

// ParseEntryLevelPolicy parses a policy name. An empty name selects the default.
func ParseEntryLevelPolicy(name string) (EntryLevelPolicy, error) {
	switch EntryLevelPolicy(strings.ToLower(strings.TrimSpace(name))) {
	case "", EntryLevelWhenRequested:
		return EntryLevelWhenRequested, nil
	case EntryLevelAlways:
		return EntryLevelAlways, nil
	case EntryLevelNever:
		return EntryLevelNever, nil
	default:
		return "", fmt.Errorf("unknown entry level policy %q (want when_requested, always or never)", name)
	}
}
