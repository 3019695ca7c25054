package rendering

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PlainText derives a plain-text alternative from a rendered HTML body.
// Block elements become line breaks and links are followed by their target.
func PlainText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", &RenderError{Message: "failed to parse html", Cause: err}
	}

	doc.Find("head, style, script").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		text := strings.TrimSpace(s.Text())
		if href == "" || href == "#" || text == href {
			return
		}
		s.SetText(text + " (" + href + ")")
	})
	doc.Find("p, div, tr, li, h1, h2, h3, h4, table").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})
	doc.Find("td").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml(" ")
	})

	var lines []string
	for _, line := range strings.Split(doc.Text(), "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n"), nil
}
