package feed

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// StripHTML reduces a feed item's HTML body to plain text so that mention
// matching sees words, not markup. Input without tags passes through.
func StripHTML(s string) string {
	if s == "" {
		return ""
	}
	if !strings.ContainsRune(s, '<') {
		return strings.TrimSpace(s)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
