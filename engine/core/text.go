package core

import (
	"html"
	"regexp"
	"strings"
)

var htmlTagRe = regexp.MustCompile(`<.*?>`)

// CleanNote strips markup from sticky note content, unescapes entities and trims it.
// Block tags become spaces so words from adjacent paragraphs do not run together.
func CleanNote(s string) string {
	s = strings.NewReplacer("</p><p>", " ", "<br>", " ", "<br/>", " ", "<br />", " ").Replace(s)
	s = htmlTagRe.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}
