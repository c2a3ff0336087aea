package lookup

import "regexp"

// First run of exactly four digits bounded by non-digits or string edges.
var yearRe = regexp.MustCompile(`(?:^|[^0-9])([0-9]{4})(?:[^0-9]|$)`)

// Number immediately preceding a literal "p", as found in Dublin Core
// format strings like "xii, 412 p. ; 23 cm" or "(245 p.)".
var pagesRe = regexp.MustCompile(`(?i)(?:^|[\s([])([0-9]+)\s*p`)

// HTML-like markup tags, stripped from summaries.
var htmlTagRe = regexp.MustCompile(`<[^>]*>`)

// extractYear returns the first 4-digit year found in s, or "".
func extractYear(s string) string {
	if m := yearRe.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return ""
}

// extractPages returns the page count found in a physical-description
// string, or "".
func extractPages(s string) string {
	if m := pagesRe.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return ""
}

// stripHTML removes markup tags from s.
func stripHTML(s string) string {
	return htmlTagRe.ReplaceAllString(s, "")
}
