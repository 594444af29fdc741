package rag

import "strings"

// OpeningKeywords mark a question about how a book begins.
var OpeningKeywords = []string{"first line", "opening", "begin", "start"}

// IsOpeningQuery reports whether query asks about the start of a book.
func IsOpeningQuery(query string) bool {
	q := strings.ToLower(query)
	for _, kw := range OpeningKeywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}
