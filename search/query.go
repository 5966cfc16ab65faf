package search

import (
	"strconv"
	"strings"
)

// Query decouples the raw chat input of a search from the index engine.
type Query struct {
	RawInput string // the original text from the client
	Terms    string // the text actually searched
	Limit    int    // 0 means "use the server default"
}

// Parse extracts command-line style arguments from a raw search string.
// Example: `invoice draft --limit 20`.
func Parse(input string) Query {
	query := Query{RawInput: input}

	parts := strings.Fields(input)
	var textTerms []string

	for i := 0; i < len(parts); i++ {
		part := parts[i]

		if strings.HasPrefix(part, "--") && i+1 < len(parts) {
			key := strings.TrimPrefix(part, "--")
			val := parts[i+1]

			if key == "limit" {
				if n, err := strconv.Atoi(val); err == nil && n > 0 {
					query.Limit = n
				}
			}
			i++
			continue
		}

		textTerms = append(textTerms, part)
	}

	query.Terms = strings.Join(textTerms, " ")
	return query
}
