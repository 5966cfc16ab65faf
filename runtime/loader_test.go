package runtime

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadCensoredWords(t *testing.T) {
	req := require.New(t)

	data, err := LoadCensoredWords()
	req.NoError(err)

	// One entry per embedded dictionary file
	req.ElementsMatch([]string{"en", "fr"}, data.Languages)

	// Words are unique and non-empty
	req.NotEmpty(data.Words)
	seen := make(map[string]struct{}, len(data.Words))
	for _, w := range data.Words {
		req.NotEmpty(w)
		_, dup := seen[w]
		req.False(dup, "duplicate word %q", w)
		seen[w] = struct{}{}
	}
	req.Contains(data.Words, "idiot")
}
