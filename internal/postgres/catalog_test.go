package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-campus-library/internal/library"
)

func Test_BuildSearchQuery(t *testing.T) {
	tests := []struct {
		name     string
		query    library.SearchQuery
		contains []string
		args     []any
	}{
		{
			name:     "no_filters",
			query:    library.SearchQuery{},
			contains: []string{`FROM "books"`, `ORDER BY "title" ASC, "id" ASC`},
		},
		{
			name:     "category_only",
			query:    library.SearchQuery{Category: "Mathematics"},
			contains: []string{`"category" = $1`},
			args:     []any{"Mathematics"},
		},
		{
			name:     "text_matches_title_author_isbn",
			query:    library.SearchQuery{Text: "kurose"},
			contains: []string{`"title" ILIKE $1`, `"author" ILIKE $2`, `"isbn" ILIKE $3`},
			args:     []any{"%kurose%", "%kurose%", "%kurose%"},
		},
		{
			name:  "wildcards_are_escaped",
			query: library.SearchQuery{Text: "100%_"},
			args:  []any{`%100\%\_%`, `%100\%\_%`, `%100\%\_%`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := buildSearchQuery(tt.query)

			require.NoError(t, err)
			for _, s := range tt.contains {
				assert.Contains(t, sql, s)
			}
			if tt.args == nil {
				assert.Empty(t, args)
			} else {
				assert.Equal(t, tt.args, args)
			}
		})
	}
}
