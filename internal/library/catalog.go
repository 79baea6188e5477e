package library

import (
	"context"
	"strings"
)

// Catalog is the read-only query side over the catalog store.
type Catalog struct {
	repo CatalogRepository
}

func NewCatalog(repo CatalogRepository) *Catalog { return &Catalog{repo: repo} }

// Search matches text case-insensitively against title, author and ISBN and
// filters on the exact category when one is given.
func (c *Catalog) Search(ctx context.Context, text, category string) ([]BookView, error) {
	books, err := c.repo.Search(ctx, SearchQuery{
		Text:     strings.TrimSpace(text),
		Category: strings.TrimSpace(category),
	})
	if err != nil {
		return nil, err
	}
	out := make([]BookView, 0, len(books))
	for _, b := range books {
		out = append(out, NewBookView(b))
	}
	return out, nil
}

func (c *Catalog) Get(ctx context.Context, id string) (BookView, error) {
	b, err := c.repo.Get(ctx, id)
	if err != nil {
		return BookView{}, err
	}
	return NewBookView(b), nil
}

// Matches is the in-process form of the search predicate, shared by stores
// that filter in memory.
func (q SearchQuery) Matches(b Book) bool {
	if q.Category != "" && b.Category != q.Category {
		return false
	}
	if q.Text == "" {
		return true
	}
	needle := strings.ToLower(q.Text)
	for _, hay := range []string{b.Title, b.Author, b.ISBN} {
		if strings.Contains(strings.ToLower(hay), needle) {
			return true
		}
	}
	return false
}
