// Package openlibrary resolves book metadata by ISBN from the Open Library
// books API.
package openlibrary

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/ariefcatur/go-campus-library/internal/library"
)

const DefaultBaseURL = "https://openlibrary.org/api/books"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

var _ library.MetadataLookup = (*Client)(nil)

func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{BaseURL: baseURL, HTTP: &http.Client{Timeout: 10 * time.Second}}
}

type named struct {
	Name string `json:"name"`
}

type record struct {
	Title      string  `json:"title"`
	Authors    []named `json:"authors"`
	Publishers []named `json:"publishers"`
	Cover      struct {
		Small  string `json:"small"`
		Medium string `json:"medium"`
		Large  string `json:"large"`
	} `json:"cover"`
}

// Lookup fails with NOT_FOUND when Open Library has no record for isbn.
func (c *Client) Lookup(ctx context.Context, isbn string) (library.Metadata, error) {
	isbn = strings.TrimSpace(isbn)
	if isbn == "" {
		return library.Metadata{}, library.Errorf(library.CodeInvalidInput, "isbn is required")
	}
	key := "ISBN:" + isbn
	q := url.Values{}
	q.Set("bibkeys", key)
	q.Set("format", "json")
	q.Set("jscmd", "data")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return library.Metadata{}, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return library.Metadata{}, fmt.Errorf("open library: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return library.Metadata{}, fmt.Errorf("open library: unexpected status %d", resp.StatusCode)
	}

	var body map[string]record
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return library.Metadata{}, fmt.Errorf("open library: decode: %w", err)
	}
	rec, ok := body[key]
	if !ok {
		return library.Metadata{}, library.Errorf(library.CodeNotFound, "no details found for ISBN %s", isbn)
	}
	return rec.metadata(), nil
}

func (r record) metadata() library.Metadata {
	cover := r.Cover.Large
	if cover == "" {
		cover = r.Cover.Medium
	}
	if cover == "" {
		cover = r.Cover.Small
	}
	return library.Metadata{
		Title:     r.Title,
		Author:    joinNames(r.Authors),
		Publisher: joinNames(r.Publishers),
		CoverURL:  cover,
	}
}

func joinNames(ns []named) string {
	out := make([]string, 0, len(ns))
	for _, n := range ns {
		if n.Name != "" {
			out = append(out, n.Name)
		}
	}
	return strings.Join(out, ", ")
}
