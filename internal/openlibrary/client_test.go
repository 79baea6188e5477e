package openlibrary_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-campus-library/internal/library"
	"github.com/ariefcatur/go-campus-library/internal/openlibrary"
)

func Test_Lookup(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("bibkeys") != "ISBN:978-0262033848" {
			_, _ = w.Write([]byte(`{}`))
			return
		}
		_, _ = w.Write([]byte(`{"ISBN:978-0262033848": {
			"title": "Introduction to Algorithms",
			"authors": [{"name": "Thomas H. Cormen"}, {"name": "Charles E. Leiserson"}],
			"publishers": [{"name": "MIT Press"}],
			"cover": {"small": "s.jpg", "medium": "m.jpg"}
		}}`))
	}))
	defer srv.Close()
	c := openlibrary.New(srv.URL)

	md, err := c.Lookup(context.Background(), " 978-0262033848 ")

	require.NoError(t, err)
	assert.Contains(t, gotQuery, "jscmd=data")
	assert.Equal(t, library.Metadata{
		Title:     "Introduction to Algorithms",
		Author:    "Thomas H. Cormen, Charles E. Leiserson",
		Publisher: "MIT Press",
		CoverURL:  "m.jpg",
	}, md)

	_, err = c.Lookup(context.Background(), "000")
	assert.ErrorIs(t, err, library.ErrNotFound)

	_, err = c.Lookup(context.Background(), "")
	assert.ErrorIs(t, err, library.ErrInvalidInput)
}

func Test_Lookup_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := openlibrary.New(srv.URL).Lookup(context.Background(), "978-1")

	require.Error(t, err)
	assert.Equal(t, library.ErrCode(""), library.Code(err))
}
