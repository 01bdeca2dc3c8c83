package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromRequest_Defaults(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/items", nil)
	p := FromRequest(req)

	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 20, p.PerPage)
	assert.Equal(t, 0, p.Offset())
}

func TestFromRequest_CustomValues(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/items?page=3&per_page=50", nil)
	p := FromRequest(req)

	assert.Equal(t, 3, p.Page)
	assert.Equal(t, 50, p.PerPage)
	assert.Equal(t, 100, p.Offset())
}

func TestFromRequest_InvalidValuesFallBack(t *testing.T) {
	tests := []struct {
		query   string
		page    int
		perPage int
	}{
		{"page=-1", 1, 20},
		{"page=0", 1, 20},
		{"page=abc", 1, 20},
		{"per_page=200", 1, 20},
		{"per_page=0", 1, 20},
		{"per_page=100", 1, 100},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			p := FromRequest(httptest.NewRequest(http.MethodGet, "/items?"+tt.query, nil))
			assert.Equal(t, tt.page, p.Page)
			assert.Equal(t, tt.perPage, p.PerPage)
		})
	}
}

func TestSlice_FirstPage(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	page := Slice(items, Params{Page: 1, PerPage: 2})

	assert.Equal(t, []int{1, 2}, page.Items)
	assert.Equal(t, 5, page.TotalCount)
	assert.Equal(t, 3, page.TotalPages)
	assert.True(t, page.HasNext)
	assert.False(t, page.HasPrev)
}

func TestSlice_LastPartialPage(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	page := Slice(items, Params{Page: 3, PerPage: 2})

	assert.Equal(t, []int{5}, page.Items)
	assert.False(t, page.HasNext)
	assert.True(t, page.HasPrev)
}

func TestSlice_PastTheEnd(t *testing.T) {
	page := Slice([]string{"a"}, Params{Page: 4, PerPage: 20})

	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)
	assert.Equal(t, 1, page.TotalPages)
	assert.False(t, page.HasNext)
}

func TestSlice_Empty(t *testing.T) {
	page := Slice([]string(nil), Params{Page: 1, PerPage: 20})

	assert.NotNil(t, page.Items)
	assert.Equal(t, 0, page.TotalCount)
	assert.Equal(t, 0, page.TotalPages)
	assert.False(t, page.HasNext)
	assert.False(t, page.HasPrev)
}

func TestSlice_DoesNotAliasInput(t *testing.T) {
	items := []int{1, 2, 3}
	page := Slice(items, Params{Page: 1, PerPage: 2})
	page.Items[0] = 99

	assert.Equal(t, 1, items[0])
}
