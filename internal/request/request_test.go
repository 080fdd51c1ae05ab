package request

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueryMap_LastValueWins(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/x?a=1&b=2&a=3&empty=", nil)
	assert.Equal(t, map[string]string{"a": "3", "b": "2", "empty": ""}, QueryMap(r))
}

func TestFoldHeader(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/x", nil)
	r.Host = "localhost:3030"
	r.Header.Add("X-Tag", "one")
	r.Header.Add("X-Tag", "two, three")
	r.Header["x-tag"] = []string{"four"}

	h := FoldHeader(r)
	assert.Equal(t, "localhost:3030", h["host"])
	// Canonical and non-canonical spellings fold into one lower-case key.
	assert.Equal(t, "one,two, three,four", h["x-tag"])
}

func TestFoldHeader_CollidingNamesAreStable(t *testing.T) {
	for i := 0; i < 20; i++ {
		r := httptest.NewRequest(http.MethodGet, "/x", nil)
		r.Header["x-id"] = []string{"c"}
		r.Header["X-Id"] = []string{"a"}
		r.Header["X-ID"] = []string{"b"}

		assert.Equal(t, "b,a,c", FoldHeader(r)["x-id"])
	}
}

func TestSortedKeys(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, SortedKeys(map[string]string{"c": "", "a": "", "b": ""}))
	assert.Empty(t, SortedKeys(nil))
}
