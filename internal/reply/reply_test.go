package reply

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestText_Write(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, Text("héllo").Write(rec))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "héllo", rec.Body.String())
}

func TestBinary_Write(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, Binary([]byte{0x00, 0xff, 0x10}).Write(rec))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/octet-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, []byte{0x00, 0xff, 0x10}, rec.Body.Bytes())
}

func TestResponse_Write(t *testing.T) {
	rec := httptest.NewRecorder()
	resp := &Response{
		Status: http.StatusNotFound,
		Header: http.Header{"X-List": {"a,b,c"}},
		Body:   []byte("missing"),
	}
	require.NoError(t, resp.Write(rec))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, []string{"a,b,c"}, rec.Header().Values("X-List"))
	assert.Equal(t, "7", rec.Header().Get("Content-Length"))
	assert.Equal(t, "missing", rec.Body.String())
}

func TestReply_IsSealed(t *testing.T) {
	replies := []Reply{Text("a"), Binary("b"), &Response{Status: 204}}
	for _, r := range replies {
		rec := httptest.NewRecorder()
		assert.NoError(t, r.Write(rec))
	}
}
