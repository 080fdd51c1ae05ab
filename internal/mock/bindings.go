package mock

import (
	"fmt"
	"io"
	"net/http"

	"simonwaldherr.de/go/mockserv/internal/request"
	"simonwaldherr.de/go/mockserv/internal/sandbox"
)

// NewRequestBindings snapshots r for one script execution. Header names are
// lower-cased and repeated values joined with ","; the body is read in full
// and left as raw bytes.
func NewRequestBindings(r *http.Request, params map[string]string) (sandbox.RequestBindings, error) {
	var body []byte
	if r.Body != nil {
		var err error
		body, err = io.ReadAll(r.Body)
		if err != nil {
			return sandbox.RequestBindings{}, &IOError{Op: "read request body", Path: r.URL.Path, Err: err}
		}
	}

	return sandbox.RequestBindings{
		Path:       r.URL.Path,
		Query:      request.QueryMap(r),
		Header:     request.FoldHeader(r),
		PathParams: copyParams(params),
		Body:       body,
	}, nil
}

func copyParams(params map[string]string) map[string]string {
	out := make(map[string]string, len(params))
	for k, v := range params {
		out[k] = v
	}
	return out
}

// describeRequest is the one-line summary logged for each mock request.
func describeRequest(r *http.Request, bodyLen int) string {
	return fmt.Sprintf("%s %s query=%q body=%dB", r.Method, r.URL.Path, r.URL.RawQuery, bodyLen)
}
