package mock

import (
	"fmt"
	"net/http"
	"sort"

	"golang.org/x/net/http/httpguts"

	"simonwaldherr.de/go/mockserv/internal/reply"
	"simonwaldherr.de/go/mockserv/internal/sandbox"
)

// Lowest and highest status a script may set. net/http sends 1xx codes as
// interim responses followed by an implicit 200, so they are rejected.
const (
	minStatus = 200
	maxStatus = 999
)

// Build turns script outputs into an HTTP response. Each header value is
// sent as a single line even when it contains commas.
func Build(out sandbox.ResponseBindings) (*reply.Response, error) {
	status := out.StatusOrDefault()
	if status < minStatus || status > maxStatus {
		return nil, &ConstructionError{Reason: fmt.Sprintf("status %d out of range %d-%d", status, minStatus, maxStatus)}
	}

	names := make([]string, 0, len(out.Header))
	for name := range out.Header {
		names = append(names, name)
	}
	sort.Strings(names)

	header := make(http.Header, len(names))
	for _, name := range names {
		value := out.Header[name]
		if !httpguts.ValidHeaderFieldName(name) {
			return nil, &ConstructionError{Reason: fmt.Sprintf("invalid header name %q", name)}
		}
		if !httpguts.ValidHeaderFieldValue(value) {
			return nil, &ConstructionError{Reason: fmt.Sprintf("invalid value for header %q", name)}
		}
		header.Add(name, value)
	}

	return &reply.Response{
		Status: status,
		Header: header,
		Body:   append([]byte(nil), out.Body...),
	}, nil
}
