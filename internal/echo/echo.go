// Package echo replies with a readable dump of the request it received.
package echo

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"simonwaldherr.de/go/mockserv/internal/reply"
	"simonwaldherr.de/go/mockserv/internal/request"
	"simonwaldherr.de/go/mockserv/pkg/logging"
)

// Handler serves the echo endpoint.
type Handler struct{}

func (Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := Handle(r).Write(w); err != nil {
		logging.Warn("Echo", "Failed to write reply: %v", err)
	}
}

// Handle renders r as text.
func Handle(r *http.Request) reply.Reply {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return reply.Text(fmt.Sprintf("failed to read body: %v", err))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "path: %s\n\n", r.URL.Path)
	writeMap(&sb, "query", request.QueryMap(r))
	writeMap(&sb, "headers", request.FoldHeader(r))
	fmt.Fprintf(&sb, "body:\n%s\n\n", body)

	out := sb.String()
	logging.Debug("Echo", "%s %s\n%s", r.Method, r.URL.Path, out)
	return reply.Text(out)
}

func writeMap(sb *strings.Builder, title string, m map[string]string) {
	fmt.Fprintf(sb, "%s: {\n", title)
	for _, k := range request.SortedKeys(m) {
		fmt.Fprintf(sb, "    %q: %q,\n", k, m[k])
	}
	sb.WriteString("}\n\n")
}
