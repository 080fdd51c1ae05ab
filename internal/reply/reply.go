// Package reply is the single return type shared by every endpoint: plain
// text, raw bytes, or a fully constructed HTTP response.
package reply

import (
	"net/http"
	"strconv"
)

// Reply is implemented by Text, Binary and Response only.
type Reply interface {
	// Write sends the reply. The header is committed when it returns.
	Write(w http.ResponseWriter) error
	isReply()
}

// Text is a UTF-8 body sent with status 200.
type Text string

func (t Text) Write(w http.ResponseWriter) error {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(t)))
	w.WriteHeader(http.StatusOK)
	_, err := w.Write([]byte(t))
	return err
}

func (Text) isReply() {}

// Binary is an opaque body sent with status 200.
type Binary []byte

func (b Binary) Write(w http.ResponseWriter) error {
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(b)))
	w.WriteHeader(http.StatusOK)
	_, err := w.Write(b)
	return err
}

func (Binary) isReply() {}

// Response carries its own status line, headers and body. Header values
// are written exactly as given.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

func (r *Response) Write(w http.ResponseWriter) error {
	h := w.Header()
	for name, values := range r.Header {
		h[name] = append([]string(nil), values...)
	}
	if h.Get("Content-Length") == "" {
		h.Set("Content-Length", strconv.Itoa(len(r.Body)))
	}
	w.WriteHeader(r.Status)
	_, err := w.Write(r.Body)
	return err
}

func (*Response) isReply() {}
