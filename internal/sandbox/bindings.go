package sandbox

import "maps"

// Names under which request values are exposed to scripts, and under which
// scripts leave their response.
const (
	ReqName  = "req"
	RespName = "resp"

	ReqPath      = "path"
	ReqQuery     = "query"
	ReqHeader    = "header"
	ReqBody      = "body"
	ReqPathParam = "path_param"

	RespStatus = "status"
	RespHeader = "header"
	RespBody   = "body"
)

// DefaultStatus is used when a script leaves the status unset.
const DefaultStatus = 200

// RequestBindings is the read-only view of a request handed to one script.
type RequestBindings struct {
	Path       string            `json:"path"`
	Query      map[string]string `json:"query"`
	Header     map[string]string `json:"header"`
	PathParams map[string]string `json:"path_param"`
	Body       []byte            `json:"body"`
}

// Clone returns a deep copy so that no map or slice is shared between
// executions.
func (b RequestBindings) Clone() RequestBindings {
	return RequestBindings{
		Path:       b.Path,
		Query:      cloneMap(b.Query),
		Header:     cloneMap(b.Header),
		PathParams: cloneMap(b.PathParams),
		Body:       append([]byte(nil), b.Body...),
	}
}

func cloneMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return maps.Clone(m)
}

// ResponseBindings is what a script produced. Nil fields were not set.
type ResponseBindings struct {
	Status *int
	Header map[string]string
	Body   []byte
}

// StatusOrDefault returns the script's status, or DefaultStatus.
func (r ResponseBindings) StatusOrDefault() int {
	if r.Status == nil {
		return DefaultStatus
	}
	return *r.Status
}
