package sandbox

import (
	"context"
	"sort"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"simonwaldherr.de/go/mockserv/pkg/logging"
)

// StarlarkEngine runs Starlark scripts. The request is the predeclared,
// frozen dict req; the script assigns the top-level names status, header
// and body:
//
//	status = 201
//	header = {"content-type": "application/json"}
//	body = '{"id": "%s"}' % req["path_param"]["id"]
type StarlarkEngine struct{}

var starlarkFileOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
}

func (StarlarkEngine) Execute(ctx context.Context, name string, script []byte, req RequestBindings) (ResponseBindings, error) {
	thread := &starlark.Thread{
		Name: name,
		Print: func(_ *starlark.Thread, msg string) {
			logging.Debug("Sandbox", "%s: %s", name, msg)
		},
	}

	if ctx != nil {
		done := make(chan struct{})
		defer close(done)
		go func() {
			select {
			case <-ctx.Done():
				thread.Cancel(ctx.Err().Error())
			case <-done:
			}
		}()
	}

	reqDict, err := starlarkRequest(req)
	if err != nil {
		return ResponseBindings{}, &ScriptError{Script: name, Err: err}
	}
	predeclared := starlark.StringDict{ReqName: reqDict}

	globals, err := starlark.ExecFileOptions(starlarkFileOptions, thread, name, script, predeclared)
	if err != nil {
		return ResponseBindings{}, &ScriptError{Script: name, Err: err}
	}
	return starlarkResponse(name, globals)
}

func starlarkRequest(req RequestBindings) (*starlark.Dict, error) {
	d := starlark.NewDict(5)
	entries := []struct {
		key   string
		value starlark.Value
	}{
		{ReqPath, starlark.String(req.Path)},
		{ReqQuery, starlarkStringDict(req.Query)},
		{ReqHeader, starlarkStringDict(req.Header)},
		{ReqBody, starlark.Bytes(req.Body)},
		{ReqPathParam, starlarkStringDict(req.PathParams)},
	}
	for _, e := range entries {
		if err := d.SetKey(starlark.String(e.key), e.value); err != nil {
			return nil, err
		}
	}
	d.Freeze()
	return d, nil
}

func starlarkStringDict(m map[string]string) *starlark.Dict {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	d := starlark.NewDict(len(m))
	for _, k := range keys {
		// SetKey only fails on unhashable keys or frozen dicts.
		_ = d.SetKey(starlark.String(k), starlark.String(m[k]))
	}
	return d
}

func starlarkResponse(name string, globals starlark.StringDict) (ResponseBindings, error) {
	var out ResponseBindings

	if v, ok := globals[RespStatus]; ok && v != starlark.None {
		status, err := starlark.AsInt32(v)
		if err != nil {
			return out, scriptErrorf(name, "%s must be an int: %v", RespStatus, err)
		}
		out.Status = &status
	}

	if v, ok := globals[RespHeader]; ok && v != starlark.None {
		d, ok := v.(*starlark.Dict)
		if !ok {
			return out, scriptErrorf(name, "%s must be a dict, got %s", RespHeader, v.Type())
		}
		header := make(map[string]string, d.Len())
		for _, item := range d.Items() {
			k, ok := starlark.AsString(item[0])
			if !ok {
				return out, scriptErrorf(name, "%s key must be a string, got %s", RespHeader, item[0].Type())
			}
			val, ok := starlarkScalarString(item[1])
			if !ok {
				return out, scriptErrorf(name, "%s[%q] must be a string, got %s", RespHeader, k, item[1].Type())
			}
			header[k] = val
		}
		out.Header = header
	}

	if v, ok := globals[RespBody]; ok && v != starlark.None {
		s, ok := starlarkScalarString(v)
		if !ok {
			return out, scriptErrorf(name, "%s must be a string or bytes, got %s", RespBody, v.Type())
		}
		out.Body = []byte(s)
	}

	return out, nil
}

func starlarkScalarString(v starlark.Value) (string, bool) {
	switch v := v.(type) {
	case starlark.String:
		return string(v), true
	case starlark.Bytes:
		return string(v), true
	case starlark.Int:
		return v.String(), true
	default:
		return "", false
	}
}
