package sandbox

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"
)

// WasmEngine runs WASI command modules. The module reads the request
// bindings as one JSON object on stdin and writes the response bindings as
// one JSON object on stdout:
//
//	{"status": 404, "header": {"x-mock": "1"}, "body": "missing"}
//
// Binary bodies go in "body_base64" instead of "body". A module that
// writes nothing gets the defaults. The directory holding the module is
// mounted read-only at / so that it can load sibling fixture files.
type WasmEngine struct{}

type wasmResponse struct {
	Status     *int              `json:"status"`
	Header     map[string]string `json:"header"`
	Body       *string           `json:"body"`
	BodyBase64 *string           `json:"body_base64"`
}

func (WasmEngine) Execute(ctx context.Context, name string, script []byte, req RequestBindings) (ResponseBindings, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	// A fresh runtime per call: no compiled module outlives the request.
	rt := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().WithCloseOnContextDone(true))
	defer rt.Close(context.Background())

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		return ResponseBindings{}, fmt.Errorf("failed to instantiate WASI: %w", err)
	}

	compiled, err := rt.CompileModule(ctx, script)
	if err != nil {
		return ResponseBindings{}, scriptErrorf(name, "failed to compile module: %v", err)
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return ResponseBindings{}, fmt.Errorf("failed to encode request bindings: %w", err)
	}

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	moduleConfig := wazero.NewModuleConfig().
		WithName("mock").
		WithArgs(filepath.Base(name)).
		WithStdin(bytes.NewReader(payload)).
		WithStdout(stdout).
		WithStderr(stderr).
		WithFSConfig(wazero.NewFSConfig().WithReadOnlyDirMount(filepath.Dir(name), "/"))

	mod, err := rt.InstantiateModule(ctx, compiled, moduleConfig)
	if mod != nil {
		defer mod.Close(context.Background())
	}
	if err != nil {
		var exitErr *sys.ExitError
		if !errors.As(err, &exitErr) || exitErr.ExitCode() != 0 {
			return ResponseBindings{}, scriptErrorf(name, "module failed: %v%s", err, stderrSuffix(stderr))
		}
	}

	return decodeWasmResponse(name, stdout.Bytes())
}

func decodeWasmResponse(name string, out []byte) (ResponseBindings, error) {
	if len(bytes.TrimSpace(out)) == 0 {
		return ResponseBindings{}, nil
	}

	var wr wasmResponse
	if err := json.Unmarshal(out, &wr); err != nil {
		return ResponseBindings{}, scriptErrorf(name, "invalid response bindings on stdout: %v", err)
	}

	resp := ResponseBindings{Status: wr.Status, Header: wr.Header}
	switch {
	case wr.BodyBase64 != nil:
		body, err := base64.StdEncoding.DecodeString(*wr.BodyBase64)
		if err != nil {
			return ResponseBindings{}, scriptErrorf(name, "body_base64: %v", err)
		}
		resp.Body = body
	case wr.Body != nil:
		resp.Body = []byte(*wr.Body)
	}
	return resp, nil
}

func stderrSuffix(stderr *bytes.Buffer) string {
	s := strings.TrimSpace(stderr.String())
	if s == "" {
		return ""
	}
	return "\nstderr:\n" + s
}
