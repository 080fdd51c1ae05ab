// Package sandbox runs mock scripts. Each call gets a fresh interpreter;
// nothing survives from one execution to the next.
//
// Engines are chosen by the script's file extension:
//
//	.lua   gopher-lua, globals req / resp
//	.star  Starlark, predeclared req, top-level status / header / body
//	.wasm  WASI module, request JSON on stdin, response JSON on stdout
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Engine executes one script against one request.
type Engine interface {
	Execute(ctx context.Context, name string, script []byte, req RequestBindings) (ResponseBindings, error)
}

// ScriptError is any failure attributable to the script: it did not parse,
// raised an error, or left outputs of the wrong type.
type ScriptError struct {
	Script string
	Err    error
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("script %s: %v", e.Script, e.Err)
}

func (e *ScriptError) Unwrap() error { return e.Err }

func scriptErrorf(script, format string, args ...interface{}) error {
	return &ScriptError{Script: script, Err: fmt.Errorf(format, args...)}
}

// Registry maps file extensions to engines.
type Registry struct {
	engines map[string]Engine
}

// NewRegistry returns a registry with the Lua, Starlark and WASM engines.
func NewRegistry() *Registry {
	r := &Registry{engines: make(map[string]Engine)}
	r.Register(".lua", &LuaEngine{})
	r.Register(".star", &StarlarkEngine{})
	r.Register(".wasm", &WasmEngine{})
	return r
}

// Register installs e for ext. ext may be given with or without the dot.
func (r *Registry) Register(ext string, e Engine) {
	r.engines[normalizeExt(ext)] = e
}

// Extensions lists the registered extensions in sorted order.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.engines))
	for ext := range r.engines {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Execute picks the engine for scriptPath and runs script with it. Every
// failure is returned as a *ScriptError.
func (r *Registry) Execute(ctx context.Context, scriptPath string, script []byte, req RequestBindings) (ResponseBindings, error) {
	ext := normalizeExt(filepath.Ext(scriptPath))
	engine, ok := r.engines[ext]
	if !ok {
		return ResponseBindings{}, scriptErrorf(scriptPath, "no script engine for extension %q (have %s)",
			ext, strings.Join(r.Extensions(), ", "))
	}

	resp, err := engine.Execute(ctx, scriptPath, script, req.Clone())
	if err != nil {
		var se *ScriptError
		if !errors.As(err, &se) {
			err = &ScriptError{Script: scriptPath, Err: err}
		}
		return ResponseBindings{}, err
	}
	return resp, nil
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
