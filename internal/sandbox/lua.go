package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"strconv"

	lua "github.com/yuin/gopher-lua"
)

// LuaEngine runs scripts with gopher-lua. The script reads the global
// table req and fills the global table resp:
//
//	resp.status = 404
//	resp.header = { ["content-type"] = "text/plain" }
//	resp.body = "missing " .. req.path_param.id
//
// Only the base, table, string and math libraries are loaded. os, io and
// package stay closed, so a script cannot exit the process or touch files.
type LuaEngine struct{}

var luaLibs = []struct {
	name string
	open lua.LGFunction
}{
	{lua.BaseLibName, lua.OpenBase},
	{lua.TabLibName, lua.OpenTable},
	{lua.StringLibName, lua.OpenString},
	{lua.MathLibName, lua.OpenMath},
}

func (LuaEngine) Execute(ctx context.Context, name string, script []byte, req RequestBindings) (ResponseBindings, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	for _, lib := range luaLibs {
		if err := L.CallByParam(lua.P{Fn: L.NewFunction(lib.open), NRet: 0, Protect: true}, lua.LString(lib.name)); err != nil {
			return ResponseBindings{}, scriptErrorf(name, "failed to open lua library %q: %v", lib.name, err)
		}
	}
	L.SetGlobal("dofile", lua.LNil)
	L.SetGlobal("loadfile", lua.LNil)
	if ctx != nil {
		L.SetContext(ctx)
	}

	reqTable := L.NewTable()
	reqTable.RawSetString(ReqPath, lua.LString(req.Path))
	reqTable.RawSetString(ReqQuery, luaStringTable(L, req.Query))
	reqTable.RawSetString(ReqHeader, luaStringTable(L, req.Header))
	reqTable.RawSetString(ReqBody, lua.LString(req.Body))
	reqTable.RawSetString(ReqPathParam, luaStringTable(L, req.PathParams))
	L.SetGlobal(ReqName, reqTable)
	L.SetGlobal(RespName, L.NewTable())

	fn, err := L.Load(bytes.NewReader(script), name)
	if err != nil {
		return ResponseBindings{}, &ScriptError{Script: name, Err: err}
	}
	L.Push(fn)
	if err := L.PCall(0, lua.MultRet, nil); err != nil {
		return ResponseBindings{}, &ScriptError{Script: name, Err: err}
	}

	respTable, ok := L.GetGlobal(RespName).(*lua.LTable)
	if !ok {
		return ResponseBindings{}, scriptErrorf(name, "global %s must be a table, got %s",
			RespName, L.GetGlobal(RespName).Type())
	}
	return luaResponse(name, respTable)
}

func luaStringTable(L *lua.LState, m map[string]string) *lua.LTable {
	t := L.CreateTable(0, len(m))
	for k, v := range m {
		t.RawSetString(k, lua.LString(v))
	}
	return t
}

func luaResponse(name string, t *lua.LTable) (ResponseBindings, error) {
	var out ResponseBindings

	switch v := t.RawGetString(RespStatus).(type) {
	case *lua.LNilType:
	case lua.LNumber:
		f := float64(v)
		if f != math.Trunc(f) || f < math.MinInt32 || f > math.MaxInt32 {
			return out, scriptErrorf(name, "resp.%s must be an integer, got %v", RespStatus, f)
		}
		status := int(f)
		out.Status = &status
	case lua.LString:
		// Lua coerces numeric strings where a number is expected.
		status, err := strconv.Atoi(string(v))
		if err != nil {
			return out, scriptErrorf(name, "resp.%s must be a number, got %q", RespStatus, string(v))
		}
		out.Status = &status
	default:
		return out, scriptErrorf(name, "resp.%s must be a number, got %s", RespStatus, v.Type())
	}

	switch v := t.RawGetString(RespHeader).(type) {
	case *lua.LNilType:
	case *lua.LTable:
		header := make(map[string]string)
		var convErr error
		v.ForEach(func(key, value lua.LValue) {
			if convErr != nil {
				return
			}
			k, ok := luaScalarString(key)
			if !ok {
				convErr = fmt.Errorf("resp.%s key must be a string, got %s", RespHeader, key.Type())
				return
			}
			s, ok := luaScalarString(value)
			if !ok {
				convErr = fmt.Errorf("resp.%s[%q] must be a string, got %s", RespHeader, k, value.Type())
				return
			}
			header[k] = s
		})
		if convErr != nil {
			return out, &ScriptError{Script: name, Err: convErr}
		}
		out.Header = header
	default:
		return out, scriptErrorf(name, "resp.%s must be a table, got %s", RespHeader, v.Type())
	}

	switch v := t.RawGetString(RespBody).(type) {
	case *lua.LNilType:
	default:
		s, ok := luaScalarString(v)
		if !ok {
			return out, scriptErrorf(name, "resp.%s must be a string, got %s", RespBody, v.Type())
		}
		out.Body = []byte(s)
	}

	return out, nil
}

// luaScalarString converts strings and numbers the way Lua's tostring
// would; anything else is rejected.
func luaScalarString(v lua.LValue) (string, bool) {
	switch v := v.(type) {
	case lua.LString:
		return string(v), true
	case lua.LNumber:
		return v.String(), true
	default:
		return "", false
	}
}
