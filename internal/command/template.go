package command

import (
	"regexp"
	"strings"

	"github.com/Masterminds/sprig/v3"
)

// variablePattern matches $name, ${ name } and ${ fn(input) }.
var variablePattern = regexp.MustCompile(
	`\$(?P<var1>[0-9A-Za-z_]+)` +
		`|\$\{\s*(?P<var2>[0-9A-Za-z_]+)\s*\}` +
		`|\$\{\s*(?P<fn>[0-9A-Za-z_]+)\(\s*(?P<input>[^)]*)\s*\)\s*\}`)

var (
	groupVar1  = variablePattern.SubexpIndex("var1")
	groupVar2  = variablePattern.SubexpIndex("var2")
	groupFn    = variablePattern.SubexpIndex("fn")
	groupInput = variablePattern.SubexpIndex("input")
)

// templateFuncs holds every sprig function that maps a string to a string,
// plus base64 as an alias of b64enc.
var templateFuncs = loadTemplateFuncs()

func loadTemplateFuncs() map[string]func(string) string {
	funcs := make(map[string]func(string) string)
	for name, fn := range sprig.TxtFuncMap() {
		if f, ok := fn.(func(string) string); ok {
			funcs[name] = f
		}
	}
	if f, ok := funcs["b64enc"]; ok {
		funcs["base64"] = f
	}
	return funcs
}

// Expand substitutes variables and function calls in input. Unknown
// variables become ${name}; unknown functions keep their call text with
// the argument expanded.
func Expand(vars map[string]string, input string) string {
	matches := variablePattern.FindAllStringSubmatchIndex(input, -1)
	if matches == nil {
		return input
	}

	var sb strings.Builder
	last := 0
	for _, m := range matches {
		sb.WriteString(input[last:m[0]])
		sb.WriteString(expandMatch(vars, input, m))
		last = m[1]
	}
	sb.WriteString(input[last:])
	return sb.String()
}

func expandMatch(vars map[string]string, input string, m []int) string {
	group := func(i int) (string, bool) {
		if m[2*i] < 0 {
			return "", false
		}
		return input[m[2*i]:m[2*i+1]], true
	}

	if name, ok := group(groupVar1); ok {
		return lookup(vars, name)
	}
	if name, ok := group(groupVar2); ok {
		return lookup(vars, name)
	}
	fname, _ := group(groupFn)
	arg, _ := group(groupInput)
	arg = Expand(vars, arg)
	if fn, ok := templateFuncs[fname]; ok {
		return fn(arg)
	}
	return "${" + fname + "(" + arg + ")}"
}

func lookup(vars map[string]string, name string) string {
	if v, ok := vars[name]; ok {
		return v
	}
	return "${" + name + "}"
}
