package mock

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Sentinel is the leading character of a wildcard entry. Whatever follows
// it in the base name is the parameter name, so "_id.lua" captures the
// segment as "id" and "_.lua" captures nothing.
const Sentinel = '_'

// Resolution is a matched script plus the parameters captured on the way.
type Resolution struct {
	ScriptPath string
	PathParams map[string]string
}

// walkState is the accumulator carried from one directory level to the next.
type walkState struct {
	dir       string
	params    map[string]string
	remaining []string
}

// Resolve walks segments down from root, one directory level per segment.
// The last segment is matched against files with their extension
// stripped; the others against directories. At each level an exact name
// wins over a wildcard. root is only read, never modified.
func Resolve(ctx context.Context, root string, segments []string) (Resolution, error) {
	if len(segments) == 0 {
		return Resolution{}, &NotFoundError{Path: root + "/"}
	}

	state := walkState{dir: root, params: map[string]string{}, remaining: segments}
	for {
		if err := ctx.Err(); err != nil {
			return Resolution{}, err
		}

		next, done, err := step(state)
		if err != nil {
			return Resolution{}, err
		}
		if done {
			return Resolution{ScriptPath: next.dir, PathParams: next.params}, nil
		}
		state = next
	}
}

// step matches the first remaining segment inside state.dir. When the
// segment was the last one it returns done with dir set to the script.
func step(state walkState) (walkState, bool, error) {
	target := state.remaining[0]
	isLeaf := len(state.remaining) == 1

	entries, err := os.ReadDir(state.dir)
	if err != nil {
		return walkState{}, false, &IOError{Op: "read mock dir", Path: state.dir, Err: err}
	}

	var exact, wildcard os.DirEntry
	for _, entry := range entries {
		if !kindMatches(state.dir, entry, isLeaf) {
			continue
		}
		base := baseName(entry.Name(), isLeaf)
		if base == target {
			exact = entry
			break
		}
		if wildcard == nil && len(base) > 0 && base[0] == Sentinel {
			wildcard = entry
		}
	}

	params := state.params
	matched := exact
	if matched == nil && wildcard != nil {
		matched = wildcard
		if name := baseName(wildcard.Name(), isLeaf)[1:]; name != "" {
			params = withParam(params, name, target)
		}
	}
	if matched == nil {
		return walkState{}, false, &NotFoundError{Path: joinPath(state.dir, target)}
	}

	next := walkState{
		dir:       joinPath(state.dir, matched.Name()),
		params:    params,
		remaining: state.remaining[1:],
	}
	return next, isLeaf, nil
}

// kindMatches reports whether entry is a file (for the leaf) or a
// directory (otherwise). Symlinks are followed.
func kindMatches(dir string, entry os.DirEntry, isLeaf bool) bool {
	mode := entry.Type()
	if mode&os.ModeSymlink != 0 {
		info, err := os.Stat(filepath.Join(dir, entry.Name()))
		if err != nil {
			return false
		}
		mode = info.Mode()
	}
	if isLeaf {
		return mode.IsRegular()
	}
	return mode.IsDir()
}

// baseName strips the extension of files. A name that is all extension,
// like ".lua", is kept whole.
func baseName(name string, isFile bool) string {
	if !isFile {
		return name
	}
	if stem := strings.TrimSuffix(name, path.Ext(name)); stem != "" {
		return stem
	}
	return name
}

func withParam(params map[string]string, name, value string) map[string]string {
	next := make(map[string]string, len(params)+1)
	for k, v := range params {
		next[k] = v
	}
	next[name] = value
	return next
}

// joinPath concatenates with a slash and without cleaning, so that the
// result reads like the configured root ("./mock/test/echo.lua").
func joinPath(dir, name string) string {
	return strings.TrimSuffix(dir, "/") + "/" + name
}
