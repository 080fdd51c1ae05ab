// Package command runs a local tool for each request: the request body is
// piped to the tool's stdin and its output becomes the reply.
//
// The tool's arguments and a few switches come from request headers:
//
//	vars: k=v, name=body     variables; "body" takes the body up to the first blank line
//	args: --flag $name       arguments, after variable expansion and shell splitting
//	opts: parse-body,stdout  parse-body, stdout or stderr
//
// Query parameters are the initial variables.
package command

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/shlex"

	"simonwaldherr.de/go/mockserv/internal/config"
	"simonwaldherr.de/go/mockserv/internal/reply"
	"simonwaldherr.de/go/mockserv/internal/request"
	"simonwaldherr.de/go/mockserv/pkg/logging"
)

const (
	headerVars = "vars"
	headerArgs = "args"
	headerOpts = "opts"

	optParseBody = "parse-body"
	optStdout    = "stdout"
	optStderr    = "stderr"
)

// Runner executes tools found in the configured tools directory.
type Runner struct {
	config *config.Config
}

// NewRunner creates a Runner reading the tools directory from cfg.
func NewRunner(cfg *config.Config) *Runner {
	return &Runner{config: cfg}
}

// Invocation is everything needed to run one tool.
type Invocation struct {
	App  string
	Vars map[string]string
	Args []string
	Opts []string
	Body []byte
}

// Parse builds the invocation for app from the request.
func Parse(app string, r *http.Request) (*Invocation, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}

	vars := request.QueryMap(r)

	varItems, err := splitHeader(r.Header, headerVars, vars)
	if err != nil {
		return nil, err
	}
	for _, item := range varItems {
		k, v, ok := strings.Cut(item, "=")
		if !ok {
			continue
		}
		if v == "body" {
			head, tail := splitBlankLine(body)
			body = tail
			v = Expand(vars, string(head))
		}
		vars[k] = v
	}

	args, err := splitHeader(r.Header, headerArgs, vars)
	if err != nil {
		return nil, err
	}
	opts, err := splitHeader(r.Header, headerOpts, vars)
	if err != nil {
		return nil, err
	}

	if slices.Contains(opts, optParseBody) {
		body = []byte(Expand(vars, string(body)))
	}

	return &Invocation{App: app, Vars: vars, Args: args, Opts: opts, Body: body}, nil
}

// splitHeader splits every value of header name on ",", expands variables
// and then splits each piece into shell words.
func splitHeader(h http.Header, name string, vars map[string]string) ([]string, error) {
	var out []string
	for _, value := range h.Values(name) {
		for _, part := range strings.Split(value, ",") {
			words, err := shlex.Split(Expand(vars, part))
			if err != nil {
				return nil, fmt.Errorf("invalid %s header %q: %w", name, part, err)
			}
			out = append(out, words...)
		}
	}
	return out, nil
}

// splitBlankLine cuts input at the first "\n\n". Without one, all of it is
// the head.
func splitBlankLine(input []byte) (head, tail []byte) {
	if i := bytes.Index(input, []byte("\n\n")); i >= 0 {
		return input[:i], input[i+2:]
	}
	return input, nil
}

// ServeHTTP handles /command/{app}.
func (rn *Runner) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	app := chi.URLParam(r, "app")
	if err := rn.Handle(app, r).Write(w); err != nil {
		logging.Warn("Command", "Failed to write reply for %s: %v", app, err)
	}
}

// Handle runs app for r. Failures become text replies.
func (rn *Runner) Handle(app string, r *http.Request) reply.Reply {
	if err := validateApp(app); err != nil {
		return reply.Text(err.Error())
	}
	inv, err := Parse(app, r)
	if err != nil {
		logging.Error("Command", err, "Rejected request for %s", app)
		return reply.Text(err.Error())
	}

	logging.Info("Command", "app: %s vars: %v args: %q opts: %q body: %dB",
		inv.App, inv.Vars, inv.Args, inv.Opts, len(inv.Body))

	result, err := rn.Run(r, inv)
	if err != nil {
		logging.Error("Command", err, "Failed to run %s", app)
		return reply.Text(err.Error())
	}

	switch {
	case slices.Contains(inv.Opts, optStdout):
		return reply.Binary(result.Stdout)
	case slices.Contains(inv.Opts, optStderr):
		return reply.Binary(result.Stderr)
	default:
		return reply.Text(result.Summary())
	}
}

// Result is the outcome of a finished tool.
type Result struct {
	Status   string
	Duration time.Duration
	Stdout   []byte
	Stderr   []byte
}

// Summary is the default text reply.
func (res *Result) Summary() string {
	return fmt.Sprintf("status: %s\ntime: %dms\n\nstdout:\n%s\n\nstderr:\n%s\n",
		res.Status, res.Duration.Milliseconds(), res.Stdout, res.Stderr)
}

// Run executes the tool and waits for it. A non-zero exit is a normal
// Result; only a tool that cannot be started is an error.
func (rn *Runner) Run(r *http.Request, inv *Invocation) (*Result, error) {
	toolPath := filepath.Join(rn.config.Get().ToolsDir, inv.App)

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd := exec.CommandContext(r.Context(), toolPath, inv.Args...)
	cmd.Stdin = bytes.NewReader(inv.Body)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	startTime := time.Now()
	err := cmd.Run()
	duration := time.Since(startTime)

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return nil, fmt.Errorf("failed to run %s: %w", toolPath, err)
	}

	return &Result{
		Status:   cmd.ProcessState.String(),
		Duration: duration,
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
	}, nil
}

func validateApp(app string) error {
	if app == "" || app == "." || app == ".." || strings.ContainsAny(app, `/\`) {
		return fmt.Errorf("invalid tool name %q", app)
	}
	return nil
}
