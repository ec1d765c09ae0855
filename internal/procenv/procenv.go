// Package procenv carries the process environment handed to child
// processes started by the merge tool.
package procenv

import (
	"os"
	"slices"
	"strings"
)

// FlagName marks processes started from inside the merge tool.
const FlagName = "SCRIPT_MERGE_ENVIRONMENT"

// Env is an explicit snapshot of environment variables. It is never written
// back to the running process.
type Env struct {
	vars []string
}

// New returns the current process environment with the merge-tool flag set.
func New() *Env {
	return FromList(os.Environ()).With(FlagName, "1")
}

// FromList wraps KEY=VALUE pairs.
func FromList(vars []string) *Env {
	return &Env{vars: slices.Clone(vars)}
}

// With returns a copy of e where key is set to value.
func (e *Env) With(key, value string) *Env {
	out := &Env{}
	prefix := key + "="
	for _, kv := range e.Environ() {
		if !strings.HasPrefix(kv, prefix) {
			out.vars = append(out.vars, kv)
		}
	}
	out.vars = append(out.vars, prefix+value)
	return out
}

// Lookup returns the value of key. The last assignment wins.
func (e *Env) Lookup(key string) (string, bool) {
	if e == nil {
		return "", false
	}
	prefix := key + "="
	for i := len(e.vars) - 1; i >= 0; i-- {
		if v, ok := strings.CutPrefix(e.vars[i], prefix); ok {
			return v, true
		}
	}
	return "", false
}

// InMergeTool reports whether the flag is set to "1".
func (e *Env) InMergeTool() bool {
	v, ok := e.Lookup(FlagName)
	return ok && v == "1"
}

// Environ returns the variables in a form usable as exec.Cmd.Env.
func (e *Env) Environ() []string {
	if e == nil {
		return nil
	}
	return slices.Clone(e.vars)
}
