// Package interpreter asks a Python binary for its module search path.
package interpreter

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"unicode/utf8"
)

const sysPathScript = "import sys\nfor path in sys.path: print(path)"

// SubprocessError reports a failed search-path query.
type SubprocessError struct {
	Binary string
	Stderr string
	Err    error
}

func (e *SubprocessError) Error() string {
	msg := fmt.Sprintf("querying search path from %s: %v", e.Binary, e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *SubprocessError) Unwrap() error { return e.Err }

// QuerySearchPath runs binary once in isolated mode (-E) and returns the
// non-empty entries of its sys.path. env becomes the child's environment;
// nil inherits the current one.
func QuerySearchPath(ctx context.Context, binary string, env []string) ([]string, error) {
	cmd := exec.CommandContext(ctx, binary, "-E", "-c", sysPathScript)
	cmd.Env = env
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		return nil, &SubprocessError{Binary: binary, Stderr: strings.TrimSpace(stderr.String()), Err: err}
	}
	return parseSearchPath(binary, output)
}

func parseSearchPath(binary string, output []byte) ([]string, error) {
	var paths []string
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if !utf8.Valid(line) {
			return nil, &SubprocessError{Binary: binary, Err: errors.New("search path entry is not valid UTF-8")}
		}
		paths = append(paths, string(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, &SubprocessError{Binary: binary, Err: err}
	}
	return paths, nil
}
