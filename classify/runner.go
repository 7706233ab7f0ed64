package classify

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"github.com/carbocation/pfx"
)

// Runner launches an external tool and blocks until it terminates. The
// argument list is passed to the process launcher as-is — never assembled
// into a shell string — so sample identifiers and paths containing shell
// metacharacters cannot alter the invocation.
type Runner interface {
	Invoke(ctx context.Context, exe string, args []string) (Result, error)
}

// Result is the terminal state of one tool invocation.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// stderrExcerptLen bounds how much tool stderr is carried into a ToolError;
// Kraken2 can emit megabytes of progress chatter before failing.
const stderrExcerptLen = 512

// ToolError reports a tool that ran to completion but exited non-zero.
type ToolError struct {
	Tool     string
	ExitCode int
	Stderr   string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s exited with code %d: %s", e.Tool, e.ExitCode, e.Stderr)
}

// ExecRunner runs tools as real subprocesses via os/exec.
type ExecRunner struct{}

// Invoke runs exe with args, capturing stdout and stderr separately. A
// non-zero exit yields a ToolError; failure to launch at all (missing
// binary, cancelled context) yields the underlying error.
func (ExecRunner) Invoke(ctx context.Context, exe string, args []string) (Result, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, exe, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}

	if exitErr, ok := err.(*exec.ExitError); ok {
		res.ExitCode = exitErr.ExitCode()

		// Cancellation kills the child; report that as cancellation, not as
		// a tool failure.
		if ctx.Err() != nil {
			return res, ctx.Err()
		}

		return res, &ToolError{Tool: exe, ExitCode: res.ExitCode, Stderr: excerpt(res.Stderr)}
	} else if err != nil {
		return res, pfx.Err(err)
	}

	return res, nil
}

func excerpt(s string) string {
	if len(s) > stderrExcerptLen {
		return s[:stderrExcerptLen] + "..."
	}

	return s
}
