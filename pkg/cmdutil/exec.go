package cmdutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"
)

// ExecOptions configures command execution.
type ExecOptions struct {
	// Dir is the working directory. Empty means the current directory.
	Dir string

	// Timeout bounds the run. Zero means no timeout.
	Timeout time.Duration

	// Env is appended to the command environment as "KEY=value" entries.
	// Nil inherits the parent environment unchanged.
	Env []string

	// Stdin is fed to the command's standard input.
	Stdin []byte
}

// Result is the outcome of a command run.
type Result struct {
	Output   []byte
	ExitCode int
	Duration time.Duration
	TimedOut bool
}

// Run executes cmdParts with combined stdout and stderr.
// A non-zero exit, a timeout or a start failure returns an error together with
// whatever output was produced.
func Run(ctx context.Context, opts ExecOptions, cmdParts []string) (*Result, error) {
	if len(cmdParts) == 0 {
		return nil, fmt.Errorf("empty command")
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, cmdParts[0], cmdParts[1:]...)
	cmd.Dir = opts.Dir
	if opts.Env != nil {
		cmd.Env = append(cmd.Environ(), opts.Env...)
	}
	if opts.Stdin != nil {
		cmd.Stdin = bytes.NewReader(opts.Stdin)
	}

	start := time.Now()
	output, err := cmd.CombinedOutput()

	result := &Result{
		Output:   output,
		Duration: time.Since(start),
	}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			result.TimedOut = true
			return result, fmt.Errorf("command timed out after %s", opts.Timeout)
		}
		return result, fmt.Errorf("command failed: %w", err)
	}

	return result, nil
}

// ParseCommandList accepts a command as a shell-quoted string or a YAML list
// and returns its parts.
//   - "bin/handle --verbose"
//   - ["bin/handle", "--verbose"]
func ParseCommandList(cmd any) ([]string, error) {
	switch v := cmd.(type) {
	case string:
		parts, err := shellquote.Split(v)
		if err != nil {
			return nil, fmt.Errorf("failed to parse command string: %w", err)
		}
		if len(parts) == 0 {
			return nil, fmt.Errorf("empty command string")
		}
		return parts, nil
	case []any:
		parts := make([]string, len(v))
		for i, item := range v {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("command list item %d is not a string: %T", i, item)
			}
			parts[i] = str
		}
		if len(parts) == 0 {
			return nil, fmt.Errorf("empty command list")
		}
		return parts, nil
	case []string:
		if len(v) == 0 {
			return nil, fmt.Errorf("empty command list")
		}
		return v, nil
	default:
		return nil, fmt.Errorf("invalid command type: %T (must be string or list)", cmd)
	}
}

// FormatCommand renders command parts for log lines.
func FormatCommand(cmdParts []string) string {
	if len(cmdParts) == 0 {
		return "<empty command>"
	}
	return shellquote.Join(cmdParts...)
}

// Tail returns at most the last n bytes of output as a trimmed string.
func Tail(output []byte, n int) string {
	if len(output) > n {
		output = output[len(output)-n:]
	}
	return strings.TrimSpace(string(output))
}

// SanitizeOutput masks every occurrence of the given secrets.
func SanitizeOutput(output []byte, secrets []string) []byte {
	sanitized := string(output)
	for _, secret := range secrets {
		if secret != "" {
			sanitized = strings.ReplaceAll(sanitized, secret, "***REDACTED***")
		}
	}
	return []byte(sanitized)
}
