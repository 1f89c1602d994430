package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"slices"
	"strings"
	"time"

	"github.com/gitagen/gitagen/internal/log"
)

// ErrNotFound is returned when the executable is not in PATH.
var ErrNotFound = errors.New("executable not found")

// RunContext executes a command in dir and returns stderr in the error
// message if it fails. A cancelled context yields ctx.Err().
func RunContext(ctx context.Context, dir, name string, args ...string) error {
	_, err := run(ctx, dir, name, args, false)
	return err
}

// OutputContext executes a command in dir and returns stdout, with stderr in
// the error if it fails.
func OutputContext(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	return run(ctx, dir, name, args, true)
}

// OutputContextAllow is OutputContext for commands that signal a result
// through their exit code (e.g. "git diff --no-index" exits 1 when files
// differ). Exit codes listed in allowed are treated as success.
func OutputContextAllow(ctx context.Context, dir string, allowed []int, name string, args ...string) ([]byte, error) {
	return run(ctx, dir, name, args, true, allowed...)
}

func run(ctx context.Context, dir, name string, args []string, captureStdout bool, allowed ...int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	done := log.FromContext(ctx).Command(dir, name, args...)
	start := time.Now()
	defer func() { done(time.Since(start)) }()

	c := exec.CommandContext(ctx, name, args...)
	c.Dir = dir

	var stdout, stderr bytes.Buffer
	if captureStdout {
		c.Stdout = &stdout
	}
	c.Stderr = &stderr

	if err := c.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && slices.Contains(allowed, exitErr.ExitCode()) {
			return stdout.Bytes(), nil
		}
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		if errMsg := strings.TrimSpace(stderr.String()); errMsg != "" {
			return nil, fmt.Errorf("%s", errMsg)
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}
