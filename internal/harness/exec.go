package harness

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// command is one external tool invocation inside a module directory.
type command struct {
	dir     string
	name    string
	args    []string
	logFile string
	timeout time.Duration
}

func (c command) String() string {
	return strings.Join(append([]string{c.name}, c.args...), " ")
}

// execute runs c with stdout and stderr going to both the module's log
// file and the returned buffer. A non-zero exit is reported as status,
// not as an error; errors mean the tool could not run at all.
func execute(ctx context.Context, c command) (status int, output string, err error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	logf, err := os.Create(filepath.Join(c.dir, c.logFile))
	if err != nil {
		return -1, "", fmt.Errorf("create %s: %w", c.logFile, err)
	}
	defer logf.Close()

	var buf bytes.Buffer
	w := io.MultiWriter(logf, &buf)

	cmd := exec.CommandContext(ctx, c.name, c.args...)
	cmd.Dir = c.dir
	cmd.Stdout = w
	cmd.Stderr = w

	runErr := cmd.Run()
	output = buf.String()
	if runErr == nil {
		return 0, output, nil
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return -1, output, fmt.Errorf("%s timed out after %s", c, c.timeout)
	}
	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		return exitErr.ExitCode(), output, nil
	}
	return -1, output, fmt.Errorf("%s: %w", c, runErr)
}
