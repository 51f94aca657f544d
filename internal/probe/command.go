package probe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/mattn/go-shellwords"
)

// waitDelay bounds how long Wait blocks on output pipes after the process is
// killed (children such as `docker exec` clients can keep them open).
const waitDelay = 500 * time.Millisecond

// CommandChecker runs a command on the host or inside a running container and
// reports its combined output and exit code.
type CommandChecker struct {
	// LookPath resolves the executable; nil means exec.LookPath.
	LookPath func(string) (string, error)
}

func NewCommandChecker() *CommandChecker { return &CommandChecker{} }

// ParseCommand splits a command line using shell word rules. It does not run a
// shell: pipes and redirects are not interpreted.
func ParseCommand(line string) ([]string, error) {
	args, err := shellwords.Parse(line)
	if err != nil {
		return nil, fmt.Errorf("parse command %q: %w", line, err)
	}
	if len(args) == 0 {
		return nil, errors.New("empty command")
	}
	return args, nil
}

// Argv returns the full argument vector for def, including the container
// runtime prefix when a container is set.
func Argv(def Definition) []string {
	if def.Container == "" {
		return append([]string(nil), def.Command...)
	}
	rt := def.Runtime
	if rt == "" {
		rt = "docker"
	}
	argv := []string{rt, "exec", def.Container}
	if rt == "kubectl" {
		argv = append(argv, "--")
	}
	return append(argv, def.Command...)
}

func (c *CommandChecker) Probe(ctx context.Context, def Definition) (Raw, error) {
	argv := Argv(def)
	if len(argv) == 0 {
		return Raw{}, Fault(errors.New("empty command"))
	}

	lookPath := c.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	bin, err := lookPath(argv[0])
	if err != nil {
		return Raw{}, Fault(err)
	}

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, argv[1:]...)
	cmd.Stdout = &out
	cmd.Stderr = &out
	cmd.WaitDelay = waitDelay

	err = cmd.Run()
	raw := Raw{Output: out.String()}
	if ctx.Err() != nil {
		return raw, ctx.Err()
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return raw, nil
	case errors.As(err, &exitErr):
		// a non-zero exit is an observation, the predicate decides
		raw.ExitCode = exitErr.ExitCode()
		return raw, nil
	default:
		return raw, Fault(err)
	}
}
