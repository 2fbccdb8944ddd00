package harness

import (
	"fmt"
	"os"
	"strconv"
)

// CommandConfig holds the resolved command, extra arguments, and
// environment variables needed to start a fork.
type CommandConfig struct {
	Binary    string
	ExtraArgs []string
	Env       []string
}

// ForkEnv is set in every fork's environment so the child can tell it is
// running isolated.
const ForkEnv = "BENCHUNIT_FORK=1"

// ForkArgs returns the arguments that start the hidden fork command.
func ForkArgs(threads, invocations int) []string {
	return []string{
		"fork",
		"--threads", strconv.Itoa(threads),
		"--invocations", strconv.Itoa(invocations),
	}
}

// SelfCommand returns the exec configuration that re-executes the running
// binary as a fork.
func SelfCommand(threads, invocations int) (CommandConfig, error) {
	bin, err := os.Executable()
	if err != nil {
		return CommandConfig{}, fmt.Errorf("resolve executable: %w", err)
	}

	return CommandConfig{
		Binary:    bin,
		ExtraArgs: ForkArgs(threads, invocations),
		Env:       []string{ForkEnv},
	}, nil
}
