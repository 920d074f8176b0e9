package scenario

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"pkt.systems/pslog"
)

// hookError marks failures raised by hooks; they abort the run instead of
// failing a single step.
type hookError struct {
	err error
}

func (e *hookError) Error() string { return e.err.Error() }
func (e *hookError) Unwrap() error { return e.err }

// runExternalHook runs cmd with the step described in the environment and
// streams its output into the logger.
func runExternalHook(ctx context.Context, logger pslog.Base, phase string, cmd []string, info HookInfo, res *StepResult) error {
	if len(cmd) == 0 {
		return nil
	}

	command := exec.CommandContext(ctx, cmd[0], cmd[1:]...)
	command.Env = append(os.Environ(), hookEnv(phase, info, res)...)

	stdout, _ := command.StdoutPipe()
	stderr, _ := command.StderrPipe()

	if err := command.Start(); err != nil {
		return fmt.Errorf("%s-hook start: %w", phase, err)
	}

	var wg sync.WaitGroup
	logStream := func(stream string, rdr io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(rdr)
		for scanner.Scan() {
			if logger != nil {
				logger.Info("hook", "phase", phase, "cmd", cmd[0], "stream", stream, "line", scanner.Text())
			}
		}
	}
	if stdout != nil {
		wg.Add(1)
		go logStream("stdout", stdout)
	}
	if stderr != nil {
		wg.Add(1)
		go logStream("stderr", stderr)
	}

	// pipes must be drained before Wait closes them
	wg.Wait()
	if err := command.Wait(); err != nil {
		return fmt.Errorf("%s-hook failed: %w", phase, err)
	}
	return nil
}

func hookEnv(phase string, info HookInfo, res *StepResult) []string {
	vals := []string{
		"SCREENPLAY_HOOK_PHASE=" + phase,
		"SCREENPLAY_SCENARIO=" + info.Scenario,
		"SCREENPLAY_STEP=" + info.Step,
		fmt.Sprintf("SCREENPLAY_STEP_INDEX=%d", info.Index),
		fmt.Sprintf("SCREENPLAY_ITERATION=%d", info.Iteration),
		"SCREENPLAY_ACTOR=" + info.Actor,
		"SCREENPLAY_METHOD=" + info.Method,
		"SCREENPLAY_URL=" + info.URL,
		"SCREENPLAY_TAGS=" + strings.Join(info.Tags, ","),
	}
	if res != nil {
		vals = append(vals,
			fmt.Sprintf("SCREENPLAY_STATUS=%d", res.Status),
			fmt.Sprintf("SCREENPLAY_PASSED=%v", res.Passed),
			fmt.Sprintf("SCREENPLAY_FAILED_COUNT=%d", len(res.Failures)),
			fmt.Sprintf("SCREENPLAY_DURATION_MS=%d", res.Duration.Milliseconds()),
		)
	}
	return vals
}
