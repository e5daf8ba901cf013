// Package process runs external capture tools as supervised child processes.
package process

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/bryanchriswhite/FocusRecorder/internal/logger"
)

// Process is a running capture: a child process or an in-process native
// recording exposed through the same controls.
type Process interface {
	// PID identifies the process for status reporting
	PID() int

	// Terminate asks the process to finalize its output and exit
	Terminate() error

	// Kill stops the process immediately, output may be incomplete
	Kill() error

	// Done is closed once the process has exited
	Done() <-chan struct{}
}

// Cmd is a Process backed by os/exec. The child runs in its own process
// group so signals reach any helpers it forks.
type Cmd struct {
	name string
	cmd  *exec.Cmd
	done chan struct{}

	// closed once stderr reaches EOF; Wait must not run before then
	stderrDone chan struct{}

	mu       sync.Mutex
	waitErr  error
	exitCode int
}

// Start launches bin with args and begins reaping it in the background.
// Stderr lines are forwarded to the log under component name.
func Start(name, bin string, args ...string) (*Cmd, error) {
	log := logger.WithComponent(name)

	cmd := exec.Command(bin, args...)
	configureProcAttr(cmd)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stderr pipe: %w", err)
	}

	log.Debug().Str("cmd", bin+" "+strings.Join(args, " ")).Msg("Starting process")

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", bin, err)
	}

	c := &Cmd{
		name:     name,
		cmd:      cmd,
		done:       make(chan struct{}),
		stderrDone: make(chan struct{}),
		exitCode:   -1,
	}

	go c.logStderr(stderr)
	go c.wait()

	log.Info().Int("pid", cmd.Process.Pid).Msg("Process started")
	return c, nil
}

func (c *Cmd) PID() int {
	return c.cmd.Process.Pid
}

func (c *Cmd) Done() <-chan struct{} {
	return c.done
}

// Terminate sends SIGINT, which both screencapture and ffmpeg treat as
// "finish the file and exit". A process that already exited is not an error.
func (c *Cmd) Terminate() error {
	if c.exited() {
		return nil
	}
	return signalInterrupt(c.cmd)
}

// Kill sends SIGKILL to the process group.
func (c *Cmd) Kill() error {
	if c.exited() {
		return nil
	}
	return signalKill(c.cmd)
}

// ExitCode is -1 until the process has exited.
func (c *Cmd) ExitCode() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exitCode
}

// Err is the error returned by Wait, nil while running or on clean exit.
func (c *Cmd) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.waitErr
}

func (c *Cmd) exited() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *Cmd) wait() {
	<-c.stderrDone
	err := c.cmd.Wait()

	c.mu.Lock()
	c.waitErr = err
	if c.cmd.ProcessState != nil {
		c.exitCode = c.cmd.ProcessState.ExitCode()
	}
	code := c.exitCode
	c.mu.Unlock()
	close(c.done)

	log := logger.WithComponent(c.name)
	if err != nil {
		log.Info().Err(err).Int("exit_code", code).Msg("Process exited with error")
	} else {
		log.Info().Int("exit_code", code).Msg("Process exited")
	}
}

// logStderr forwards tool output, promoting lines that look like failures.
func (c *Cmd) logStderr(r io.Reader) {
	defer close(c.stderrDone)
	log := logger.WithComponent(c.name)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		lower := strings.ToLower(line)
		if strings.Contains(lower, "error") || strings.Contains(lower, "warn") {
			log.Warn().Str("output", line).Msg("Process message")
		} else {
			log.Debug().Str("output", line).Msg("Process output")
		}
	}
	if err := scanner.Err(); err != nil {
		log.Debug().Err(err).Msg("Stopped reading process output")
	}
}

// Wait blocks until p exits, timeout elapses or ctx is done.
func Wait(ctx context.Context, p Process, timeout time.Duration) error {
	select {
	case <-p.Done():
		return nil
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-p.Done():
		return nil
	case <-timer.C:
		return fmt.Errorf("process %d did not exit within %v", p.PID(), timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}
