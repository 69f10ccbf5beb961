package spotdl

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/savedl/internal/models"
)

const (
	// DefaultGracePeriod is how long a terminated process may take to exit before it is killed.
	DefaultGracePeriod = 5 * time.Second
	waitDelay          = 2 * time.Second
)

// Adapter runs one spotdl process per work item.
type Adapter struct {
	command []string
	grace   time.Duration
	logger  *log.Logger
}

// AdapterOpts configures an [Adapter].
type AdapterOpts struct {
	Command     []string
	GracePeriod time.Duration
	Logger      *log.Logger
}

// NewAdapter creates an [Adapter], defaulting to "spotdl" from PATH.
func NewAdapter(opts AdapterOpts) *Adapter {
	if len(opts.Command) == 0 {
		opts.Command = DefaultCommand
	}
	if opts.GracePeriod <= 0 {
		opts.GracePeriod = DefaultGracePeriod
	}
	if opts.Logger == nil {
		opts.Logger = log.New(os.Stderr)
	}
	return &Adapter{command: opts.Command, grace: opts.GracePeriod, logger: opts.Logger}
}

// Invoke downloads a single item and classifies the result. It never returns an error: spawn failures become
// [models.Failed] outcomes.
//
// No process is started once cancelled is closed. A running process is terminated when cancelled closes or ctx ends,
// and the item is reported as [models.Cancelled].
func (a *Adapter) Invoke(ctx context.Context, item models.WorkItem, cfg models.BatchConfig, cancelled <-chan struct{}) models.Outcome {
	start := time.Now()
	result := func(kind models.OutcomeKind, detail string) models.Outcome {
		return models.Outcome{Item: item, Kind: kind, Detail: detail, Elapsed: time.Since(start)}
	}

	if closed(cancelled) || ctx.Err() != nil {
		return result(models.Cancelled, "")
	}

	name, args := BuildCommand(a.command, item, cfg)
	cmd := exec.Command(name, args...)
	cmd.Dir = cfg.OutputDir
	cmd.Env = append(os.Environ(), "NO_COLOR=1")
	cmd.WaitDelay = waitDelay
	configureProcess(cmd)

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	logger := a.logger.With("position", item.Position, "url", item.URL)
	if err := cmd.Start(); err != nil {
		logger.Error("failed to start spotdl", "error", err)
		return result(models.Failed, err.Error())
	}
	logger.Debug("spotdl started", "pid", cmd.Process.Pid, "dialect", cfg.Dialect)

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	var timeout <-chan time.Time
	if cfg.Timeout > 0 {
		timer := time.NewTimer(cfg.Timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case err := <-done:
		code, err := exitCode(err)
		if err != nil {
			logger.Error("spotdl did not finish", "error", err)
			return result(models.Failed, err.Error())
		}
		kind, detail := Classify(code, output.String())
		logger.Debug("spotdl finished", "exit", code, "outcome", kind, "output", Clean(output.String()))
		return result(kind, detail)
	case <-cancelled:
		a.terminate(cmd, done)
		logger.Debug("spotdl terminated after cancel")
		return result(models.Cancelled, "")
	case <-ctx.Done():
		a.terminate(cmd, done)
		return result(models.Cancelled, "")
	case <-timeout:
		a.terminate(cmd, done)
		logger.Warn("spotdl timed out", "after", cfg.Timeout)
		return result(models.Failed, fmt.Sprintf("timed out after %s", cfg.Timeout))
	}
}

// terminate asks the process to stop, then kills it once the grace period passes.
func (a *Adapter) terminate(cmd *exec.Cmd, done <-chan error) {
	if err := interruptProcess(cmd); err != nil {
		a.logger.Debug("failed to signal spotdl", "error", err)
	}

	select {
	case <-done:
		return
	case <-time.After(a.grace):
	}

	if err := killProcess(cmd); err != nil && !errors.Is(err, os.ErrProcessDone) {
		a.logger.Warn("failed to kill spotdl", "pid", cmd.Process.Pid, "error", err)
	}
	<-done
}

// exitCode extracts the status of a finished process. Errors other than a non-zero exit are returned.
func exitCode(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, err
}

func closed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
