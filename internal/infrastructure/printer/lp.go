package printer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"printpoller/internal/domain/entity"
	"printpoller/internal/domain/repository"
	"printpoller/internal/infrastructure/metrics"
)

const ModeLP = "lp"

var requestIDPattern = regexp.MustCompile(`request id is (\S+)`)

// stderr fragments CUPS prints when the scheduler cannot be reached
var schedulerDown = []string{
	"unable to connect",
	"scheduler is not running",
	"scheduler not responding",
	"connection refused",
}

type LPConfig struct {
	LPBinary     string
	LPStatBinary string
	Printer      string
}

// LPDispatcher submits documents through the CUPS command line tools.
type LPDispatcher struct {
	lp      string
	lpstat  string
	printer string
	logger  *slog.Logger
}

func NewLPDispatcher(cfg LPConfig, logger *slog.Logger) *LPDispatcher {
	d := &LPDispatcher{
		lp:      cfg.LPBinary,
		lpstat:  cfg.LPStatBinary,
		printer: cfg.Printer,
		logger:  logger,
	}
	if d.lp == "" {
		d.lp = "lp"
	}
	if d.lpstat == "" {
		d.lpstat = "lpstat"
	}
	return d
}

var _ repository.Dispatcher = (*LPDispatcher)(nil)

// Submit passes options as lp flags; the print ticket is not read.
func (d *LPDispatcher) Submit(ctx context.Context, doc repository.Document, opts entity.PrintOptions) (entity.DispatchResult, error) {
	started := time.Now()
	defer func() { metrics.ObserveDispatchDuration(ModeLP, time.Since(started)) }()

	args := BuildLPArgs(opts, d.printer, doc.Path)
	d.logger.Debug("submitting to lp", "args", args)

	stdout, stderr, err := runCmd(ctx, d.lp, args...)
	if err != nil {
		if unavailable(ctx, err, stderr) {
			metrics.IncDispatch(ModeLP, "error")
			return entity.DispatchResult{}, fmt.Errorf("%w: lp: %v: %s", entity.ErrPrinterUnavailable, err, strings.TrimSpace(stderr))
		}
		metrics.IncDispatch(ModeLP, "rejected")
		msg := strings.TrimSpace(stderr)
		if msg == "" {
			msg = err.Error()
		}
		return entity.DispatchResult{Accepted: false, Message: msg}, nil
	}

	res := entity.DispatchResult{Accepted: true, Message: strings.TrimSpace(stdout)}
	if m := requestIDPattern.FindStringSubmatch(stdout); m != nil {
		res.JobReference = m[1]
	}
	metrics.IncDispatch(ModeLP, "accepted")
	return res, nil
}

// Probe checks that the CUPS scheduler runs and, if configured, that the
// default destination exists.
func (d *LPDispatcher) Probe(ctx context.Context) error {
	stdout, stderr, err := runCmd(ctx, d.lpstat, "-r")
	if err != nil {
		return fmt.Errorf("%w: lpstat -r: %v: %s", entity.ErrPrinterUnavailable, err, strings.TrimSpace(stderr))
	}
	if strings.Contains(stdout, "not running") {
		return fmt.Errorf("%w: %s", entity.ErrPrinterUnavailable, strings.TrimSpace(stdout))
	}

	if d.printer == "" {
		return nil
	}
	if _, stderr, err := runCmd(ctx, d.lpstat, "-p", d.printer); err != nil {
		return fmt.Errorf("%w: printer %s: %s", entity.ErrPrinterUnavailable, d.printer, strings.TrimSpace(stderr))
	}
	return nil
}

func runCmd(ctx context.Context, name string, args ...string) (string, string, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// children holding the pipes must not keep Wait blocked after a kill
	cmd.WaitDelay = time.Second

	if err := cmd.Start(); err != nil {
		return "", "", err
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	select {
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		<-done
		return stdout.String(), stderr.String(), ctx.Err()
	case err := <-done:
		return stdout.String(), stderr.String(), err
	}
}

func unavailable(ctx context.Context, err error, stderr string) bool {
	if ctx.Err() != nil || errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
		return true
	}
	var execErr *exec.Error
	if errors.As(err, &execErr) {
		return true
	}
	low := strings.ToLower(stderr)
	for _, s := range schedulerDown {
		if strings.Contains(low, s) {
			return true
		}
	}
	return false
}
