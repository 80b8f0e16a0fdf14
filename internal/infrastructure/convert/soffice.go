// Package convert adapts external office applications as document
// conversion strategies keyed by document type.
package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/shuyossy/ai-notebook-sub000/internal/core/domain"
	"github.com/shuyossy/ai-notebook-sub000/internal/infrastructure/resilience"
)

// SofficeConverter drives a headless LibreOffice instance. Automation
// engines tolerate concurrency poorly, so invocations are serialized per
// source document type; every call carries a hard timeout because a hung
// engine would otherwise block the caller forever.
type SofficeConverter struct {
	binary   string
	timeout  time.Duration
	executor *resilience.Executor
	logger   *slog.Logger

	mu    sync.Mutex
	locks map[string]*semaphore.Weighted

	probeOnce sync.Once
	probeErr  error
}

type Options struct {
	Binary             string
	Timeout            time.Duration
	ResilienceExecutor *resilience.Executor
	Logger             *slog.Logger
}

func New(opts Options) *SofficeConverter {
	binary := opts.Binary
	if binary == "" {
		binary = "soffice"
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SofficeConverter{
		binary:   binary,
		timeout:  timeout,
		executor: opts.ResilienceExecutor,
		logger:   logger,
		locks:    make(map[string]*semaphore.Weighted),
	}
}

// Probe verifies the backing application once; later calls return the
// memoized result.
func (c *SofficeConverter) Probe(ctx context.Context) error {
	c.probeOnce.Do(func() {
		if _, err := exec.LookPath(c.binary); err != nil {
			c.probeErr = domain.WrapError(domain.ErrConversion, "probe converter",
				fmt.Errorf("required application %q is not installed: %w", c.binary, err))
			return
		}
		probeCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		if err := exec.CommandContext(probeCtx, c.binary, "--version").Run(); err != nil {
			c.probeErr = domain.WrapError(domain.ErrConversion, "probe converter", err)
		}
	})
	return c.probeErr
}

// ToPDF converts the document at path and returns the output path. The
// caller owns cleanup of the returned file.
func (c *SofficeConverter) ToPDF(ctx context.Context, path string) (string, error) {
	if err := c.Probe(ctx); err != nil {
		return "", err
	}

	docType := strings.ToLower(filepath.Ext(path))
	lock := c.typeLock(docType)
	if err := lock.Acquire(ctx, 1); err != nil {
		return "", domain.WrapError(domain.ErrConversion, "acquire converter slot", err)
	}
	defer lock.Release(1)

	outDir, err := os.MkdirTemp("", "convert-*")
	if err != nil {
		return "", domain.WrapError(domain.ErrConversion, "create output dir", err)
	}

	call := func(callCtx context.Context) error {
		return c.run(callCtx, path, outDir)
	}
	if c.executor != nil {
		err = c.executor.Execute(ctx, "convert.to_pdf", call, classifyConversionError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		_ = os.RemoveAll(outDir)
		if domain.IsKind(err, domain.ErrConversion) {
			return "", err
		}
		return "", domain.WrapError(domain.ErrConversion, "convert "+docType, err)
	}

	// Trim the extension as written, not the lowercased docType, so an
	// upper-case source name like report.DOC maps to report.pdf.
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	outPath := filepath.Join(outDir, base+".pdf")
	if _, err := os.Stat(outPath); err != nil {
		_ = os.RemoveAll(outDir)
		return "", domain.WrapError(domain.ErrConversion, "convert "+docType,
			fmt.Errorf("converter produced no output file: %w", err))
	}
	return outPath, nil
}

func (c *SofficeConverter) run(ctx context.Context, path, outDir string) error {
	runCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, c.binary,
		"--headless", "--norestore", "--convert-to", "pdf", "--outdir", outDir, path)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("converter timed out after %s: %w", c.timeout, runCtx.Err())
		}
		return fmt.Errorf("converter exited: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	c.logger.Debug("document converted", "path", path, "duration_ms", time.Since(start).Milliseconds())
	return nil
}

func (c *SofficeConverter) typeLock(docType string) *semaphore.Weighted {
	c.mu.Lock()
	defer c.mu.Unlock()
	lock, ok := c.locks[docType]
	if !ok {
		lock = semaphore.NewWeighted(1)
		c.locks[docType] = lock
	}
	return lock
}

func classifyConversionError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	// A crashed engine instance usually recovers on the next spawn.
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
}
