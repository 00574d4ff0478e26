package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// goModStub is the throwaway module descriptor written into each run's
// temporary directory so the toolchain treats it as an isolated module root.
const goModStub = "module submission\n\ngo 1.24\n"

// GoRunner compiles and runs submission + test code with `go test -v` inside a
// fresh temporary module directory.
type GoRunner struct {
	bin     string
	timeout time.Duration
	tracer  trace.Tracer
	logger  zerolog.Logger
}

// NewGoRunner constructs the Go execution path.
func NewGoRunner(bin string, timeout time.Duration, logger zerolog.Logger) *GoRunner {
	return &GoRunner{
		bin:     bin,
		timeout: timeout,
		tracer:  otel.Tracer("github.com/noah-isme/dojo-go-api/pkg/runner"),
		logger:  logger.With().Str("component", "go_runner").Logger(),
	}
}

// Run executes the code+test pair. The temporary module directory is removed
// on every exit path, including spawn failures.
func (r *GoRunner) Run(ctx context.Context, code, testCode string) Result {
	ctx, span := r.tracer.Start(ctx, "runner.go.run", trace.WithAttributes(
		attribute.String("runner.language", "go"),
	))
	defer span.End()

	dir, err := os.MkdirTemp("", "submission-go-")
	if err != nil {
		runFailures.WithLabelValues("go").Inc()
		span.RecordError(err)
		return Result{Passed: false, Output: fmt.Sprintf("failed to stage submission: %v", err)}
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			r.logger.Error().Err(err).Str("dir", dir).Msg("failed to remove submission workspace")
		}
	}()

	source := code
	if !strings.Contains(source, "package main") {
		source = "package main\n\n" + source
	}

	testSource := testCode
	if !strings.Contains(testSource, "package main") {
		testSource = synthesizeTestFile(testCode)
	}

	files := map[string]string{
		"main.go":      source,
		"main_test.go": testSource,
		"go.mod":       goModStub,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
			runFailures.WithLabelValues("go").Inc()
			span.RecordError(err)
			return Result{Passed: false, Output: fmt.Sprintf("failed to stage submission: %v", err)}
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, r.bin, "test", "-v")
	cmd.Dir = dir
	// The toolchain spawns sub-builds; kill the whole process group on
	// timeout so no compiler child outlives the run.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = 2 * time.Second

	start := time.Now()
	out, runErr := cmd.CombinedOutput()
	runDuration.WithLabelValues("go").Observe(time.Since(start).Seconds())

	if runCtx.Err() == context.DeadlineExceeded {
		runTimeouts.WithLabelValues("go").Inc()
		return Result{Passed: false, Output: timeoutMessage(r.timeout)}
	}

	output := string(out)

	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			runFailures.WithLabelValues("go").Inc()
			span.RecordError(runErr)
			if errors.Is(runErr, exec.ErrNotFound) {
				return Result{Passed: false, Output: fmt.Sprintf("Go toolchain %q is not installed on this host", r.bin)}
			}
			return Result{Passed: false, Output: runErr.Error()}
		}
		return Result{Passed: false, Output: output}
	}

	passed := strings.Contains(output, "PASS") || strings.Contains(output, SuccessMarker)
	if !passed {
		return Result{Passed: false, Output: output}
	}
	if !strings.Contains(output, SuccessMarker) {
		output = successBanner + "\n" + output
	}
	return Result{Passed: true, Output: output}
}
