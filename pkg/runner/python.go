package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// PythonRunner concatenates submission and test code into one script and runs
// the interpreter on it from a fresh temporary file.
type PythonRunner struct {
	bin     string
	timeout time.Duration
	tracer  trace.Tracer
	logger  zerolog.Logger
}

// NewPythonRunner constructs the Python execution path.
func NewPythonRunner(bin string, timeout time.Duration, logger zerolog.Logger) *PythonRunner {
	return &PythonRunner{
		bin:     bin,
		timeout: timeout,
		tracer:  otel.Tracer("github.com/noah-isme/dojo-go-api/pkg/runner"),
		logger:  logger.With().Str("component", "python_runner").Logger(),
	}
}

// Run executes the code+test pair. The temporary script is removed on every
// exit path, including spawn failures.
func (r *PythonRunner) Run(ctx context.Context, code, testCode string) Result {
	ctx, span := r.tracer.Start(ctx, "runner.python.run", trace.WithAttributes(
		attribute.String("runner.language", "python"),
	))
	defer span.End()

	script := code + "\n\n" + testCode

	file, err := os.CreateTemp("", "submission-*.py")
	if err != nil {
		runFailures.WithLabelValues("python").Inc()
		span.RecordError(err)
		return Result{Passed: false, Output: fmt.Sprintf("failed to stage submission: %v", err)}
	}
	path := file.Name()
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			r.logger.Error().Err(err).Str("path", path).Msg("failed to remove submission script")
		}
	}()

	if _, err := file.WriteString(script); err != nil {
		file.Close()
		runFailures.WithLabelValues("python").Inc()
		span.RecordError(err)
		return Result{Passed: false, Output: fmt.Sprintf("failed to stage submission: %v", err)}
	}
	if err := file.Close(); err != nil {
		runFailures.WithLabelValues("python").Inc()
		span.RecordError(err)
		return Result{Passed: false, Output: fmt.Sprintf("failed to stage submission: %v", err)}
	}

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, r.bin, path)
	// The generic temp dir, not the script's own directory: keeps stray
	// sibling files from being importable as local modules.
	cmd.Dir = os.TempDir()

	start := time.Now()
	out, runErr := cmd.CombinedOutput()
	runDuration.WithLabelValues("python").Observe(time.Since(start).Seconds())

	if runCtx.Err() == context.DeadlineExceeded {
		runTimeouts.WithLabelValues("python").Inc()
		return Result{Passed: false, Output: timeoutMessage(r.timeout)}
	}

	output := string(out)

	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			// Spawn-level failure: interpreter missing, permissions, etc.
			runFailures.WithLabelValues("python").Inc()
			span.RecordError(runErr)
			if errors.Is(runErr, exec.ErrNotFound) {
				return Result{Passed: false, Output: fmt.Sprintf("Python interpreter %q is not installed on this host", r.bin)}
			}
			return Result{Passed: false, Output: runErr.Error()}
		}
		return Result{Passed: false, Output: output}
	}

	passed := strings.Contains(output, SuccessMarker)
	return Result{Passed: passed, Output: output}
}

func timeoutMessage(bound time.Duration) string {
	return fmt.Sprintf("⏰ Execution timed out after %s", bound)
}
