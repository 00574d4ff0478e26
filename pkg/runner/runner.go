package runner

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	runDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "dojo",
		Subsystem: "runner",
		Name:      "run_duration_seconds",
		Help:      "Duration of submission runs",
		Buckets:   prometheus.DefBuckets,
	}, []string{"language"})

	runTimeouts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dojo",
		Subsystem: "runner",
		Name:      "run_timeouts_total",
		Help:      "Number of runs that hit the timeout",
	}, []string{"language"})

	runFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dojo",
		Subsystem: "runner",
		Name:      "run_failures_total",
		Help:      "Number of runs that could not be spawned or crashed",
	}, []string{"language"})
)

// SuccessMarker is the contract between instructor tests and the runner:
// test code prints it on success instead of a structured report.
const SuccessMarker = "✅"

// successBanner is prepended to Go runs that passed without printing the
// marker themselves, so both language paths display consistently.
const successBanner = "✅ All tests passed"

// DefaultTimeout bounds a single run when no explicit timeout is configured.
const DefaultTimeout = 10 * time.Second

// Result is the outcome of one code+test evaluation. Execution-domain
// failures (timeout, crash, missing toolchain, marker mismatch) are values:
// Passed=false plus a diagnostic in Output, never an error.
type Result struct {
	Passed bool
	Output string
}

// Runner executes one code+test pair in isolation.
type Runner interface {
	Run(ctx context.Context, code, testCode string) Result
}

// Config groups runner configuration values.
type Config struct {
	PythonBin string
	GoBin     string
	Timeout   time.Duration
	Logger    zerolog.Logger
}

// Service dispatches runs to the language-specific runner. Any language value
// it does not recognise falls back to the Python path.
type Service struct {
	python Runner
	golang Runner
}

// New constructs the dispatching runner service.
func New(cfg Config) *Service {
	if cfg.PythonBin == "" {
		cfg.PythonBin = "python3"
	}
	if cfg.GoBin == "" {
		cfg.GoBin = "go"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Service{
		python: NewPythonRunner(cfg.PythonBin, cfg.Timeout, cfg.Logger),
		golang: NewGoRunner(cfg.GoBin, cfg.Timeout, cfg.Logger),
	}
}

// Run executes the code+test pair using the runner for the given language.
func (s *Service) Run(ctx context.Context, language, code, testCode string) Result {
	if language == "go" {
		return s.golang.Run(ctx, code, testCode)
	}
	return s.python.Run(ctx, code, testCode)
}
