package runner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingRunner struct {
	result Result
	calls  int
	code   string
	tests  string
}

func (r *recordingRunner) Run(_ context.Context, code, testCode string) Result {
	r.calls++
	r.code = code
	r.tests = testCode
	return r.result
}

func TestServiceDispatchesGoToGoRunner(t *testing.T) {
	py := &recordingRunner{result: Result{Passed: false, Output: "python"}}
	gr := &recordingRunner{result: Result{Passed: true, Output: "go"}}
	svc := &Service{python: py, golang: gr}

	result := svc.Run(context.Background(), "go", "func add() {}", "func TestAdd() {}")

	require.True(t, result.Passed)
	require.Equal(t, 1, gr.calls)
	require.Equal(t, 0, py.calls)
	require.Equal(t, "func add() {}", gr.code)
	require.Equal(t, "func TestAdd() {}", gr.tests)
}

func TestServiceFallsBackToPython(t *testing.T) {
	for _, language := range []string{"python", "", "ruby"} {
		py := &recordingRunner{result: Result{Passed: true, Output: SuccessMarker}}
		gr := &recordingRunner{}
		svc := &Service{python: py, golang: gr}

		result := svc.Run(context.Background(), language, "def add(): pass", "assert True")

		require.True(t, result.Passed, "language %q", language)
		require.Equal(t, 1, py.calls, "language %q", language)
		require.Equal(t, 0, gr.calls, "language %q", language)
	}
}

func TestNewAppliesDefaults(t *testing.T) {
	svc := New(Config{})

	py, ok := svc.python.(*PythonRunner)
	require.True(t, ok)
	require.Equal(t, "python3", py.bin)
	require.Equal(t, DefaultTimeout, py.timeout)

	gr, ok := svc.golang.(*GoRunner)
	require.True(t, ok)
	require.Equal(t, "go", gr.bin)
	require.Equal(t, DefaultTimeout, gr.timeout)
}
