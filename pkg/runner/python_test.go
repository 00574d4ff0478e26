package runner

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const pythonAddCode = "def add(a, b):\n    return a + b\n"

func TestPythonRunnerPassesOnMarker(t *testing.T) {
	r := NewPythonRunner("python3", 10*time.Second, zerolog.Nop())

	result := r.Run(context.Background(), pythonAddCode,
		"print('✅ All tests passed') if add(1, 2) == 3 else print('keep trying')")

	require.True(t, result.Passed)
	require.Contains(t, result.Output, SuccessMarker)
}

func TestPythonRunnerFailsWithoutMarker(t *testing.T) {
	r := NewPythonRunner("python3", 10*time.Second, zerolog.Nop())

	result := r.Run(context.Background(), pythonAddCode,
		"print('✅ All tests passed') if add(2, 2) == 5 else print('keep trying')")

	require.False(t, result.Passed)
	require.Contains(t, result.Output, "keep trying")
	require.NotContains(t, result.Output, SuccessMarker)
}

func TestPythonRunnerRuntimeErrorIsAFailureValue(t *testing.T) {
	r := NewPythonRunner("python3", 10*time.Second, zerolog.Nop())

	result := r.Run(context.Background(), "def boom():\n    return 1 / 0\n", "boom()")

	require.False(t, result.Passed)
	require.Contains(t, result.Output, "ZeroDivisionError")
}

func TestPythonRunnerTimeoutRemovesScript(t *testing.T) {
	before := pythonScriptsInTempDir(t)

	r := NewPythonRunner("python3", time.Second, zerolog.Nop())
	result := r.Run(context.Background(), "import time\ntime.sleep(10)\n", "")

	require.False(t, result.Passed)
	require.Contains(t, result.Output, "timed out after 1s")

	for _, path := range pythonScriptsInTempDir(t) {
		require.Contains(t, before, path, "run left its script behind: %s", path)
	}
}

func TestPythonRunnerMissingInterpreterDiagnostic(t *testing.T) {
	r := NewPythonRunner("definitely-not-a-binary", 5*time.Second, zerolog.Nop())

	result := r.Run(context.Background(), pythonAddCode, "print('✅')")

	require.False(t, result.Passed)
	require.Contains(t, result.Output, `"definitely-not-a-binary" is not installed`)
}

// pythonScriptsInTempDir snapshots staged submission scripts so a test can
// prove its own run cleaned up without tripping over concurrent runs.
func pythonScriptsInTempDir(t *testing.T) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(os.TempDir(), "submission-*.py"))
	require.NoError(t, err)
	return matches
}

func TestTimeoutMessageNamesBound(t *testing.T) {
	message := timeoutMessage(30 * time.Second)
	require.True(t, strings.HasSuffix(message, "30s"))
	require.Contains(t, message, "timed out")
}
