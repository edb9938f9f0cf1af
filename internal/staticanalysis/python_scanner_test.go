package staticanalysis

import (
	"testing"

	"github.com/dkrasner/escapewatch/internal/protocol"
	"github.com/stretchr/testify/require"
)

func TestPythonScannerDetectsUnjoinedThread(t *testing.T) {
	src := `def leak_worker():
    worker = threading.Thread(target=do_work)
    worker.start()
`
	path := writeSource(t, t.TempDir(), "leak.py", src)
	s := NewPythonScanner()
	result, err := s.Analyze(path+":leak_worker", path)
	require.NoError(t, err)

	var sawCreate, sawUnjoined bool
	for _, e := range result.Escapes {
		if e.EscapeType == protocol.EscapeConcurrency && e.VariableName == "threading.Thread(" {
			sawCreate = true
		}
		if e.VariableName == "worker" {
			sawUnjoined = true
		}
	}
	require.True(t, sawCreate)
	require.True(t, sawUnjoined)
}

func TestPythonScannerJoinedThreadNotReported(t *testing.T) {
	src := `def clean_worker():
    worker = threading.Thread(target=do_work)
    worker.start()
    worker.join()
`
	path := writeSource(t, t.TempDir(), "clean.py", src)
	s := NewPythonScanner()
	result, err := s.Analyze(path+":clean_worker", path)
	require.NoError(t, err)

	for _, e := range result.Escapes {
		require.NotEqual(t, "worker", e.VariableName)
	}
}

func TestPythonScannerStopsAtDedent(t *testing.T) {
	src := `def outer():
    worker = threading.Thread(target=do_work)
    worker.start()

def sibling():
    pass
`
	path := writeSource(t, t.TempDir(), "dedent.py", src)
	s := NewPythonScanner()
	result, err := s.Analyze(path+":outer", path)
	require.NoError(t, err)
	require.NotEmpty(t, result.Escapes)
}

func TestPythonScannerWarnsWhenFunctionMissing(t *testing.T) {
	src := "def other():\n    pass\n"
	path := writeSource(t, t.TempDir(), "other.py", src)
	s := NewPythonScanner()
	result, err := s.Analyze(path+":missing", path)
	require.NoError(t, err)
	require.NotEmpty(t, result.Warnings)
}

func TestPythonScannerLanguage(t *testing.T) {
	require.Equal(t, "python", NewPythonScanner().Language())
}
