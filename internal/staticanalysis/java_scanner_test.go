package staticanalysis

import (
	"testing"

	"github.com/dkrasner/escapewatch/internal/protocol"
	"github.com/stretchr/testify/require"
)

func TestJavaScannerDetectsInlineStartWithoutJoin(t *testing.T) {
	src := `public class Leak {
    public void run() {
        new Thread(worker).start();
    }
}
`
	path := writeSource(t, t.TempDir(), "Leak.java", src)
	s := NewJavaScanner()
	result, err := s.Analyze(path+":run", path)
	require.NoError(t, err)
	require.NotEmpty(t, result.Escapes)
	require.Equal(t, protocol.EscapeConcurrency, result.Escapes[0].EscapeType)
}

func TestJavaScannerDetectsUnjoinedThreadVariable(t *testing.T) {
	src := `public class Leak {
    public void run() {
        Thread worker = new Thread(task);
        worker.start();
    }
}
`
	path := writeSource(t, t.TempDir(), "LeakVar.java", src)
	s := NewJavaScanner()
	result, err := s.Analyze(path+":run", path)
	require.NoError(t, err)

	var sawWorker bool
	for _, e := range result.Escapes {
		if e.VariableName == "worker" {
			sawWorker = true
		}
	}
	require.True(t, sawWorker)
}

func TestJavaScannerJoinedThreadNotReported(t *testing.T) {
	src := `public class Clean {
    public void run() {
        Thread worker = new Thread(task);
        worker.start();
        worker.join();
    }
}
`
	path := writeSource(t, t.TempDir(), "Clean.java", src)
	s := NewJavaScanner()
	result, err := s.Analyze(path+":run", path)
	require.NoError(t, err)

	for _, e := range result.Escapes {
		require.NotEqual(t, "worker", e.VariableName)
	}
}

func TestJavaScannerExecutorShutdownSuppressesFinding(t *testing.T) {
	src := `public class Pool {
    public void run() {
        ExecutorService pool = Executors.newFixedThreadPool(4);
        pool.shutdown();
    }
}
`
	path := writeSource(t, t.TempDir(), "Pool.java", src)
	s := NewJavaScanner()
	result, err := s.Analyze(path+":run", path)
	require.NoError(t, err)
	require.Empty(t, result.Escapes)
}

func TestJavaScannerWarnsWhenMethodMissing(t *testing.T) {
	src := "public class Empty {\n    public void other() {}\n}\n"
	path := writeSource(t, t.TempDir(), "Empty.java", src)
	s := NewJavaScanner()
	result, err := s.Analyze(path+":missing", path)
	require.NoError(t, err)
	require.NotEmpty(t, result.Warnings)
}
