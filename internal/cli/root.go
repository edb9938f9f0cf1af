package cli

import (
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dkrasner/escapewatch/internal/registry"
	"github.com/dkrasner/escapewatch/version"
)

var (
	verbose      bool
	pythonBridge string
	nodeBridge   string
	rustBridge   string
	goProbeBin   string
	javaBin      string
	javaJar      string
)

var rootCmd = &cobra.Command{
	Use:   "escapewatch",
	Short: "escapewatch - multi-language concurrency escape detection",
	Long: `escapewatch finds background work (threads, goroutines, processes,
async tasks) that a function spawns but never joins, across Python, Java,
JavaScript, Go and Rust, via static source scanning and sandboxed dynamic
execution.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfigFile()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file overriding bridge spawn commands")
	rootCmd.PersistentFlags().StringVar(&pythonBridge, "python-bridge", "", "override the python bridge spawn command")
	rootCmd.PersistentFlags().StringVar(&nodeBridge, "node-bridge", "", "override the node bridge spawn command")
	rootCmd.PersistentFlags().StringVar(&rustBridge, "rust-bridge", "", "override the rust bridge binary path")
	rootCmd.PersistentFlags().StringVar(&goProbeBin, "go-probe", "", "override the go probe binary path")
	rootCmd.PersistentFlags().StringVar(&javaBin, "java-bin", "", "override the java executable")
	rootCmd.PersistentFlags().StringVar(&javaJar, "java-bridge-jar", "", "override the java bridge jar path")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(runAllCmd)
	rootCmd.AddCommand(listCmd)

	cobra.OnInitialize(initLogger)
}

func initLogger() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

func splitCommand(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Fields(s)
}

func buildRegistry() *registry.Registry {
	return registry.Default(registry.Config{
		PythonBridge:  splitCommand(pythonBridge),
		NodeBridge:    splitCommand(nodeBridge),
		RustBridge:    splitCommand(rustBridge),
		GoProbeBinary: goProbeBin,
		JavaHandle: registry.JavaConfig{
			JavaBin:   javaBin,
			BridgeJar: javaJar,
		},
	})
}

// Execute runs the root command; cmd/escapewatch/main.go's only job is to
// call this and translate a non-nil error into a process exit code.
func Execute() error {
	installShutdownHandler()
	return rootCmd.Execute()
}

// installShutdownHandler flips version.Shutdown on the first SIGINT/SIGTERM
// so a run-all pass in progress stops between targets instead of leaving a
// probe child running. A second signal falls through to the default
// OS behavior (immediate termination).
func installShutdownHandler() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Warn("shutdown signal received, finishing current target before exiting")
		version.Shutdown.Store(true)
		signal.Stop(sigCh)
	}()
}
