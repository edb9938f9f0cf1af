// Package orchestrator wires together registry selection, static scanning,
// dynamic bridge invocation, and report generation into the three
// operations the CLI exposes: analyze one target, run a whole test tree,
// and list available analyzers. Grounded on orchestrator.rs's
// analyze_target/run_all_tests/list_analyzers/print_summary.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dkrasner/escapewatch/internal/discovery"
	"github.com/dkrasner/escapewatch/internal/inputgen"
	"github.com/dkrasner/escapewatch/internal/protocol"
	"github.com/dkrasner/escapewatch/internal/registry"
	"github.com/dkrasner/escapewatch/internal/report"
	"github.com/dkrasner/escapewatch/internal/staticanalysis"
	"github.com/dkrasner/escapewatch/version"
)

// AnalyzeOptions carries every flag the "analyze" verb accepts.
type AnalyzeOptions struct {
	Target       string
	Inputs       []string
	Repeat       int
	Timeout      float64
	OutputDir    string
	Language     string
	AnalysisMode protocol.AnalysisMode
}

// AnalyzeResult pairs the merged response with where its report landed, so
// callers can both print a summary and re-render the written README.
type AnalyzeResult struct {
	Response   *protocol.AnalyzeResponse
	SessionDir string
}

// AnalyzeTarget runs static and/or dynamic analysis against a single
// target, writes a report, and returns the merged response so the CLI can
// print its own summary. Mirrors analyze_target's static-then-dynamic merge:
// in Both mode the dynamic response's results and summary replace the static
// ones, its vulnerabilities are appended to the static list, and
// static_analysis is kept from the static pass.
func AnalyzeTarget(ctx context.Context, reg *registry.Registry, opts AnalyzeOptions) (*AnalyzeResult, error) {
	mode := opts.AnalysisMode
	if mode == "" {
		mode = protocol.ModeDynamic
	}

	var (
		staticResp  *protocol.AnalyzeResponse
		dynamicResp *protocol.AnalyzeResponse
	)

	runStatic := mode == protocol.ModeStatic || mode == protocol.ModeBoth
	runDynamic := mode == protocol.ModeDynamic || mode == protocol.ModeBoth

	if mode == protocol.ModeBoth {
		eg, egCtx := errgroup.WithContext(ctx)
		eg.Go(func() error {
			var err error
			staticResp, err = runStaticAnalysis(opts.Target, opts.Language, mode)
			return err
		})
		eg.Go(func() error {
			var err error
			dynamicResp, err = runDynamicAnalysis(egCtx, reg, opts)
			return err
		})
		if err := eg.Wait(); err != nil {
			return nil, err
		}
	} else if runStatic {
		var err error
		staticResp, err = runStaticAnalysis(opts.Target, opts.Language, mode)
		if err != nil {
			return nil, err
		}
	} else if runDynamic {
		var err error
		dynamicResp, err = runDynamicAnalysis(ctx, reg, opts)
		if err != nil {
			return nil, err
		}
	}

	response := staticResp
	if dynamicResp != nil {
		if response == nil {
			response = dynamicResp
		} else {
			response.Results = dynamicResp.Results
			response.Vulnerabilities = append(response.Vulnerabilities, dynamicResp.Vulnerabilities...)
			response.Summary = dynamicResp.Summary
		}
	}
	if response == nil {
		return nil, fmt.Errorf("orchestrator: no analysis was performed")
	}

	slog.Info("generating report", "target", opts.Target)
	gen := report.NewGenerator(opts.OutputDir)
	sessionDir, err := gen.Generate(response, opts.Target)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: generating report: %w", err)
	}

	return &AnalyzeResult{Response: response, SessionDir: sessionDir}, nil
}

func runStaticAnalysis(target, language string, mode protocol.AnalysisMode) (*protocol.AnalyzeResponse, error) {
	lang := language
	if lang == "" {
		var err error
		lang, err = DetectLanguageFromTarget(target)
		if err != nil {
			return nil, err
		}
	}

	slog.Info("running static analysis", "language", lang, "target", target)

	scanner := staticanalysis.Factory(lang)
	if scanner == nil {
		return nil, fmt.Errorf("orchestrator: no static analyzer available for language: %s", lang)
	}
	if !scanner.IsAvailable() {
		return nil, fmt.Errorf("orchestrator: static analyzer for %s is not available (missing tools)", lang)
	}

	sourceFile := ResolveSourceFile(target)
	result, err := scanner.Analyze(target, sourceFile)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: static analysis failed: %w", err)
	}

	return &protocol.AnalyzeResponse{
		SessionID:       uuid.NewString(),
		Language:        lang,
		AnalyzerVersion: "1.0.0-static",
		AnalysisMode:    mode,
		Results:         []protocol.ExecutionResult{},
		Vulnerabilities: []protocol.Vulnerability{},
		StaticAnalysis:  result,
	}, nil
}

func runDynamicAnalysis(ctx context.Context, reg *registry.Registry, opts AnalyzeOptions) (*protocol.AnalyzeResponse, error) {
	handle := reg.Find(opts.Target, opts.Language)
	if handle == nil {
		return nil, registry.ErrNoAnalyzer(opts.Target)
	}

	slog.Info("using analyzer", "language", handle.Language)

	if err := handle.HealthCheck(ctx); err != nil {
		slog.Warn("analyzer health check failed", "language", handle.Language, "error", err)
	}

	req := protocol.AnalyzeRequest{
		SessionID:      uuid.NewString(),
		Target:         opts.Target,
		Inputs:         opts.Inputs,
		Repeat:         opts.Repeat,
		TimeoutSeconds: opts.Timeout,
		Options:        map[string]string{},
		AnalysisMode:   opts.AnalysisMode,
	}

	slog.Info("running dynamic analysis", "inputs", len(req.Inputs), "repeat", req.Repeat)
	return handle.Analyze(ctx, req)
}

// DetectLanguageFromTarget infers a registry language tag from a target's
// file extension when the caller didn't pass --language explicitly.
func DetectLanguageFromTarget(target string) (string, error) {
	source, _, _ := strings.Cut(target, ":")
	switch {
	case strings.HasSuffix(source, ".py") || strings.Contains(target, "python"):
		return "python", nil
	case strings.HasSuffix(source, ".java"):
		return "java", nil
	case strings.HasSuffix(source, ".js") || strings.HasSuffix(source, ".mjs"):
		return "javascript", nil
	case strings.HasSuffix(source, ".go"):
		return "go", nil
	case strings.HasSuffix(source, ".rs"):
		return "rust", nil
	default:
		return "", fmt.Errorf("orchestrator: unable to detect language from target: %s", target)
	}
}

// ResolveSourceFile extracts the file (or best-effort module-to-path guess)
// portion of a "<source>:<symbol>" target string. A dotted module path is
// tried as-is, then under a "tests/" prefix, checking the filesystem at
// each step, before falling back to the unchecked conversion.
func ResolveSourceFile(target string) string {
	idx := strings.Index(target, ":")
	if idx < 0 {
		return target
	}
	fileOrModule := target[:idx]
	if strings.ContainsAny(fileOrModule, "/\\") || strings.HasSuffix(fileOrModule, ".py") {
		return fileOrModule
	}

	filePath := strings.ReplaceAll(fileOrModule, ".", "/") + ".py"
	if _, err := os.Stat(filePath); err == nil {
		return filePath
	}

	testPath := filepath.Join("tests", filePath)
	if _, err := os.Stat(testPath); err == nil {
		return testPath
	}

	return filePath
}

// RunAllOptions carries every flag the "run-all" verb accepts.
type RunAllOptions struct {
	TestDir        string
	Generate       int
	OutputDir      string
	LanguageFilter string
}

// RunAllTests discovers targets under TestDir for every registered language
// (optionally filtered to one), invokes each with a deterministic input
// corpus, and writes one report per target. Analyzer and per-target
// failures are logged and skipped rather than aborting the run, mirroring
// run_all_tests's warn-and-continue behavior.
func RunAllTests(ctx context.Context, reg *registry.Registry, opts RunAllOptions) error {
	inputs := inputgen.Generate(opts.Generate)
	normalizedFilter := ""
	if opts.LanguageFilter != "" {
		normalizedFilter = registry.NormalizeLanguage(opts.LanguageFilter)
	}

	gen := report.NewGenerator(opts.OutputDir)

	for _, handle := range reg.Handles() {
		if version.Shutdown.Load() {
			slog.Warn("shutdown requested, stopping run-all early")
			return nil
		}
		if normalizedFilter != "" && handle.Language != normalizedFilter {
			continue
		}

		if err := handle.HealthCheck(ctx); err != nil {
			slog.Warn("skipping analyzer (health check failed)", "language", handle.Language, "error", err)
			continue
		}

		slog.Info("discovering tests", "language", handle.Language, "test_dir", opts.TestDir)
		targets, err := discovery.ForLanguage(handle.Language, opts.TestDir)
		if err != nil {
			slog.Warn("discovery failed", "language", handle.Language, "error", err)
			continue
		}
		if len(targets) == 0 {
			slog.Warn("no targets found", "language", handle.Language)
			continue
		}

		for _, target := range targets {
			if version.Shutdown.Load() {
				slog.Warn("shutdown requested, stopping run-all early")
				return nil
			}
			slog.Info("analyzing target", "target", target)
			req := protocol.AnalyzeRequest{
				SessionID:      uuid.NewString(),
				Target:         target,
				Inputs:         inputs,
				Repeat:         1,
				TimeoutSeconds: 5.0,
				Options:        map[string]string{},
				AnalysisMode:   protocol.ModeDynamic,
			}

			resp, err := handle.Analyze(ctx, req)
			if err != nil {
				slog.Warn("analysis failed", "target", target, "error", err)
				continue
			}
			if _, err := gen.Generate(resp, target); err != nil {
				slog.Warn("report generation failed", "target", target, "error", err)
			}
		}
	}

	return nil
}

// AnalyzerListing is one entry in ListAnalyzers' output. Err is non-nil
// when the handle's health check failed, so the CLI can flag a broken
// analyzer instead of silently listing it as available.
type AnalyzerListing struct {
	Info protocol.AnalyzerInfo
	Err  error
}

// ListAnalyzers returns every registered handle's identity info, in
// registration order, health-checking each so the CLI can flag broken
// analyzers.
func ListAnalyzers(ctx context.Context, reg *registry.Registry) []AnalyzerListing {
	listings := make([]AnalyzerListing, 0, len(reg.Handles()))
	for _, h := range reg.Handles() {
		listings = append(listings, AnalyzerListing{Info: h.Info, Err: h.HealthCheck(ctx)})
	}
	return listings
}

// JavaBridgeJarPath joins a probes directory with the conventional bridge
// jar name.
func JavaBridgeJarPath(probesDir string) string {
	return filepath.Join(probesDir, "java", "bridge.jar")
}
