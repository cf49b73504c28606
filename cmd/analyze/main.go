// Command analyze runs one document through the full pipeline and
// prints its assembled report to stdout, without going through the
// HTTP adapter. Useful for local runs and CI smoke checks.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"gorm.io/gorm"

	"tenderanalysis/internal/bootstrap"
	"tenderanalysis/internal/config"
	"tenderanalysis/internal/domain"
	"tenderanalysis/internal/orchestrator"
	"tenderanalysis/internal/report"
	"tenderanalysis/pkg/database"
	"tenderanalysis/pkg/embedding"
	"tenderanalysis/pkg/extractor"
)

const (
	exitSuccess               = 0
	exitUsageError            = 2
	exitConfigError           = 3
	exitAnalysisFailed        = 4
	exitDependencyUnavailable = 5
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	docType := fs.String("type", string(domain.DocTypeUnknown), "declared document type (RFP|PROPOSAL|CONTRACT|SPECIFICATION|UNKNOWN)")
	level := fs.String("level", string(domain.AnalysisLevelBasic), "analysis level (basic|comprehensive)")
	force := fs.Bool("force", false, "bypass the cached artifact for this docId")
	if err := fs.Parse(args); err != nil {
		return exitUsageError
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: analyze [-type TYPE] [-level LEVEL] [-force] <path-to-document>")
		return exitUsageError
	}
	path := fs.Arg(0)
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintf(os.Stderr, "analyze: %v\n", err)
		return exitUsageError
	}

	cfg := config.Load()
	if cfg.App.DataRoot == "" {
		fmt.Fprintln(os.Stderr, "analyze: DATA_ROOT is not configured")
		return exitConfigError
	}

	var gormDB *gorm.DB
	if cfg.Database.Connection != "" {
		db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
		if err != nil {
			fmt.Fprintf(os.Stderr, "analyze: database: %v\n", err)
			return exitConfigError
		}
		gormDB = db
	}

	container := bootstrap.NewContainer(gormDB, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	declaredType := domain.DocType(*docType)
	docID, text, detectedType, err := container.Orchestrator.Fingerprint(ctx, path, declaredType)
	if err != nil {
		if errors.Is(err, embedding.ErrUnavailable) || errors.Is(err, domain.ErrEmbeddingUnavailable) || errors.Is(err, extractor.ErrUnsupportedArtifact) {
			fmt.Fprintf(os.Stderr, "analyze: dependency unavailable: %v\n", err)
			return exitDependencyUnavailable
		}
		fmt.Fprintf(os.Stderr, "analyze: extract: %v\n", err)
		return exitAnalysisFailed
	}
	runID := domain.RunID(docID, domain.AnalysisLevel(*level))

	artifact, err := container.Orchestrator.Run(ctx, runID, orchestrator.RunOptions{
		DocID:            docID,
		DocPath:          path,
		DeclaredType:     declaredType,
		Level:            domain.AnalysisLevel(*level),
		ForceRebuild:     *force,
		PreExtractedText: text,
		PreDetectedType:  detectedType,
	})
	if err != nil {
		if errors.Is(err, embedding.ErrUnavailable) || errors.Is(err, domain.ErrEmbeddingUnavailable) || errors.Is(err, extractor.ErrUnsupportedArtifact) {
			fmt.Fprintf(os.Stderr, "analyze: dependency unavailable: %v\n", err)
			return exitDependencyUnavailable
		}
		fmt.Fprintf(os.Stderr, "analyze: %v\n", err)
		return exitAnalysisFailed
	}

	bundle, err := report.Assemble(artifact)
	if err != nil {
		fmt.Fprintf(os.Stderr, "analyze: assemble report: %v\n", err)
		return exitAnalysisFailed
	}
	printSummary(bundle)

	out, err := report.ToJSON(bundle)
	if err != nil {
		fmt.Fprintf(os.Stderr, "analyze: encode report: %v\n", err)
		return exitAnalysisFailed
	}
	fmt.Println(string(out))

	if artifact.OverallStatus == domain.OverallFailed {
		return exitAnalysisFailed
	}
	return exitSuccess
}

// printSummary renders a short colorized digest to stderr ahead of the
// JSON payload on stdout, so piping `analyze ... > report.json` still
// leaves a readable trail on the terminal.
func printSummary(bundle *report.Bundle) {
	if bundle == nil || bundle.Analysis == nil {
		return
	}
	view := bundle.Analysis
	fmt.Fprintln(os.Stderr, color.CyanString("Run %s (%s)", view.RunID, view.AnalysisLevel))

	switch view.OverallStatus {
	case domain.OverallSuccess:
		fmt.Fprintln(os.Stderr, color.GreenString("overall status: %s", view.OverallStatus))
	case domain.OverallPartialSuccess:
		fmt.Fprintln(os.Stderr, color.YellowString("overall status: %s", view.OverallStatus))
	default:
		fmt.Fprintln(os.Stderr, color.RedString("overall status: %s", view.OverallStatus))
	}

	if view.Risk != nil {
		switch view.Risk.OverallLevel {
		case domain.RiskLow, domain.RiskMedium:
			fmt.Fprintln(os.Stderr, color.GreenString("risk: %s", view.Risk.OverallLevel))
		default:
			fmt.Fprintln(os.Stderr, color.RedString("risk: %s", view.Risk.OverallLevel))
		}
	}
	if view.Validation != nil {
		switch view.Validation.Level {
		case domain.ValidationAprobado:
			fmt.Fprintln(os.Stderr, color.GreenString("validation: %s", view.Validation.Level))
		case domain.ValidationAprobadoConObsrv:
			fmt.Fprintln(os.Stderr, color.YellowString("validation: %s", view.Validation.Level))
		default:
			fmt.Fprintln(os.Stderr, color.RedString("validation: %s", view.Validation.Level))
		}
	}
	for _, f := range view.KeyFindings {
		fmt.Fprintln(os.Stderr, color.YellowString("- %s", f))
	}
}
