package main

import (
	"context"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/povarna/generative-ai-agents/uni-guard/internal/experiment"
	"github.com/povarna/generative-ai-agents/uni-guard/internal/guardrails"
	"github.com/povarna/generative-ai-agents/uni-guard/internal/setup"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	modeInput    = "input"
	modePipeline = "pipeline"
)

func main() {
	startTime := time.Now()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	input := flag.String("input", "", "Labelled cases (JSONL). '-' reads stdin. Empty runs the built-in cases")
	output := flag.String("output", "", "Output file path. Empty writes to stdout")
	format := flag.String("format", experiment.FormatJSONL, "Output format: 'jsonl' or 'summary'")
	mode := flag.String("mode", modeInput, "What to exercise: 'input' guardrails only or the full 'pipeline'")
	workers := flag.Int("workers", 5, "Concurrent workers")
	dryRun := flag.Bool("dry-run", false, "Validate cases without running them")
	flag.Parse()

	if *mode != modeInput && *mode != modePipeline {
		log.Fatal().Str("mode", *mode).Msg("Invalid mode. Supported: input, pipeline")
	}

	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("No .env file found, using environment variables")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reader := openReader(*input)
	var records []experiment.InputRecord
	invalid := 0
	for record := range reader.ReadAll(ctx) {
		if record.Error != nil {
			log.Error().Int("line", record.LineNumber).Err(record.Error).Msg("Invalid case")
			invalid++
		}
		records = append(records, record)
	}
	log.Info().Int("total", len(records)).Int("invalid", invalid).Msg("Cases parsed")

	if *dryRun {
		if invalid > 0 {
			log.Fatal().Int("errors", invalid).Msg("Validation failed")
		}
		log.Info().Msg("Validation successful")
		return
	}

	classifier, closeFn := newClassifier(ctx, *mode)
	defer closeFn()

	var out io.Writer = os.Stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			log.Fatal().Err(err).Str("file", *output).Msg("Failed to create output file")
		}
		defer f.Close()
		out = f
	}

	writer, err := experiment.NewWriter(out, *format, &log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create writer")
	}

	processor := experiment.NewProcessor(classifier, *workers, &log.Logger)
	for result := range processor.Process(ctx, records) {
		if err := writer.Write(result); err != nil {
			log.Error().Err(err).Str("case", result.ID).Msg("Failed to write result")
		}
	}
	if err := writer.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to finish output")
	}

	summary := writer.Summary()
	log.Info().
		Str("mode", *mode).
		Int("total", summary.Total).
		Int("passed", summary.Passed).
		Int("failed", summary.Failed).
		Int("errors", summary.Errors).
		Int("blocked", summary.Blocked).
		Float64("pass_rate", summary.PassRate).
		Dur("duration", time.Since(startTime)).
		Msg("Experiment complete")

	if summary.Failed > 0 || summary.Errors > 0 {
		log.Error().Strs("failures", summary.Failures).Msg("Some cases did not behave as labelled")
		closeFn()
		stop()
		os.Exit(1)
	}
}

func openReader(path string) *experiment.Reader {
	switch path {
	case "":
		log.Info().Msg("Using built-in cases")
		return experiment.DefaultReader(&log.Logger)
	case "-":
		log.Info().Msg("Reading from stdin")
		return experiment.NewReader(os.Stdin, &log.Logger)
	}

	f, err := os.Open(path)
	if err != nil {
		log.Fatal().Err(err).Str("file", path).Msg("Failed to open input file")
	}
	log.Info().Str("file", path).Msg("Reading input file")
	return experiment.NewReader(f, &log.Logger)
}

// newClassifier avoids touching AWS or Postgres in input mode.
func newClassifier(ctx context.Context, mode string) (experiment.Classifier, func()) {
	if mode == modeInput {
		rs, err := guardrails.LoadRuleSet()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load guardrail rules")
		}
		log.Info().Str("rule_set_version", rs.Version).Msg("Input guardrails loaded")
		return experiment.NewInputClassifier(guardrails.NewInputEngine(rs)), func() {}
	}

	cfg := setup.LoadConfig()
	deps, err := setup.Wire(ctx, cfg, &log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	return experiment.NewPipelineClassifier(deps.Orchestrator), deps.Close
}
