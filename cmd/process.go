/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/valpere/reflow/internal"
	"github.com/valpere/reflow/internal/assembler"
	"github.com/valpere/reflow/internal/checkpoint"
	"github.com/valpere/reflow/internal/chunker"
	"github.com/valpere/reflow/internal/costs"
	"github.com/valpere/reflow/internal/language"
	"github.com/valpere/reflow/internal/linter"
	"github.com/valpere/reflow/internal/pipeline"
	"github.com/valpere/reflow/internal/store"
	"github.com/valpere/reflow/internal/transformer"
	"github.com/valpere/reflow/internal/workdir"
)

var (
	inputFile  string
	outputFile string
	langHint   string

	serviceName  string
	modelName    string
	baseURL      string
	apiKey       string
	instructions string
	temperature  float64
	maxOutTokens int

	maxFragmentTokens int
	workers           int
	maxRetries        int

	preCheck  bool
	postCheck bool

	interactive bool
	dryRun      bool
	editorCmd   string

	dbPath  string
	noCache bool

	priceIn  float64
	priceOut float64
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Transform a document chunk by chunk",
	Long: `Split a document into content-aware fragments, run each fragment
through the transformation service, and reassemble the result.

Progress is checkpointed next to the output target: if a run is
interrupted, re-running the same command resumes where it left off
without re-paying for completed fragments.

Available services:
  - ollama      Ollama LLM (self-hosted)
  - openai      OpenAI-compatible chat endpoint (requires API key)
  - openrouter  OpenRouter (requires API key)

Use -o - to write the result to standard output (disables resume).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if inputFile == outputFile {
			return fmt.Errorf("input file and output file cannot be the same")
		}

		data, err := os.ReadFile(inputFile)
		if err != nil {
			return fmt.Errorf("failed to read input file: %w", err)
		}
		text := string(data)

		lang := language.FromPath(inputFile)
		if langHint != "" {
			lang = language.FromHint(langHint)
		}

		logger := log.Default()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		svc, err := buildService(serviceName, modelName, baseURL, resolveAPIKey(apiKey))
		if err != nil {
			return err
		}

		frags := chunker.Split(text, lang, maxFragmentTokens)
		logger.Info("document split", "fragments", len(frags), "language", lang.Hint)

		toStdout := outputFile == "" || outputFile == "-"

		var ledger *checkpoint.Ledger
		resume := false
		if !toStdout && !dryRun {
			ledger = checkpoint.Open(outputFile)
			resume = ledger.Exists()
			if resume {
				logger.Info("checkpoint found, resuming", "ledger", ledger.Path())
			}
		}

		// A fresh run about to overwrite an existing target keeps a
		// timestamped copy of the previous content.
		if !toStdout && !dryRun && !resume {
			if _, serr := os.Stat(outputFile); serr == nil {
				backup := fmt.Sprintf("%s.bak-%s", outputFile, time.Now().Format("20060102-150405"))
				if berr := copyFile(outputFile, backup); berr != nil {
					return fmt.Errorf("failed to back up existing output: %w", berr)
				}
				logger.Info("existing output backed up", "path", backup)
			}
		}

		dir, err := workdir.ForTarget(outputFile)
		if err != nil {
			return err
		}

		var db *store.Store
		if !noCache && dbPath != "" {
			db, err = store.New(dbPath)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer db.Close()
		}

		acct := costs.NewAccountant()

		policy := transformer.DefaultPolicy()
		policy.MaxAttempts = maxRetries

		p := &pipeline.Pipeline{
			Service:    svc,
			ServiceCfg: transformer.ServiceConfig{APIKey: resolveAPIKey(apiKey), Model: modelName, BaseURL: baseURL},
			Policy:     policy,
			Checker:    linter.NewExecChecker(),
			Ledger:     ledger,
			Cache:      db,
			Dir:        dir,
			Accountant: acct,
			Log:        logger,
			Config: pipeline.Config{
				Workers:         workers,
				LanguageHint:    lang.Hint,
				Instructions:    instructions,
				Temperature:     temperature,
				MaxOutputTokens: maxOutTokens,
				PreCheck:        preCheck,
				PostCheck:       postCheck,
			},
		}

		started := time.Now()
		results, err := p.Run(ctx, frags)
		if err != nil {
			// Ledger and scratch directory stay behind so the next run
			// resumes the in-flight fragments.
			return fmt.Errorf("processing interrupted: %w", err)
		}

		// Review prompts and diffs go to stderr so a piped stdout target
		// carries only the document.
		doc, err := assembler.Reassemble(ctx, results, assembler.Options{
			Interactive: interactive && !dryRun,
			DryRun:      dryRun,
			Editor:      editorCmd,
			Out:         os.Stderr,
			Log:         logger,
		})
		if err != nil {
			return fmt.Errorf("failed to reassemble document: %w", err)
		}

		if !dryRun {
			if toStdout {
				if _, err := io.WriteString(os.Stdout, doc); err != nil {
					return fmt.Errorf("failed to write output: %w", err)
				}
			} else {
				if err := os.MkdirAll(filepath.Dir(outputFile), 0755); err != nil {
					return fmt.Errorf("failed to create output directory: %w", err)
				}
				if err := os.WriteFile(outputFile, []byte(doc), 0644); err != nil {
					return fmt.Errorf("failed to write output file: %w", err)
				}
			}
		}

		acct.CountFile()

		clean := pipeline.CleanlyCompleted(results)
		switch {
		case dryRun:
			_ = dir.Remove()
		case clean:
			if ledger != nil {
				_ = ledger.Remove()
			}
			_ = dir.Remove()
		default:
			logger.Warn("some fragments fell back to original text; checkpoint kept for re-run")
		}

		summary := acct.Summary(costs.Rates{InputPerMTok: priceIn, OutputPerMTok: priceOut})
		fmt.Fprintln(os.Stderr, summary)

		if db != nil {
			_ = db.SaveSession(context.Background(), internal.SessionRecord{
				ID:           uuid.New().String(),
				Service:      svc.Name(),
				StartedAt:    started,
				Files:        summary.Files,
				InputTokens:  summary.InputTokens,
				OutputTokens: summary.OutputTokens,
				CostUSD:      summary.Cost,
			})
		}
		return nil
	},
}

// copyFile duplicates src to dst with the source's plain contents.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().StringVarP(&inputFile, "input", "i", "", "Input file to process (required)")
	processCmd.Flags().StringVarP(&outputFile, "output", "o", "-", "Output file (- for stdout)")
	processCmd.Flags().StringVar(&langHint, "lang", "", "Language hint (default: inferred from extension)")

	processCmd.Flags().StringVar(&serviceName, "service", "ollama", "Transformation service (ollama, openai, openrouter)")
	processCmd.Flags().StringVar(&modelName, "model", "", "Model name (service default used if empty)")
	processCmd.Flags().StringVar(&baseURL, "base-url", "", "Service base URL override")
	processCmd.Flags().StringVar(&apiKey, "api-key", "", "API key (falls back to REFLOW_API_KEY or config file)")
	processCmd.Flags().StringVar(&instructions, "instructions", "", "Transformation instruction template ({lang} is replaced)")
	processCmd.Flags().Float64Var(&temperature, "temperature", 0.2, "Sampling temperature")
	processCmd.Flags().IntVar(&maxOutTokens, "max-output-tokens", 4096, "Output token cap per fragment")

	processCmd.Flags().IntVar(&maxFragmentTokens, "max-fragment-tokens", 1500, "Token budget per fragment (0 = unlimited)")
	processCmd.Flags().IntVar(&workers, "workers", 4, "Parallel fragment workers")
	processCmd.Flags().IntVar(&maxRetries, "max-retries", 3, "Total attempts per fragment including the first (1 = no retries)")

	processCmd.Flags().BoolVar(&preCheck, "pre-check", true, "Skip fragments that already pass the static checker")
	processCmd.Flags().BoolVar(&postCheck, "post-check", true, "Revert transformations that fail the static checker")

	processCmd.Flags().BoolVar(&interactive, "interactive", false, "Review each changed fragment (accept/reject/edit)")
	processCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show diffs without writing the output")
	processCmd.Flags().StringVar(&editorCmd, "editor", "", "Editor for interactive edit (default $EDITOR)")

	processCmd.Flags().StringVar(&dbPath, "db", "./data/reflow.db", "Database path for transformation memory")
	processCmd.Flags().BoolVar(&noCache, "no-cache", false, "Disable transformation memory")

	processCmd.Flags().Float64Var(&priceIn, "price-in", costs.DefaultRates.InputPerMTok, "Price per million input tokens (USD)")
	processCmd.Flags().Float64Var(&priceOut, "price-out", costs.DefaultRates.OutputPerMTok, "Price per million output tokens (USD)")

	processCmd.MarkFlagRequired("input")
}
