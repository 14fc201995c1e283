// Package pipeline runs fragments through the transformation service with
// a bounded worker pool, gated by the static checker and the checkpoint
// ledger. Per-fragment failures degrade to the original text; they never
// abort the run.
package pipeline

import (
	"context"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/valpere/reflow/internal/checkpoint"
	"github.com/valpere/reflow/internal/chunker"
	"github.com/valpere/reflow/internal/costs"
	"github.com/valpere/reflow/internal/linter"
	"github.com/valpere/reflow/internal/store"
	"github.com/valpere/reflow/internal/transformer"
	"github.com/valpere/reflow/internal/workdir"
)

// State is the terminal state a fragment reached in this run.
type State int

const (
	// Pending: never reached a terminal state (the run was cancelled).
	Pending State = iota
	// Skipped: recorded in the ledger with an intact output artifact;
	// no work was done this run.
	Skipped
	// Complete: transformed, served from cache, or explicitly passed
	// through by the static pre-check; recorded in the ledger.
	Complete
	// FailedFallback: an unrecoverable failure; the original text stands
	// in and the fragment is NOT recorded in the ledger.
	FailedFallback
)

// Result is the outcome of processing one fragment.
type Result struct {
	Fragment     chunker.Fragment
	Text         string
	State        State
	InputTokens  int
	OutputTokens int
}

// Changed reports whether the text used for reassembly differs from the
// fragment's original text.
func (r Result) Changed() bool {
	return r.Text != r.Fragment.Text
}

// Config carries the per-run processing options.
type Config struct {
	Workers         int
	LanguageHint    string
	Instructions    string
	Temperature     float64
	MaxOutputTokens int
	PreCheck        bool
	PostCheck       bool
}

const defaultWorkers = 4

// Pipeline wires the collaborators of a run. Checker, Ledger, and Cache
// are optional; a nil field disables that gate.
type Pipeline struct {
	Service    transformer.Service
	ServiceCfg transformer.ServiceConfig
	Policy     transformer.Policy
	Checker    linter.Checker
	Ledger     *checkpoint.Ledger
	Cache      *store.Store
	Dir        *workdir.Dir
	Accountant *costs.Accountant
	Log        *log.Logger
	Config     Config

	cacheKey string
}

// Run processes all fragments and returns one Result per fragment, in
// index order. The returned error is non-nil only for run-level failures
// (cancellation, unreadable ledger); fragment-level trouble is reported in
// the results.
func (p *Pipeline) Run(ctx context.Context, frags []chunker.Fragment) ([]Result, error) {
	done := map[string]bool{}
	if p.Ledger != nil {
		var err error
		done, err = p.Ledger.Load()
		if err != nil {
			return nil, err
		}
	}

	instr := p.Config.Instructions
	if instr == "" {
		instr = transformer.DefaultInstructions
	}
	p.cacheKey = store.InstructionKey(instr, p.ServiceCfg.Model)

	results := make([]Result, len(frags))

	workers := p.Config.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, f := range frags {
		f := f

		if done[f.Name()] && p.Dir.HasArtifact(f.OutputName()) {
			text, ok, err := p.Dir.ReadArtifact(f.OutputName())
			if err != nil || !ok {
				// Treat an unreadable artifact like a missing one and redo
				// the fragment.
				p.Log.Warn("checkpointed artifact unreadable, reprocessing",
					"fragment", f.Name(), "err", err)
			} else {
				results[f.Index] = Result{Fragment: f, Text: text, State: Skipped}
				p.Accountant.CountResumed()
				continue
			}
		}

		g.Go(func() error {
			results[f.Index] = p.process(gctx, f)
			return gctx.Err()
		})
	}

	err := g.Wait()
	return results, err
}

// process takes one fragment from IN_FLIGHT to a terminal state:
// checkpoint artifact write → pre-check gate → cache → transformation
// under the retry policy → post-check gate → persisted output → ledger
// append.
func (p *Pipeline) process(ctx context.Context, f chunker.Fragment) Result {
	r := Result{Fragment: f, Text: f.Text}

	if err := p.Dir.WriteArtifact(f.Name(), f.Text); err != nil {
		p.Log.Warn("failed to persist fragment body", "fragment", f.Name(), "err", err)
	}

	hint := p.Config.LanguageHint

	switch {
	case f.IsEmpty():
		r.State = Complete

	case p.preCheckPasses(ctx, f):
		p.Log.Debug("pre-check passed, skipping transformation", "fragment", f.Name())
		p.Accountant.CountSkipped()
		r.State = Complete

	case p.cacheLookup(ctx, f, &r):
		p.Log.Debug("served from transformation memory", "fragment", f.Name())
		r.State = Complete

	default:
		res, err := p.Policy.Do(ctx, p.Service, p.ServiceCfg, transformer.Request{
			Text:         f.Text,
			LanguageHint: hint,
			Instructions: p.Config.Instructions,
			Temperature:  p.Config.Temperature,
			MaxTokens:    p.Config.MaxOutputTokens,
		})
		if err != nil {
			if ctx.Err() != nil {
				return r
			}
			p.Log.Warn("fragment fell back to original text",
				"fragment", f.Name(), "err", err)
			r.State = FailedFallback
			r.InputTokens = costs.EstimateTokens(f.Text)
			p.Accountant.CountFallback()
			break
		}

		text := res.Text
		r.InputTokens = res.InputTokens
		r.OutputTokens = res.OutputTokens

		if p.Config.PostCheck && p.Checker != nil && hint != "" && text != f.Text {
			if p.Checker.Check(ctx, text, hint) == linter.Fail {
				p.Log.Warn("transformed fragment fails static check, reverting",
					"fragment", f.Name())
				text = f.Text
			}
		}

		r.Text = text
		r.State = Complete

		if text != f.Text {
			p.Accountant.CountTransformed()
			if p.Cache != nil {
				if cerr := p.Cache.Save(ctx, f.Text, hint, p.cacheKey, text, p.Service.Name()); cerr != nil {
					p.Log.Warn("failed to update transformation memory", "err", cerr)
				}
			}
		}
	}

	p.Accountant.AddFragment(r.InputTokens, r.OutputTokens)

	if werr := p.Dir.WriteArtifact(f.OutputName(), r.Text); werr != nil {
		p.Log.Warn("failed to persist fragment output", "fragment", f.Name(), "err", werr)
		if r.State == Complete {
			// Without a durable artifact the fragment must not be
			// checkpointed, or a resume would skip it with nothing to load.
			return r
		}
	}

	if r.State == Complete && p.Ledger != nil {
		if aerr := p.Ledger.Append(f.Name()); aerr != nil {
			p.Log.Warn("failed to append checkpoint entry", "fragment", f.Name(), "err", aerr)
		}
	}

	return r
}

func (p *Pipeline) preCheckPasses(ctx context.Context, f chunker.Fragment) bool {
	if !p.Config.PreCheck || p.Checker == nil {
		return false
	}
	return p.Checker.Check(ctx, f.Text, p.Config.LanguageHint) == linter.Pass
}

func (p *Pipeline) cacheLookup(ctx context.Context, f chunker.Fragment, r *Result) bool {
	if p.Cache == nil {
		return false
	}
	cached, found, err := p.Cache.GetCached(ctx, f.Text, p.Config.LanguageHint, p.cacheKey)
	if err != nil {
		p.Log.Warn("transformation memory lookup failed", "err", err)
		return false
	}
	if !found {
		return false
	}
	r.Text = cached
	if cached != f.Text {
		p.Accountant.CountTransformed()
	}
	return true
}

// CleanlyCompleted reports whether every fragment reached Complete or
// Skipped, i.e. the ledger may be deleted.
func CleanlyCompleted(results []Result) bool {
	for _, r := range results {
		if r.State != Complete && r.State != Skipped {
			return false
		}
	}
	return true
}
