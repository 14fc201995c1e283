// Package costs tracks token-count estimates across a session and converts
// them into a monetary estimate.
package costs

import (
	"fmt"
	"strings"
	"sync"
)

// CharsPerToken is the fixed character-to-token ratio used for all
// estimates. Real tokenizers vary; this keeps estimation deterministic and
// dependency-free.
const CharsPerToken = 4

// EstimateTokens returns the estimated token count of text.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + CharsPerToken - 1) / CharsPerToken
}

// Rates holds per-million-token prices in dollars.
type Rates struct {
	InputPerMTok  float64
	OutputPerMTok float64
}

// DefaultRates approximates a mid-tier hosted model.
var DefaultRates = Rates{InputPerMTok: 3.0, OutputPerMTok: 15.0}

// Accountant accumulates token estimates and outcome counts across all
// fragments and files of a session. Safe for concurrent use by pipeline
// workers.
type Accountant struct {
	mu           sync.Mutex
	files        int
	inputTokens  int64
	outputTokens int64
	transformed  int
	fellBack     int
	skipped      int
	resumed      int
}

func NewAccountant() *Accountant {
	return &Accountant{}
}

// AddFragment records the token estimates of one processed fragment.
func (a *Accountant) AddFragment(inputTokens, outputTokens int) {
	a.mu.Lock()
	a.inputTokens += int64(inputTokens)
	a.outputTokens += int64(outputTokens)
	a.mu.Unlock()
}

// CountTransformed records a fragment whose text was changed by the service.
func (a *Accountant) CountTransformed() {
	a.mu.Lock()
	a.transformed++
	a.mu.Unlock()
}

// CountFallback records a fragment that fell back to its original text
// after an unrecoverable failure.
func (a *Accountant) CountFallback() {
	a.mu.Lock()
	a.fellBack++
	a.mu.Unlock()
}

// CountSkipped records a fragment the static pre-check found already clean.
func (a *Accountant) CountSkipped() {
	a.mu.Lock()
	a.skipped++
	a.mu.Unlock()
}

// CountResumed records a fragment restored from the checkpoint ledger of a
// previous run.
func (a *Accountant) CountResumed() {
	a.mu.Lock()
	a.resumed++
	a.mu.Unlock()
}

// CountFile records one fully processed input file.
func (a *Accountant) CountFile() {
	a.mu.Lock()
	a.files++
	a.mu.Unlock()
}

// Summary is a point-in-time snapshot of the accumulated totals.
type Summary struct {
	Files        int
	InputTokens  int64
	OutputTokens int64
	Transformed  int
	FellBack     int
	Skipped      int
	Resumed      int
	Cost         float64
}

// Summary computes totals and the monetary estimate under rates.
func (a *Accountant) Summary(rates Rates) Summary {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Summary{
		Files:        a.files,
		InputTokens:  a.inputTokens,
		OutputTokens: a.outputTokens,
		Transformed:  a.transformed,
		FellBack:     a.fellBack,
		Skipped:      a.skipped,
		Resumed:      a.resumed,
		Cost: float64(a.inputTokens)/1e6*rates.InputPerMTok +
			float64(a.outputTokens)/1e6*rates.OutputPerMTok,
	}
}

// String renders the end-of-session report.
func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Files processed:    %d\n", s.Files)
	fmt.Fprintf(&b, "Fragments:          %d transformed, %d skipped clean, %d resumed, %d fell back\n",
		s.Transformed, s.Skipped, s.Resumed, s.FellBack)
	fmt.Fprintf(&b, "Estimated tokens:   %d in, %d out\n", s.InputTokens, s.OutputTokens)
	fmt.Fprintf(&b, "Estimated cost:     $%.4f", s.Cost)
	return b.String()
}
