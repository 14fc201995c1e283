package costs

import (
	"sync"
	"testing"
)

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"abc", 1},
		{"abcd", 1},
		{"abcde", 2},
		{"12345678", 2},
	}
	for _, tt := range tests {
		if got := EstimateTokens(tt.text); got != tt.want {
			t.Errorf("EstimateTokens(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func TestAccountant_Summary(t *testing.T) {
	a := NewAccountant()
	a.AddFragment(1000, 500)
	a.AddFragment(0, 0)
	a.CountTransformed()
	a.CountSkipped()
	a.CountResumed()
	a.CountResumed()
	a.CountFallback()
	a.CountFile()

	s := a.Summary(Rates{InputPerMTok: 3.0, OutputPerMTok: 15.0})

	if s.Files != 1 || s.Transformed != 1 || s.Skipped != 1 || s.Resumed != 2 || s.FellBack != 1 {
		t.Errorf("unexpected counts: %+v", s)
	}
	if s.InputTokens != 1000 || s.OutputTokens != 500 {
		t.Errorf("unexpected token totals: %+v", s)
	}
	want := 1000.0/1e6*3.0 + 500.0/1e6*15.0
	if s.Cost != want {
		t.Errorf("cost = %f, want %f", s.Cost, want)
	}
}

func TestAccountant_ConcurrentUpdates(t *testing.T) {
	a := NewAccountant()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.AddFragment(10, 5)
			a.CountTransformed()
		}()
	}
	wg.Wait()

	s := a.Summary(DefaultRates)
	if s.InputTokens != 1000 || s.OutputTokens != 500 || s.Transformed != 100 {
		t.Errorf("lost updates under concurrency: %+v", s)
	}
}
