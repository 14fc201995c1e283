package internal

import "time"

type SessionRecord struct {
	ID           string    `json:"id"`
	Service      string    `json:"service"`
	StartedAt    time.Time `json:"started_at"`
	Files        int       `json:"files"`
	InputTokens  int64     `json:"input_tokens"`
	OutputTokens int64     `json:"output_tokens"`
	CostUSD      float64   `json:"cost_usd"`
}
