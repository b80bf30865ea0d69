package model

import "time"

// RunStatus represents the final state of a discovery run.
type RunStatus string

const (
	RunStatusComplete   RunStatus = "complete"
	RunStatusInvalidURL RunStatus = "invalid_url"
	RunStatusFetchError RunStatus = "fetch_error"
	RunStatusFailed     RunStatus = "failed"
)

// Run is one recorded discovery run.
type Run struct {
	ID          string        `json:"id"`
	URL         string        `json:"url"`
	Variant     string        `json:"variant"`
	Status      RunStatus     `json:"status"`
	CompanyName string        `json:"company_name,omitempty"`
	Industry    string        `json:"industry,omitempty"`
	Competitors []Competitor  `json:"competitors,omitempty"`
	Usage       Usage         `json:"usage"`
	Cost        float64       `json:"cost"`
	Duration    time.Duration `json:"duration"`
	Error       string        `json:"error,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}
