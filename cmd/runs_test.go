package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/competitor-cli/internal/model"
)

func TestFormatRunsList(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	runs := []model.Run{
		{
			ID:          "abc12345-6789-0000-0000-000000000000",
			URL:         "https://acme.com",
			Variant:     "validated",
			CompanyName: "Acme CRM",
			Status:      model.RunStatusComplete,
			Competitors: []model.Competitor{{Domain: "hubspot.com", Name: "HubSpot"}, {Domain: "zoho.com", Name: "Zoho"}},
			Cost:        0.0123,
			Duration:    4250 * time.Millisecond,
			CreatedAt:   now,
		},
		{
			ID:        "def12345-6789-0000-0000-000000000000",
			URL:       "https://unreachable.example",
			Variant:   "basic",
			Status:    model.RunStatusFetchError,
			CreatedAt: now.Add(-1 * time.Hour),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	output := buf.String()
	assert.Contains(t, output, "ID")
	assert.Contains(t, output, "COMPANY")
	assert.Contains(t, output, "STATUS")
	assert.Contains(t, output, "Acme CRM")
	assert.Contains(t, output, "complete")
	assert.Contains(t, output, "$0.0123")
	assert.Contains(t, output, "4.3s")
	assert.Contains(t, output, "https://unreachable.example")
	assert.Contains(t, output, "fetch_error")
	assert.Contains(t, output, "2025-06-15 10:30")
	assert.Contains(t, output, "abc12345")
	assert.NotContains(t, output, "abc12345-6789")
}

func TestFormatRunsList_LongCompanyTruncated(t *testing.T) {
	runs := []model.Run{{
		ID:          "run-1",
		CompanyName: "The Extremely Long Company Name Incorporated",
		Status:      model.RunStatusComplete,
	}}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	assert.Contains(t, buf.String(), "The Extremely Long Company ...")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc12345", truncateID("abc12345-6789"))
	assert.Equal(t, "short", truncateID("short"))
	assert.Equal(t, "", truncateID(""))
}
