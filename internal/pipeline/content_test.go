package pipeline

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/competitor-cli/internal/model"
)

func analyze(t *testing.T, html string) model.ContentAnalysis {
	t.Helper()
	_, clean, err := parseDocument(html)
	require.NoError(t, err)
	return AnalyzeContent(clean)
}

func TestAnalyzeContent(t *testing.T) {
	ca := analyze(t, acmeHomepage)

	require.Len(t, ca.Headings, 3)
	assert.Equal(t, model.Heading{Level: 1, Text: "The CRM sales teams love"}, ca.Headings[0])
	assert.Equal(t, 2, ca.Headings[1].Level)
	assert.Equal(t, []string{"crm", "sales pipeline", "deal tracking", "Pipeline management", "Reporting"}, ca.Topics)
	assert.Equal(t, 20, ca.WordCount)
	assert.Equal(t, model.StructureStandard, ca.Structure)
}

func TestAnalyzeContent_Caps(t *testing.T) {
	var b strings.Builder
	b.WriteString(`<html><head><meta name="keywords" content="a, ok, dup, DUP"></head><body>`)
	for i := 0; i < 30; i++ {
		fmt.Fprintf(&b, "<h2>Section heading %d</h2>", i)
	}
	b.WriteString("<h3></h3><script>document.write('<h2>hidden</h2>')</script></body></html>")

	ca := analyze(t, b.String())
	assert.Len(t, ca.Headings, maxHeadings)
	assert.Len(t, ca.Topics, maxTopics)
	assert.Equal(t, "dup", ca.Topics[0])
	assert.Equal(t, "Section heading 0", ca.Topics[1])
	assert.Equal(t, model.StructureDetailed, ca.Structure)
}

func TestAnalyzeContent_Minimal(t *testing.T) {
	ca := analyze(t, `<html><body><h1>Welcome</h1><p>one two three</p></body></html>`)
	assert.Equal(t, model.StructureMinimal, ca.Structure)
	assert.Equal(t, 3, ca.WordCount)
	assert.Empty(t, ca.Topics)
	assert.NotNil(t, ca.Topics)
}
