package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sells-group/competitor-cli/internal/model"
)

const enhanceSystemPrompt = `You are a business analyst. You read what a company says about itself and describe the business precisely. Respond with a single JSON object and nothing else.`

// EnhanceInput is the context given to the business context enhancer.
type EnhanceInput struct {
	Profile        model.BusinessProfile
	Content        model.ContentAnalysis
	StructuredData model.StructuredData
	SatelliteText  string
	// IncludeDescription asks the model for a rewritten description too.
	IncludeDescription bool
}

// Enhancement holds the refined profile fields. Empty fields mean the model
// had nothing to add.
type Enhancement struct {
	Industry         string `json:"enhanced_industry"`
	Description      string `json:"enhanced_description"`
	TargetAudience   string `json:"target_audience"`
	BusinessType     string `json:"business_type"`
	ValueProposition string `json:"value_proposition"`
}

// EnhanceProfile makes one inference call to refine the profile and returns
// the refined copy. Without a completer, or on any failure, the profile is
// returned unchanged.
func EnhanceProfile(ctx context.Context, ai Completer, timeout time.Duration, in EnhanceInput) (model.BusinessProfile, model.Usage) {
	enh, usage, ok := askJSON[Enhancement](ctx, ai, timeout, CompletionRequest{
		Stage:     "enhance",
		System:    enhanceSystemPrompt,
		Prompt:    buildEnhancePrompt(in),
		MaxTokens: 600,
	})
	if !ok {
		return in.Profile, usage
	}
	return applyEnhancement(in.Profile, enh, in.IncludeDescription), usage
}

func applyEnhancement(p model.BusinessProfile, e Enhancement, includeDescription bool) model.BusinessProfile {
	if v := collapse(e.Industry); v != "" {
		p.Industry = v
	}
	if v := collapse(e.Description); includeDescription && v != "" {
		p.Description = v
	}
	if v := collapse(e.TargetAudience); v != "" {
		p.TargetAudience = v
	}
	if v := collapse(e.BusinessType); v != "" {
		p.BusinessType = v
	}
	if v := collapse(e.ValueProposition); v != "" {
		p.ValueProposition = v
	}
	return p
}

func buildEnhancePrompt(in EnhanceInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Company name: %s\n", in.Profile.CompanyName)
	fmt.Fprintf(&b, "Current description: %s\n", orNone(in.Profile.Description))
	fmt.Fprintf(&b, "Detected industry: %s\n", orNone(in.Profile.Industry))
	if len(in.Content.Topics) > 0 {
		fmt.Fprintf(&b, "Topics: %s\n", strings.Join(in.Content.Topics, ", "))
	}
	if len(in.Content.Headings) > 0 {
		b.WriteString("Headings:\n")
		for i, h := range in.Content.Headings {
			if i == 5 {
				break
			}
			fmt.Fprintf(&b, "- %s\n", h.Text)
		}
	}
	if org := in.StructuredData.Organization; org != nil {
		for _, key := range []string{"legalName", "slogan", "knowsAbout", "areaServed", "foundingDate"} {
			if v := sdString(org, key); v != "" {
				fmt.Fprintf(&b, "Organization %s: %s\n", key, v)
			}
		}
	}
	if in.SatelliteText != "" {
		fmt.Fprintf(&b, "Excerpts from other pages of the site:\n%s\n", truncate(in.SatelliteText, 1500))
	}

	b.WriteString("\nReturn JSON with these keys:\n")
	b.WriteString(`- "enhanced_industry": the specific industry or niche (e.g. "Sales CRM software" rather than "Technology")` + "\n")
	if in.IncludeDescription {
		b.WriteString(`- "enhanced_description": two sentences describing what the company sells and to whom` + "\n")
	}
	b.WriteString(`- "target_audience": who buys from this company` + "\n")
	b.WriteString(`- "business_type": B2B, B2C, B2B2C or marketplace, with a short qualifier` + "\n")
	b.WriteString(`- "value_proposition": the main reason customers choose this company, one sentence` + "\n")
	return b.String()
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(none)"
	}
	return s
}
