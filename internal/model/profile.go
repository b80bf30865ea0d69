package model

// BusinessProfile describes the business behind the input URL.
type BusinessProfile struct {
	CompanyName      string `json:"companyName"`
	Description      string `json:"description"`
	Industry         string `json:"industry"`
	Language         string `json:"language"`
	TargetAudience   string `json:"targetAudience,omitempty"`
	BusinessType     string `json:"businessType,omitempty"`
	ValueProposition string `json:"valueProposition,omitempty"`
}

// StructuredData holds the JSON-LD objects found on a page, classified by
// their @type. Any of the maps may be nil.
type StructuredData struct {
	Organization map[string]any `json:"organization,omitempty"`
	Business     map[string]any `json:"business,omitempty"`
	Website      map[string]any `json:"website,omitempty"`
}

// Found reports whether any structured data object was classified.
func (s StructuredData) Found() bool {
	return s.Organization != nil || s.Business != nil || s.Website != nil
}

// StructureClass is a coarse classification of a page's heading layout.
type StructureClass string

const (
	StructureMinimal  StructureClass = "minimal"
	StructureStandard StructureClass = "standard"
	StructureDetailed StructureClass = "detailed"
)

// Heading is a single h1-h6 element in document order.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// ContentAnalysis summarizes the homepage content.
type ContentAnalysis struct {
	Headings  []Heading      `json:"headings"`
	Topics    []string       `json:"topics"`
	WordCount int            `json:"wordCount"`
	Structure StructureClass `json:"structure"`
}

// Offering lists the concrete services and products a business sells.
type Offering struct {
	Services []string `json:"services"`
	Products []string `json:"products"`
}

// Empty reports whether no service or product was found.
func (o Offering) Empty() bool {
	return len(o.Services) == 0 && len(o.Products) == 0
}
