package pipeline

import (
	"os"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Industry is one entry of the industry detection table.
type Industry struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`

	patterns []*regexp.Regexp
}

// Heuristics holds the tunable tables used by the non-AI stages.
type Heuristics struct {
	// Denylist entries containing a dot match the domain or any subdomain
	// of it (".gov" matches any .gov domain); entries without a dot match
	// as substrings.
	Denylist   []string   `yaml:"denylist"`
	Industries []Industry `yaml:"industries"`
}

// heuristicsFile is the on-disk override format.
type heuristicsFile struct {
	Denylist          []string   `yaml:"denylist"`
	Industries        []Industry `yaml:"industries"`
	ReplaceDenylist   bool       `yaml:"replace_denylist"`
	ReplaceIndustries bool       `yaml:"replace_industries"`
}

var defaultDenylist = []string{
	// Social networks and video.
	"facebook.com", "instagram.com", "twitter.com", "x.com", "linkedin.com",
	"pinterest.com", "tiktok.com", "reddit.com", "youtube.com", "youtu.be", "vimeo.com",
	// Reference and Q&A.
	"wikipedia", "wikihow.com", "quora.com", "medium.com", "britannica.com",
	// Marketplaces and app stores.
	"amazon", "ebay", "etsy.com", "alibaba.com", "walmart.com", "apps.apple.com",
	"play.google.com", "google.com", "bing.com",
	// Site builders.
	"wix.com", "squarespace.com", "wordpress.com", "weebly.com", "godaddy.com", "blogspot.com",
	// Directories and review aggregators.
	"yelp", "yellowpages", "bbb.org", "crunchbase.com", "glassdoor", "indeed.com",
	"g2.com", "capterra", "trustpilot", "getapp.com", "softwareadvice.com", "clutch.co",
	"zoominfo.com", "producthunt.com", "alternativeto.net", "sourceforge.net",
	"tripadvisor", "angi.com", "thumbtack.com", "manta.com",
	// News and generic publishers.
	"forbes.com", "techcrunch.com", "businessinsider.com", "nytimes.com",
	// Public sector and education.
	".gov", ".edu", ".mil",
}

var defaultIndustries = []Industry{
	{Name: "SaaS", Keywords: []string{"software", "saas", "platform", "cloud", "app", "crm", "subscription", "api", "dashboard", "automation"}},
	{Name: "E-commerce", Keywords: []string{"e-commerce", "ecommerce", "online store", "shop", "shopping", "cart", "checkout", "retail", "free shipping"}},
	{Name: "Healthcare", Keywords: []string{"health", "healthcare", "medical", "clinic", "hospital", "patient", "patients", "doctor", "dental", "wellness", "pharmacy", "therapy"}},
	{Name: "Technology", Keywords: []string{"technology", "tech", "it services", "artificial intelligence", "machine learning", "cybersecurity", "hardware", "developer", "developers", "data"}},
	{Name: "Marketing", Keywords: []string{"marketing", "seo", "advertising", "agency", "branding", "social media", "ppc", "lead generation"}},
	{Name: "Education", Keywords: []string{"education", "learning", "course", "courses", "school", "training", "tutoring", "university", "students", "e-learning"}},
	{Name: "Finance", Keywords: []string{"finance", "financial", "bank", "banking", "investment", "investing", "insurance", "accounting", "loan", "loans", "fintech", "payments", "tax"}},
	{Name: "Real Estate", Keywords: []string{"real estate", "property", "properties", "realtor", "homes for sale", "mortgage", "rental", "apartments"}},
	{Name: "Legal", Keywords: []string{"law", "legal", "lawyer", "lawyers", "attorney", "attorneys", "law firm", "litigation"}},
	{Name: "Consulting", Keywords: []string{"consulting", "consultant", "consultants", "consultancy", "advisory", "advisors"}},
}

// DefaultHeuristics returns the built-in denylist and industry table.
func DefaultHeuristics() *Heuristics {
	h := &Heuristics{
		Denylist:   append([]string(nil), defaultDenylist...),
		Industries: append([]Industry(nil), defaultIndustries...),
	}
	h.compile()
	return h
}

// LoadHeuristics reads a YAML override file and merges it over the
// defaults. Entries extend the defaults unless replace_* is set.
func LoadHeuristics(path string) (*Heuristics, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "heuristics: read %s", path)
	}

	var f heuristicsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrapf(err, "heuristics: parse %s", path)
	}

	h := DefaultHeuristics()
	if f.ReplaceDenylist {
		h.Denylist = nil
	}
	for _, d := range f.Denylist {
		if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
			h.Denylist = append(h.Denylist, d)
		}
	}

	if f.ReplaceIndustries {
		h.Industries = nil
	}
	for _, ind := range f.Industries {
		if strings.TrimSpace(ind.Name) == "" || len(ind.Keywords) == 0 {
			return nil, eris.Errorf("heuristics: industry entry needs a name and keywords")
		}
		h.Industries = append(h.Industries, ind)
	}

	h.compile()
	return h, nil
}

func (h *Heuristics) compile() {
	for i := range h.Industries {
		ind := &h.Industries[i]
		ind.patterns = nil
		for _, kw := range ind.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" {
				continue
			}
			ind.patterns = append(ind.patterns, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(kw)+`\b`))
		}
	}
}

// DetectIndustry returns the first industry whose keywords occur in text,
// or "" when none match.
func (h *Heuristics) DetectIndustry(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	for _, ind := range h.Industries {
		for _, re := range ind.patterns {
			if re.MatchString(text) {
				return ind.Name
			}
		}
	}
	return ""
}

// IsDenied reports whether domain matches the denylist.
func (h *Heuristics) IsDenied(domain string) bool {
	domain = strings.ToLower(domain)
	for _, entry := range h.Denylist {
		switch {
		case strings.HasPrefix(entry, "."):
			if strings.HasSuffix(domain, entry) || strings.Contains(domain, entry+".") {
				return true
			}
		case strings.Contains(entry, "."):
			if domain == entry || strings.HasSuffix(domain, "."+entry) {
				return true
			}
		default:
			if strings.Contains(domain, entry) {
				return true
			}
		}
	}
	return false
}
