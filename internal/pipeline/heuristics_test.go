package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectIndustry(t *testing.T) {
	h := DefaultHeuristics()

	tests := []struct {
		text string
		want string
	}{
		{"Acme CRM helps sales teams track deals", "SaaS"},
		{"Family dental clinic in Austin", "Healthcare"},
		{"Personal injury attorneys you can trust", "Legal"},
		{"We bake bread", ""},
		{"Scrappy startup", ""}, // "app" must match on word boundaries only
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, h.DetectIndustry(tt.text), tt.text)
	}
}

func TestIsDenied(t *testing.T) {
	h := DefaultHeuristics()

	denied := []string{
		"facebook.com", "m.facebook.com", "en.wikipedia.org", "amazon.co.uk",
		"yelp.com", "nasa.gov", "mit.edu", "g2.com",
	}
	for _, d := range denied {
		assert.True(t, h.IsDenied(d), d)
	}

	allowed := []string{"pipedrive.com", "hubspot.com", "notfacebook.com", "governance.io", "edutech.com"}
	for _, d := range allowed {
		assert.False(t, h.IsDenied(d), d)
	}
}

func TestLoadHeuristics_ExtendsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heuristics.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
denylist:
  - Example-Directory.com
industries:
  - name: Roofing
    keywords: [roofing, roofer, shingles]
`), 0o600))

	h, err := LoadHeuristics(path)
	require.NoError(t, err)

	assert.True(t, h.IsDenied("example-directory.com"))
	assert.True(t, h.IsDenied("facebook.com"))
	assert.Equal(t, "Roofing", h.DetectIndustry("Licensed roofer serving Dallas"))
	assert.Equal(t, "SaaS", h.DetectIndustry("CRM platform"))
}

func TestLoadHeuristics_Replace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heuristics.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
replace_denylist: true
denylist: [spam.com]
replace_industries: true
industries:
  - name: Roofing
    keywords: [roofing]
`), 0o600))

	h, err := LoadHeuristics(path)
	require.NoError(t, err)

	assert.False(t, h.IsDenied("facebook.com"))
	assert.True(t, h.IsDenied("spam.com"))
	assert.Empty(t, h.DetectIndustry("CRM platform"))
	assert.Len(t, h.Industries, 1)
}

func TestLoadHeuristics_Errors(t *testing.T) {
	_, err := LoadHeuristics(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("industries:\n  - name: \"\"\n"), 0o600))
	_, err = LoadHeuristics(path)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("denylist: [unclosed"), 0o600))
	_, err = LoadHeuristics(path)
	assert.Error(t, err)
}
