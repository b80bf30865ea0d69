package pipeline

import (
	"encoding/json"
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/sells-group/competitor-cli/internal/model"
)

// ExtractStructuredData parses every JSON-LD block in doc and classifies
// the objects it contains by @type. Malformed blocks are skipped. When a
// type occurs more than once the last object wins.
func ExtractStructuredData(doc *goquery.Document) model.StructuredData {
	var sd model.StructuredData

	doc.Find(`script[type="application/ld+json"]`).Each(func(i int, s *goquery.Selection) {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return
		}

		var parsed any
		if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
			zap.L().Debug("pipeline: skipping malformed json-ld block",
				zap.Int("block", i),
				zap.Error(err),
			)
			return
		}

		for _, obj := range flattenJSONLD(parsed) {
			for _, t := range jsonLDTypes(obj["@type"]) {
				switch t {
				case "Organization", "Corporation":
					sd.Organization = obj
				case "LocalBusiness":
					sd.Organization = obj
					sd.Business = obj
				case "ProfessionalService":
					sd.Business = obj
				case "WebSite":
					sd.Website = obj
				}
			}
		}
	})

	return sd
}

// flattenJSONLD unwraps top-level arrays and @graph containers into a flat
// list of objects.
func flattenJSONLD(v any) []map[string]any {
	var out []map[string]any
	switch val := v.(type) {
	case []any:
		for _, item := range val {
			out = append(out, flattenJSONLD(item)...)
		}
	case map[string]any:
		if graph, ok := val["@graph"].([]any); ok {
			out = append(out, flattenJSONLD(graph)...)
		}
		if _, ok := val["@type"]; ok {
			out = append(out, val)
		}
	}
	return out
}

// jsonLDTypes normalizes @type, which may be a string or an array of
// strings. Schema.org IRIs are reduced to their local name.
func jsonLDTypes(v any) []string {
	var types []string
	add := func(s string) {
		s = strings.TrimSpace(s)
		if idx := strings.LastIndexAny(s, "/#"); idx >= 0 {
			s = s[idx+1:]
		}
		if s != "" {
			types = append(types, s)
		}
	}
	switch val := v.(type) {
	case string:
		add(val)
	case []any:
		for _, item := range val {
			if s, ok := item.(string); ok {
				add(s)
			}
		}
	}
	return types
}

// sdString returns the first non-empty string value for keys in obj.
// Nested objects contribute their "name" or "description".
func sdString(obj map[string]any, keys ...string) string {
	if obj == nil {
		return ""
	}
	for _, k := range keys {
		switch v := obj[k].(type) {
		case string:
			if s := collapse(html.UnescapeString(v)); s != "" {
				return s
			}
		case map[string]any:
			if s := sdString(v, "description", "name"); s != "" {
				return s
			}
		case []any:
			for _, item := range v {
				if s, ok := item.(string); ok {
					if s = collapse(html.UnescapeString(s)); s != "" {
						return s
					}
				}
			}
		}
	}
	return ""
}
