package ruleset

import (
	_ "embed"
	"encoding/json"
	"strings"

	"github.com/solatis/sdtmcheck/internal/types"
)

// Template is a reusable rule from the built-in catalogue.
type Template struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Domain      string   `json:"domain"`
	Variable    string   `json:"variable"`
	Condition   string   `json:"condition"`
	Severity    string   `json:"severity"`
	Message     string   `json:"message"`
	Tags        []string `json:"tags"`
}

// Rule converts the template into a custom rule.
func (t Template) Rule() types.Rule {
	return Normalize(types.Rule{
		ID:        t.ID,
		Domain:    t.Domain,
		Variable:  t.Variable,
		Condition: t.Condition,
		Severity:  types.Severity(t.Severity),
		Message:   t.Message,
		Source:    types.SourceCustom,
	})
}

//go:embed templates.json
var templatesJSON []byte

var catalogue = mustDecodeTemplates(templatesJSON)

func mustDecodeTemplates(data []byte) []Template {
	var ts []Template
	if err := json.Unmarshal(data, &ts); err != nil {
		panic("ruleset: invalid embedded templates: " + err.Error())
	}
	return ts
}

// Templates returns the whole catalogue in category order.
func Templates() []Template {
	out := make([]Template, len(catalogue))
	copy(out, catalogue)
	return out
}

// Categories lists category names in catalogue order.
func Categories() []string {
	var out []string
	seen := make(map[string]bool)
	for _, t := range catalogue {
		if !seen[t.Category] {
			seen[t.Category] = true
			out = append(out, t.Category)
		}
	}
	return out
}

// TemplatesByCategory returns the templates of one category.
func TemplatesByCategory(category string) []Template {
	return filterTemplates(func(t Template) bool { return t.Category == category })
}

// TemplatesByDomain returns templates for a domain, case-insensitive.
func TemplatesByDomain(domain string) []Template {
	return filterTemplates(func(t Template) bool { return strings.EqualFold(t.Domain, domain) })
}

// TemplatesByTag returns templates carrying tag, case-insensitive.
func TemplatesByTag(tag string) []Template {
	return filterTemplates(func(t Template) bool {
		for _, candidate := range t.Tags {
			if strings.EqualFold(candidate, tag) {
				return true
			}
		}
		return false
	})
}

// TemplateByID looks up a template.
func TemplateByID(id string) (Template, bool) {
	for _, t := range catalogue {
		if strings.EqualFold(t.ID, id) {
			return t, true
		}
	}
	return Template{}, false
}

func filterTemplates(keep func(Template) bool) []Template {
	var out []Template
	for _, t := range catalogue {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}
