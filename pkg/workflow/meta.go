package workflow

import (
	"github.com/goccy/go-json"
)

// DefaultCategory is the placeholder category of records never categorized.
const DefaultCategory = "Uncategorized"

// Meta keys owned by the engine.
const (
	MetaCategory     = "category"
	MetaIntegrations = "integrations"
	MetaDescription  = "description"
	MetaComplexity   = "complexity"
	MetaTriggerType  = "trigger_type"
	MetaVerdict      = "verdict"
	MetaAnalyzedAt   = "analyzed_at"
)

// Meta is the workflow metadata block. Keys the engine does not own are kept
// in Extra and written back untouched.
type Meta struct {
	Category     string
	Integrations []string
	Description  string
	Complexity   string
	TriggerType  string
	Verdict      string
	AnalyzedAt   string

	Extra map[string]json.RawMessage
}

// HasCategory reports whether a non-default category is assigned.
func (m Meta) HasCategory() bool {
	return m.Category != "" && m.Category != DefaultCategory
}

// UnmarshalJSON decodes known keys and keeps the rest in Extra. Known keys of
// the wrong type are dropped.
func (m *Meta) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	*m = Meta{}
	for k, v := range fields {
		switch k {
		case MetaCategory:
			_ = json.Unmarshal(v, &m.Category)
		case MetaIntegrations:
			_ = json.Unmarshal(v, &m.Integrations)
		case MetaDescription:
			_ = json.Unmarshal(v, &m.Description)
		case MetaComplexity:
			_ = json.Unmarshal(v, &m.Complexity)
		case MetaTriggerType:
			_ = json.Unmarshal(v, &m.TriggerType)
		case MetaVerdict:
			_ = json.Unmarshal(v, &m.Verdict)
		case MetaAnalyzedAt:
			_ = json.Unmarshal(v, &m.AnalyzedAt)
		default:
			if m.Extra == nil {
				m.Extra = make(map[string]json.RawMessage)
			}
			m.Extra[k] = v
		}
	}
	return nil
}

// MarshalJSON merges Extra with the non-empty known keys.
func (m Meta) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(m.Extra)+7)
	for k, v := range m.Extra {
		out[k] = v
	}

	set := func(key, value string) {
		if value != "" {
			out[key] = value
		}
	}
	set(MetaCategory, m.Category)
	set(MetaDescription, m.Description)
	set(MetaComplexity, m.Complexity)
	set(MetaTriggerType, m.TriggerType)
	set(MetaVerdict, m.Verdict)
	set(MetaAnalyzedAt, m.AnalyzedAt)
	if m.Integrations != nil {
		out[MetaIntegrations] = m.Integrations
	}

	return marshalUnescaped(out)
}
