package catalog

// DeprecationKind classifies why a node type is flagged.
type DeprecationKind string

const (
	// KindCommandExecution marks node types that run commands on the host.
	KindCommandExecution DeprecationKind = "command_execution"

	// KindFilesystem marks node types that touch the local file system.
	KindFilesystem DeprecationKind = "filesystem"

	// KindDeprecated marks node types that are superseded but harmless.
	KindDeprecated DeprecationKind = "deprecated"
)

// Entry maps an identifier key to a category label.
type Entry struct {
	Key      string `json:"key" yaml:"key" validate:"required"`
	Category string `json:"category" yaml:"category" validate:"required"`
}

// DeprecatedEntry flags a node type.
type DeprecatedEntry struct {
	// Type is the full node type tag, e.g. "n8n-nodes-base.executeCommand".
	Type string `json:"type" yaml:"type" validate:"required"`

	// Kind drives the compatibility verdict.
	Kind DeprecationKind `json:"kind" yaml:"kind" validate:"required,oneof=command_execution filesystem deprecated"`

	// Reason is the human readable explanation.
	Reason string `json:"reason" yaml:"reason" validate:"required"`
}

// Source is the on-disk shape of a tables file.
type Source struct {
	// Canonical is the ordered identifier to category table.
	Canonical []Entry `json:"canonical,omitempty" yaml:"canonical,omitempty" validate:"dive"`

	// Overrides are curated substring rules consulted before Canonical.
	Overrides []Entry `json:"overrides,omitempty" yaml:"overrides,omitempty" validate:"dive"`

	// StopList names internal node kinds excluded from category inference.
	StopList []string `json:"stop_list,omitempty" yaml:"stop_list,omitempty" validate:"dive,required"`

	// Deprecated flags risky or superseded node types.
	Deprecated []DeprecatedEntry `json:"deprecated,omitempty" yaml:"deprecated,omitempty" validate:"dive"`

	// TriggerKeywords are substrings of a node type that mark an entry point.
	TriggerKeywords []string `json:"trigger_keywords,omitempty" yaml:"trigger_keywords,omitempty" validate:"dive,required"`

	// TriggerTypes are exact node types that are entry points.
	TriggerTypes []string `json:"trigger_types,omitempty" yaml:"trigger_types,omitempty" validate:"dive,required"`

	// Replace discards the built-in tables instead of extending them.
	Replace bool `json:"replace,omitempty" yaml:"replace,omitempty"`
}
