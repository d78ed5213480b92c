package workflow

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// Top-level field names of a workflow document.
const (
	FieldNodes       = "nodes"
	FieldConnections = "connections"
	FieldMeta        = "meta"
	FieldName        = "name"
	FieldID          = "id"
	FieldActive      = "active"
	FieldTags        = "tags"
)

// Node field names.
const (
	NodeFieldType        = "type"
	NodeFieldName        = "name"
	NodeFieldPosition    = "position"
	NodeFieldParameters  = "parameters"
	NodeFieldCredentials = "credentials"
	NodeFieldDisabled    = "disabled"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseError reports a document that cannot be read as a workflow record.
type ParseError struct {
	Ref string
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse workflow %s: %v", e.Ref, e.Err)
}

// Unwrap returns the underlying decode error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsParseError reports whether err is or wraps a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// Record is a parsed workflow definition.
type Record struct {
	// Ref identifies the record within its store (a slash separated relative path).
	Ref string

	// Name is the workflow display name, if declared.
	Name string

	// ID is the platform workflow identifier, if declared.
	ID string

	// Active mirrors the platform "active" flag.
	Active bool

	// Tags are the tag names attached to the workflow.
	Tags []string

	// Meta is the metadata block, including any previously assigned category.
	Meta Meta

	fields map[string]json.RawMessage
	nodes  []Node
	raw    []byte
}

// Parse decodes a workflow document. Any document that is not a JSON object
// yields a *ParseError.
func Parse(ref string, data []byte) (*Record, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, &ParseError{Ref: ref, Err: err}
	}
	if fields == nil {
		return nil, &ParseError{Ref: ref, Err: errors.New("document is not an object")}
	}

	rec := &Record{
		Ref:    ref,
		fields: fields,
		raw:    data,
	}

	if raw, ok := fields[FieldName]; ok {
		_ = json.Unmarshal(raw, &rec.Name)
	}
	if raw, ok := fields[FieldID]; ok {
		rec.ID = scalarString(raw)
	}
	if raw, ok := fields[FieldActive]; ok {
		_ = json.Unmarshal(raw, &rec.Active)
	}
	if raw, ok := fields[FieldTags]; ok {
		rec.Tags = parseTags(raw)
	}
	if raw, ok := fields[FieldMeta]; ok && KindOf(raw) == KindObject {
		if err := json.Unmarshal(raw, &rec.Meta); err != nil {
			rec.Meta = Meta{}
		}
	}

	if raw, ok := fields[FieldNodes]; ok && KindOf(raw) == KindArray {
		var elems []json.RawMessage
		if err := json.Unmarshal(raw, &elems); err != nil {
			return nil, &ParseError{Ref: ref, Err: fmt.Errorf("nodes: %w", err)}
		}
		rec.nodes = make([]Node, 0, len(elems))
		for i, elem := range elems {
			rec.nodes = append(rec.nodes, parseNode(i, elem))
		}
	}

	return rec, nil
}

// HasField reports whether the top-level key is present, even if null.
func (r *Record) HasField(name string) bool {
	_, ok := r.fields[name]
	return ok
}

// Field returns the raw value of a top-level key.
func (r *Record) Field(name string) (json.RawMessage, bool) {
	raw, ok := r.fields[name]
	return raw, ok
}

// FieldKind returns the JSON kind of a top-level key, KindMissing when absent.
func (r *Record) FieldKind(name string) Kind {
	raw, ok := r.fields[name]
	if !ok {
		return KindMissing
	}
	return KindOf(raw)
}

// Nodes returns the parsed node sequence. It is empty when "nodes" is absent
// or is not a sequence. Callers must not modify the returned slice.
func (r *Record) Nodes() []Node {
	return r.nodes
}

// NodeTypes returns the type tag of every well-formed node, in order.
func (r *Record) NodeTypes() []string {
	types := make([]string, 0, len(r.nodes))
	for _, n := range r.nodes {
		if n.Malformed || n.Type == "" {
			continue
		}
		types = append(types, n.Type)
	}
	return types
}

// ConnectionCount returns the number of source entries in the connection
// mapping, or zero when connections are absent or not a mapping.
func (r *Record) ConnectionCount() int {
	raw, ok := r.fields[FieldConnections]
	if !ok || KindOf(raw) != KindObject {
		return 0
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return 0
	}
	return len(m)
}

// HasCredentials reports whether any node references credentials.
func (r *Record) HasCredentials() bool {
	for _, n := range r.nodes {
		if n.Has(NodeFieldCredentials) {
			return true
		}
	}
	return false
}

// Document decodes the whole record into generic values, for consumers such
// as policy evaluation that need the untyped document.
func (r *Record) Document() (map[string]interface{}, error) {
	var doc map[string]interface{}
	if err := json.Unmarshal(r.raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return doc, nil
}

// Encode renders the record with its meta block replaced by meta. All other
// top-level fields are carried over unchanged.
func (r *Record) Encode(meta Meta) ([]byte, error) {
	out := make(map[string]json.RawMessage, len(r.fields)+1)
	for k, v := range r.fields {
		out[k] = v
	}

	metaRaw, err := marshalUnescaped(meta)
	if err != nil {
		return nil, fmt.Errorf("failed to encode meta: %w", err)
	}
	out[FieldMeta] = metaRaw

	compact, err := marshalUnescaped(out)
	if err != nil {
		return nil, fmt.Errorf("failed to encode workflow: %w", err)
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, compact, "", "  "); err != nil {
		return nil, fmt.Errorf("failed to indent workflow: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// marshalUnescaped encodes v compactly without HTML-escaping "<", ">" and
// "&", so text written back keeps its original characters.
func marshalUnescaped(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Node is one step of a workflow graph.
type Node struct {
	// Index is the position of the node in the record's node sequence.
	Index int

	// Type is the processing capability tag, e.g. "n8n-nodes-base.slack".
	Type string

	// Name is the display label.
	Name string

	Position    json.RawMessage
	Parameters  json.RawMessage
	Credentials json.RawMessage

	// Disabled mirrors the platform "disabled" flag.
	Disabled bool

	// Malformed is set when the sequence element is not an object.
	Malformed bool

	fields map[string]json.RawMessage
}

func parseNode(index int, raw json.RawMessage) Node {
	n := Node{Index: index}
	if KindOf(raw) != KindObject {
		n.Malformed = true
		return n
	}
	if err := json.Unmarshal(raw, &n.fields); err != nil {
		n.Malformed = true
		return n
	}

	if v, ok := n.fields[NodeFieldType]; ok && KindOf(v) == KindString {
		_ = json.Unmarshal(v, &n.Type)
	}
	if v, ok := n.fields[NodeFieldName]; ok && KindOf(v) == KindString {
		_ = json.Unmarshal(v, &n.Name)
	}
	if v, ok := n.fields[NodeFieldDisabled]; ok && KindOf(v) == KindBool {
		_ = json.Unmarshal(v, &n.Disabled)
	}
	n.Position = n.fields[NodeFieldPosition]
	n.Parameters = n.fields[NodeFieldParameters]
	n.Credentials = n.fields[NodeFieldCredentials]
	return n
}

// Has reports whether the field is present with a non-null value. String
// fields must also be non-blank.
func (n Node) Has(field string) bool {
	raw, ok := n.fields[field]
	if !ok {
		return false
	}
	switch KindOf(raw) {
	case KindNull, KindMissing:
		return false
	case KindString:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return false
		}
		return strings.TrimSpace(s) != ""
	default:
		return true
	}
}

// FieldKind returns the JSON kind of a node field.
func (n Node) FieldKind(field string) Kind {
	raw, ok := n.fields[field]
	if !ok {
		return KindMissing
	}
	return KindOf(raw)
}

// Label returns a human readable reference to the node.
func (n Node) Label() string {
	if n.Name != "" {
		return fmt.Sprintf("node %d (%s)", n.Index, n.Name)
	}
	return fmt.Sprintf("node %d", n.Index)
}

func parseTags(raw json.RawMessage) []string {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil
	}
	tags := make([]string, 0, len(elems))
	for _, elem := range elems {
		switch KindOf(elem) {
		case KindString:
			var s string
			if json.Unmarshal(elem, &s) == nil && s != "" {
				tags = append(tags, s)
			}
		case KindObject:
			var t struct {
				Name string `json:"name"`
			}
			if json.Unmarshal(elem, &t) == nil && t.Name != "" {
				tags = append(tags, t.Name)
			}
		}
	}
	return tags
}

func scalarString(raw json.RawMessage) string {
	switch KindOf(raw) {
	case KindString:
		var s string
		_ = json.Unmarshal(raw, &s)
		return s
	case KindNumber:
		return string(bytes.TrimSpace(raw))
	default:
		return ""
	}
}
