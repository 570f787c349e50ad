package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// MappingType discriminates the three field-mapping variants. The string
// values are the wire format produced by the authoring UI and must be
// preserved exactly for compatibility.
type MappingType string

const (
	MappingTypeSource  MappingType = "mongodb" // value drawn from the source record
	MappingTypeFixed   MappingType = "fixed"
	MappingTypeSpecial MappingType = "special"
)

// FixedValueType declares how a fixed mapping's literal should be interpreted.
type FixedValueType string

const (
	FixedTypeString  FixedValueType = "string"
	FixedTypeNumber  FixedValueType = "number"
	FixedTypeBoolean FixedValueType = "boolean"
	FixedTypeDate    FixedValueType = "date"
)

// Mapping key prefixes. The prefix of a mapping key determines which part of
// the resolved request the value lands in; unrecognized prefixes are no-ops.
const (
	PrefixURL       = "url."
	PrefixPathParam = "url.pathParams."
	PrefixQuery     = "query."
	PrefixBody      = "body."
	PrefixHeader    = "header."
)

// FieldMapping is the tagged union behind one mapping entry. On the wire a
// source-field reference is a bare JSON string; fixed and special mappings are
// objects carrying a "type" discriminator.
type FieldMapping struct {
	Type MappingType `json:"type"`

	// SourceField is the dot-separated path into the record (type "mongodb").
	SourceField string `json:"target_field,omitempty"`

	// Fixed-value fields (type "fixed"). When Random is set, Pattern is a
	// regular expression driving random value generation.
	Value     interface{}    `json:"value,omitempty"`
	ValueType FixedValueType `json:"value_type,omitempty"`
	Random    bool           `json:"random,omitempty"`
	Pattern   string         `json:"pattern,omitempty"`

	// Generator names the special-value generator (type "special").
	Generator string `json:"generator,omitempty"`
}

// fieldMappingWire mirrors FieldMapping for object-form decoding, accepting
// both snake_case and the camelCase keys the original authoring UI emitted.
type fieldMappingWire struct {
	Type             MappingType    `json:"type"`
	TargetField      string         `json:"target_field"`
	TargetFieldCamel string         `json:"targetField"`
	Value            interface{}    `json:"value"`
	ValueType        FixedValueType `json:"value_type"`
	ValueTypeCamel   FixedValueType `json:"valueType"`
	Random           bool           `json:"random"`
	Pattern          string         `json:"pattern"`
	Generator        string         `json:"generator"`
}

// UnmarshalJSON accepts either a bare string (a source-field reference) or an
// object with a "type" discriminator.
func (m *FieldMapping) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, `"`) {
		var path string
		if err := json.Unmarshal(data, &path); err != nil {
			return fmt.Errorf("decoding source-field mapping: %w", err)
		}
		*m = FieldMapping{Type: MappingTypeSource, SourceField: path}
		return nil
	}

	var wire fieldMappingWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("decoding field mapping object: %w", err)
	}

	switch wire.Type {
	case MappingTypeSource:
		sourceField := wire.TargetField
		if sourceField == "" {
			sourceField = wire.TargetFieldCamel
		}
		*m = FieldMapping{Type: MappingTypeSource, SourceField: sourceField}
	case MappingTypeFixed:
		valueType := wire.ValueType
		if valueType == "" {
			valueType = wire.ValueTypeCamel
		}
		if valueType == "" {
			valueType = FixedTypeString
		}
		*m = FieldMapping{
			Type:      MappingTypeFixed,
			Value:     wire.Value,
			ValueType: valueType,
			Random:    wire.Random,
			Pattern:   wire.Pattern,
		}
	case MappingTypeSpecial:
		*m = FieldMapping{Type: MappingTypeSpecial, Generator: wire.Generator}
	default:
		return fmt.Errorf("unknown mapping type %q", wire.Type)
	}
	return nil
}

// MarshalJSON writes source-field references back as bare strings so a decoded
// mapping set round-trips to the original wire shape.
func (m FieldMapping) MarshalJSON() ([]byte, error) {
	if m.Type == MappingTypeSource {
		return json.Marshal(m.SourceField)
	}
	type alias FieldMapping
	return json.Marshal(alias(m))
}

// MappingSet holds all field mappings for a task, keyed by dotted field path
// (e.g. "body.user.id", "header.encodedHeader.email", "url.pathParams.userId").
type MappingSet map[string]FieldMapping

// SortedKeys returns the mapping keys in a stable order so substitution passes
// are deterministic across resolutions.
func (s MappingSet) SortedKeys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// PathParamKey finds the mapping key for a `{$P<id>}` placeholder: a key under
// url.pathParams. whose final segment matches the id (suffix match).
func (s MappingSet) PathParamKey(id string) (string, bool) {
	for _, key := range s.SortedKeys() {
		if !strings.HasPrefix(key, PrefixPathParam) {
			continue
		}
		if strings.HasSuffix(key, "."+id) || key == PrefixPathParam+id {
			return key, true
		}
	}
	return "", false
}
