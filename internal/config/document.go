// Package config loads the run configuration document and resolves the shape of every
// field (broadcast scalar, per-sample list, per-sample nested list) exactly once.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"go-amplicon-pipeline/internal/model"
)

// Shape is how a field was written in the document
type Shape int

const (
	Absent Shape = iota
	Null
	Scalar
	Array
	NestedArray
)

func (s Shape) String() string {
	switch s {
	case Absent:
		return "absent"
	case Null:
		return "null"
	case Scalar:
		return "scalar"
	case Array:
		return "array"
	case NestedArray:
		return "nested array"
	}
	return fmt.Sprintf("Shape(%d)", int(s))
}

// Document is the raw decoded configuration object
type Document struct {
	Path   string
	fields map[string]interface{}
}

// ReadDocument reads and decodes a JSON configuration file
func ReadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, model.NewConfigError(fmt.Sprintf("cannot read config %s: %v", path, err))
	}
	doc, err := ParseDocument(data)
	if err != nil {
		return nil, err
	}
	doc.Path = path
	return doc, nil
}

// ParseDocument decodes a JSON configuration object
func ParseDocument(data []byte) (*Document, error) {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, model.NewConfigError(fmt.Sprintf("malformed config: %v", err))
	}
	fields, ok := raw.(map[string]interface{})
	if !ok {
		return nil, model.NewConfigError(fmt.Sprintf("config must be a JSON object, got %T", raw))
	}
	return &Document{fields: fields}, nil
}

// Inspect reports the shape of a field. A list counts as nested as soon as one of its
// elements is itself a list.
func (d *Document) Inspect(field string) Shape {
	v, ok := d.fields[field]
	if !ok {
		return Absent
	}
	switch val := v.(type) {
	case nil:
		return Null
	case []interface{}:
		for _, item := range val {
			if _, isList := item.([]interface{}); isList {
				return NestedArray
			}
		}
		return Array
	default:
		return Scalar
	}
}

// Raw returns the decoded value of a field
func (d *Document) Raw(field string) (interface{}, bool) {
	v, ok := d.fields[field]
	return v, ok
}

// Unknown lists the fields the document carries that no component reads
func (d *Document) Unknown() []string {
	var out []string
	for k := range d.fields {
		if _, ok := knownFields[k]; !ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
