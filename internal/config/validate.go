package config

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"go-amplicon-pipeline/internal/model"
	"go-amplicon-pipeline/pkg/utils"
)

// validator walks the document and collects every problem instead of stopping at the first
type validator struct {
	doc      *Document
	problems []string
}

func (v *validator) addf(format string, args ...interface{}) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) err() error {
	if len(v.problems) == 0 {
		return nil
	}
	return model.NewConfigError(v.problems...)
}

func (v *validator) samples() []string {
	var names []string
	raw, _ := v.doc.Raw(FieldSample)
	switch v.doc.Inspect(FieldSample) {
	case Absent, Null:
		v.addf("Missing required field: %s", FieldSample)
		return nil
	case Scalar:
		s, ok := raw.(string)
		if !ok {
			v.addf("%s must be a string or a list of strings, got %T", FieldSample, raw)
			return nil
		}
		names = []string{s}
	case Array:
		for i, item := range raw.([]interface{}) {
			s, ok := item.(string)
			if !ok {
				v.addf("%s[%d] must be a string, got %T", FieldSample, i, item)
				continue
			}
			names = append(names, s)
		}
	case NestedArray:
		v.addf("%s must not be a nested list", FieldSample)
		return nil
	}

	if len(names) == 0 {
		v.addf("Missing required field: %s", FieldSample)
		return nil
	}
	seen := make(map[string]bool, len(names))
	for i, name := range names {
		name = strings.TrimSpace(name)
		names[i] = name
		switch {
		case name == "":
			v.addf("%s[%d] is empty", FieldSample, i)
		case strings.ContainsRune(name, '/') || name == "." || name == "..":
			v.addf("%s[%d] %q cannot be used in an output file name", FieldSample, i, name)
		case seen[name]:
			v.addf("duplicate sample name %q", name)
		}
		seen[name] = true
	}
	return names
}

func (v *validator) requiredString(field string) string {
	if s := v.doc.Inspect(field); s == Absent || s == Null {
		v.addf("Missing required field: %s", field)
		return ""
	}
	s := v.optionalString(field, "")
	if raw, _ := v.doc.Raw(field); raw != nil {
		if _, isString := raw.(string); isString && strings.TrimSpace(s) == "" {
			v.addf("%s is empty", field)
		}
	}
	return strings.TrimSpace(s)
}

func (v *validator) optionalString(field, def string) string {
	raw, _ := v.doc.Raw(field)
	switch v.doc.Inspect(field) {
	case Absent, Null:
		return def
	case Scalar:
		if s, ok := raw.(string); ok {
			return s
		}
	}
	v.addf("%s must be a string, got %T", field, raw)
	return def
}

func (v *validator) positiveInt(field string, def int) int {
	raw, _ := v.doc.Raw(field)
	switch v.doc.Inspect(field) {
	case Absent, Null:
		return def
	case Scalar:
		if f, ok := utils.Numeric(raw); ok && utils.IsWhole(f) && f > 0 {
			if err := tooLarge(f); err != nil {
				v.addf("%s %v", field, err)
				return def
			}
			return int(f)
		}
	}
	v.addf("%s must be a single positive integer, got %v", field, raw)
	return def
}

func (v *validator) boolean(field string, def bool) bool {
	raw, _ := v.doc.Raw(field)
	switch v.doc.Inspect(field) {
	case Absent, Null:
		return def
	case Scalar:
		if b, ok := raw.(bool); ok {
			return b
		}
	}
	v.addf("%s must be true or false, got %v", field, raw)
	return def
}

// barcodes resolves the flat or nested barcode list. An empty sub-list is accepted here
// and reported when that sample's barcodes are resolved.
func (v *validator) barcodes(n int) BarcodeField {
	raw, _ := v.doc.Raw(FieldBarcodes)
	switch v.doc.Inspect(FieldBarcodes) {
	case Absent, Null:
		v.addf("Missing required field: %s", FieldBarcodes)
	case Scalar:
		v.addf("%s must be a list of identifiers or a list of lists, got %v", FieldBarcodes, raw)
	case Array:
		items := raw.([]interface{})
		if len(items) == 0 {
			v.addf("'%s' list is empty", FieldBarcodes)
			return BarcodeField{}
		}
		return SharedBarcodes(v.identifiers(FieldBarcodes, items))
	case NestedArray:
		outer := raw.([]interface{})
		if len(outer) != n {
			v.addf("%s list length (%d) must match %s length (%d)", FieldBarcodes, len(outer), FieldSample, n)
			return BarcodeField{}
		}
		lists := make([][]string, len(outer))
		for i, item := range outer {
			sub, ok := item.([]interface{})
			if !ok {
				v.addf("%s[%d] must be a list when barcodes are given per sample, got %v", FieldBarcodes, i, item)
				continue
			}
			lists[i] = v.identifiers(fmt.Sprintf("%s[%d]", FieldBarcodes, i), sub)
		}
		return NestedBarcodes(lists)
	}
	return BarcodeField{}
}

func (v *validator) identifiers(field string, items []interface{}) []string {
	ids := make([]string, 0, len(items))
	for i, item := range items {
		id, ok := utils.Identifier(item)
		if !ok || strings.ContainsRune(id, '/') {
			v.addf("%s[%d] is not a valid barcode identifier: %v", field, i, item)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// perSampleField resolves a scalar (broadcast) or a list with exactly one entry per sample
func perSampleField[T any](v *validator, field string, n int, zero T, conv func(interface{}) (T, error)) Field[T] {
	raw, _ := v.doc.Raw(field)
	switch v.doc.Inspect(field) {
	case Scalar:
		val, err := conv(raw)
		if err != nil {
			v.addf("%s: %v", field, err)
			return Broadcast(field, zero)
		}
		return Broadcast(field, val)
	case Array:
		items := raw.([]interface{})
		if len(items) != n {
			v.addf("%s length (%d) must match %s length (%d)", field, len(items), FieldSample, n)
			return Broadcast(field, zero)
		}
		vals := make([]T, n)
		for i, item := range items {
			val, err := conv(item)
			if err != nil {
				v.addf("%s[%d]: %v", field, i, err)
				continue
			}
			vals[i] = val
		}
		return PerSample(field, vals)
	case NestedArray:
		v.addf("%s must be a single value or a flat list, not a nested list", field)
	}
	return Broadcast(field, zero)
}

func requiredPerSample[T any](v *validator, field string, n int, conv func(interface{}) (T, error)) Field[T] {
	var zero T
	if s := v.doc.Inspect(field); s == Absent || s == Null {
		v.addf("Missing required field: %s", field)
		return Broadcast(field, zero)
	}
	return perSampleField(v, field, n, zero, conv)
}

var errNull = errors.New("value is null")

// maxNumeric bounds every numeric setting so that lengths and thresholds fit an int32
const maxNumeric = math.MaxInt32

func tooLarge(f float64) error {
	if f > maxNumeric {
		return fmt.Errorf("must not exceed %d, got %v", maxNumeric, f)
	}
	return nil
}

func pathValue(raw interface{}) (string, error) {
	switch val := raw.(type) {
	case nil:
		return "", nil
	case string:
		return strings.TrimSpace(val), nil
	}
	return "", fmt.Errorf("must be a path string, got %v", raw)
}

func qualityValue(raw interface{}) (float64, error) {
	if raw == nil {
		return 0, errNull
	}
	f, ok := utils.Numeric(raw)
	if !ok || f < 0 {
		return 0, fmt.Errorf("must be a non-negative number, got %v", raw)
	}
	if err := tooLarge(f); err != nil {
		return 0, err
	}
	return f, nil
}

func positiveNumber(raw interface{}) (*float64, error) {
	if raw == nil {
		return nil, nil
	}
	f, ok := utils.Numeric(raw)
	if !ok || f <= 0 {
		return nil, fmt.Errorf("must be a positive number or null, got %v", raw)
	}
	if err := tooLarge(f); err != nil {
		return nil, err
	}
	return &f, nil
}

func positiveWhole(raw interface{}) (*float64, error) {
	p, err := positiveNumber(raw)
	if err != nil || p == nil {
		return p, err
	}
	if !utils.IsWhole(*p) {
		return nil, fmt.Errorf("must be a whole number, got %v", raw)
	}
	return p, nil
}
