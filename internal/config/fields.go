package config

import "fmt"

// Field is a per-sample value given either once for every sample or as one entry per sample
type Field[T any] struct {
	Name      string
	values    []T
	perSample bool
}

// Broadcast returns a field whose single value applies to every sample
func Broadcast[T any](name string, v T) Field[T] {
	return Field[T]{Name: name, values: []T{v}}
}

// PerSample returns a field holding one value per sample, in sample order
func PerSample[T any](name string, vs []T) Field[T] {
	return Field[T]{Name: name, values: vs, perSample: true}
}

// IsPerSample reports whether the field was written as a list
func (f Field[T]) IsPerSample() bool { return f.perSample }

// At returns the value for sample i
func (f Field[T]) At(i int) T {
	if !f.perSample {
		return f.values[0]
	}
	return f.values[i]
}

// BarcodeField is the barcode configuration: one shared flat list, or one list per sample
type BarcodeField struct {
	nested    bool
	shared    []string
	perSample [][]string
}

// SharedBarcodes builds a flat barcode list used for every sample
func SharedBarcodes(ids []string) BarcodeField {
	return BarcodeField{shared: ids}
}

// NestedBarcodes builds a per-sample barcode configuration
func NestedBarcodes(lists [][]string) BarcodeField {
	return BarcodeField{nested: true, perSample: lists}
}

// IsNested reports whether barcodes were given per sample
func (b BarcodeField) IsNested() bool { return b.nested }

// Lookup returns the identifiers configured for sample i. It does not check for emptiness.
func (b BarcodeField) Lookup(i int) ([]string, error) {
	if !b.nested {
		return b.shared, nil
	}
	if i < 0 || i >= len(b.perSample) {
		return nil, fmt.Errorf("no barcode list for sample index %d (have %d)", i, len(b.perSample))
	}
	return b.perSample[i], nil
}
