package pipeline

import (
	"fmt"

	"go-amplicon-pipeline/internal/config"
	"go-amplicon-pipeline/internal/model"
)

// BarcodeResolver picks the barcode identifiers to process for each sample
type BarcodeResolver struct {
	cfg *config.Model
}

// NewBarcodeResolver creates a resolver over a loaded configuration
func NewBarcodeResolver(cfg *config.Model) *BarcodeResolver {
	return &BarcodeResolver{cfg: cfg}
}

// BarcodesFor returns the ordered barcode set of a sample: the shared list, or the
// sample's own sub-list when barcodes are nested. An empty set is a ConfigError.
func (r *BarcodeResolver) BarcodesFor(sampleIndex int) ([]string, error) {
	if sampleIndex < 0 || sampleIndex >= r.cfg.SampleCount() {
		return nil, model.NewConfigError(fmt.Sprintf("sample index %d out of range (%d samples)", sampleIndex, r.cfg.SampleCount()))
	}
	ids, err := r.cfg.Barcodes.Lookup(sampleIndex)
	if err != nil {
		return nil, model.NewConfigError(err.Error())
	}
	if len(ids) == 0 {
		e := model.NewConfigError(fmt.Sprintf("%s sub-list is empty", config.FieldBarcodes))
		e.Sample = r.cfg.Samples[sampleIndex]
		return nil, e
	}
	out := make([]string, len(ids))
	copy(out, ids)
	return out, nil
}
