package config

import (
	"fmt"
	"strings"

	"go-amplicon-pipeline/internal/model"
)

// Field names recognised in the configuration document
const (
	FieldSample     = "SAMPLE"
	FieldInputDir   = "INPUTDIR"
	FieldBarcodes   = "barcodes"
	FieldOutDir     = "OUTDIR"
	FieldQuality    = "CHOPPER_QUAL"
	FieldThreads    = "THREADS"
	FieldAllReads   = "AMPLICON_SORTER_ALLREADS"
	FieldFragment   = "FRAGMENT_SIZE"
	FieldFilterLen  = "CHOPPER_LEN"
	FieldFilterPct  = "CHOPPER_LEN_PCT"
	FieldClusterMin = "AMPLICON_SORTER_MIN"
	FieldMinPct     = "AMPLICON_SORTER_MIN_PCT"
	FieldClusterMax = "AMPLICON_SORTER_MAX"
	FieldMaxPct     = "AMPLICON_SORTER_MAX_PCT"

	FieldDryRun     = "DRY_RUN"
	FieldCountReads = "COUNT_READS"
	FieldTrackingDB = "TRACKING_DB"
	FieldNanoPlot   = "NANOPLOT_BIN"
	FieldChopper    = "CHOPPER_BIN"
	FieldSorter     = "AMPLICON_SORTER_BIN"
	FieldSorterEnv  = "AMPLICON_SORTER_ENV"
	FieldConda      = "CONDA_BIN"
)

var knownFields = map[string]struct{}{
	FieldSample: {}, FieldInputDir: {}, FieldBarcodes: {}, FieldOutDir: {}, FieldQuality: {},
	FieldThreads: {}, FieldAllReads: {}, FieldFragment: {}, FieldFilterLen: {}, FieldFilterPct: {},
	FieldClusterMin: {}, FieldMinPct: {}, FieldClusterMax: {}, FieldMaxPct: {},
	FieldDryRun: {}, FieldCountReads: {}, FieldTrackingDB: {}, FieldNanoPlot: {}, FieldChopper: {},
	FieldSorter: {}, FieldSorterEnv: {}, FieldConda: {},
}

// Defaults
const (
	DefaultThreads         = 4
	DefaultAllReads        = true
	DefaultCountReads      = true
	DefaultFilterLengthPct = 50.0
	DefaultClusterMinPct   = 75.0
	DefaultClusterMaxPct   = 125.0
	DefaultNanoPlot        = "NanoPlot"
	DefaultChopper         = "chopper"
	DefaultSorter          = "amplicon_sorter.py"
	DefaultConda           = "conda"
)

// Model is the typed, shape-resolved configuration
type Model struct {
	Doc     *Document
	Global  model.GlobalConfig
	Samples []string

	InputDir Field[string]
	Quality  Field[float64]

	FragmentSize    Field[*float64]
	FilterLength    Field[*float64]
	ClusterMin      Field[*float64]
	ClusterMax      Field[*float64]
	FilterLengthPct Field[*float64]
	ClusterMinPct   Field[*float64]
	ClusterMaxPct   Field[*float64]

	Barcodes BarcodeField
}

// SampleCount is the number of declared samples
func (m *Model) SampleCount() int { return len(m.Samples) }

// Sample assembles the raw per-sample values for index i
func (m *Model) Sample(i int) model.SampleSpec {
	return model.SampleSpec{
		Index:           i,
		Name:            m.Samples[i],
		InputDir:        m.InputDir.At(i),
		Quality:         m.Quality.At(i),
		FragmentSize:    m.FragmentSize.At(i),
		FilterLength:    m.FilterLength.At(i),
		ClusterMin:      m.ClusterMin.At(i),
		ClusterMax:      m.ClusterMax.At(i),
		FilterLengthPct: m.FilterLengthPct.At(i),
		ClusterMinPct:   m.ClusterMinPct.At(i),
		ClusterMaxPct:   m.ClusterMaxPct.At(i),
	}
}

// Load reads the configuration file at path and builds the model
func Load(path string) (*Model, error) {
	doc, err := ReadDocument(path)
	if err != nil {
		return nil, err
	}
	return FromDocument(doc)
}

// Parse builds the model from an in-memory JSON document
func Parse(data []byte) (*Model, error) {
	doc, err := ParseDocument(data)
	if err != nil {
		return nil, err
	}
	return FromDocument(doc)
}

// FromDocument validates the document and resolves every field's shape. All problems
// are collected and returned together as one ConfigError.
func FromDocument(doc *Document) (*Model, error) {
	v := &validator{doc: doc}
	m := &Model{Doc: doc}

	m.Samples = v.samples()
	n := len(m.Samples)

	m.Global = model.GlobalConfig{
		OutDir:     v.requiredString(FieldOutDir),
		Threads:    v.positiveInt(FieldThreads, DefaultThreads),
		AllReads:   v.boolean(FieldAllReads, DefaultAllReads),
		DryRun:     v.boolean(FieldDryRun, false),
		CountReads: v.boolean(FieldCountReads, DefaultCountReads),
		TrackingDB: v.optionalString(FieldTrackingDB, ""),
		Tools: model.ToolConfig{
			NanoPlot:       v.optionalString(FieldNanoPlot, DefaultNanoPlot),
			Chopper:        v.optionalString(FieldChopper, DefaultChopper),
			AmpliconSorter: v.optionalString(FieldSorter, DefaultSorter),
			SorterEnv:      v.optionalString(FieldSorterEnv, ""),
			Conda:          v.optionalString(FieldConda, DefaultConda),
		},
	}

	// per-sample fields need a sample count to check list lengths against
	if n > 0 {
		m.InputDir = perSampleField(v, FieldInputDir, n, "", pathValue)
		m.Quality = requiredPerSample(v, FieldQuality, n, qualityValue)
		m.FragmentSize = perSampleField[*float64](v, FieldFragment, n, nil, positiveNumber)
		m.FilterLength = perSampleField[*float64](v, FieldFilterLen, n, nil, positiveWhole)
		m.ClusterMin = perSampleField[*float64](v, FieldClusterMin, n, nil, positiveWhole)
		m.ClusterMax = perSampleField[*float64](v, FieldClusterMax, n, nil, positiveWhole)
		m.FilterLengthPct = perSampleField[*float64](v, FieldFilterPct, n, nil, positiveNumber)
		m.ClusterMinPct = perSampleField[*float64](v, FieldMinPct, n, nil, positiveNumber)
		m.ClusterMaxPct = perSampleField[*float64](v, FieldMaxPct, n, nil, positiveNumber)
		m.Barcodes = v.barcodes(n)
	} else if doc.Inspect(FieldQuality) == Absent || doc.Inspect(FieldQuality) == Null {
		v.addf("Missing required field: %s", FieldQuality)
	}

	if err := v.err(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Model) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "samples=%v outdir=%s threads=%d allreads=%t", m.Samples, m.Global.OutDir, m.Global.Threads, m.Global.AllReads)
	if m.Barcodes.IsNested() {
		b.WriteString(" barcodes=per-sample")
	} else {
		fmt.Fprintf(&b, " barcodes=%v", m.Barcodes.shared)
	}
	if fields := m.perSampleFields(); len(fields) > 0 {
		fmt.Fprintf(&b, " per-sample=%s", strings.Join(fields, ","))
	}
	return b.String()
}

// perSampleFields names the fields written as one value per sample
func (m *Model) perSampleFields() []string {
	var names []string
	if m.InputDir.IsPerSample() {
		names = append(names, m.InputDir.Name)
	}
	if m.Quality.IsPerSample() {
		names = append(names, m.Quality.Name)
	}
	for _, f := range []Field[*float64]{
		m.FragmentSize, m.FilterLength, m.ClusterMin, m.ClusterMax,
		m.FilterLengthPct, m.ClusterMinPct, m.ClusterMaxPct,
	} {
		if f.IsPerSample() {
			names = append(names, f.Name)
		}
	}
	return names
}
