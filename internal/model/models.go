package model

// GlobalConfig holds the run-wide settings read once from the configuration document
type GlobalConfig struct {
	OutDir   string `json:"outdir" yaml:"outdir"`
	Threads  int    `json:"threads" yaml:"threads"`
	AllReads bool   `json:"allReads" yaml:"all_reads"`

	DryRun     bool   `json:"dryRun" yaml:"dry_run"`
	CountReads bool   `json:"countReads" yaml:"count_reads"`
	TrackingDB string `json:"trackingDB" yaml:"tracking_db,omitempty"`

	Tools ToolConfig `json:"tools" yaml:"tools"`
}

// ToolConfig names the external executables and the environment the clustering tool runs in
type ToolConfig struct {
	NanoPlot       string `json:"nanoplot" yaml:"nanoplot"`
	Chopper        string `json:"chopper" yaml:"chopper"`
	AmpliconSorter string `json:"ampliconSorter" yaml:"amplicon_sorter"`
	SorterEnv      string `json:"sorterEnv" yaml:"sorter_env,omitempty"` // conda env name, empty = run directly
	Conda          string `json:"conda" yaml:"conda,omitempty"`
}

// SampleSpec is one declared sample with its raw, possibly null, per-sample values
type SampleSpec struct {
	Index    int    `json:"index"`
	Name     string `json:"name"`
	InputDir string `json:"inputDir"`

	Quality float64 `json:"quality"`

	FragmentSize *float64 `json:"fragmentSize,omitempty"`
	FilterLength *float64 `json:"filterLength,omitempty"`
	ClusterMin   *float64 `json:"clusterMin,omitempty"`
	ClusterMax   *float64 `json:"clusterMax,omitempty"`

	FilterLengthPct *float64 `json:"filterLengthPct,omitempty"`
	ClusterMinPct   *float64 `json:"clusterMinPct,omitempty"`
	ClusterMaxPct   *float64 `json:"clusterMaxPct,omitempty"`
}

// Provenance tells whether a resolved value was given or derived from the fragment size
type Provenance string

const (
	Explicit Provenance = "explicit"
	Derived  Provenance = "derived"
)

// Param is a resolved positive integer threshold with its provenance
type Param struct {
	Value  int        `json:"value" yaml:"value"`
	Source Provenance `json:"source" yaml:"source"`
}

// ResolvedSampleParams is the fully resolved parameter set for one sample
type ResolvedSampleParams struct {
	Sample       string   `json:"sample" yaml:"sample"`
	Index        int      `json:"index" yaml:"index"`
	InputDir     string   `json:"inputDir" yaml:"input_dir"`
	Quality      float64  `json:"quality" yaml:"quality"`
	FragmentSize *float64 `json:"fragmentSize,omitempty" yaml:"fragment_size,omitempty"`

	FilterLength Param `json:"filterLength" yaml:"filter_length"`
	ClusterMin   Param `json:"clusterMin" yaml:"cluster_min"`
	ClusterMax   Param `json:"clusterMax" yaml:"cluster_max"`

	FilterLengthPct float64 `json:"filterLengthPct" yaml:"filter_length_pct"`
	ClusterMinPct   float64 `json:"clusterMinPct" yaml:"cluster_min_pct"`
	ClusterMaxPct   float64 `json:"clusterMaxPct" yaml:"cluster_max_pct"`
}
