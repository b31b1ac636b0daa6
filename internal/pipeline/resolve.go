package pipeline

import (
	"fmt"

	"go-amplicon-pipeline/internal/config"
	"go-amplicon-pipeline/internal/model"
	"go-amplicon-pipeline/pkg/utils"
)

// ------------------- Parameter Resolution -------------------

// ParameterResolver turns a sample's raw values into its final thresholds
type ParameterResolver struct {
	cfg *config.Model
}

// NewParameterResolver creates a resolver over a loaded configuration
func NewParameterResolver(cfg *config.Model) *ParameterResolver {
	return &ParameterResolver{cfg: cfg}
}

// Resolve computes the ResolvedSampleParams for a sample index. It has no side effects;
// the returned disclosures describe every derived value.
func (r *ParameterResolver) Resolve(sampleIndex int) (model.ResolvedSampleParams, []string, error) {
	if sampleIndex < 0 || sampleIndex >= r.cfg.SampleCount() {
		return model.ResolvedSampleParams{}, nil, fmt.Errorf("sample index %d out of range (%d samples)", sampleIndex, r.cfg.SampleCount())
	}
	return ResolveSample(r.cfg.Sample(sampleIndex))
}

// ResolveSample applies, in order: default percentages, derivation from the fragment
// size for every threshold still unset, then the all-set check.
func ResolveSample(spec model.SampleSpec) (model.ResolvedSampleParams, []string, error) {
	res := model.ResolvedSampleParams{
		Sample:          spec.Name,
		Index:           spec.Index,
		InputDir:        spec.InputDir,
		Quality:         spec.Quality,
		FragmentSize:    spec.FragmentSize,
		FilterLengthPct: orDefault(spec.FilterLengthPct, config.DefaultFilterLengthPct),
		ClusterMinPct:   orDefault(spec.ClusterMinPct, config.DefaultClusterMinPct),
		ClusterMaxPct:   orDefault(spec.ClusterMaxPct, config.DefaultClusterMaxPct),
	}

	targets := []struct {
		field    string
		explicit *float64
		pct      float64
		out      *model.Param
	}{
		{config.FieldFilterLen, spec.FilterLength, res.FilterLengthPct, &res.FilterLength},
		{config.FieldClusterMin, spec.ClusterMin, res.ClusterMinPct, &res.ClusterMin},
		{config.FieldClusterMax, spec.ClusterMax, res.ClusterMaxPct, &res.ClusterMax},
	}

	var disclosures []string
	for _, t := range targets {
		switch {
		case t.explicit != nil:
			*t.out = model.Param{Value: int(*t.explicit), Source: model.Explicit}
		case spec.FragmentSize != nil:
			v := Derive(*spec.FragmentSize, t.pct)
			if v < 1 {
				return res, disclosures, model.NewResolutionError(spec.Name, t.field,
					"derived value %d from %s=%s at %s%% is not a positive length",
					v, config.FieldFragment, utils.FormatNumber(*spec.FragmentSize), utils.FormatNumber(t.pct))
			}
			*t.out = model.Param{Value: v, Source: model.Derived}
			disclosures = append(disclosures, fmt.Sprintf("%s derived from %s=%s at %s%%: %d",
				t.field, config.FieldFragment, utils.FormatNumber(*spec.FragmentSize), utils.FormatNumber(t.pct), v))
		default:
			return res, disclosures, model.NewResolutionError(spec.Name, t.field,
				"is null and no %s provided for derivation", config.FieldFragment)
		}
	}
	return res, disclosures, nil
}

// Derive returns round-half-up(fragment * pct / 100)
func Derive(fragment, pct float64) int {
	return utils.RoundHalfUp(fragment * pct / 100)
}

func orDefault(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}
