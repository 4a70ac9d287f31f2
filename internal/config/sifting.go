package config

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/spotlight-pulseline/pulsift/internal/sifting"
)

// DefaultConfigPath is the reference parameter set shipped with the repo.
const DefaultConfigPath = "config/sifting.defaults.yaml"

const maxFileSize = 1 * 1024 * 1024 // 1MB

// SiftingConfig holds every sifting parameter. Fields are pointers so that a
// parameter left out of a file can be told apart from a zero value; stages
// fetch what they need through the typed projections.
type SiftingConfig struct {
	// DM grid, pc/cc
	StartDM *float64 `json:"start_DM,omitempty" yaml:"start_DM,omitempty"`
	EndDM   *float64 `json:"end_DM,omitempty" yaml:"end_DM,omitempty"`
	DMStep  *float64 `json:"dm_step,omitempty" yaml:"dm_step,omitempty"`

	// Period band, ms
	LowPeriod  *float64 `json:"low_period,omitempty" yaml:"low_period,omitempty"`
	HighPeriod *float64 `json:"high_period,omitempty" yaml:"high_period,omitempty"`

	// Relative tolerances, percent
	PeriodTolInitSort *float64 `json:"period_tol_init_sort,omitempty" yaml:"period_tol_init_sort,omitempty"`
	PeriodTolBeamSort *float64 `json:"period_tol_beam_sort,omitempty" yaml:"period_tol_beam_sort,omitempty"`
	PeriodTolHarm     *float64 `json:"period_tol_harm,omitempty" yaml:"period_tol_harm,omitempty"`

	MaxHarm *int `json:"max_harm,omitempty" yaml:"max_harm,omitempty"`

	DMFilteringCut10   *float64 `json:"DM_filtering_cut_10,omitempty" yaml:"DM_filtering_cut_10,omitempty"`
	DMFilteringCut1000 *float64 `json:"DM_filtering_cut_1000,omitempty" yaml:"DM_filtering_cut_1000,omitempty"`

	SNRCut     *float64 `json:"SNR_cut,omitempty" yaml:"SNR_cut,omitempty"`
	MinBeamCut *int     `json:"min_beam_cut,omitempty" yaml:"min_beam_cut,omitempty"`

	// Stage selection
	HarmonicOptFlag *int `json:"harmonic_opt_flag,omitempty" yaml:"harmonic_opt_flag,omitempty"`
	HarmonicSumFlag *int `json:"harmonic_sum_flag,omitempty" yaml:"harmonic_sum_flag,omitempty"`
	BeamSortFlag    *int `json:"beam_sort_flag,omitempty" yaml:"beam_sort_flag,omitempty"`
	SearchType      *int `json:"search_type,omitempty" yaml:"search_type,omitempty"`

	// FilFile is the filterbank a per-beam parameter file describes.
	FilFile *string `json:"fil_file,omitempty" yaml:"fil_file,omitempty"`

	// Extra keeps unrecognised keys of key = value files.
	Extra map[string]string `json:"-" yaml:"-"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }
func ptrString(v string) *string    { return &v }

// EmptySiftingConfig returns a SiftingConfig with all fields unset.
func EmptySiftingConfig() *SiftingConfig {
	return &SiftingConfig{}
}

// LoadSiftingConfig loads a SiftingConfig from path. The format follows the
// extension: .json, .yaml/.yml, or .txt/.par/.cfg for key = value parameter
// files. Omitted keys stay unset.
func LoadSiftingConfig(path string) (*SiftingConfig, error) {
	cleanPath := filepath.Clean(path)

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptySiftingConfig()
	switch ext := strings.ToLower(filepath.Ext(cleanPath)); ext {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	case ".txt", ".par", ".cfg":
		if cfg, err = ParseKeyValue(strings.NewReader(string(data))); err != nil {
			return nil, fmt.Errorf("failed to parse parameter file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config extension %q", ext)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching upwards from the
// working directory. It panics on failure and is meant for test setup.
func MustLoadDefaultConfig() *SiftingConfig {
	for _, prefix := range []string{"", "../", "../../", "../../../"} {
		if cfg, err := LoadSiftingConfig(prefix + DefaultConfigPath); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// ParseKeyValue reads "key = value" lines. Blank lines and # comments, whole
// line or trailing, are ignored. Unknown keys land in Extra.
func ParseKeyValue(r io.Reader) (*SiftingConfig, error) {
	cfg := EmptySiftingConfig()
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line, _, _ := strings.Cut(sc.Text(), "#")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if err := cfg.set(key, value); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *SiftingConfig) set(key, value string) error {
	floats := map[string]**float64{
		"start_DM":              &c.StartDM,
		"end_DM":                &c.EndDM,
		"dm_step":               &c.DMStep,
		"low_period":            &c.LowPeriod,
		"high_period":           &c.HighPeriod,
		"period_tol_init_sort":  &c.PeriodTolInitSort,
		"period_tol_beam_sort":  &c.PeriodTolBeamSort,
		"period_tol_harm":       &c.PeriodTolHarm,
		"DM_filtering_cut_10":   &c.DMFilteringCut10,
		"DM_filtering_cut_1000": &c.DMFilteringCut1000,
		"SNR_cut":               &c.SNRCut,
	}
	ints := map[string]**int{
		"max_harm":          &c.MaxHarm,
		"min_beam_cut":      &c.MinBeamCut,
		"harmonic_opt_flag": &c.HarmonicOptFlag,
		"harmonic_sum_flag": &c.HarmonicSumFlag,
		"beam_sort_flag":    &c.BeamSortFlag,
		"search_type":       &c.SearchType,
	}

	if dst, ok := floats[key]; ok {
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = ptrFloat64(v)
		return nil
	}
	if dst, ok := ints[key]; ok {
		// Parameter files often write flags as 1.0.
		v, err := strconv.ParseFloat(value, 64)
		if err != nil || v != math.Trunc(v) {
			return fmt.Errorf("%s: want an integer, got %q", key, value)
		}
		*dst = ptrInt(int(v))
		return nil
	}
	if key == "fil_file" {
		c.FilFile = ptrString(value)
		return nil
	}
	if c.Extra == nil {
		c.Extra = make(map[string]string)
	}
	c.Extra[key] = value
	return nil
}

// Merge returns a copy of c with every field set in o taking precedence.
func (c *SiftingConfig) Merge(o *SiftingConfig) *SiftingConfig {
	out := *c
	if o == nil {
		return &out
	}
	pickF := func(dst **float64, src *float64) {
		if src != nil {
			*dst = src
		}
	}
	pickI := func(dst **int, src *int) {
		if src != nil {
			*dst = src
		}
	}
	pickF(&out.StartDM, o.StartDM)
	pickF(&out.EndDM, o.EndDM)
	pickF(&out.DMStep, o.DMStep)
	pickF(&out.LowPeriod, o.LowPeriod)
	pickF(&out.HighPeriod, o.HighPeriod)
	pickF(&out.PeriodTolInitSort, o.PeriodTolInitSort)
	pickF(&out.PeriodTolBeamSort, o.PeriodTolBeamSort)
	pickF(&out.PeriodTolHarm, o.PeriodTolHarm)
	pickF(&out.DMFilteringCut10, o.DMFilteringCut10)
	pickF(&out.DMFilteringCut1000, o.DMFilteringCut1000)
	pickF(&out.SNRCut, o.SNRCut)
	pickI(&out.MaxHarm, o.MaxHarm)
	pickI(&out.MinBeamCut, o.MinBeamCut)
	pickI(&out.HarmonicOptFlag, o.HarmonicOptFlag)
	pickI(&out.HarmonicSumFlag, o.HarmonicSumFlag)
	pickI(&out.BeamSortFlag, o.BeamSortFlag)
	pickI(&out.SearchType, o.SearchType)
	if o.FilFile != nil {
		out.FilFile = o.FilFile
	}
	if len(c.Extra)+len(o.Extra) > 0 {
		out.Extra = make(map[string]string, len(c.Extra)+len(o.Extra))
		for k, v := range c.Extra {
			out.Extra[k] = v
		}
		for k, v := range o.Extra {
			out.Extra[k] = v
		}
	}
	return &out
}

// Validate checks the values that are set. Missing keys are reported by the
// projections, which know which stage needs them.
func (c *SiftingConfig) Validate() error {
	bad := func(format string, args ...any) error {
		return fmt.Errorf("%w: "+format, append([]any{sifting.ErrConfiguration}, args...)...)
	}

	if c.DMStep != nil && *c.DMStep <= 0 {
		return bad("dm_step must be positive, got %g", *c.DMStep)
	}
	if c.StartDM != nil && c.EndDM != nil && *c.EndDM <= *c.StartDM {
		return bad("end_DM (%g) must exceed start_DM (%g)", *c.EndDM, *c.StartDM)
	}
	if c.LowPeriod != nil && c.HighPeriod != nil && *c.HighPeriod < *c.LowPeriod {
		return bad("high_period (%g) below low_period (%g)", *c.HighPeriod, *c.LowPeriod)
	}
	for _, f := range []struct {
		key string
		v   *float64
	}{
		{"period_tol_init_sort", c.PeriodTolInitSort},
		{"period_tol_beam_sort", c.PeriodTolBeamSort},
		{"period_tol_harm", c.PeriodTolHarm},
	} {
		if f.v != nil && *f.v < 0 {
			return bad("%s must be non-negative, got %g", f.key, *f.v)
		}
	}
	if c.MaxHarm != nil && *c.MaxHarm < 1 {
		return bad("max_harm must be at least 1, got %d", *c.MaxHarm)
	}
	if c.MinBeamCut != nil && *c.MinBeamCut < 1 {
		return bad("min_beam_cut must be at least 1, got %d", *c.MinBeamCut)
	}
	for _, f := range []struct {
		key string
		v   *int
	}{
		{"harmonic_opt_flag", c.HarmonicOptFlag},
		{"harmonic_sum_flag", c.HarmonicSumFlag},
		{"beam_sort_flag", c.BeamSortFlag},
		{"search_type", c.SearchType},
	} {
		if f.v != nil && *f.v != 0 && *f.v != 1 {
			return bad("%s must be 0 or 1, got %d", f.key, *f.v)
		}
	}
	return nil
}

// GetPeriodTolBeamSort returns period_tol_beam_sort or the default.
func (c *SiftingConfig) GetPeriodTolBeamSort() float64 {
	if c.PeriodTolBeamSort == nil {
		return sifting.DefaultPeriodTolBeamSort
	}
	return *c.PeriodTolBeamSort
}

// GetMinBeamCut returns min_beam_cut or the default.
func (c *SiftingConfig) GetMinBeamCut() int {
	if c.MinBeamCut == nil {
		return sifting.DefaultMinBeamCut
	}
	return *c.MinBeamCut
}

// GetHarmonicOptFlag reports whether harmonic removal runs before beam
// sifting. Default: off.
func (c *SiftingConfig) GetHarmonicOptFlag() bool {
	return c.HarmonicOptFlag != nil && *c.HarmonicOptFlag == 1
}

// GetHarmonicSumFlag reports whether acceleration-search trials come from
// the harmonic-summed acc_list_harm_* outputs. Default: off.
func (c *SiftingConfig) GetHarmonicSumFlag() bool {
	return c.HarmonicSumFlag != nil && *c.HarmonicSumFlag == 1
}

// GetBeamSortFlag reports whether beam sifting runs. Default: off.
func (c *SiftingConfig) GetBeamSortFlag() bool {
	return c.BeamSortFlag != nil && *c.BeamSortFlag == 1
}

// GetSearchType returns the trial file layout. Default: acceleration search.
func (c *SiftingConfig) GetSearchType() sifting.SearchType {
	if c.SearchType == nil {
		return sifting.AccelerationSearch
	}
	return sifting.SearchType(*c.SearchType)
}

// GetFilFile returns fil_file or "".
func (c *SiftingConfig) GetFilFile() string {
	if c.FilFile == nil {
		return ""
	}
	return *c.FilFile
}

// requirements collects the keys a projection could not find.
type requirements struct {
	missing []string
}

func (r *requirements) f64(key string, v *float64) float64 {
	if v == nil {
		r.missing = append(r.missing, key)
		return 0
	}
	return *v
}

func (r *requirements) integer(key string, v *int) int {
	if v == nil {
		r.missing = append(r.missing, key)
		return 0
	}
	return *v
}

func (r *requirements) err(stage string) error {
	if len(r.missing) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s needs %s", sifting.ErrConfiguration, stage, strings.Join(r.missing, ", "))
}

// ConsolidationParams projects the parameters of the DM-trial consolidator.
func (c *SiftingConfig) ConsolidationParams() (sifting.ConsolidationParams, error) {
	var r requirements
	p := sifting.ConsolidationParams{
		StartDM:            r.f64("start_DM", c.StartDM),
		EndDM:              r.f64("end_DM", c.EndDM),
		DMStep:             r.f64("dm_step", c.DMStep),
		LowPeriodMs:        r.f64("low_period", c.LowPeriod),
		HighPeriodMs:       r.f64("high_period", c.HighPeriod),
		PeriodTolInitSort:  r.f64("period_tol_init_sort", c.PeriodTolInitSort),
		DMFilteringCut10:   r.f64("DM_filtering_cut_10", c.DMFilteringCut10),
		DMFilteringCut1000: r.f64("DM_filtering_cut_1000", c.DMFilteringCut1000),
		SNRCut:             r.f64("SNR_cut", c.SNRCut),
	}
	if err := r.err("consolidation"); err != nil {
		return sifting.ConsolidationParams{}, err
	}
	return p, p.Validate()
}

// HarmonicParams projects the parameters of the harmonic reducer.
func (c *SiftingConfig) HarmonicParams() (sifting.HarmonicParams, error) {
	var r requirements
	p := sifting.HarmonicParams{
		PeriodTolHarm:      r.f64("period_tol_harm", c.PeriodTolHarm),
		MaxHarm:            r.integer("max_harm", c.MaxHarm),
		DMFilteringCut10:   r.f64("DM_filtering_cut_10", c.DMFilteringCut10),
		DMFilteringCut1000: r.f64("DM_filtering_cut_1000", c.DMFilteringCut1000),
	}
	if err := r.err("harmonic removal"); err != nil {
		return sifting.HarmonicParams{}, err
	}
	return p, p.Validate()
}

// BeamParams projects the parameters of the beam sifter.
func (c *SiftingConfig) BeamParams() (sifting.BeamParams, error) {
	var r requirements
	p := sifting.BeamParams{
		PeriodTolBeamSort:  c.GetPeriodTolBeamSort(),
		MinBeamCut:         c.GetMinBeamCut(),
		StartDM:            r.f64("start_DM", c.StartDM),
		EndDM:              r.f64("end_DM", c.EndDM),
		DMFilteringCut10:   r.f64("DM_filtering_cut_10", c.DMFilteringCut10),
		DMFilteringCut1000: r.f64("DM_filtering_cut_1000", c.DMFilteringCut1000),
	}
	if err := r.err("beam sifting"); err != nil {
		return sifting.BeamParams{}, err
	}
	return p, p.Validate()
}
