package criteria

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Thresholds are the numeric cutoffs used by the predicates. Every
// comparison is inclusive: a value equal to its cutoff crosses it.
//
// A Thresholds value is computed once per classification (defaults merged
// with gene overrides) and passed by value; predicates never modify it.
type Thresholds struct {
	// Conservation and splicing.
	PhyloP100          float64
	SpliceAIAccGain    float64
	SpliceAIAccLoss    float64
	SpliceAIDonGain    float64
	SpliceAIDonLoss    float64
	SpliceAIPathogenic float64
	SpliceAIBenign     float64
	BP7Donor           int64
	BP7Acceptor        int64

	// Missense and splice predictors.
	REVELPathogenic         float64
	REVELBenign             float64
	CADDPathogenic          float64
	CADDBenign              float64
	BayesDelPathogenic      float64
	BayesDelBenign          float64
	AlphaMissensePathogenic float64
	AlphaMissenseBenign     float64
	AdaPathogenic           float64
	AdaBenign               float64
	RFPathogenic            float64
	RFBenign                float64

	// Population frequency.
	PM2Pathogenic float64
	BA1Benign     float64
	BS1Benign     float64
	ANMin         int64
	MitoPM2       float64
	MitoBA1       float64
	MitoBS1       float64

	// Homozygote and hemizygote counts for BS2.
	BS2Dominant   int64
	BS2Recessive  int64
	BS2XDominant  int64
	BS2XRecessive int64

	// Gene-level missense constraint.
	PP2MissenseZ float64
	BP1MissenseZ float64
	PP2Ratio     float64
	BP1Ratio     float64

	// PM1 hotspot detection.
	PM1Window            int64
	PM1MinVariants       int64
	PM1MinDomainVariants int64

	// Loss of function.
	PVS1CriticalRatio  float64
	PVS1LoFFrequentAF  float64
	PVS1LoFFrequentPct float64
	PVS1ProteinRemoved float64
	PVS1NMDDistance    int64
}

// DefaultThresholds returns the engine-wide defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		PhyloP100:          3.58,
		SpliceAIAccGain:    0.1,
		SpliceAIAccLoss:    0.1,
		SpliceAIDonGain:    0.1,
		SpliceAIDonLoss:    0.1,
		SpliceAIPathogenic: 0.2,
		SpliceAIBenign:     0.1,
		BP7Donor:           1,
		BP7Acceptor:        2,

		REVELPathogenic:         0.644,
		REVELBenign:             0.290,
		CADDPathogenic:          25.3,
		CADDBenign:              22.7,
		BayesDelPathogenic:      0.13,
		BayesDelBenign:          -0.18,
		AlphaMissensePathogenic: 0.564,
		AlphaMissenseBenign:     0.34,
		AdaPathogenic:           0.6,
		AdaBenign:               0.2,
		RFPathogenic:            0.6,
		RFBenign:                0.2,

		PM2Pathogenic: 0.0001,
		BA1Benign:     0.05,
		BS1Benign:     0.00015,
		ANMin:         2000,
		MitoPM2:       0.00002,
		MitoBA1:       0.01,
		MitoBS1:       0.005,

		BS2Dominant:   6,
		BS2Recessive:  6,
		BS2XDominant:  3,
		BS2XRecessive: 3,

		PP2MissenseZ: 3.09,
		BP1MissenseZ: -1.0,
		PP2Ratio:     0.808,
		BP1Ratio:     0.569,

		PM1Window:            25,
		PM1MinVariants:       4,
		PM1MinDomainVariants: 2,

		PVS1CriticalRatio:  0.05,
		PVS1LoFFrequentAF:  0.001,
		PVS1LoFFrequentPct: 0.1,
		PVS1ProteinRemoved: 0.1,
		PVS1NMDDistance:    50,
	}
}

type thresholdField struct {
	float func(*Thresholds) *float64
	int   func(*Thresholds) *int64
}

// thresholdFields maps the snake_case names used in panel files to fields.
var thresholdFields = map[string]thresholdField{
	"phylop100":            {float: func(t *Thresholds) *float64 { return &t.PhyloP100 }},
	"spliceai_acc_gain":    {float: func(t *Thresholds) *float64 { return &t.SpliceAIAccGain }},
	"spliceai_acc_loss":    {float: func(t *Thresholds) *float64 { return &t.SpliceAIAccLoss }},
	"spliceai_don_gain":    {float: func(t *Thresholds) *float64 { return &t.SpliceAIDonGain }},
	"spliceai_don_loss":    {float: func(t *Thresholds) *float64 { return &t.SpliceAIDonLoss }},
	"spliceai_pathogenic":  {float: func(t *Thresholds) *float64 { return &t.SpliceAIPathogenic }},
	"spliceai_benign":      {float: func(t *Thresholds) *float64 { return &t.SpliceAIBenign }},
	"bp7_donor":            {int: func(t *Thresholds) *int64 { return &t.BP7Donor }},
	"bp7_acceptor":         {int: func(t *Thresholds) *int64 { return &t.BP7Acceptor }},
	"revel_pathogenic":     {float: func(t *Thresholds) *float64 { return &t.REVELPathogenic }},
	"revel_benign":         {float: func(t *Thresholds) *float64 { return &t.REVELBenign }},
	"cadd_pathogenic":      {float: func(t *Thresholds) *float64 { return &t.CADDPathogenic }},
	"cadd_benign":          {float: func(t *Thresholds) *float64 { return &t.CADDBenign }},
	"bayesdel_pathogenic":  {float: func(t *Thresholds) *float64 { return &t.BayesDelPathogenic }},
	"bayesdel_benign":      {float: func(t *Thresholds) *float64 { return &t.BayesDelBenign }},
	"alphamissense_path":   {float: func(t *Thresholds) *float64 { return &t.AlphaMissensePathogenic }},
	"alphamissense_benign": {float: func(t *Thresholds) *float64 { return &t.AlphaMissenseBenign }},
	"ada_pathogenic":       {float: func(t *Thresholds) *float64 { return &t.AdaPathogenic }},
	"ada_benign":           {float: func(t *Thresholds) *float64 { return &t.AdaBenign }},
	"rf_pathogenic":        {float: func(t *Thresholds) *float64 { return &t.RFPathogenic }},
	"rf_benign":            {float: func(t *Thresholds) *float64 { return &t.RFBenign }},
	"pm2_pathogenic":       {float: func(t *Thresholds) *float64 { return &t.PM2Pathogenic }},
	"ba1_benign":           {float: func(t *Thresholds) *float64 { return &t.BA1Benign }},
	"bs1_benign":           {float: func(t *Thresholds) *float64 { return &t.BS1Benign }},
	"an_min":               {int: func(t *Thresholds) *int64 { return &t.ANMin }},
	"mito_pm2":             {float: func(t *Thresholds) *float64 { return &t.MitoPM2 }},
	"mito_ba1":             {float: func(t *Thresholds) *float64 { return &t.MitoBA1 }},
	"mito_bs1":             {float: func(t *Thresholds) *float64 { return &t.MitoBS1 }},
	"bs2_dominant":         {int: func(t *Thresholds) *int64 { return &t.BS2Dominant }},
	"bs2_recessive":        {int: func(t *Thresholds) *int64 { return &t.BS2Recessive }},
	"bs2_x_dominant":       {int: func(t *Thresholds) *int64 { return &t.BS2XDominant }},
	"bs2_x_recessive":      {int: func(t *Thresholds) *int64 { return &t.BS2XRecessive }},
	"pp2_missense_z":       {float: func(t *Thresholds) *float64 { return &t.PP2MissenseZ }},
	"bp1_missense_z":       {float: func(t *Thresholds) *float64 { return &t.BP1MissenseZ }},
	"pp2_ratio":            {float: func(t *Thresholds) *float64 { return &t.PP2Ratio }},
	"bp1_ratio":            {float: func(t *Thresholds) *float64 { return &t.BP1Ratio }},
	"pm1_window":           {int: func(t *Thresholds) *int64 { return &t.PM1Window }},
	"pm1_min_variants":     {int: func(t *Thresholds) *int64 { return &t.PM1MinVariants }},
	"pm1_min_domain":       {int: func(t *Thresholds) *int64 { return &t.PM1MinDomainVariants }},
	"pvs1_critical_ratio":  {float: func(t *Thresholds) *float64 { return &t.PVS1CriticalRatio }},
	"pvs1_lof_af":          {float: func(t *Thresholds) *float64 { return &t.PVS1LoFFrequentAF }},
	"pvs1_lof_fraction":    {float: func(t *Thresholds) *float64 { return &t.PVS1LoFFrequentPct }},
	"pvs1_protein_removed": {float: func(t *Thresholds) *float64 { return &t.PVS1ProteinRemoved }},
	"pvs1_nmd_distance":    {int: func(t *Thresholds) *int64 { return &t.PVS1NMDDistance }},
}

// ThresholdNames returns the names accepted by Set, sorted.
func ThresholdNames() []string {
	names := make([]string, 0, len(thresholdFields))
	for n := range thresholdFields {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Set assigns the threshold called name. Integer thresholds reject
// fractional values.
func (t *Thresholds) Set(name string, value float64) error {
	f, ok := thresholdFields[strings.ToLower(name)]
	if !ok {
		return fmt.Errorf("unknown threshold %q", name)
	}
	if f.float != nil {
		*f.float(t) = value
		return nil
	}
	if value != math.Trunc(value) {
		return fmt.Errorf("threshold %q must be an integer, got %v", name, value)
	}
	*f.int(t) = int64(value)
	return nil
}

// Get returns the threshold called name as a float.
func (t *Thresholds) Get(name string) (float64, bool) {
	f, ok := thresholdFields[strings.ToLower(name)]
	if !ok {
		return 0, false
	}
	if f.float != nil {
		return *f.float(t), true
	}
	return float64(*f.int(t)), true
}

// Apply sets every threshold in overrides.
func (t *Thresholds) Apply(overrides map[string]float64) error {
	for name, v := range overrides {
		if err := t.Set(name, v); err != nil {
			return err
		}
	}
	return nil
}
