// Package acmg runs the classification pipeline: it resolves variant text,
// fetches annotations, selects the transcript, merges gene-specific rules
// and evaluates every criterion.
package acmg

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/inodb/vibe-acmg/internal/criteria"
	"github.com/inodb/vibe-acmg/internal/gateway"
	"github.com/inodb/vibe-acmg/internal/genome"
	"github.com/inodb/vibe-acmg/internal/panel"
	"github.com/inodb/vibe-acmg/internal/pvs1"
	"github.com/inodb/vibe-acmg/internal/regions"
	"github.com/inodb/vibe-acmg/internal/resolve"
	"github.com/inodb/vibe-acmg/internal/variant"
)

// Annotator supplies transcript consequences and transcript geometry.
type Annotator interface {
	SeqvarConsequences(ctx context.Context, v variant.PointVariant) ([]gateway.Consequence, error)
	StrucvarConsequences(ctx context.Context, sv variant.StructuralVariant) ([]gateway.Consequence, error)
	GeneTranscripts(ctx context.Context, hgncID string, build genome.Build) ([]gateway.Transcript, error)
}

// VariantSource supplies variant records, range queries and gene-level
// annotations.
type VariantSource interface {
	criteria.Lookup
	GeneInfo(ctx context.Context, hgncID string) (*gateway.GeneInfo, error)
}

// ScoreFiller completes predictor scores from a local source.
type ScoreFiller interface {
	Name() string
	Fill(ctx context.Context, v variant.PointVariant, scores *gateway.ScoreSet) error
}

// GeneFiller completes gene-level annotations from a local source.
type GeneFiller interface {
	Name() string
	Fill(info *gateway.GeneInfo)
}

// Observer receives one call per classification and one per criterion
// result, e.g. for metrics.
type Observer interface {
	ObserveClassification(kind, outcome string, elapsed time.Duration)
	ObserveCriterion(r criteria.Result)
}

// Variant kinds reported in Result.Kind.
const (
	KindSequence   = "seqvar"
	KindStructural = "strucvar"
)

var (
	// ErrNoAnnotation is returned when the annotation service knows no
	// consequence for the variant.
	ErrNoAnnotation = errors.New("no transcript consequences")
	// ErrIntergenic is returned when no consequence lies in a gene.
	ErrIntergenic = errors.New("variant does not overlap a gene")
)

// Options configure an Engine. The zero value classifies against GRCh38
// without panels, interval indexes or local sources.
type Options struct {
	Build             genome.Build
	Panels            *panel.Registry
	Repeats           *regions.Index
	Domains           *regions.Index
	DuplicationTandem bool
	ScoreFillers      []ScoreFiller
	GeneFillers       []GeneFiller
	Observer          Observer
}

// Engine classifies variants. It holds no per-request state and is safe for
// concurrent use.
type Engine struct {
	resolver   *resolve.Resolver
	annotator  Annotator
	source     VariantSource
	lof        *pvs1.Classifier
	predicates []criteria.Predicate
	opts       Options
	logger     *zap.Logger
}

// New creates an Engine.
func New(resolver *resolve.Resolver, annotator Annotator, source VariantSource, opts Options) *Engine {
	if !opts.Build.Valid() {
		opts.Build = genome.GRCh38
	}
	return &Engine{
		resolver:   resolver,
		annotator:  annotator,
		source:     source,
		lof:        pvs1.NewClassifier(),
		predicates: criteria.Defaults(),
		opts:       opts,
		logger:     zap.NewNop(),
	}
}

// SetLogger sets the logger for the engine and the PVS1 classifier.
func (e *Engine) SetLogger(l *zap.Logger) {
	e.logger = l
	e.lof.SetLogger(l)
}

// Build returns the default genome build for unqualified variant text.
func (e *Engine) Build() genome.Build {
	return e.opts.Build
}

// Annotation is the transcript-level snapshot a classification used.
type Annotation struct {
	TranscriptID string   `json:"transcript_id,omitempty"`
	Terms        []string `json:"consequences,omitempty"`
	HGVSc        string   `json:"hgvs_c,omitempty"`
	HGVSp        string   `json:"hgvs_p,omitempty"`
	ExonRank     int      `json:"exon,omitempty"`
	ExonCount    int      `json:"exon_count,omitempty"`
	CDSPos       int64    `json:"cds_pos,omitempty"`
	ProteinPos   int64    `json:"protein_pos,omitempty"`
	ProteinLen   int64    `json:"protein_len,omitempty"`
	PVS1Path     string   `json:"pvs1_path,omitempty"`
}

// Result is the classification of one variant.
type Result struct {
	Input      string            `json:"input"`
	Variant    string            `json:"variant"`
	Build      genome.Build      `json:"genome_build"`
	Kind       string            `json:"kind"`
	GeneID     string            `json:"hgnc_id,omitempty"`
	GeneSymbol string            `json:"gene,omitempty"`
	Panel      string            `json:"panel,omitempty"`
	Annotation Annotation        `json:"annotation"`
	Criteria   []criteria.Result `json:"criteria"`

	// Resolved is the variant the criteria were evaluated for.
	Resolved variant.Variant `json:"-"`
	Set      criteria.Set    `json:"-"`
}

// Met returns the criteria that are met, in reporting order.
func (r *Result) Met() []criteria.Result {
	return r.Set.Met()
}

// Classify resolves text against the default build and classifies it.
func (e *Engine) Classify(ctx context.Context, text string) (*Result, error) {
	start := time.Now()
	v, err := e.resolver.Resolve(ctx, text, e.opts.Build)
	if err != nil {
		e.observe("unresolved", err, start)
		return nil, err
	}
	return e.classify(ctx, text, v, start)
}

// ClassifyVariant classifies an already resolved variant.
func (e *Engine) ClassifyVariant(ctx context.Context, v variant.Variant) (*Result, error) {
	return e.classify(ctx, v.String(), v, time.Now())
}

func (e *Engine) classify(ctx context.Context, input string, v variant.Variant, start time.Time) (*Result, error) {
	var res *Result
	var err error
	var kind string
	switch v := v.(type) {
	case variant.PointVariant:
		kind = KindSequence
		res, err = e.classifyPoint(ctx, v)
	case variant.StructuralVariant:
		kind = KindStructural
		res, err = e.classifyStructural(ctx, v)
	default:
		err = fmt.Errorf("unsupported variant type %T", v)
	}
	e.observe(kind, err, start)
	if err != nil {
		e.logger.Warn("classification failed", zap.String("variant", input), zap.Error(err))
		return nil, err
	}
	res.Input = input
	res.Criteria = res.Set.Ordered()
	if e.opts.Observer != nil {
		for _, r := range res.Criteria {
			e.opts.Observer.ObserveCriterion(r)
		}
	}
	e.logger.Debug("variant classified",
		zap.String("variant", res.Variant),
		zap.String("gene", res.GeneSymbol),
		zap.Int("met", len(res.Met())),
		zap.Duration("elapsed", time.Since(start)))
	return res, nil
}

func (e *Engine) observe(kind string, err error, start time.Time) {
	if e.opts.Observer == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	e.opts.Observer.ObserveClassification(kind, outcome, time.Since(start))
}

func (e *Engine) classifyPoint(ctx context.Context, v variant.PointVariant) (*Result, error) {
	csqs, err := e.annotator.SeqvarConsequences(ctx, v)
	if err != nil {
		return nil, fmt.Errorf("annotate %s: %w", v, err)
	}
	if len(csqs) == 0 {
		return nil, fmt.Errorf("annotate %s: %w", v, ErrNoAnnotation)
	}
	geneID := primaryGene(csqs)
	if geneID == "" {
		return nil, fmt.Errorf("annotate %s: %w", v, ErrIntergenic)
	}
	txs, err := e.annotator.GeneTranscripts(ctx, geneID, v.Build)
	if err != nil {
		return nil, fmt.Errorf("fetch transcripts of %s: %w", geneID, err)
	}
	csq, tx := SelectTranscript(geneConsequences(csqs, geneID), txs)

	lookup := newRequestLookup(e.source)
	rec, recErr := lookup.VariantRecord(ctx, v)
	if rec != nil {
		for _, f := range e.opts.ScoreFillers {
			if err := f.Fill(ctx, v, &rec.Scores); err != nil {
				e.logger.Warn("local score source failed",
					zap.String("source", f.Name()), zap.String("variant", v.String()), zap.Error(err))
			}
		}
	}
	info, infoErr := e.source.GeneInfo(ctx, geneID)
	if infoErr == nil && len(e.opts.GeneFillers) > 0 {
		if info == nil {
			info = &gateway.GeneInfo{HGNCID: geneID, Symbol: csq.GeneSymbol}
		}
		for _, f := range e.opts.GeneFillers {
			f.Fill(info)
		}
	}

	th, rules := e.opts.Panels.Effective(geneID, csq)
	d := &criteria.Data{
		Variant:     v,
		GeneID:      geneID,
		GeneSymbol:  csq.GeneSymbol,
		Transcript:  tx,
		Consequence: csq,
		Transcripts: txs,
		Record:      rec,
		RecordErr:   recErr,
		GeneInfo:    info,
		GeneInfoErr: infoErr,
		Thresholds:  th,
		Rules:       rules,
		Repeats:     e.opts.Repeats,
		Domains:     e.opts.Domains,
		Lookup:      lookup,
	}
	preds := make([]criteria.Predicate, 0, len(e.predicates)+1)
	preds = append(preds, e.lof)
	preds = append(preds, e.predicates...)
	set := criteria.Evaluate(ctx, d, preds)

	res := &Result{
		Variant:    v.String(),
		Build:      v.Build,
		Kind:       KindSequence,
		GeneID:     geneID,
		GeneSymbol: csq.GeneSymbol,
		Panel:      rules.Panel,
		Annotation: Annotation{
			TranscriptID: csq.TranscriptID,
			Terms:        csq.Terms,
			HGVSc:        csq.HGVSc,
			HGVSp:        csq.HGVSp,
			ExonRank:     csq.ExonRank,
			ExonCount:    csq.ExonCount,
			CDSPos:       csq.CDSPos,
			ProteinPos:   csq.ProteinPos,
			ProteinLen:   csq.ProteinLen,
		},
		Resolved: v,
		Set:      set,
	}
	if r := set[criteria.PVS1]; r.Prediction == criteria.Met {
		res.Annotation.PVS1Path = pathOf(r.Summary)
	}
	return res, nil
}

// svGene is the PVS1 evaluation of a structural variant against one gene.
type svGene struct {
	geneID string
	tx     *gateway.Transcript
	rules  criteria.GeneRules
	dec    pvs1.Decision
	err    error
}

// classifyStructural evaluates PVS1 against every affected gene and
// reports the gene with the strongest outcome. Only PVS1 is automated for
// structural variants.
func (e *Engine) classifyStructural(ctx context.Context, sv variant.StructuralVariant) (*Result, error) {
	csqs, err := e.annotator.StrucvarConsequences(ctx, sv)
	if err != nil {
		return nil, fmt.Errorf("annotate %s: %w", sv, err)
	}
	var genes []string
	seen := make(map[string]bool)
	for _, c := range csqs {
		if c.GeneID != "" && !seen[c.GeneID] {
			seen[c.GeneID] = true
			genes = append(genes, c.GeneID)
		}
	}
	if len(genes) == 0 {
		return nil, fmt.Errorf("annotate %s: %w", sv, ErrIntergenic)
	}
	sort.Strings(genes)

	lookup := newRequestLookup(e.source)
	var best *svGene
	for _, geneID := range genes {
		txs, err := e.annotator.GeneTranscripts(ctx, geneID, sv.Build)
		if err != nil {
			return nil, fmt.Errorf("fetch transcripts of %s: %w", geneID, err)
		}
		_, tx := SelectTranscript(nil, txs)
		th, rules := e.opts.Panels.Effective(geneID, nil)
		g := &svGene{geneID: geneID, tx: tx, rules: rules}
		if tx == nil {
			g.err = &criteria.MissingDataError{What: "transcripts of " + geneID}
		} else {
			g.dec, g.err = e.lof.ClassifyStructural(ctx, pvs1.SVInput{
				Variant:           sv,
				GeneID:            geneID,
				Transcript:        tx,
				Thresholds:        th,
				Domains:           e.opts.Domains,
				Lookup:            lookup,
				DuplicationTandem: e.opts.DuplicationTandem,
			})
		}
		if best == nil || strongerSV(g, best) {
			best = g
		}
	}

	set := make(criteria.Set, len(criteria.All))
	if best.err != nil {
		set[criteria.PVS1] = criteria.FailedResult(criteria.PVS1, best.err)
	} else {
		set[criteria.PVS1] = best.dec.Result()
	}
	criteria.ApplyRules(set, criteria.GeneRules{Disabled: onlyPVS1(best.rules.Disabled)})
	for _, c := range criteria.All {
		if _, ok := set[c]; !ok {
			set[c] = criteria.NotApplicablef(c, "not evaluated for structural variants")
		}
	}

	res := &Result{
		Variant:  sv.String(),
		Build:    sv.Build,
		Kind:     KindStructural,
		GeneID:   best.geneID,
		Panel:    best.rules.Panel,
		Resolved: sv,
		Set:      set,
	}
	if best.tx != nil {
		res.GeneSymbol = best.tx.GeneSymbol
		res.Annotation.TranscriptID = best.tx.ID
	}
	if best.err == nil && best.dec.Path != pvs1.PathNotSet {
		res.Annotation.PVS1Path = string(best.dec.Path)
	}
	return res, nil
}

// strongerSV orders gene evaluations: successful before failed, then by
// outcome strength. Earlier genes win ties.
func strongerSV(a, b *svGene) bool {
	if (a.err == nil) != (b.err == nil) {
		return a.err == nil
	}
	if a.err != nil {
		return false
	}
	return a.dec.Outcome < b.dec.Outcome
}

func onlyPVS1(disabled map[criteria.Criterion]string) map[criteria.Criterion]string {
	why, ok := disabled[criteria.PVS1]
	if !ok {
		return nil
	}
	return map[criteria.Criterion]string{criteria.PVS1: why}
}

// pathOf extracts the path tag from a PVS1 summary of the form
// "<path>: <description>".
func pathOf(summary string) string {
	path, _, _ := strings.Cut(summary, ":")
	return path
}
