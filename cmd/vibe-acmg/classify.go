package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/inodb/vibe-acmg/internal/acmg"
	"github.com/inodb/vibe-acmg/internal/duckdb"
	"github.com/inodb/vibe-acmg/internal/genome"
	"github.com/inodb/vibe-acmg/internal/maf"
	"github.com/inodb/vibe-acmg/internal/output"
	"github.com/inodb/vibe-acmg/internal/textio"
	"github.com/inodb/vibe-acmg/internal/vcf"
)

type classifyOptions struct {
	input        string
	inputFormat  string
	outputFormat string
	outputFile   string
	workers      int
	store        bool
}

func newClassifyCmd(a *app) *cobra.Command {
	var o classifyOptions
	cmd := &cobra.Command{
		Use:   "classify [flags] [variant...]",
		Short: "Evaluate ACMG criteria for variants",
		Long: `Evaluate the ACMG criteria for variants given as arguments, or read from
a VCF file, a MAF file or a list with one variant per line. MAF indels
written with a "-" allele carry no anchor base and are reported as errors.

Accepted notations: GRCh38-17-7675088-C-T, 17:7675088:C:T,
NC_000017.11:7675087:C:T, DEL:GRCh38:1:900:4300, and HGVS or rsIDs via the
normalization service.`,
		Example: `  vibe-acmg classify 17:7675088:C:T
  vibe-acmg classify --input variants.vcf.gz -f vcf -o annotated.vcf
  vibe-acmg classify --input data_mutations.maf -f json
  vibe-acmg classify --input variants.txt -f json --store`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if o.input == "" && len(args) == 0 {
				return &usageError{msg: "give variants as arguments or use --input"}
			}
			if o.input != "" && len(args) > 0 {
				return &usageError{msg: "--input cannot be combined with variant arguments"}
			}
			return a.runClassify(cmd.Context(), cmd.OutOrStdout(), o, args)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&o.input, "input", "i", "", "input file: VCF, MAF or one variant per line, optionally gzipped ('-' for stdin)")
	f.StringVar(&o.inputFormat, "input-format", "", "input format: vcf, maf, list (auto-detected if not specified)")
	f.StringVarP(&o.outputFormat, "output-format", "f", "tab", "output format: tab, json, vcf (vcf needs VCF input)")
	f.StringVarP(&o.outputFile, "output", "o", "", "output file (default: stdout)")
	f.IntVar(&o.workers, "workers", 0, "parallel workers (default: classify.workers, 0 = all CPUs)")
	f.BoolVar(&o.store, "store", false, "store results in the DuckDB database at cache.path")
	return cmd
}

// itemSource describes where a work item came from.
type itemSource struct {
	rec   *vcf.Record // nil for MAF input
	locus string
	err   error // conversion error; the item is reported as failed
}

func (a *app) runClassify(ctx context.Context, stdout io.Writer, o classifyOptions, args []string) error {
	start := time.Now()
	jobID := uuid.NewString()
	logger := a.logger.With(zap.String("job_id", jobID))

	s, err := a.newSession(nil)
	if err != nil {
		return err
	}
	defer s.Close()

	var resultStore *duckdb.Store
	if o.store {
		resultStore = s.store
		if resultStore == nil {
			if resultStore, err = a.openStore(); err != nil {
				return err
			}
			defer resultStore.Close()
		}
	}

	format := o.inputFormat
	if format == "" {
		format = detectInputFormat(o.input)
	}
	if o.input == "" {
		format = "args"
	}
	if o.outputFormat == "vcf" && format != "vcf" {
		return &usageError{msg: "-f vcf needs VCF input"}
	}

	out := stdout
	if o.outputFile != "" {
		f, err := os.Create(o.outputFile)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	var parser *vcf.Parser
	var mafParser *maf.Parser
	var listReader *textio.Reader
	switch format {
	case "vcf":
		if parser, err = vcf.NewParser(o.input); err != nil {
			return err
		}
		defer parser.Close()
	case "maf":
		if mafParser, err = maf.NewParser(o.input); err != nil {
			return err
		}
		defer mafParser.Close()
	case "list":
		if listReader, err = textio.Open(o.input); err != nil {
			return fmt.Errorf("open variant list: %w", err)
		}
		defer listReader.Close()
	case "args":
	default:
		return &usageError{msg: fmt.Sprintf("unknown input format %q", format)}
	}

	var w output.Writer
	var vw *output.VCFWriter
	if o.outputFormat == "vcf" {
		vw = output.NewVCFWriter(out, parser.Header())
		if err := vw.WriteHeader(); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	} else {
		if w, err = output.NewWriter(o.outputFormat, out); err != nil {
			return &usageError{msg: err.Error()}
		}
		if err := w.WriteHeader(); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	workers := o.workers
	if workers == 0 {
		workers = a.cfg.Classify.Workers
	}
	logger.Info("classification started",
		zap.String("input", o.input),
		zap.String("format", format),
		zap.Int("workers", workers))

	g, gctx := errgroup.WithContext(ctx)
	items := make(chan acmg.Job, 64)
	g.Go(func() error {
		defer close(items)
		switch format {
		case "vcf":
			return produceVCF(gctx, parser, s.engine.Build(), items)
		case "maf":
			return produceMAF(gctx, mafParser, s.engine.Build(), items)
		case "list":
			return produceList(gctx, listReader, items)
		}
		return produceArgs(gctx, args, items)
	})

	var total, failed int
	var rows []duckdb.ResultRow
	g.Go(func() error {
		return s.engine.ClassifyStream(gctx, items, workers, func(r acmg.Outcome) error {
			total++
			src, _ := r.Source.(itemSource)
			if src.err != nil {
				r.Input, r.Result, r.Err = src.locus, nil, src.err
			}
			if r.Err != nil {
				failed++
				logger.Warn("variant not classified", zap.String("input", r.Input), zap.Error(r.Err))
			} else if resultStore != nil {
				rows = append(rows, resultRows(r.Result)...)
				if len(rows) >= 10000 {
					if err := resultStore.WriteResults(gctx, rows); err != nil {
						return fmt.Errorf("store results: %w", err)
					}
					rows = rows[:0]
				}
			}

			switch {
			case vw != nil:
				return vw.Write(src.rec, r.Result)
			case r.Err != nil:
				return w.WriteError(r.Input, r.Err)
			}
			return w.Write(r.Result)
		})
	})
	if err := g.Wait(); err != nil {
		return err
	}

	if resultStore != nil {
		if err := resultStore.WriteResults(ctx, rows); err != nil {
			return fmt.Errorf("store results: %w", err)
		}
	}
	if vw != nil {
		err = vw.Flush()
	} else {
		err = w.Flush()
	}
	if err != nil {
		return fmt.Errorf("flush output: %w", err)
	}

	logger.Info("classification finished",
		zap.Int("variants", total),
		zap.Int("failed", failed),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

func send(ctx context.Context, items chan<- acmg.Job, item acmg.Job) error {
	select {
	case items <- item:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func produceArgs(ctx context.Context, args []string, items chan<- acmg.Job) error {
	for i, text := range args {
		if err := send(ctx, items, acmg.Job{Seq: i, Input: text}); err != nil {
			return err
		}
	}
	return nil
}

// produceList reads one variant per line; blank lines and '#' comments are skipped.
func produceList(ctx context.Context, r io.Reader, items chan<- acmg.Job) error {
	scanner := bufio.NewScanner(r)
	seq := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := send(ctx, items, acmg.Job{Seq: seq, Input: line}); err != nil {
			return err
		}
		seq++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read variant list: %w", err)
	}
	return nil
}

// produceVCF queues one item per ALT allele.
func produceVCF(ctx context.Context, p *vcf.Parser, build genome.Build, items chan<- acmg.Job) error {
	seq := 0
	for {
		rec, err := p.Next()
		if err != nil {
			return err
		}
		if rec == nil {
			return nil
		}
		for _, r := range vcf.SplitMultiAllelic(rec) {
			item := acmg.Job{
				Seq:   seq,
				Input: fmt.Sprintf("%s:%d:%s:%s", r.Chrom, r.Pos, r.Ref, r.Alt),
			}
			v, err := r.ToVariant(build)
			src := itemSource{rec: r, locus: r.Locus(), err: err}
			if err == nil {
				item.Variant = v
			} else {
				// The engine rejects the empty input; the collector reports src.err.
				item.Input = ""
			}
			item.Source = src
			if err := send(ctx, items, item); err != nil {
				return err
			}
			seq++
		}
	}
}

// produceMAF queues one item per MAF record.
func produceMAF(ctx context.Context, p *maf.Parser, build genome.Build, items chan<- acmg.Job) error {
	for seq := 0; ; seq++ {
		rec, err := p.Next()
		if err != nil {
			return err
		}
		if rec == nil {
			return nil
		}
		item := acmg.Job{Seq: seq, Input: rec.Input()}
		v, err := rec.ToVariant(build)
		if err == nil {
			item.Variant = v
		} else {
			item.Input = ""
		}
		item.Source = itemSource{locus: rec.Locus(), err: err}
		if err := send(ctx, items, item); err != nil {
			return err
		}
	}
}

// resultRows flattens a classification into one stored row per criterion.
func resultRows(res *acmg.Result) []duckdb.ResultRow {
	rows := make([]duckdb.ResultRow, 0, len(res.Criteria))
	for _, c := range res.Criteria {
		rows = append(rows, duckdb.ResultRow{
			VariantID:    res.Variant,
			GenomeBuild:  res.Build.String(),
			GeneID:       res.GeneID,
			GeneSymbol:   res.GeneSymbol,
			TranscriptID: res.Annotation.TranscriptID,
			Criterion:    string(c.Criterion),
			Prediction:   c.Prediction.String(),
			Strength:     c.Strength.String(),
			Summary:      c.Summary,
		})
	}
	return rows
}

// detectInputFormat detects the input file format based on extension or content.
func detectInputFormat(path string) string {
	lowerPath := strings.TrimSuffix(strings.ToLower(path), ".gz")
	if strings.HasSuffix(lowerPath, ".vcf") {
		return "vcf"
	}
	if strings.HasSuffix(lowerPath, ".maf") {
		return "maf"
	}
	if path == "" || path == "-" {
		return "list"
	}

	// Try to peek at the file to detect format
	file, err := os.Open(path)
	if err != nil {
		return "list"
	}
	defer file.Close()

	buf := make([]byte, 512)
	n, _ := file.Read(buf)
	content := string(buf[:n])
	if strings.HasPrefix(content, "##fileformat=VCF") || strings.HasPrefix(content, "#CHROM") {
		return "vcf"
	}
	if strings.HasPrefix(content, "#version") || strings.HasPrefix(content, "Hugo_Symbol\t") {
		return "maf"
	}
	return "list"
}
