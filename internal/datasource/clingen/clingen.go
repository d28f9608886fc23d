// Package clingen loads the ClinGen dosage-sensitivity gene curation list.
package clingen

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/inodb/vibe-acmg/internal/textio"
)

// Dosage holds ClinGen dosage-sensitivity scores for one gene. Scores are
// 0-3, 30 (autosomal recessive) or 40 (unlikely dosage sensitive).
type Dosage struct {
	Symbol  string
	GeneID  string
	HIScore *int
	TSScore *int
}

// DosageList maps gene symbol to Dosage.
type DosageList map[string]*Dosage

// HaploScore returns the haploinsufficiency score of a gene.
func (d DosageList) HaploScore(symbol string) (int, bool) {
	g, ok := d[symbol]
	if !ok || g.HIScore == nil {
		return 0, false
	}
	return *g.HIScore, true
}

// LoadDosageList loads a ClinGen_gene_curation_list_GRCh3x.tsv file.
func LoadDosageList(path string) (DosageList, error) {
	r, err := textio.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dosage list: %w", err)
	}
	defer r.Close()
	return ParseDosageList(r)
}

// ParseDosageList reads the curation list. Leading comment lines are skipped;
// the header line starts with "#Gene Symbol" and must name the "Gene Symbol"
// and "Haploinsufficiency Score" columns.
func ParseDosageList(r io.Reader) (DosageList, error) {
	scanner := bufio.NewScanner(r)

	var header []string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#Gene Symbol") || strings.HasPrefix(line, "Gene Symbol") {
			header = strings.Split(strings.TrimPrefix(line, "#"), "\t")
			break
		}
	}
	if header == nil {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("reading dosage list: %w", err)
		}
		return nil, fmt.Errorf("dosage list: missing header")
	}

	symbolIdx, geneIDIdx, hiIdx, tsIdx := -1, -1, -1, -1
	for i, col := range header {
		switch strings.TrimSpace(col) {
		case "Gene Symbol":
			symbolIdx = i
		case "Gene ID":
			geneIDIdx = i
		case "Haploinsufficiency Score":
			hiIdx = i
		case "Triplosensitivity Score":
			tsIdx = i
		}
	}
	if symbolIdx < 0 {
		return nil, fmt.Errorf("dosage list: missing 'Gene Symbol' column")
	}
	if hiIdx < 0 {
		return nil, fmt.Errorf("dosage list: missing 'Haploinsufficiency Score' column")
	}

	list := make(DosageList)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || line[0] == '#' {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) <= symbolIdx || len(fields) <= hiIdx {
			continue
		}
		symbol := strings.TrimSpace(fields[symbolIdx])
		if symbol == "" {
			continue
		}
		d := &Dosage{Symbol: symbol, HIScore: parseScore(fields[hiIdx])}
		if geneIDIdx >= 0 && geneIDIdx < len(fields) {
			d.GeneID = strings.TrimSpace(fields[geneIDIdx])
		}
		if tsIdx >= 0 && tsIdx < len(fields) {
			d.TSScore = parseScore(fields[tsIdx])
		}
		list[symbol] = d
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading dosage list: %w", err)
	}
	return list, nil
}

// parseScore returns nil for "Not yet evaluated" and other non-numeric values.
func parseScore(s string) *int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	return &v
}
