package panel

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"

	"go.uber.org/zap"

	"github.com/inodb/vibe-acmg/internal/criteria"
	"github.com/inodb/vibe-acmg/internal/gateway"
)

//go:embed tables/*.toml
var tables embed.FS

// Registry maps HGNC identifiers to gene rule records. It is built once at
// startup and read concurrently afterwards.
type Registry struct {
	panels []Panel
	genes  map[string]*compiled
	logger *zap.Logger
}

// NewRegistry returns an empty registry. Genes without a record use the
// engine defaults.
func NewRegistry() *Registry {
	return &Registry{
		genes:  make(map[string]*compiled),
		logger: zap.NewNop(),
	}
}

// Builtin returns a registry holding the panels shipped with the binary.
func Builtin() (*Registry, error) {
	r := NewRegistry()
	files, err := fs.Glob(tables, "tables/*.toml")
	if err != nil {
		return nil, err
	}
	for _, name := range files {
		data, err := tables.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		p, err := Parse(data, path.Base(name))
		if err != nil {
			return nil, err
		}
		if err := r.Add(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// SetLogger sets the logger used when panels replace earlier records.
func (r *Registry) SetLogger(l *zap.Logger) {
	r.logger = l
}

// Add registers every gene of p. A gene already registered by an earlier
// panel is replaced.
func (r *Registry) Add(p Panel) error {
	for _, g := range p.Genes {
		c, err := g.compile()
		if err != nil {
			return fmt.Errorf("panel %s: gene %s: %w", p.Name, g.label(), err)
		}
		c.panel = p.Name
		if prev, ok := r.genes[g.ID]; ok {
			r.logger.Info("gene rules replaced",
				zap.String("gene", g.ID),
				zap.String("previous", prev.panel),
				zap.String("panel", p.Name))
		}
		r.genes[g.ID] = c
	}
	r.panels = append(r.panels, p)
	return nil
}

// LoadFile parses a user panel file and adds it to the registry.
func (r *Registry) LoadFile(name string) error {
	data, err := os.ReadFile(name)
	if err != nil {
		return fmt.Errorf("read panel file: %w", err)
	}
	p, err := Parse(data, name)
	if err != nil {
		return err
	}
	return r.Add(p)
}

// Panels returns the registered panels in load order.
func (r *Registry) Panels() []Panel {
	if r == nil {
		return nil
	}
	return r.panels
}

// GeneInfo describes a registered gene.
type GeneInfo struct {
	ID     string
	Symbol string
	Panel  string
}

// Genes returns the registered genes sorted by symbol.
func (r *Registry) Genes() []GeneInfo {
	out := make([]GeneInfo, 0, len(r.genes))
	for id, c := range r.genes {
		out = append(out, GeneInfo{ID: id, Symbol: c.symbol, Panel: c.panel})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Symbol != out[j].Symbol {
			return out[i].Symbol < out[j].Symbol
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Has reports whether geneID has a rule record.
func (r *Registry) Has(geneID string) bool {
	_, ok := r.genes[geneID]
	return ok
}

// Effective returns the thresholds and rules for a variant with consequence
// csq in gene geneID. Both are fresh values: the caller owns them and
// nothing else refers to them. A gene without a record gets the defaults
// and zero rules.
func (r *Registry) Effective(geneID string, csq *gateway.Consequence) (criteria.Thresholds, criteria.GeneRules) {
	if r != nil {
		if c, ok := r.genes[geneID]; ok {
			return c.effective(csq)
		}
	}
	return criteria.DefaultThresholds(), criteria.GeneRules{}
}
