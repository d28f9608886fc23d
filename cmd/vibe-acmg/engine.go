package main

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/inodb/vibe-acmg/internal/acmg"
	"github.com/inodb/vibe-acmg/internal/datasource/alphamissense"
	"github.com/inodb/vibe-acmg/internal/datasource/clingen"
	"github.com/inodb/vibe-acmg/internal/duckdb"
	"github.com/inodb/vibe-acmg/internal/gateway"
	"github.com/inodb/vibe-acmg/internal/metrics"
	"github.com/inodb/vibe-acmg/internal/panel"
	"github.com/inodb/vibe-acmg/internal/regions"
	"github.com/inodb/vibe-acmg/internal/resolve"
)

// session holds an engine and the resources it needs closed.
type session struct {
	engine  *acmg.Engine
	panels  *panel.Registry
	store   *duckdb.Store // nil when the cache is disabled
	closers []func() error
}

func (r *session) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		_ = r.closers[i]()
	}
}

// openStore opens the DuckDB store at the configured cache path.
func (a *app) openStore() (*duckdb.Store, error) {
	store, err := duckdb.Open(a.cfg.Cache.Path)
	if err != nil {
		return nil, fmt.Errorf("open cache %s: %w", a.cfg.Cache.Path, err)
	}
	return store, nil
}

// loadPanels returns the built-in panels plus the configured panel file.
func (a *app) loadPanels() (*panel.Registry, error) {
	reg, err := panel.Builtin()
	if err != nil {
		return nil, err
	}
	reg.SetLogger(a.logger)
	if a.cfg.Panels.Path != "" {
		if err := reg.LoadFile(a.cfg.Panels.Path); err != nil {
			return nil, err
		}
		a.logger.Info("loaded panel file", zap.String("path", a.cfg.Panels.Path))
	}
	return reg, nil
}

// newSession wires the gateways, local sources and panels into an engine.
// m may be nil.
func (a *app) newSession(m *metrics.Collector) (*session, error) {
	s := &session{}
	ok := false
	defer func() {
		if !ok {
			s.Close()
		}
	}()

	opts := gateway.Options{
		HTTPClient: &http.Client{Timeout: a.cfg.HTTP.Timeout},
		Retries:    a.cfg.HTTP.Retries,
		Logger:     a.logger,
	}
	if m != nil {
		opts.Recorder = m
	}
	if a.cfg.Cache.Enabled {
		store, err := a.openStore()
		if err != nil {
			return nil, err
		}
		s.store = store
		s.closers = append(s.closers, store.Close)
		opts.Cache = store
	}

	mehari := gateway.NewMehariClient(a.cfg.Services.MehariURL, opts)
	annonars := gateway.NewAnnonarsClient(a.cfg.Services.AnnonarsURL, opts)
	dotty := gateway.NewDottyClient(a.cfg.Services.DottyURL, opts)

	resolver := resolve.NewResolver(dotty)
	resolver.SetLogger(a.logger)

	panels, err := a.loadPanels()
	if err != nil {
		return nil, err
	}
	s.panels = panels

	engineOpts := acmg.Options{
		Build:             a.cfg.Build(),
		Panels:            panels,
		DuplicationTandem: a.cfg.Classify.DuplicationTandem,
	}
	if m != nil {
		engineOpts.Observer = m
	}

	if p := a.cfg.Regions.Repeats; p != "" {
		idx, err := regions.LoadBED(p)
		if err != nil {
			return nil, fmt.Errorf("load repeat regions: %w", err)
		}
		engineOpts.Repeats = idx
		a.logger.Info("loaded repeat regions", zap.String("path", p), zap.Int("regions", idx.Len()))
	}
	if p := a.cfg.Regions.Domains; p != "" {
		idx, err := regions.LoadBED(p)
		if err != nil {
			return nil, fmt.Errorf("load domain regions: %w", err)
		}
		engineOpts.Domains = idx
		a.logger.Info("loaded domain regions", zap.String("path", p), zap.Int("regions", idx.Len()))
	}

	if p := a.cfg.AlphaMissense.Path; p != "" {
		am, err := alphamissense.Open(p)
		if err != nil {
			return nil, fmt.Errorf("open alphamissense: %w", err)
		}
		s.closers = append(s.closers, am.Close)
		if am.Loaded() {
			engineOpts.ScoreFillers = append(engineOpts.ScoreFillers, alphamissense.NewSource(am))
		} else {
			a.logger.Warn("alphamissense store is empty; run `vibe-acmg alphamissense load`", zap.String("path", p))
		}
	}
	if p := a.cfg.ClinGen.Path; p != "" {
		list, err := clingen.LoadDosageList(p)
		if err != nil {
			return nil, fmt.Errorf("load clingen dosage list: %w", err)
		}
		engineOpts.GeneFillers = append(engineOpts.GeneFillers, clingen.NewSource(list))
		a.logger.Info("loaded clingen dosage list", zap.String("path", p), zap.Int("genes", len(list)))
	}

	s.engine = acmg.New(resolver, mehari, annonars, engineOpts)
	s.engine.SetLogger(a.logger)
	ok = true
	return s, nil
}
