package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"clinicianmart/internal/config"
	"clinicianmart/internal/dataset"
	"clinicianmart/internal/datasource"
	"clinicianmart/internal/datasource/file"
	"clinicianmart/internal/metrics"
	"clinicianmart/internal/output"
	"clinicianmart/internal/parser/csv"
	"clinicianmart/internal/pipeline"
	"clinicianmart/internal/storage"
	"clinicianmart/internal/transformer/builtin"
)

// env carries the process collaborators run needs; tests substitute them.
type env struct {
	stdout  io.Writer
	stderr  io.Writer // config warnings; nil means os.Stderr
	metrics *metrics.Recorder
	clock   output.Clock // nil means time.Now
}

// run executes one mart build. Every required path is checked before anything
// is read or written.
func run(ctx context.Context, o options, e env) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if e.stderr == nil {
		e.stderr = os.Stderr
	}
	if e.metrics == nil {
		e.metrics = metrics.NewRecorder(o.job, nil)
	}
	runID := uuid.NewString()
	start := time.Now()

	cfg, err := loadConfig(o)
	if err != nil {
		return err
	}

	// Errors come back from PipelineSpec.
	for _, iss := range config.Validate(cfg) {
		if iss.Severity == config.SeverityWarning {
			fmt.Fprintf(e.stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
		}
	}
	spec, err := cfg.PipelineSpec()
	if err != nil {
		log.Printf("Configuration is invalid: %v", o.config)
		return fmt.Errorf("%s: %w", o.config, err)
	}
	if o.validate {
		log.Printf("Configuration is valid: %v", o.config)
		return nil
	}

	parse := csv.NewParser(cfg.Input.ReaderOptions())
	clinician, err := datasource.Load(ctx, file.NewLocal(o.clinician), parse, builtin.SourceClinician)
	if err != nil {
		return err
	}
	provider, err := datasource.Load(ctx, file.NewLocal(o.provider), parse, builtin.SourceProvider)
	if err != nil {
		return err
	}
	if o.verbose {
		log.Printf("run=%s loaded clinician=%d provider=%d", runID, clinician.Len(), provider.Len())
	}

	res, err := pipeline.Run(spec, clinician, provider)
	if err != nil {
		var perr *pipeline.Error
		if errors.As(err, &perr) {
			recordSteps(e.metrics, perr.Stats)
		}
		return err
	}
	recordSteps(e.metrics, res.Stats)

	epoch := output.Epoch(e.clock)
	plan := output.NewPlan(output.Layout{
		StageFolder: cfg.StageFolder,
		MartFolder:  cfg.MartFolder,
		Prefix:      cfg.TargetPrefix,
	}, epoch, res)
	written, err := output.Write(plan, csv.WriteDataset)
	for _, a := range written {
		e.metrics.RecordArtifact(a.Kind)
		if o.verbose {
			log.Printf("run=%s wrote %s (%s) rows=%d", runID, a.Path, a.Mode, a.Data.Len())
		}
	}
	if err != nil {
		return err
	}

	if cfg.MartDB != nil {
		n, err := loadMartDB(ctx, cfg.MartDB, res.Mart)
		if err != nil {
			return err
		}
		e.metrics.RecordArtifact("db")
		log.Printf("run=%s loaded %d rows into %s table %s", runID, n, cfg.MartDB.Kind, cfg.MartDB.Table)
	}

	st := res.Stats
	log.Printf("summary: run=%s epoch=%d clinician=%d provider=%d unified=%d filtered=%d deduped=%d elapsed=%s",
		runID, epoch, st.Clinician, st.Provider, st.Unified, st.Filtered, st.Deduped,
		time.Since(start).Truncate(time.Millisecond))
	if !st.Conserved() {
		log.Printf("warning: run=%s unified=%d != clinician+provider=%d", runID, st.Unified, st.Clinician+st.Provider)
	}

	fmt.Fprintf(e.stdout, "Done. Wrote %d rows to target\n", res.Mart.Len())
	return nil
}

// loadConfig checks every required path, including the folders named in the
// config, and reports all missing ones together. A config that fails to
// decode is reported alongside the missing input paths.
func loadConfig(o options) (*config.Config, error) {
	checks := []config.PathCheck{
		{Label: "config", Path: o.config},
		{Label: "clinician input", Path: o.clinician},
		{Label: "provider input", Path: o.provider},
	}

	var (
		cfg     *config.Config
		loadErr error
	)
	if fi, err := os.Stat(o.config); err == nil {
		if fi.IsDir() {
			loadErr = fmt.Errorf("config %q: is a directory", o.config)
		} else if cfg, loadErr = config.Load(o.config); loadErr == nil {
			checks = append(checks, cfg.Paths()...)
		}
	}
	if err := errors.Join(loadErr, config.CheckPaths(checks...)); err != nil {
		return nil, err
	}
	return cfg, nil
}

func recordSteps(rec *metrics.Recorder, st pipeline.Stats) {
	for _, s := range st.Steps {
		rec.RecordStep(s.Name, s.Err, s.Duration)
	}
	rec.RecordRows("clinician", st.Clinician)
	rec.RecordRows("provider", st.Provider)
	rec.RecordRows("unified", st.Unified)
	rec.RecordRows("filtered", st.Filtered)
	rec.RecordRows("deduped", st.Deduped)
}

func loadMartDB(ctx context.Context, db *config.MartDB, mart *dataset.Dataset) (int64, error) {
	cfg := storage.Config{
		Kind:            db.Kind,
		DSN:             db.DSN,
		Table:           db.Table,
		AutoCreateTable: db.AutoCreateTable,
		Replace:         db.Replace,
	}
	repo, err := storage.New(ctx, cfg)
	if err != nil {
		return 0, fmt.Errorf("mart_db: %w", err)
	}
	defer repo.Close()

	n, err := storage.Load(ctx, repo, cfg, mart)
	if err != nil {
		return n, fmt.Errorf("mart_db: %w", err)
	}
	return n, nil
}
