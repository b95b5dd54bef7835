// =============================================================================
// ITBP Report Generator - Run Orchestration
// =============================================================================
//
// This module drives one generation run:
//
//   1. Read and validate the settlement detail files     (fatal on error)
//   2. Fetch and parse the reference catalogs            (fatal on error)
//   3. Apply the pre-partition corrections, split into
//      (country, output group) partitions
//   4. Build the Procesado and Revenue reports of each partition
//   5. Render the reports to XLSX and zip them
//   6. Store the archive and the run summary
//
// PARTITION ISOLATION:
//   A partition that fails, or panics, is recorded and logged; the remaining
//   partitions are still processed. A country missing from the Procesadora
//   catalog is a skip, not a failure.
//
// =============================================================================

package generator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ginjaninja78/itbp-report-generator/internal/catalog"
	"github.com/ginjaninja78/itbp-report-generator/internal/config"
	"github.com/ginjaninja78/itbp-report-generator/internal/ledger"
	"github.com/ginjaninja78/itbp-report-generator/internal/logger"
	"github.com/ginjaninja78/itbp-report-generator/internal/packager"
	"github.com/ginjaninja78/itbp-report-generator/internal/partition"
	"github.com/ginjaninja78/itbp-report-generator/internal/storage"
	"github.com/ginjaninja78/itbp-report-generator/internal/types"
	"github.com/ginjaninja78/itbp-report-generator/pkg/utils"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrNoInput is returned when a run is started without detail files.
var ErrNoInput = errors.New("no input files")

// Store fetches the catalog workbook and stores run outputs.
type Store interface {
	storage.Fetcher
	storage.Putter
}

// =============================================================================
// GENERATOR
// =============================================================================

// Generator runs report generation with a fixed configuration.
type Generator struct {
	cfg   *config.MainConfig
	store Store
	log   zerolog.Logger
	runID string

	// now is replaceable in tests.
	now func() time.Time
}

// New creates a Generator. Every run it performs is tagged with a fresh
// run id.
func New(cfg *config.MainConfig, store Store, log zerolog.Logger) *Generator {
	runID := uuid.New().String()
	return &Generator{
		cfg:   cfg,
		store: store,
		log:   logger.WithRun(log, runID),
		runID: runID,
		now:   time.Now,
	}
}

// RunID returns the identifier attached to this generator's logs.
func (g *Generator) RunID() string {
	return g.runID
}

// Options tune a single run.
type Options struct {
	// DryRun builds every report but stores nothing.
	DryRun bool
}

// Result contains the outcome of a run.
type Result struct {
	RunID        string
	InputFiles   []string
	Transactions int
	Partitions   int

	// Tables holds the generated reports in partition order.
	Tables []types.NamedTable

	Skipped []utils.PartitionIssue
	Failed  []utils.PartitionIssue

	ArchiveName     string
	ArchiveLocation string
	SummaryLocation string

	StartTime time.Time
	EndTime   time.Time
}

// FileNames lists the generated report names.
func (r *Result) FileNames() []string {
	names := make([]string, len(r.Tables))
	for i, t := range r.Tables {
		names[i] = t.Name
	}
	return names
}

// Run executes a full generation run.
//
// PARAMETERS:
//   - ctx: Bounds catalog retrieval and storage; checked between partitions.
//   - inputs: The settlement detail files (.xlsx, .xls or .csv).
//   - opts: Run options.
//
// RETURNS:
//   - The run result. Partition skips and failures are reported in it.
//   - An error if the inputs or catalogs are invalid, or if the archive
//     cannot be built or stored.
func (g *Generator) Run(ctx context.Context, inputs []string, opts Options) (*Result, error) {
	result := &Result{
		RunID:      g.runID,
		InputFiles: inputs,
		StartTime:  g.now(),
	}

	if len(inputs) == 0 {
		return nil, ErrNoInput
	}

	g.log.Info().Int("files", len(inputs)).Msg("Reading settlement detail files")
	txns, err := LoadTransactions(inputs, g.cfg.CSVSettings)
	if err != nil {
		return nil, fmt.Errorf("input validation failed: %w", err)
	}
	result.Transactions = len(txns)

	cat, err := g.LoadCatalogs(ctx)
	if err != nil {
		return nil, err
	}

	if err := g.Process(ctx, txns, cat, result); err != nil {
		return nil, err
	}

	if len(result.Tables) == 0 {
		g.log.Warn().
			Int("partitions", result.Partitions).
			Msg("No files generated: every partition was skipped or failed")
	} else if err := g.publish(ctx, result, opts); err != nil {
		return nil, err
	}

	result.EndTime = g.now()

	if !opts.DryRun && !g.cfg.SkipSummary {
		if err := g.writeSummary(ctx, result); err != nil {
			// Summary failures are logged only.
			g.log.Error().Err(err).Msg("Failed to write run summary")
		}
	}

	g.log.Info().
		Int("transactions", result.Transactions).
		Int("partitions", result.Partitions).
		Int("files", len(result.Tables)).
		Int("skipped", len(result.Skipped)).
		Int("failed", len(result.Failed)).
		Dur("duration", result.EndTime.Sub(result.StartTime)).
		Msg("Run finished")

	return result, nil
}

// LoadCatalogs fetches the configured catalog workbook within the catalog
// timeout.
func (g *Generator) LoadCatalogs(ctx context.Context) (*catalog.Catalogs, error) {
	if g.cfg.CatalogTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.CatalogTimeout)
		defer cancel()
	}

	g.log.Info().Str("source", g.cfg.CatalogURL).Msg("Loading reference catalogs")
	cat, err := catalog.Load(ctx, g.store, g.cfg.CatalogURL, g.log)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalogs: %w", err)
	}

	g.log.Info().
		Int("merchants", len(cat.Merchants)).
		Int("transaction_types", len(cat.TxnDescriptions)).
		Int("countries", len(cat.Processors)).
		Msg("Catalogs loaded")
	return cat, nil
}

// =============================================================================
// PARTITION PROCESSING
// =============================================================================

// Process corrects and partitions txns and builds each partition's reports
// into result. It only fails when ctx is cancelled.
func (g *Generator) Process(ctx context.Context, txns []types.Transaction, cat *catalog.Catalogs, result *Result) error {
	parts := partition.Split(partition.Correct(txns))
	result.Partitions = len(parts)

	builder := ledger.NewBuilder(cat, g.log)
	for _, p := range parts {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("run cancelled: %w", err)
		}

		period := p.Period.Format("2006-01-02")
		plog := g.log.With().Str("country", p.Country).Str("period", period).Logger()
		plog.Info().
			Int("transactions", len(p.Transactions)).
			Msgf("Procesando País: %s | Fecha Grupo: %s", p.Country, period)

		tables, err := buildPartition(builder, p)
		switch {
		case errors.Is(err, ledger.ErrCountryNotMapped):
			result.Skipped = append(result.Skipped, issue(p, err))
		case err != nil:
			plog.Error().Err(err).Msg("Partition failed")
			result.Failed = append(result.Failed, issue(p, err))
		default:
			result.Tables = append(result.Tables, tables...)
		}
	}
	return nil
}

// buildPartition runs the builder, converting a panic into an error.
func buildPartition(b *ledger.Builder, p partition.Partition) (tables []types.NamedTable, err error) {
	defer func() {
		if r := recover(); r != nil {
			tables = nil
			err = fmt.Errorf("panic while building %s %s: %v", p.Country, p.PeriodKey(), r)
		}
	}()
	return b.Build(p)
}

func issue(p partition.Partition, err error) utils.PartitionIssue {
	return utils.PartitionIssue{
		Country: p.Country,
		Period:  p.PeriodKey(),
		Message: err.Error(),
	}
}

// =============================================================================
// OUTPUT
// =============================================================================

// publish renders and zips the reports and stores the archive.
func (g *Generator) publish(ctx context.Context, result *Result, opts Options) error {
	files, err := packager.Render(result.Tables)
	if err != nil {
		return fmt.Errorf("failed to render reports: %w", err)
	}

	archive, err := packager.Pack(files, result.StartTime)
	if err != nil {
		return fmt.Errorf("failed to build archive: %w", err)
	}

	result.ArchiveName = utils.GenerateArchiveName(
		g.cfg.ArchiveNameFormat,
		map[string]string{"run_id": g.runID},
		result.StartTime,
	)

	if opts.DryRun {
		g.log.Info().
			Str("archive", result.ArchiveName).
			Int("bytes", len(archive)).
			Msg("Dry run: archive not stored")
		return nil
	}

	location, err := g.store.Put(ctx, g.cfg.OutputDir, result.ArchiveName, archive)
	if err != nil {
		return fmt.Errorf("failed to store archive: %w", err)
	}
	result.ArchiveLocation = location

	g.log.Info().
		Str("archive", location).
		Int("files", len(files)).
		Msg("Archive stored")
	return nil
}

func (g *Generator) writeSummary(ctx context.Context, result *Result) error {
	var buf bytes.Buffer
	err := utils.WriteRunSummary(&buf, utils.RunSummary{
		RunID:        result.RunID,
		StartTime:    result.StartTime,
		EndTime:      result.EndTime,
		InputFiles:   result.InputFiles,
		Transactions: result.Transactions,
		Partitions:   result.Partitions,
		Archive:      result.ArchiveLocation,
		Generated:    result.FileNames(),
		Skipped:      result.Skipped,
		Failed:       result.Failed,
	})
	if err != nil {
		return err
	}

	name := utils.SummaryFileName(result.RunID, result.StartTime)
	location, err := g.store.Put(ctx, g.cfg.OutputDir, name, buf.Bytes())
	if err != nil {
		return err
	}
	result.SummaryLocation = location
	return nil
}
