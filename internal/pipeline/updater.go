package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/gridcap-etl/internal/domain"
	"github.com/couchcryptid/gridcap-etl/internal/observability"
	"github.com/couchcryptid/gridcap-etl/internal/report"
)

// DefaultUTMZone is used for easting/northing columns when Options.UTMZone is
// zero. Mainland Portugal lies mostly in zone 29.
const DefaultUTMZone = 29

var (
	// ErrAPIColumns means the capacity records lack a required field.
	ErrAPIColumns = errors.New("API columns not detected")
	// ErrWorkbookColumns means the workbook lacks a required column.
	ErrWorkbookColumns = errors.New("workbook column missing")
)

// CapacitySource fetches substation capacity records.
type CapacitySource interface {
	FetchCapacity(ctx context.Context, installation string) (*domain.Table, error)
}

// WorkbookStore reads and saves the substations workbook.
type WorkbookStore interface {
	Read(path string) (*domain.Table, error)
	Write(path string, t *domain.Table) error
	Backup(path string) (string, error)
}

// ChangePublisher emits one event per updated workbook row.
type ChangePublisher interface {
	Publish(ctx context.Context, events []domain.ChangeEvent) error
}

// Options are the per-run inputs of an update.
type Options struct {
	WorkbookPath string
	Installation string // exact installation filter; empty fetches all
	CSVDir       string // defaults to the workbook's directory
	KMZPath      string // empty skips the KMZ
	IconOn       string
	IconOff      string
	UTMZone      int // zone for easting/northing columns; 0 means DefaultUTMZone
	Backup       bool
}

// Summary reports what a run did.
type Summary struct {
	RunID        string
	Fetched      int
	Exact        int
	Fallback     int
	Unmatched    int
	Updated      int
	Published    int
	Placemarks   int
	UpdatedCSV   string
	UnmatchedCSV string
	BackupPath   string
	KMZPath      string
}

// Updater refreshes the capacity columns of the substations workbook from the
// E-REDES API and produces the audit CSVs, change events and KMZ.
type Updater struct {
	source    CapacitySource
	store     WorkbookStore
	publisher ChangePublisher
	geocoder  domain.Geocoder
	aliases   domain.AliasSet
	conv      domain.SignConvention
	logger    *slog.Logger
	metrics   *observability.Metrics
	runID     func() string
}

// Option configures an Updater.
type Option func(*Updater)

// WithPublisher enables the change feed.
func WithPublisher(p ChangePublisher) Option {
	return func(u *Updater) { u.publisher = p }
}

// WithGeocoder fills KMZ coordinates for rows that have none.
func WithGeocoder(g domain.Geocoder) Option {
	return func(u *Updater) { u.geocoder = g }
}

// WithAliases replaces the default column aliases.
func WithAliases(a domain.AliasSet) Option {
	return func(u *Updater) { u.aliases = a }
}

// WithSignConvention sets how unsigned longitudes are read.
func WithSignConvention(c domain.SignConvention) Option {
	return func(u *Updater) { u.conv = c }
}

// New creates an Updater.
func New(source CapacitySource, store WorkbookStore, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Updater {
	u := &Updater{
		source:  source,
		store:   store,
		aliases: domain.DefaultAliases(),
		conv:    domain.WestDefault,
		logger:  logger,
		metrics: metrics,
		runID:   uuid.NewString,
	}
	for _, o := range opts {
		o(u)
	}
	return u
}

// Run executes one update. Failures before the workbook is saved abort the
// run; a KMZ failure is only logged. A change-feed failure is returned after
// the KMZ has been written.
func (u *Updater) Run(ctx context.Context, opts Options) (Summary, error) {
	start := time.Now()
	sum := Summary{RunID: u.runID()}
	logger := u.logger.With("run_id", sum.RunID)

	logger.Info("fetching capacity records", "installation", opts.Installation)
	api, err := u.source.FetchCapacity(ctx, opts.Installation)
	if err != nil {
		return sum, fmt.Errorf("fetch capacity: %w", err)
	}
	sum.Fetched = api.Len()
	u.metrics.RecordsFetched.Add(float64(api.Len()))
	if api.Len() == 0 {
		logger.Warn("API returned no records, nothing to update")
	}
	apiCols, err := domain.ResolveColumns(api.Columns, u.aliases.API)
	if err != nil {
		return sum, fmt.Errorf("%w: %w", ErrAPIColumns, err)
	}

	logger.Info("loading workbook", "path", opts.WorkbookPath)
	wb, err := u.store.Read(opts.WorkbookPath)
	if err != nil {
		return sum, fmt.Errorf("read workbook: %w", err)
	}
	wbCols, err := domain.ResolveColumns(wb.Columns, u.aliases.Workbook)
	if err != nil {
		return sum, fmt.Errorf("%w: %w", ErrWorkbookColumns, err)
	}

	logger.Info("merging", "api_records", api.Len(), "workbook_rows", wb.Len())
	res := domain.MergeByKey(wb, api, substationMerge(wbCols, apiCols))
	sum.Exact = res.Count(domain.MatchExact)
	sum.Fallback = res.Count(domain.MatchFallback)
	sum.Unmatched = res.Count(domain.MatchNone)
	for _, k := range []domain.MatchKind{domain.MatchExact, domain.MatchFallback, domain.MatchNone} {
		u.metrics.RowsMatched.WithLabelValues(k.String()).Add(float64(res.Count(k)))
	}

	capCol, avCol := wbCols.Get(domain.FieldCapacity), wbCols.Get(domain.FieldAvailable)
	capMask := domain.ChangeMask(wb.Column(capCol), res.Table.Column(capCol))
	avMask := domain.ChangeMask(wb.Column(avCol), res.Table.Column(avCol))
	changed := domain.AnyChanged(capMask, avMask)

	updated := updatedRows(wb, res.Table, wbCols, changed)
	unmatched := unmatchedRows(wb, wbCols, res.Unmatched())
	sum.Updated = updated.Len()
	u.metrics.RowsUpdated.Add(float64(updated.Len()))
	logger.Info("merge summary",
		"updated", sum.Updated,
		"unmatched", sum.Unmatched,
		"exact", sum.Exact,
		"fallback", sum.Fallback,
	)
	for _, r := range unmatched.Rows {
		logger.Info("no match",
			"substation", domain.FormatValue(r[wbCols.Get(domain.FieldSubstation)]),
			"municipality", domain.FormatValue(r[wbCols.Get(domain.FieldMunicipality)]),
			"district", domain.FormatValue(r[wbCols.Get(domain.FieldDistrict)]),
		)
	}

	if err := u.writeReports(opts, updated, unmatched, &sum); err != nil {
		return sum, err
	}

	if opts.Backup {
		sum.BackupPath, err = u.store.Backup(opts.WorkbookPath)
		if err != nil {
			return sum, err
		}
		logger.Info("backup created", "path", sum.BackupPath)
	}
	if err := u.store.Write(opts.WorkbookPath, res.Table); err != nil {
		return sum, fmt.Errorf("save workbook: %w", err)
	}
	logger.Info("workbook updated", "path", opts.WorkbookPath)

	publishErr := u.publishChanges(ctx, logger, sum.RunID, wb, res, wbCols, capMask, avMask, &sum)

	if opts.KMZPath != "" {
		n, err := u.writeKMZ(ctx, logger, res.Table, wbCols, opts)
		if err != nil {
			logger.Warn("KMZ generation failed", "path", opts.KMZPath, "error", err)
		} else {
			sum.Placemarks = n
			sum.KMZPath = opts.KMZPath
			u.metrics.PlacemarksWritten.Add(float64(n))
			logger.Info("KMZ written", "path", opts.KMZPath, "placemarks", n)
		}
	}

	u.metrics.RunDuration.Observe(time.Since(start).Seconds())
	if publishErr != nil {
		return sum, publishErr
	}
	u.metrics.LastSuccess.SetToCurrentTime()
	return sum, nil
}

// substationMerge joins on substation + municipality + district, falling back
// to the substation name alone.
func substationMerge(wb, api domain.ColumnMap) domain.MergeSpec {
	key := func(field string) domain.KeyColumn {
		return domain.KeyColumn{Primary: wb.Get(field), Secondary: api.Get(field)}
	}
	target := func(field string) domain.TargetColumn {
		return domain.TargetColumn{Primary: wb.Get(field), Secondary: api.Get(field)}
	}
	return domain.MergeSpec{
		Keys: []domain.KeyColumn{
			key(domain.FieldSubstation),
			key(domain.FieldMunicipality),
			key(domain.FieldDistrict),
		},
		Fallback: key(domain.FieldSubstation),
		Targets: []domain.TargetColumn{
			target(domain.FieldCapacity),
			target(domain.FieldAvailable),
		},
	}
}

func updatedRows(before, after *domain.Table, cols domain.ColumnMap, changed []bool) *domain.Table {
	out := domain.NewTable("updated_rows",
		"Substation", "Municipality", "District",
		"Capacity_before", "Capacity_after",
		"Available_before", "Available_after",
	)
	capCol, avCol := cols.Get(domain.FieldCapacity), cols.Get(domain.FieldAvailable)
	for i, c := range changed {
		if !c {
			continue
		}
		out.Append(domain.Record{
			"Substation":       after.Value(i, cols.Get(domain.FieldSubstation)),
			"Municipality":     after.Value(i, cols.Get(domain.FieldMunicipality)),
			"District":         after.Value(i, cols.Get(domain.FieldDistrict)),
			"Capacity_before":  before.Value(i, capCol),
			"Capacity_after":   after.Value(i, capCol),
			"Available_before": before.Value(i, avCol),
			"Available_after":  after.Value(i, avCol),
		})
	}
	return out
}

func unmatchedRows(wb *domain.Table, cols domain.ColumnMap, rows []int) *domain.Table {
	header := []string{
		cols.Get(domain.FieldSubstation),
		cols.Get(domain.FieldMunicipality),
		cols.Get(domain.FieldDistrict),
	}
	out := domain.NewTable("unmatched", header...)
	for _, i := range rows {
		rec := make(domain.Record, len(header))
		for _, h := range header {
			rec[h] = wb.Value(i, h)
		}
		out.Append(rec)
	}
	return out
}

func (u *Updater) writeReports(opts Options, updated, unmatched *domain.Table, sum *Summary) error {
	dir := opts.CSVDir
	if dir == "" {
		dir = filepath.Dir(opts.WorkbookPath)
	}
	base := filepath.Base(opts.WorkbookPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	sum.UpdatedCSV = filepath.Join(dir, stem+"_updated_rows.csv")
	sum.UnmatchedCSV = filepath.Join(dir, stem+"_unmatched.csv")
	if err := report.WriteCSV(sum.UpdatedCSV, updated); err != nil {
		return fmt.Errorf("updated rows report: %w", err)
	}
	if err := report.WriteCSV(sum.UnmatchedCSV, unmatched); err != nil {
		return fmt.Errorf("unmatched report: %w", err)
	}
	u.logger.Info("reports written", "updated", sum.UpdatedCSV, "unmatched", sum.UnmatchedCSV)
	return nil
}
