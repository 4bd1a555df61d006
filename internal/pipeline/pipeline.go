package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/fuel-tracker/internal/fuellog"
	"github.com/zombor/fuel-tracker/internal/scanning"
	"github.com/zombor/fuel-tracker/internal/storage"
)

// DefaultCarID is used when no car is configured
const DefaultCarID = "audi_a4_2019"

// IDGenerator generates unique IDs for records
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type uuidGenerator struct{}

func (uuidGenerator) Generate() string {
	return uuid.NewString()
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// Config holds the per-deployment settings of the pipeline
type Config struct {
	// CarID is stamped on every record
	CarID string
}

// Pipeline turns upload-completed events into fuel log records
type Pipeline struct {
	cfg     Config
	storage storage.Storage
	scanner scanning.Scanner
	db      fuellog.DB
	ids     IDGenerator
	clock   TimeSource
	metrics *Metrics
}

// New creates a Pipeline with UUID ids, the system clock and fresh metrics
func New(cfg Config, store storage.Storage, scanner scanning.Scanner, db fuellog.DB) *Pipeline {
	return NewWithDeps(cfg, store, scanner, db, uuidGenerator{}, systemClock{}, NewMetrics())
}

// NewWithDeps creates a Pipeline with custom dependencies for testing
func NewWithDeps(cfg Config, store storage.Storage, scanner scanning.Scanner, db fuellog.DB, ids IDGenerator, clock TimeSource, metrics *Metrics) *Pipeline {
	if cfg.CarID == "" {
		cfg.CarID = DefaultCarID
	}
	return &Pipeline{
		cfg:     cfg,
		storage: store,
		scanner: scanner,
		db:      db,
		ids:     ids,
		clock:   clock,
		metrics: metrics,
	}
}

// Metrics returns the pipeline's metrics
func (p *Pipeline) Metrics() *Metrics {
	return p.metrics
}

// Process handles one upload event. It never returns an error: skips,
// duplicates and upstream failures are all reported through the Result.
func (p *Pipeline) Process(ctx context.Context, payload any) (result Result) {
	done := p.metrics.start()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Receipt pipeline panicked", "panic", r)
			result = failed(fmt.Errorf("internal error: %v", r))
		}
		done(result.Outcome())
	}()

	event, err := ParseEvent(payload)
	if err != nil {
		slog.Info("No event payload; skipping", "error", err)
		return skipped(ErrEmptyPayload.Error())
	}
	if !event.HasFile() {
		slog.Info("Missing bucketId or fileId; skipping", "bucket_id", event.BucketID, "file_id", event.FileID)
		return skipped("")
	}
	if !event.Complete() {
		slog.Info("Skipping partial upload", "file_id", event.FileID,
			"chunks_uploaded", event.ChunksUploaded, "chunks_total", event.ChunksTotal)
		return skipped("")
	}

	return p.extract(ctx, event)
}

func (p *Pipeline) extract(ctx context.Context, event *UploadEvent) Result {
	log := slog.With("bucket_id", event.BucketID, "file_id", event.FileID)

	data, err := p.storage.Download(ctx, event.BucketID, event.FileID)
	if err != nil {
		log.Error("Failed to download receipt", "error", err)
		return failed(fmt.Errorf("downloading receipt: %w", err))
	}

	extraction, err := p.scanner.ScanReceipt(ctx, data, event.MimeType)
	if err != nil {
		log.Error("Failed to scan receipt", "file_size", len(data), "content_type", event.MimeType, "error", err)
		return failed(fmt.Errorf("scanning receipt: %w", err))
	}

	fields := Normalize(extraction, p.clock.Now())
	log.Info("Parsed receipt",
		"date", fields.Date,
		"station", fields.StationName,
		"price_total", deref(fields.PriceTotal),
		"date_defaulted", fields.DateDefaulted,
	)

	existing, err := p.db.Query(ctx,
		fuellog.Equal("date", fields.Date),
		fuellog.Equal("stationName", fields.StationName),
		fuellog.Equal("priceTotal", fields.PriceTotal),
	)
	if err != nil {
		log.Error("Failed to check for duplicates", "error", err)
		return failed(fmt.Errorf("checking for duplicates: %w", err))
	}
	if existing.Total > 0 {
		log.Warn("Duplicate entry detected; skipping save",
			"date", fields.Date, "station", fields.StationName, "existing", existing.Total)
		return duplicate(existing.Total)
	}

	record := &fuellog.Record{
		CarID:         p.cfg.CarID,
		Date:          fields.Date,
		Liters:        fields.Liters,
		PricePerLiter: fields.PricePerLiter,
		PriceTotal:    fields.PriceTotal,
		StationName:   fields.StationName,
		Currency:      fields.Currency,
		ReceiptFileID: event.FileID,
		AIParsed:      true,
		NeedsReview:   fields.DateDefaulted,
	}
	// Users may read and correct records but never delete them
	permissions := []string{fuellog.Read(fuellog.RoleUsers), fuellog.Update(fuellog.RoleUsers)}

	saved, err := p.db.Insert(ctx, p.ids.Generate(), record, permissions)
	if errors.Is(err, fuellog.ErrDuplicate) {
		// Lost a race with a concurrent upload of the same receipt
		log.Warn("Duplicate entry detected on insert; skipping save", "date", fields.Date, "station", fields.StationName)
		return duplicate(1)
	}
	if err != nil {
		log.Error("Failed to save fuel log", "error", err)
		return failed(fmt.Errorf("saving fuel log: %w", err))
	}

	log.Info("Fuel log saved", "record_id", saved.ID)
	return Result{
		Success:       true,
		RecordID:      saved.ID,
		Liters:        saved.Liters,
		PriceTotal:    saved.PriceTotal,
		PricePerLiter: saved.PricePerLiter,
		StationName:   saved.StationName,
	}
}

func deref(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
