package knowledge

import (
	"context"
	"log/slog"
	"time"

	"linenote/internal/domain"
	"linenote/internal/metrics"
)

// Entry is the content of one note before it is shaped into a record.
type Entry struct {
	Result    domain.ExtractionResult
	Digest    string
	SenderID  string
	MediaLink string
}

type AdapterConfig struct {
	Writer      domain.NoteWriter // nil disables persistence
	Location    *time.Location
	CallTimeout time.Duration
	Logger      *slog.Logger
}

// Adapter writes notes. The knowledge base is supplementary, so a failed
// write is logged and counted but never returned.
type Adapter struct {
	writer  domain.NoteWriter
	loc     *time.Location
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

func NewAdapter(cfg AdapterConfig) *Adapter {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Adapter{
		writer:  cfg.Writer,
		loc:     cfg.Location,
		timeout: cfg.CallTimeout,
		logger:  cfg.Logger,
		now:     time.Now,
	}
}

// Record shapes an entry into the record that Save writes.
func (a *Adapter) Record(e Entry) domain.NoteRecord {
	created := a.now().In(a.loc)
	noteType := NoteTypeFor(e.Result)
	return domain.NoteRecord{
		Title:     Title(noteType, created),
		NoteType:  noteType,
		CreatedAt: created,
		Segments:  Segment(e.Result.Text, SegmentLimit),
		Digest:    e.Digest,
		SourceURL: e.Result.URL,
		SenderID:  e.SenderID,
		MediaLink: e.MediaLink,
	}
}

// Save writes one note and reports whether the write succeeded. Entries
// without text are never written.
func (a *Adapter) Save(ctx context.Context, e Entry) bool {
	if e.Result.Empty() {
		return false
	}
	if a.writer == nil {
		a.logger.Debug("no knowledge backend configured, note not saved")
		return false
	}

	rec := a.Record(e)
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	started := time.Now()
	err := a.writer.CreateNote(ctx, rec)
	metrics.ObserveCall("knowledge", time.Since(started))
	if err != nil {
		a.logger.Error("note not saved", "title", rec.Title, "segments", len(rec.Segments), "err", err)
		metrics.PersistenceFailures.Inc()
		return false
	}

	a.logger.Info("note saved", "title", rec.Title, "type", rec.NoteType, "segments", len(rec.Segments))
	metrics.NotesPersisted.Inc()
	return true
}
