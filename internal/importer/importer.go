// Package importer turns an uploaded club report into directory entities and
// ledger sessions for one period date.
package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"union-ledger/internal/config"
	"union-ledger/internal/cycle"
	"union-ledger/internal/ledger"
	"union-ledger/internal/sheet"
	"union-ledger/internal/store"

	"github.com/rs/zerolog/log"
)

// Repository is everything an import writes to.
type Repository interface {
	DirectoryRepository
	cycle.Repository
	ledger.Repository
	CreateImportLog(ctx context.Context, l store.ImportLog) (string, error)
}

type Options struct {
	// PeriodOverride replaces the date read from the document.
	PeriodOverride    *time.Time
	AllowDateFallback bool
	SourceLabel       string
}

type Result struct {
	EntitiesCreated  int       `json:"entities_created"`
	SessionsImported int       `json:"sessions_imported"`
	SkippedEntities  int       `json:"skipped_entities"`
	SkippedRows      int       `json:"skipped_rows"`
	DroppedLines     int       `json:"dropped_lines"`
	PeriodDate       time.Time `json:"period_date"`
	CycleID          string    `json:"cycle_id"`
}

// Parsed is a document read into entities and line items, before any lookup.
type Parsed struct {
	PeriodDate  time.Time
	Sheets      []string
	Entities    []ExtractedEntity
	Lines       []LineItem
	SkippedRows int
}

// Parse reads a report without touching storage. The membership sheet is
// required. When the ring sheet is present its table lines are the cash
// source; otherwise the membership residual is used.
func Parse(doc []byte, opts Options, loc *time.Location, now time.Time) (*Parsed, error) {
	wb, err := sheet.Open(doc)
	if err != nil {
		return nil, err
	}
	member, ok := wb.Sheet(MemberSheet)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingSheet, MemberSheet)
	}
	period, err := resolvePeriod(wb, opts, loc, now)
	if err != nil {
		return nil, err
	}

	p := &Parsed{PeriodDate: period, Sheets: wb.Names(), Entities: ExtractHierarchy(member)}
	add := func(x Extraction) {
		p.Lines = append(p.Lines, x.Items...)
		p.SkippedRows += x.Skipped
	}
	if ring, ok := wb.Sheet(RingSheet); ok {
		add(ExtractRingSessions(ring))
	} else {
		add(ExtractMemberSessions(member))
	}
	if mtt, ok := wb.Sheet(TournamentSheet); ok {
		add(ExtractTournamentSessions(mtt))
	}
	return p, nil
}

type Service struct {
	repo     Repository
	cfg      config.ImportConfig
	loc      *time.Location
	resolver *Resolver
	cycles   *cycle.Manager
	ledger   *ledger.Reconciler
	metrics  *Metrics
	locks    *keyLock
	now      func() time.Time
}

func NewService(repo Repository, cfg config.ImportConfig, m *Metrics) *Service {
	return &Service{
		repo:     repo,
		cfg:      cfg,
		loc:      cfg.Location(),
		resolver: NewResolver(repo, cfg),
		cycles:   cycle.NewManager(repo),
		ledger:   ledger.New(repo, cfg.ChunkSize),
		metrics:  m,
		locks:    newKeyLock(),
		now:      time.Now,
	}
}

// ImportPeriod imports one report. Imports of the same period date run one at
// a time. Every attempt leaves an import log entry.
func (s *Service) ImportPeriod(ctx context.Context, doc []byte, opts Options) (Result, error) {
	started := s.now()
	if opts.SourceLabel == "" {
		opts.SourceLabel = s.cfg.SourceLabel
	}
	if !opts.AllowDateFallback {
		opts.AllowDateFallback = s.cfg.AllowDateFallback
	}
	runCtx := ctx
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	res, err := s.run(runCtx, doc, opts)
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %w", ErrImportTimeout, err)
	}
	s.record(ctx, opts.SourceLabel, res, err)

	status := string(store.ImportSucceeded)
	if err != nil {
		status = string(store.ImportFailed)
	}
	s.metrics.observe(status, started, res)

	if err != nil {
		log.Error().Err(err).Str("source", opts.SourceLabel).Msg("import failed")
		return res, err
	}
	log.Info().
		Str("source", opts.SourceLabel).
		Str("period", res.PeriodDate.Format("2006-01-02")).
		Int("entities_created", res.EntitiesCreated).
		Int("sessions", res.SessionsImported).
		Int("skipped_entities", res.SkippedEntities).
		Int("skipped_rows", res.SkippedRows).
		Int("dropped_lines", res.DroppedLines).
		Dur("took", time.Since(started)).
		Msg("import finished")
	return res, nil
}

func (s *Service) run(ctx context.Context, doc []byte, opts Options) (Result, error) {
	var res Result
	p, err := Parse(doc, opts, s.loc, s.now())
	if err != nil {
		return res, err
	}
	res.PeriodDate = p.PeriodDate
	res.SkippedRows = p.SkippedRows

	unlock, err := s.locks.Lock(ctx, p.PeriodDate.Format("2006-01-02"))
	if err != nil {
		return res, err
	}
	defer unlock()

	resolved, err := s.resolver.Resolve(ctx, p.Entities)
	if err != nil {
		return res, err
	}
	res.EntitiesCreated = resolved.Created
	res.SkippedEntities = resolved.SkippedEntities

	codes := make([]string, 0, len(p.Lines))
	for _, l := range p.Lines {
		codes = append(codes, l.EntityCode)
	}
	if err := s.resolver.LookupAdditional(ctx, codes, resolved.IDs); err != nil {
		return res, err
	}

	c, err := s.cycles.EnsureOpen(ctx)
	if err != nil {
		return res, err
	}
	res.CycleID = c.ID

	batch := ledger.Batch{PeriodDate: p.PeriodDate, CycleID: c.ID, Lines: make([]ledger.Line, 0, len(p.Lines))}
	for _, l := range p.Lines {
		id, ok := resolved.IDs[l.EntityCode]
		if !ok {
			log.Debug().Str("code", l.EntityCode).Str("venue", l.VenueLabel).Msg("line dropped, unknown entity")
			res.DroppedLines++
			continue
		}
		batch.Lines = append(batch.Lines, ledger.Line{
			EntityID:   id,
			VenueLabel: l.VenueLabel,
			BuyIn:      l.BuyIn,
			CashOut:    l.CashOut,
			PnL:        l.PnL,
			Rake:       l.Rake,
			Hands:      l.Hands,
		})
	}

	out, err := s.ledger.Reconcile(ctx, batch)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return res, err
		}
		return res, &BulkError{Op: "reconcile", Err: err}
	}
	res.SessionsImported = out.SessionsImported
	return res, nil
}

// record writes the import log entry. A failure here is logged, never returned.
func (s *Service) record(ctx context.Context, source string, res Result, importErr error) {
	period := res.PeriodDate
	if period.IsZero() {
		period = store.PeriodDay(s.now().In(s.loc))
	}
	entry := store.ImportLog{
		SourceLabel:      source,
		PeriodStart:      period,
		PeriodEnd:        period,
		Status:           store.ImportSucceeded,
		EntitiesCreated:  res.EntitiesCreated,
		SessionsImported: res.SessionsImported,
	}
	if importErr != nil {
		entry.Status = store.ImportFailed
		entry.Error = importErr.Error()
		entry.SessionsImported = 0
	}
	logCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if _, err := s.repo.CreateImportLog(logCtx, entry); err != nil {
		log.Error().Err(err).Msg("write import log")
	}
}
