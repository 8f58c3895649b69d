package importer

import (
	"fmt"
	"time"

	"union-ledger/internal/sheet"
	"union-ledger/internal/store"

	"github.com/rs/zerolog/log"
)

// resolvePeriod picks the period date: an explicit override, else cell A1
// of the membership sheet, else A1 of the ring sheet. With fallback allowed an
// unreadable date becomes today in loc.
func resolvePeriod(wb *sheet.Workbook, opts Options, loc *time.Location, now time.Time) (time.Time, error) {
	if opts.PeriodOverride != nil {
		// The override names a calendar day; keep its Y/M/D whatever zone it
		// was parsed in.
		y, m, d := opts.PeriodOverride.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, loc), nil
	}

	var firstErr error
	for _, name := range []string{MemberSheet, RingSheet} {
		g, ok := wb.Sheet(name)
		if !ok {
			continue
		}
		d, err := g.Date(periodCell.Row, periodCell.Col, loc)
		if err == nil {
			return store.PeriodDay(d), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr == nil {
		firstErr = fmt.Errorf("no date cell")
	}
	if opts.AllowDateFallback {
		today := store.PeriodDay(now.In(loc))
		log.Warn().Err(firstErr).Str("period", today.Format("2006-01-02")).Msg("period date unreadable, using today")
		return today, nil
	}
	return time.Time{}, fmt.Errorf("%w: %v", ErrPeriodDate, firstErr)
}
