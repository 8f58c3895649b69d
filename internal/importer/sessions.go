package importer

import (
	"regexp"
	"strings"

	"union-ledger/internal/sheet"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var participantCode = regexp.MustCompile(`^[\d-]+$`)

// LineItem is one derived session line, still keyed by participant code.
type LineItem struct {
	EntityCode string
	VenueLabel string
	PnL        decimal.Decimal
	Rake       decimal.Decimal
	Hands      int
	BuyIn      decimal.Decimal
	CashOut    decimal.Decimal
}

// Extraction is the output of one detail sheet. Skipped counts rows dropped
// or defaulted because a numeric cell could not be parsed.
type Extraction struct {
	Items   []LineItem
	Skipped int
}

// cellReader reads numeric cells of one row and counts unparsable ones.
type cellReader struct {
	g      *sheet.Grid
	row    int
	failed bool
}

// amount reads a result column. A parse failure marks the row as unusable.
func (r *cellReader) amount(col int) decimal.Decimal {
	d, err := r.g.Decimal(r.row, col)
	if err != nil {
		log.Debug().Err(err).Msg("row parse skip")
		r.failed = true
	}
	return d
}

// fee reads an auxiliary column, defaulting to zero.
func (r *cellReader) fee(col int) (decimal.Decimal, bool) {
	d, err := r.g.Decimal(r.row, col)
	if err != nil {
		log.Debug().Err(err).Msg("cell defaulted to zero")
		return decimal.Zero, false
	}
	return d, true
}

func (r *cellReader) count(col int) (int, bool) {
	n, err := r.g.Int(r.row, col)
	if err != nil {
		log.Debug().Err(err).Msg("cell defaulted to zero")
		return 0, false
	}
	return n, true
}

// ExtractMemberSessions derives the residual cash line of each player on the
// membership sheet: grand totals minus the tournament sub-totals.
func ExtractMemberSessions(g *sheet.Grid) Extraction {
	l := memberLayout
	var out Extraction
	for row := l.FirstRow; row <= g.Rows(); row++ {
		if isTotal(g.Text(row, l.SuperName)) || isTotal(g.Text(row, l.AgentName)) || isTotal(g.Text(row, l.PlayerName)) {
			continue
		}
		code := g.Text(row, l.PlayerCode)
		if IsSentinel(code) {
			continue
		}

		r := cellReader{g: g, row: row}
		pnl := r.amount(l.TotalPnL).Sub(r.amount(l.SubPnL))
		totalRake, ok1 := r.fee(l.TotalRake)
		subRake, ok2 := r.fee(l.SubRake)
		totalHands, ok3 := r.count(l.TotalHands)
		subHands, ok4 := r.count(l.SubHands)
		if r.failed || !(ok1 && ok2 && ok3 && ok4) {
			out.Skipped++
		}
		if r.failed {
			continue
		}

		rake := totalRake.Sub(subRake)
		if pnl.IsZero() && rake.IsZero() {
			continue
		}
		out.Items = append(out.Items, LineItem{
			EntityCode: code,
			VenueLabel: ResidualVenue,
			PnL:        pnl,
			Rake:       rake,
			Hands:      totalHands - subHands,
		})
	}
	return out
}

// ExtractTournamentSessions reads per-tournament lines. Rake is the sum of
// the four fee columns.
func ExtractTournamentSessions(g *sheet.Grid) Extraction {
	l := tournamentLayout
	var (
		out    Extraction
		venue  string
		marked bool
	)
	for row := 1; row <= g.Rows(); row++ {
		// A marker with an empty label still opens a block.
		if label, ok := venueLabel(g.Text(row, l.Marker)); ok {
			venue, marked = label, true
			continue
		}
		if row < l.FirstRow || !marked {
			continue
		}
		nick := g.Text(row, l.Nickname)
		if nick == "" || isTotal(nick) {
			continue
		}
		code := g.Text(row, l.Code)
		if !participantCode.MatchString(code) {
			continue
		}

		r := cellReader{g: g, row: row}
		pnl := r.amount(l.PnL)
		rake := decimal.Zero
		clean := true
		for _, col := range l.FeeCols {
			fee, ok := r.fee(col)
			clean = clean && ok
			rake = rake.Add(fee)
		}
		hands, ok := r.count(l.Hands)
		if r.failed || !clean || !ok {
			out.Skipped++
		}
		if r.failed || (pnl.IsZero() && rake.IsZero()) {
			continue
		}
		out.Items = append(out.Items, LineItem{
			EntityCode: code,
			VenueLabel: venue,
			PnL:        pnl,
			Rake:       rake,
			Hands:      hands,
		})
	}
	return out
}

// ExtractRingSessions reads per-table cash lines. Every participant row under
// a table marker is a line, even when its result is zero.
func ExtractRingSessions(g *sheet.Grid) Extraction {
	l := ringLayout
	var (
		out    Extraction
		venue  string
		marked bool
	)
	for row := l.FirstRow; row <= g.Rows(); row++ {
		// A marker with an empty label still opens a block.
		if label, ok := venueLabel(g.Text(row, l.Marker)); ok {
			venue, marked = label, true
			continue
		}
		if !marked {
			continue
		}
		code := g.Text(row, l.Code)
		if !participantCode.MatchString(code) {
			continue
		}

		r := cellReader{g: g, row: row}
		pnl := r.amount(l.PnL)
		buyIn, ok1 := r.fee(l.BuyIn)
		cashOut, ok2 := r.fee(l.CashOut)
		rake, ok3 := r.fee(l.Rake)
		hands, ok4 := r.count(l.Hands)
		if r.failed || !(ok1 && ok2 && ok3 && ok4) {
			out.Skipped++
		}
		if r.failed {
			continue
		}
		out.Items = append(out.Items, LineItem{
			EntityCode: code,
			VenueLabel: venue,
			PnL:        pnl,
			Rake:       rake,
			Hands:      hands,
			BuyIn:      buyIn,
			CashOut:    cashOut,
		})
	}
	return out
}

// venueLabel extracts the table or tournament name from a marker cell.
func venueLabel(cell string) (string, bool) {
	if !strings.Contains(cell, venueMarker) {
		return "", false
	}
	head, _, _ := strings.Cut(cell, ",")
	return strings.TrimSpace(strings.Replace(head, venueMarker, "", 1)), true
}
