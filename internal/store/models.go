package store

import (
	"time"

	"github.com/shopspring/decimal"
)

type Role string

const (
	RolePlayer     Role = "PLAYER"
	RoleAgent      Role = "AGENT"
	RoleSuperAgent Role = "SUPER_AGENT"
)

// Rank orders roles from the bottom of the hierarchy up.
func (r Role) Rank() int {
	switch r {
	case RoleSuperAgent:
		return 3
	case RoleAgent:
		return 2
	case RolePlayer:
		return 1
	default:
		return 0
	}
}

func (r Role) Valid() bool {
	return r.Rank() > 0
}

// Entity is a directory participant. Empty string IDs and club fields mean null.
type Entity struct {
	ID                 string          `json:"id"`
	Code               string          `json:"code"`
	Name               string          `json:"name"`
	Role               Role            `json:"role"`
	AgentParentID      string          `json:"agent_parent_id,omitempty"`
	SuperAgentParentID string          `json:"super_agent_parent_id,omitempty"`
	ClubID             string          `json:"club_id,omitempty"`
	ClubName           string          `json:"club_name,omitempty"`
	Balance            decimal.Decimal `json:"balance"`
	RakebackPercent    decimal.Decimal `json:"rakeback_percent"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// NewEntity is an entity to create on first encounter. Balance starts at zero.
type NewEntity struct {
	Code     string
	Name     string
	Role     Role
	ClubID   string
	ClubName string
}

// EntityUpdate carries the fields to change; a nil field is left as stored.
// The Clear flags null a parent link and win over the matching id field.
type EntityUpdate struct {
	Name               *string
	Role               *Role
	ClubID             *string
	ClubName           *string
	AgentParentID      *string
	SuperAgentParentID *string

	ClearAgentParent      bool
	ClearSuperAgentParent bool
}

func (u EntityUpdate) Empty() bool {
	return u.Name == nil && u.Role == nil && u.ClubID == nil && u.ClubName == nil &&
		u.AgentParentID == nil && u.SuperAgentParentID == nil &&
		!u.ClearAgentParent && !u.ClearSuperAgentParent
}

type SessionRecord struct {
	ID         string          `json:"id"`
	EntityID   string          `json:"entity_id"`
	PeriodDate time.Time       `json:"period_date"`
	VenueLabel string          `json:"venue_label"`
	BuyIn      decimal.Decimal `json:"buy_in"`
	CashOut    decimal.Decimal `json:"cash_out"`
	PnL        decimal.Decimal `json:"pnl"`
	Rake       decimal.Decimal `json:"rake"`
	Hands      int             `json:"hands"`
	CycleID    string          `json:"cycle_id"`
	CreatedAt  time.Time       `json:"created_at"`
}

// EntityPnL is the summed result of one entity's sessions for a period.
type EntityPnL struct {
	EntityID string
	PnL      decimal.Decimal
}

type CycleStatus string

const (
	CycleOpen   CycleStatus = "OPEN"
	CycleClosed CycleStatus = "CLOSED"
)

type Cycle struct {
	ID        string      `json:"id"`
	StartDate time.Time   `json:"start_date"`
	EndDate   *time.Time  `json:"end_date,omitempty"`
	Status    CycleStatus `json:"status"`
}

type ImportStatus string

const (
	ImportSucceeded ImportStatus = "SUCCESS"
	ImportFailed    ImportStatus = "FAILED"
)

type ImportLog struct {
	ID               string       `json:"id"`
	SourceLabel      string       `json:"source_label"`
	PeriodStart      time.Time    `json:"period_start"`
	PeriodEnd        time.Time    `json:"period_end"`
	Status           ImportStatus `json:"status"`
	EntitiesCreated  int          `json:"entities_created"`
	SessionsImported int          `json:"sessions_imported"`
	Error            string       `json:"error,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
}

// MoneyScale is the number of decimal places money columns keep.
const MoneyScale = 4

// RoundMoney quantizes d to the scale Postgres stores, half away from zero as
// NUMERIC does.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}

// PeriodDay truncates t to its calendar date, keeping t's location.
func PeriodDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
