package importer

// Sheet names of the report workbook.
const (
	MemberSheet     = "Union Member Statistics"
	TournamentSheet = "Union MTT Detail"
	RingSheet       = "Union Ring Game Detail"
)

// ResidualVenue labels the cash line derived from the membership totals.
const ResidualVenue = "Cash Games"

const venueMarker = "Table Name :"

// periodCell holds the report date on the membership and ring sheets.
var periodCell = struct{ Row, Col int }{1, 1}

// Column positions are a fixed contract with the reporting source. All rows
// and columns are 1-based.
var memberLayout = struct {
	FirstRow             int
	ClubCols             []int
	SuperCode, SuperName int
	AgentCode, AgentName int
	PlayerCode           int
	PlayerName           int
	TotalPnL, SubPnL     int
	TotalRake, SubRake   int
	TotalHands, SubHands int
}{
	FirstRow:   7,
	ClubCols:   []int{1, 2},
	SuperCode:  3,
	SuperName:  4,
	AgentCode:  5,
	AgentName:  6,
	PlayerCode: 9,
	PlayerName: 10,
	TotalPnL:   38,
	SubPnL:     30,
	TotalRake:  65,
	SubRake:    57,
	TotalHands: 152,
	SubHands:   144,
}

var tournamentLayout = struct {
	FirstRow int
	Marker   int
	Code     int
	Nickname int
	FeeCols  []int
	Hands    int
	PnL      int
}{
	FirstRow: 8,
	Marker:   1,
	Code:     3,
	Nickname: 4,
	FeeCols:  []int{7, 8, 11, 12},
	Hands:    13,
	PnL:      17,
}

var ringLayout = struct {
	FirstRow       int
	Marker         int
	Code           int
	BuyIn, CashOut int
	Hands          int
	Rake           int
	PnL            int
}{
	FirstRow: 3,
	Marker:   1,
	Code:     3,
	BuyIn:    5,
	CashOut:  6,
	Hands:    7,
	Rake:     13,
	PnL:      14,
}
