// package domain/models.go
package domain

import "time"

// AccountKind defines the kind of a bank account.
type AccountKind string

// Constants for account kinds.
const (
	KindCorrente     AccountKind = "corrente"
	KindPoupanca     AccountKind = "poupanca"
	KindInvestimento AccountKind = "investimento"
)

// ValidKind reports whether k is a known account kind.
func ValidKind(k AccountKind) bool {
	switch k {
	case KindCorrente, KindPoupanca, KindInvestimento:
		return true
	}
	return false
}

// Account is a registered bank account. The identifier is immutable.
type Account struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Kind      AccountKind `json:"kind"`
	CreatedAt time.Time   `json:"created_at"`
}

// Side identifies which book a line belongs to.
type Side string

// Constants for line sides.
const (
	SideStatement Side = "statement"
	SideLedger    Side = "ledger"
)

// LineFilter restricts a line listing.
type LineFilter string

// Constants for line filters.
const (
	FilterUnreconciled LineFilter = "unreconciled"
	FilterReconciled   LineFilter = "reconciled"
	FilterAll          LineFilter = "all"
)

// ValidFilter reports whether f is a known line filter.
func ValidFilter(f LineFilter) bool {
	switch f {
	case FilterUnreconciled, FilterReconciled, FilterAll:
		return true
	}
	return false
}

// Line is a single statement or ledger entry for one account and day.
// Amounts are signed integers in minor currency units (centavos); no
// floating point is used anywhere for money.
type Line struct {
	ID          string    `json:"id"`
	AccountID   string    `json:"account_id"`
	Side        Side      `json:"side"`
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
	AmountCents int64     `json:"amount_cents"`
	Reconciled  bool      `json:"reconciled"`
	MatchID     *string   `json:"match_id,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DayLines groups both books of a single day.
type DayLines struct {
	StatementLines []Line `json:"statement_lines"`
	LedgerLines    []Line `json:"ledger_lines"`
}

// MatchStatus is the lifecycle state of a reconciliation match.
type MatchStatus string

// Constants for match states. A reversed match is kept forever as the
// audit record of the reversal; rows are never deleted.
const (
	MatchActive   MatchStatus = "active"
	MatchReversed MatchStatus = "reversed"
)

// Match associates statement lines with ledger lines whose amounts balance.
type Match struct {
	ID               string      `json:"id"`
	AccountID        string      `json:"account_id"`
	Date             time.Time   `json:"date"`
	Status           MatchStatus `json:"status"`
	StatementLineIDs []string    `json:"statement_line_ids"`
	LedgerLineIDs    []string    `json:"ledger_line_ids"`
	AmountCents      int64       `json:"amount_cents"`
	CreatedAt        time.Time   `json:"created_at"`
	CreatedBy        string      `json:"created_by"`
	ReversedAt       *time.Time  `json:"reversed_at,omitempty"`
	ReversedBy       *string     `json:"reversed_by,omitempty"`
}

// DaySummary is the derived balance view of one account day. Credits are
// the sum of positive lines, debits the sum of negative ones; both keep
// their sign.
type DaySummary struct {
	AccountID       string    `json:"account_id"`
	Date            time.Time `json:"date"`
	StatementTotal  int64     `json:"statement_total"`
	StatementCredit int64     `json:"statement_credit"`
	StatementDebit  int64     `json:"statement_debit"`
	LedgerTotal     int64     `json:"ledger_total"`
	LedgerCredit    int64     `json:"ledger_credit"`
	LedgerDebit     int64     `json:"ledger_debit"`
	Diff            int64     `json:"diff"`
	Closed          bool      `json:"closed"`
}

// MonthStatus summarises whether a month is fully balanced.
type MonthStatus string

// Constants for month statuses.
const (
	StatusBalanced MonthStatus = "balanced"
	StatusPending  MonthStatus = "pending"
)

// AccountSummary aggregates one account over a calendar month.
type AccountSummary struct {
	AccountID      string       `json:"account_id"`
	Month          string       `json:"month"`
	StatementTotal int64        `json:"statement_total"`
	LedgerTotal    int64        `json:"ledger_total"`
	Diff           int64        `json:"diff"`
	Status         MonthStatus  `json:"status"`
	Days           []DaySummary `json:"days"`
}

// SelectionTotals is the live projection of a not-yet-committed selection.
type SelectionTotals struct {
	StatementTotal int64 `json:"statement_total"`
	LedgerTotal    int64 `json:"ledger_total"`
	Delta          int64 `json:"delta"`
	Balanced       bool  `json:"balanced"`
}

// AutoMatchResult reports the outcome of an automatic matching pass.
type AutoMatchResult struct {
	Matched   int            `json:"matched"`
	MatchIDs  []string       `json:"match_ids"`
	Ambiguous []AmbiguousTie `json:"ambiguous"`
}

// AmbiguousTie is a ledger line the automatic matcher refused to guess at
// because more than one statement line carried the exact same amount.
type AmbiguousTie struct {
	LedgerLineID string `json:"ledger_line_id"`
	AmountCents  int64  `json:"amount_cents"`
	Candidates   int    `json:"candidates"`
}

// Suggestion ranks candidate statement lines for one unmatched ledger line.
type Suggestion struct {
	LedgerLineID string                `json:"ledger_line_id"`
	Candidates   []SuggestionCandidate `json:"candidates"`
}

// SuggestionCandidate is one ranked candidate with its similarity score.
type SuggestionCandidate struct {
	StatementLineID string  `json:"statement_line_id"`
	AmountCents     int64   `json:"amount_cents"`
	Description     string  `json:"description"`
	Score           float64 `json:"score"`
}

// LineInput is the collaborator-boundary shape for loading lines.
type LineInput struct {
	Description string `json:"description"`
	AmountCents int64  `json:"amount_cents"`
}

// DateLayout is the canonical wire format for calendar days.
const DateLayout = "2006-01-02"

// IsBusinessDay reports whether d falls on a weekday. Weekend days are
// outside the matchable and closable set entirely.
func IsBusinessDay(d time.Time) bool {
	wd := d.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}
