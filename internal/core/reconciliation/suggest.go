package reconciliation

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"

	"conciliacao-service/internal/database/repository"
	"conciliacao-service/internal/domain"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const defaultSuggestionLimit = 3

// Scoring weights: the amount carries most of the signal, the description
// disambiguates between candidates of similar value.
const (
	amountWeight      = 0.6
	descriptionWeight = 0.4
	minSuggestScore   = 0.2
)

var nonAlphanumericRegex = regexp.MustCompile(`[^A-Z0-9 ]+`)
var whitespaceRegex = regexp.MustCompile(`\s+`)

// normalizeDescription strips accents and noise so that bank descriptors
// like "PGTO FORNECEDOR LTDA" and "Pagto Fornecedor Ltda." compare equal.
func normalizeDescription(str string) string {
	t := transform.Chain(norm.NFD, transform.RemoveFunc(func(r rune) bool {
		return unicode.Is(unicode.Mn, r)
	}))
	result, _, _ := transform.String(t, str)
	result = strings.ToUpper(result)
	result = nonAlphanumericRegex.ReplaceAllString(result, " ")
	result = whitespaceRegex.ReplaceAllString(result, " ")
	return strings.TrimSpace(result)
}

// Suggestions ranks, for every unmatched ledger line of the day, the
// unmatched statement lines most likely to settle it. It is a read-only
// operator aid: nothing is committed and ambiguity stays in the operator's
// hands.
func (s *service) Suggestions(ctx context.Context, accountID string, day time.Time, limit int) ([]domain.Suggestion, error) {
	if limit <= 0 {
		limit = defaultSuggestionLimit
	}
	if err := s.requireAccount(ctx, s.db, accountID); err != nil {
		return nil, err
	}

	lines := repository.NewLineRepo(s.db)
	stmt, err := lines.ListByDay(ctx, accountID, day, domain.SideStatement, domain.FilterUnreconciled)
	if err != nil {
		return nil, err
	}
	ledger, err := lines.ListByDay(ctx, accountID, day, domain.SideLedger, domain.FilterUnreconciled)
	if err != nil {
		return nil, err
	}
	if len(stmt) == 0 || len(ledger) == 0 {
		return nil, nil
	}

	normStmt := make([]string, len(stmt))
	for i, l := range stmt {
		normStmt[i] = normalizeDescription(l.Description)
	}

	var out []domain.Suggestion
	for _, ll := range ledger {
		normLedger := normalizeDescription(ll.Description)

		var cands []domain.SuggestionCandidate
		for i, sl := range stmt {
			score := amountWeight*amountScore(ll.AmountCents, sl.AmountCents) +
				descriptionWeight*descriptionScore(normLedger, normStmt[i])
			if score < minSuggestScore {
				continue
			}
			cands = append(cands, domain.SuggestionCandidate{
				StatementLineID: sl.ID,
				AmountCents:     sl.AmountCents,
				Description:     sl.Description,
				Score:           score,
			})
		}
		if len(cands) == 0 {
			continue
		}
		sort.SliceStable(cands, func(i, j int) bool {
			if cands[i].Score != cands[j].Score {
				return cands[i].Score > cands[j].Score
			}
			return cands[i].StatementLineID < cands[j].StatementLineID
		})
		if len(cands) > limit {
			cands = cands[:limit]
		}
		out = append(out, domain.Suggestion{LedgerLineID: ll.ID, Candidates: cands})
	}
	return out, nil
}

// amountScore is 1 for an exact signed match and decays with the relative
// distance between the two amounts. Opposite signs score zero.
func amountScore(a, b int64) float64 {
	if a == b {
		return 1
	}
	if (a < 0) != (b < 0) {
		return 0
	}
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	max := abs64(a)
	if abs64(b) > max {
		max = abs64(b)
	}
	if max == 0 {
		return 0
	}
	score := 1 - float64(diff)/float64(max)
	if score < 0 {
		return 0
	}
	return score
}

func descriptionScore(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	dist := levenshtein.ComputeDistance(a, b)
	max := len([]rune(a))
	if n := len([]rune(b)); n > max {
		max = n
	}
	if max == 0 {
		return 0
	}
	score := 1 - float64(dist)/float64(max)
	if score < 0 {
		return 0
	}
	return score
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
