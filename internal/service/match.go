package service

import (
	"time"

	"github.com/arkapay/ppob-backend/internal/gateway"
	"github.com/arkapay/ppob-backend/internal/models"
	"github.com/arkapay/ppob-backend/internal/provider"
)

// matchWindow is how far back in the mutation feed a payment may sit and
// still settle a deposit.
const matchWindow = 48 * time.Hour

const mutationTimeLayout = "2006-01-02 15:04:05"

// Match pairs one account mutation with the deposit it settles.
type Match struct {
	Deposit  models.Deposit
	Mutation gateway.Mutation
}

// MatchMutations pairs credit mutations against pending deposits by exact
// total amount. Deposits must arrive oldest first; when two deposits carry
// the same total, the older one wins. Each mutation settles at most one
// deposit and each deposit is settled at most once. Mutations that are
// debits, outside the window, or carry an unparseable timestamp or amount
// are skipped without failing the rest of the batch.
func MatchMutations(mutations []gateway.Mutation, pending []models.Deposit, now time.Time) []Match {
	if len(mutations) == 0 || len(pending) == 0 {
		return nil
	}
	cutoff := now.Add(-matchWindow)

	taken := make(map[int]bool, len(pending))
	var matches []Match
	for _, m := range mutations {
		if m.Type != gateway.TypeCredit {
			continue
		}
		at, err := time.ParseInLocation(mutationTimeLayout, m.Date, now.Location())
		if err != nil || at.Before(cutoff) {
			continue
		}
		amount, ok := provider.NormalizeAmount(m.Amount.String())
		if !ok {
			continue
		}
		for i, d := range pending {
			if taken[i] || !d.TotalAmount.Equal(amount) {
				continue
			}
			taken[i] = true
			matches = append(matches, Match{Deposit: d, Mutation: m})
			break
		}
	}
	return matches
}
