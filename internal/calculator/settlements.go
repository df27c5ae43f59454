package calculator

import (
	"slices"

	"github.com/shopspring/decimal"
)

// Settlement is a suggested transfer from a debtor to a creditor.
type Settlement struct {
	From   string // Member who owes
	To     string // Member who is owed
	Amount decimal.Decimal
}

type position struct {
	member string
	amt    decimal.Decimal
}

// SuggestSettlements turns balances into transfers that bring every net back
// inside the tolerance band.
//
// Greedy algorithm: match the largest debt with the largest credit, transfer
// the smaller of the two, move on from whichever side is settled. It needs at
// most len(debtors)+len(creditors)-1 transfers but is not guaranteed to find
// the minimum number of transfers (that is a subset-sum search and is not
// attempted here).
//
// Equal amounts keep the order of rows, so feeding it ComputeBalances output
// gives deterministic results. An empty result means everyone is settled.
func SuggestSettlements(rows []BalanceRow) []Settlement {
	var creditors, debtors []position
	for _, r := range rows {
		switch {
		case IsSettled(r.Net):
		case r.Net.IsPositive():
			creditors = append(creditors, position{member: r.Member, amt: r.Net})
		default:
			debtors = append(debtors, position{member: r.Member, amt: r.Net.Neg()})
		}
	}

	byAmountDesc := func(a, b position) int { return b.amt.Cmp(a.amt) }
	slices.SortStableFunc(creditors, byAmountDesc)
	slices.SortStableFunc(debtors, byAmountDesc)

	var out []Settlement
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		d := &debtors[i]
		c := &creditors[j]

		x := Round2(decimal.Min(d.amt, c.amt))
		out = append(out, Settlement{From: d.member, To: c.member, Amount: x})

		d.amt = Round2(d.amt.Sub(x))
		c.amt = Round2(c.amt.Sub(x))

		if IsSettled(d.amt) {
			i++
		}
		if IsSettled(c.amt) {
			j++
		}
	}

	return out
}
