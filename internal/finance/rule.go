package finance

import (
	"github.com/shopspring/decimal"
	"gitlab.com/dafibh/fortuna/internal/models"
)

// Tolerance bands around the nominal 50/30/20 split. Needs and wants
// pass at or below their ceiling, savings passes at or above its floor.
var (
	NeedsTargetPercent   = decimal.NewFromInt(55)
	WantsTargetPercent   = decimal.NewFromInt(35)
	SavingsTargetPercent = decimal.NewFromInt(18)
)

// RuleBreakdown is the 50/30/20 analysis of a monthly budget: how the
// month's money split across needs, wants, and savings, and whether
// each share lands inside its tolerance band.
type RuleBreakdown struct {
	NeedsAmount   decimal.Decimal
	WantsAmount   decimal.Decimal
	SavingsAmount decimal.Decimal

	NeedsPercent   decimal.Decimal
	WantsPercent   decimal.Decimal
	SavingsPercent decimal.Decimal

	NeedsOnTarget   bool
	WantsOnTarget   bool
	SavingsOnTarget bool
}

// AnalyzeBudgetRule buckets the budget's allocations into needs
// (essential categories) and wants (the rest), adds actual savings,
// and computes each bucket's share of the combined total. A zero total
// yields zero for all three percentages.
func AnalyzeBudgetRule(b *models.Budget) RuleBreakdown {
	needs, wants := decimal.Zero, decimal.Zero
	for i := range b.Allocations {
		if b.Allocations[i].IsEssential {
			needs = needs.Add(b.Allocations[i].SpentAmount)
		} else {
			wants = wants.Add(b.Allocations[i].SpentAmount)
		}
	}
	savings := b.SavingsActual
	total := needs.Add(wants).Add(savings)

	br := RuleBreakdown{
		NeedsAmount:    needs,
		WantsAmount:    wants,
		SavingsAmount:  savings,
		NeedsPercent:   PercentOf(needs, total),
		WantsPercent:   PercentOf(wants, total),
		SavingsPercent: PercentOf(savings, total),
	}
	br.NeedsOnTarget = br.NeedsPercent.LessThanOrEqual(NeedsTargetPercent)
	br.WantsOnTarget = br.WantsPercent.LessThanOrEqual(WantsTargetPercent)
	br.SavingsOnTarget = br.SavingsPercent.GreaterThanOrEqual(SavingsTargetPercent)
	return br
}
