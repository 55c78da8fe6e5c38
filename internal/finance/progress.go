package finance

import (
	"github.com/shopspring/decimal"
	"gitlab.com/dafibh/fortuna/internal/models"
)

// Status labels for budget and goal progress.
const (
	StatusOnTrack     = "on_track"
	StatusWarning     = "warning"
	StatusOverBudget  = "over_budget"
	StatusUnderBudget = "under_budget"
)

// Trend labels derived from a goal confidence estimate.
const (
	TrendOnTrack = "on_track"
	TrendAtRisk  = "at_risk"
	TrendBehind  = "behind"
)

var (
	ninety = decimal.NewFromInt(90)
	five   = decimal.NewFromInt(5)
)

// ProgressInput describes a spent/allocated (or current/target) pair.
// TotalDays of zero means no timeline is known; Confidence stays nil
// unless an estimate exists.
type ProgressInput struct {
	Spent       decimal.Decimal
	Allocated   decimal.Decimal
	DaysElapsed int
	TotalDays   int
	Confidence  *float64
}

// ProgressResult is the derived progress state for one budget,
// allocation, or goal. DailyBudget and DaysRemaining are only
// meaningful when the input carried a timeline. TrendLabel is empty
// when no confidence estimate was supplied.
type ProgressResult struct {
	UtilizationPercent decimal.Decimal
	Remaining          decimal.Decimal
	DaysRemaining      int
	DailyBudget        decimal.Decimal
	Status             string
	TrendLabel         string
}

// ClassifyProgress computes utilization, remaining amount, daily budget
// and a status label from a progress input.
//
// Status policy: over 100% utilization is over_budget; 90-100% is
// warning. Below that, a known timeline compares utilization against
// the elapsed-time percentage: more than 5 points above is warning,
// more than 5 points below is under_budget, and the band between is
// on_track. Without a timeline anything at or under 90% is on_track.
func ClassifyProgress(in ProgressInput) ProgressResult {
	util := PercentOf(in.Spent, in.Allocated)
	res := ProgressResult{
		UtilizationPercent: util,
		Remaining:          in.Allocated.Sub(in.Spent),
	}

	hasTimeline := in.TotalDays > 0
	if hasTimeline {
		res.DaysRemaining = in.TotalDays - in.DaysElapsed
		if res.DaysRemaining < 0 {
			res.DaysRemaining = 0
		}
		// Guard against dividing by zero on the final day.
		res.DailyBudget = res.Remaining.Div(decimal.NewFromInt(int64(max(res.DaysRemaining, 1))))
	}

	switch {
	case util.GreaterThan(oneHundred):
		res.Status = StatusOverBudget
	case util.GreaterThan(ninety):
		res.Status = StatusWarning
	case !hasTimeline:
		res.Status = StatusOnTrack
	default:
		elapsed := PercentOf(
			decimal.NewFromInt(int64(in.DaysElapsed)),
			decimal.NewFromInt(int64(in.TotalDays)),
		)
		diff := util.Sub(elapsed)
		switch {
		case diff.GreaterThan(five):
			res.Status = StatusWarning
		case diff.LessThan(five.Neg()):
			res.Status = StatusUnderBudget
		default:
			res.Status = StatusOnTrack
		}
	}

	if in.Confidence != nil {
		res.TrendLabel = ConfidenceLabel(*in.Confidence)
	}
	return res
}

// ClassifyBudget classifies a whole monthly budget against its
// elapsed-time pace.
func ClassifyBudget(b *models.Budget) ProgressResult {
	return ClassifyProgress(ProgressInput{
		Spent:       b.TotalSpent,
		Allocated:   b.TotalAllocated,
		DaysElapsed: b.DaysElapsed,
		TotalDays:   b.TotalDays,
	})
}

// ClassifyAllocation classifies a single category allocation. Category
// slices are judged on utilization alone, not pace.
func ClassifyAllocation(a models.BudgetAllocation) ProgressResult {
	return ClassifyProgress(ProgressInput{
		Spent:     a.SpentAmount,
		Allocated: a.AllocatedAmount,
	})
}

// ClassifyGoal classifies a savings goal; utilization here reads as
// percent progress toward the target. Confidence, when supplied, sets
// the trend label.
func ClassifyGoal(g *models.Goal, confidence *float64) ProgressResult {
	return ClassifyProgress(ProgressInput{
		Spent:      g.CurrentAmount,
		Allocated:  g.TargetAmount,
		Confidence: confidence,
	})
}

// ConfidenceLabel maps a 0-1 confidence estimate to a trend label:
// 0.8 and above is on_track, 0.5 to just under 0.8 is at_risk, and
// anything below 0.5 is behind.
func ConfidenceLabel(confidence float64) string {
	switch {
	case confidence >= 0.8:
		return TrendOnTrack
	case confidence >= 0.5:
		return TrendAtRisk
	default:
		return TrendBehind
	}
}
