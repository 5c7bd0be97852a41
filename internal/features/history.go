// Package features turns a raw transaction and its behavioral history into
// the fixed-order numeric vector the models were fitted on.
package features

import (
	"math"
	"time"

	"fraudscore/internal/domain"
)

// historyWindow is the rolling window size for the amount statistics.
const historyWindow = 5

// uniqueMerchantDays is the trailing window for the distinct-counterparty count.
const uniqueMerchantDays = 30

// ComputeHistory derives the behavioral statistics for a transaction of the
// given amount at the given time, from the entity's prior transactions.
// prior must contain only transactions strictly older than ts, most recent
// first, as returned by storage.TransactionStore.PriorTransactions.
func ComputeHistory(amt float64, ts time.Time, prior []*domain.PriorTransaction) domain.HistoryFeatures {
	if len(prior) == 0 {
		return domain.HistoryFeatures{TimeDiffHours: domain.DefaultTimeDiffHours}
	}

	prevAmt := prior[0].Amount

	// A zero previous amount makes the time delta meaningless downstream;
	// fall back to the training median.
	timeDiff := domain.DefaultTimeDiffHours
	if prevAmt != 0 {
		timeDiff = ts.Sub(prior[0].Time).Hours()
	}

	ratioDenom := prevAmt
	if ratioDenom == 0 {
		ratioDenom = 1.0
	}

	window := prior
	if len(window) > historyWindow {
		window = window[:historyWindow]
	}
	var sum float64
	for _, p := range window {
		sum += p.Amount
	}
	mean := sum / float64(len(window))

	std := 0.0
	if len(window) > 1 {
		var ss float64
		for _, p := range window {
			d := p.Amount - mean
			ss += d * d
		}
		std = math.Sqrt(ss / float64(len(window))) // population std
	}

	border := ts.AddDate(0, 0, -uniqueMerchantDays)
	merchants := make(map[int64]struct{})
	for _, p := range prior {
		if !p.Time.Before(border) {
			merchants[p.MerchantID] = struct{}{}
		}
	}

	return domain.HistoryFeatures{
		PrevAmount:         prevAmt,
		AmountDiff:         amt - prevAmt,
		AmountRatio:        amt / ratioDenom,
		RollMeanAmt5:       mean,
		RollStdAmt5:        std,
		UniqueMerchLast30d: len(merchants),
		TimeDiffHours:      timeDiff,
	}
}
