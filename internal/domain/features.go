package domain

// DefaultTimeDiffHours is the fallback for hours-since-last-transaction when
// the entity has no prior history or the previous amount is zero. It is the
// median time gap observed when the models were fitted.
const DefaultTimeDiffHours = 4.36

// HistoryFeatures are behavioral statistics derived from an entity's prior
// transactions, strictly older than the transaction being scored.
type HistoryFeatures struct {
	PrevAmount         float64 `json:"prev_amount"`           // most recent prior amount
	AmountDiff         float64 `json:"amount_diff"`           // current - previous amount
	AmountRatio        float64 `json:"amount_ratio"`          // current / previous amount (zero-guarded)
	RollMeanAmt5       float64 `json:"roll_mean_amt_5"`       // mean of up to 5 most recent prior amounts
	RollStdAmt5        float64 `json:"roll_std_amt_5"`        // population std of the same window
	UniqueMerchLast30d int     `json:"unique_merch_last_30d"` // distinct counterparties in trailing 30 days
	TimeDiffHours      float64 `json:"time_diff_h"`           // hours since most recent prior transaction
}
