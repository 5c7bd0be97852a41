package domain

import "time"

// ScoreRequest is the flat document published to the scoring queue: raw
// transaction fields plus the precomputed history features plus the
// transaction identifier the response is keyed by.
type ScoreRequest struct {
	TransactionID      string  `json:"transaction_id"`
	TransDateTransTime string  `json:"trans_date_trans_time"`
	CCNum              string  `json:"cc_num"`
	Merchant           string  `json:"merchant"`
	Category           string  `json:"category"`
	Amt                float64 `json:"amt"`
	Gender             string  `json:"gender"`
	State              string  `json:"state"`
	Lat                float64 `json:"lat"`
	Long               float64 `json:"long"`
	CityPop            int     `json:"city_pop"`
	Job                string  `json:"job"`
	DOB                string  `json:"dob"`
	MerchLat           float64 `json:"merch_lat"`
	MerchLong          float64 `json:"merch_long"`

	// History features are flattened into the same document, matching the
	// wire schema the models were trained against.
	HistoryFeatures
}

// ScoreResponse is the correlated reply from the scoring worker. Error is
// non-empty when the worker hit a deterministic scoring fault; retrying such
// a request would fail identically.
type ScoreResponse struct {
	TransactionID string  `json:"transaction_id"`
	Probability   float64 `json:"probability"`
	Error         string  `json:"error,omitempty"`
}

// ScoreEvent is the per-score analytics record written by the worker.
// Corresponds to the score_events table in ClickHouse.
type ScoreEvent struct {
	TransactionID string    // scored transaction identifier
	CCNum         string    // entity identifier
	PGraph        float64   // graph-branch probability
	PTree         float64   // tree-branch probability
	PFinal        float64   // blended probability
	DurationMs    float64   // scoring latency in milliseconds
	ScoredAt      time.Time // when the score was produced
}
