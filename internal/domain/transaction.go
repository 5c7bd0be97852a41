package domain

import "time"

// User represents a cardholder.
// Corresponds to the users table in PostgreSQL.
type User struct {
	ID      int64     // BIGSERIAL primary key
	CCNum   string    // card number, unique
	First   string    // first name
	Last    string    // last name
	Gender  string    // "F" | "M"
	Street  string    // street address
	City    string    // city name
	State   string    // two-letter state code
	Zip     int       // ZIP code
	Lat     float64   // home latitude
	Long    float64   // home longitude
	CityPop int       // population of home city
	Job     string    // occupation
	DOB     time.Time // date of birth
}

// Merchant represents a transaction counterparty.
// Corresponds to the merchants table in PostgreSQL.
type Merchant struct {
	ID       int64   // BIGSERIAL primary key
	Name     string  // merchant name, unique
	Category string  // spending category (e.g. "shopping_pos")
	Lat      float64 // merchant latitude
	Long     float64 // merchant longitude
}

// Transaction represents a single card transaction submitted for scoring.
// Immutable once persisted, except for the fraud probability written back
// after scoring. Corresponds to the transactions table in PostgreSQL.
type Transaction struct {
	ID         int64     // BIGSERIAL primary key
	TransNum   string    // external transaction number, unique
	UserID     int64     // FK to users
	MerchantID int64     // FK to merchants
	Amount     float64   // transaction amount
	Time       time.Time // transaction timestamp (UTC)
	UnixTime   int64     // original Unix timestamp from the feed
	FraudProb  *float64  // scored probability, NULL until scored
	CreatedAt  time.Time // record creation timestamp
}

// PriorTransaction is the projection of a past transaction used by the
// history feature computation: amount, counterparty and time only.
type PriorTransaction struct {
	Amount     float64
	MerchantID int64
	Time       time.Time
}

// TransactionInput is a raw transaction as received on the ingest API.
// Field names follow the upstream feed schema.
type TransactionInput struct {
	TransDateTransTime string  `json:"trans_date_trans_time"`
	CCNum              string  `json:"cc_num"`
	Merchant           string  `json:"merchant"`
	Category           string  `json:"category"`
	Amt                float64 `json:"amt"`
	First              string  `json:"first"`
	Last               string  `json:"last"`
	Gender             string  `json:"gender"`
	Street             string  `json:"street"`
	City               string  `json:"city"`
	State              string  `json:"state"`
	Zip                int     `json:"zip"`
	Lat                float64 `json:"lat"`
	Long               float64 `json:"long"`
	CityPop            int     `json:"city_pop"`
	Job                string  `json:"job"`
	DOB                string  `json:"dob"`
	TransNum           string  `json:"trans_num"`
	UnixTime           int64   `json:"unix_time"`
	MerchLat           float64 `json:"merch_lat"`
	MerchLong          float64 `json:"merch_long"`
}
