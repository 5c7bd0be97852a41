package features

import (
	"fmt"
	"math"
	"time"

	"fraudscore/internal/domain"
)

// earthRadiusKm is the haversine Earth radius.
const earthRadiusKm = 6371.0

// Instant holds the fields derivable from a single transaction without any
// history: time-of-day, distance, demographics and the binary flags.
type Instant struct {
	Hour           int
	DayOfWeek      string // weekday name, e.g. "Friday"
	Month          int
	DistanceKm     float64
	Age            int
	IsNight        float64 // hour < 6 or hour > 20
	IsBusinessHour float64 // 9..18 inclusive
	IsWeekend      float64
	Gender         float64 // "F" -> 1, else 0
}

// ParseTransactionTime parses a feed timestamp and normalizes it to UTC.
// Accepts RFC 3339 and the upstream "2006-01-02 15:04:05" form; a timestamp
// without a zone is taken as UTC.
func ParseTransactionTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("parse transaction time %q", s)
}

// Haversine returns the great-circle distance in kilometers.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dphi := phi2 - phi1
	dl := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dphi/2)*math.Sin(dphi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dl/2)*math.Sin(dl/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}

// AgeAt returns the age in whole years at the reference time, one year less
// when the reference month/day precedes the birthday's.
func AgeAt(dob time.Time, ref time.Time) int {
	years := ref.Year() - dob.Year()
	if ref.Month() < dob.Month() || (ref.Month() == dob.Month() && ref.Day() < dob.Day()) {
		years--
	}
	return years
}

// ComputeInstant derives the instantaneous fields of a score request.
func ComputeInstant(req *domain.ScoreRequest) (Instant, error) {
	t, err := ParseTransactionTime(req.TransDateTransTime)
	if err != nil {
		return Instant{}, err
	}

	dob, err := time.Parse("2006-01-02", req.DOB)
	if err != nil {
		return Instant{}, fmt.Errorf("parse dob %q: %w", req.DOB, err)
	}

	inst := Instant{
		Hour:       t.Hour(),
		DayOfWeek:  t.Weekday().String(),
		Month:      int(t.Month()),
		DistanceKm: Haversine(req.Lat, req.Long, req.MerchLat, req.MerchLong),
		Age:        AgeAt(dob, t),
	}
	if inst.Hour < 6 || inst.Hour > 20 {
		inst.IsNight = 1
	}
	if inst.Hour >= 9 && inst.Hour <= 18 {
		inst.IsBusinessHour = 1
	}
	if wd := t.Weekday(); wd == time.Saturday || wd == time.Sunday {
		inst.IsWeekend = 1
	}
	if req.Gender == "F" {
		inst.Gender = 1
	}
	return inst, nil
}
