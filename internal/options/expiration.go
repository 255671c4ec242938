package options

import (
	"encoding/json"
	"fmt"
	"time"
)

// DaysPerYear is the day-count basis for converting days to years.
const DaysPerYear = 365.0

// ExpirationDate is either a count of days from now or an absolute UTC time.
type ExpirationDate struct {
	days   float64
	at     time.Time
	isTime bool
}

// Days returns an expiration n days from now.
func Days(n float64) ExpirationDate {
	return ExpirationDate{days: n}
}

// At returns an expiration at the given instant.
func At(t time.Time) ExpirationDate {
	return ExpirationDate{at: t.UTC(), isTime: true}
}

// IsTime reports whether the expiration is an absolute timestamp.
func (e ExpirationDate) IsTime() bool { return e.isTime }

// DaysFrom returns the number of days between now and expiration, floored at zero.
func (e ExpirationDate) DaysFrom(now time.Time) float64 {
	if !e.isTime {
		if e.days < 0 {
			return 0
		}
		return e.days
	}
	d := e.at.Sub(now).Hours() / 24
	if d < 0 {
		return 0
	}
	return d
}

// DaysLeft is DaysFrom(time.Now()).
func (e ExpirationDate) DaysLeft() float64 {
	return e.DaysFrom(time.Now())
}

// Years returns the time to expiration in years.
func (e ExpirationDate) Years() float64 {
	return e.DaysLeft() / DaysPerYear
}

// Time returns the expiration as an absolute instant relative to now.
func (e ExpirationDate) Time() time.Time {
	if e.isTime {
		return e.at
	}
	return time.Now().UTC().Add(time.Duration(e.days * 24 * float64(time.Hour)))
}

// Equal reports whether two expirations describe the same instant or day count.
func (e ExpirationDate) Equal(o ExpirationDate) bool {
	if e.isTime != o.isTime {
		return false
	}
	if e.isTime {
		return e.at.Equal(o.at)
	}
	return e.days == o.days
}

func (e ExpirationDate) String() string {
	if e.isTime {
		return e.at.Format(time.RFC3339)
	}
	return fmt.Sprintf("%gd", e.days)
}

func (e ExpirationDate) MarshalJSON() ([]byte, error) {
	if e.isTime {
		return json.Marshal(map[string]time.Time{"DateTime": e.at})
	}
	return json.Marshal(map[string]float64{"Days": e.days})
}

func (e *ExpirationDate) UnmarshalJSON(data []byte) error {
	var raw struct {
		Days     *float64   `json:"Days"`
		DateTime *time.Time `json:"DateTime"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch {
	case raw.Days != nil:
		*e = Days(*raw.Days)
	case raw.DateTime != nil:
		*e = At(*raw.DateTime)
	default:
		return fmt.Errorf("expiration must be Days or DateTime")
	}
	return nil
}
