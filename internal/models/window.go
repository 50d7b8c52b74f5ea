package models

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// QueryWindow is an inclusive range of calendar dates (invoice issue dates).
type QueryWindow struct {
	From time.Time
	To   time.Time
}

// PreviousWeek returns the Monday..Sunday week before the one containing today.
func PreviousWeek(today time.Time) QueryWindow {
	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)

	// Monday = 0 .. Sunday = 6
	offset := (int(day.Weekday()) + 6) % 7
	monday := day.AddDate(0, 0, -(offset + 7))

	return QueryWindow{
		From: monday,
		To:   monday.AddDate(0, 0, 6),
	}
}

func (w QueryWindow) FromString() string {
	return w.From.Format(dateLayout)
}

func (w QueryWindow) ToString() string {
	return w.To.Format(dateLayout)
}

func (w QueryWindow) String() string {
	return fmt.Sprintf("%s..%s", w.FromString(), w.ToString())
}
