package services

import (
	"fmt"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Calendar holds the fields derived from a single timestamp.
type Calendar struct {
	Hour      int
	Weekday   int // Monday=0 … Sunday=6
	IsWeekend bool
	Month     int
	Year      int
}

// CalendarOf derives the calendar fields of t from its own wall clock.
func CalendarOf(t time.Time) Calendar {
	weekday := (int(t.Weekday()) + 6) % 7
	return Calendar{
		Hour:      t.Hour(),
		Weekday:   weekday,
		IsWeekend: weekday >= 5,
		Month:     int(t.Month()),
		Year:      t.Year(),
	}
}

// Enrich adds hour, weekday, is_weekend, month and year columns computed
// from timestamp. Re-applying it recomputes the same values.
func Enrich(cleaned dataframe.DataFrame) (dataframe.DataFrame, error) {
	if cleaned.Err != nil {
		return dataframe.DataFrame{}, cleaned.Err
	}
	if err := requireColumns(cleaned); err != nil {
		return dataframe.DataFrame{}, err
	}

	ts := cleaned.Col(ColTimestamp).Records()
	n := len(ts)
	hours := make([]int, n)
	weekdays := make([]int, n)
	weekends := make([]bool, n)
	months := make([]int, n)
	years := make([]int, n)

	for i, raw := range ts {
		t, err := ParseTimestamp(raw)
		if err != nil {
			return dataframe.DataFrame{}, &SchemaError{Column: ColTimestamp, Message: fmt.Sprintf("row %d", i+1), Cause: err}
		}
		cal := CalendarOf(t)
		hours[i] = cal.Hour
		weekdays[i] = cal.Weekday
		weekends[i] = cal.IsWeekend
		months[i] = cal.Month
		years[i] = cal.Year
	}

	df := cleaned.
		Mutate(series.New(hours, series.Int, ColHour)).
		Mutate(series.New(weekdays, series.Int, ColWeekday)).
		Mutate(series.New(weekends, series.Bool, ColIsWeekend)).
		Mutate(series.New(months, series.Int, ColMonth)).
		Mutate(series.New(years, series.Int, ColYear))
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("derive calendar columns: %w", df.Err)
	}
	return df, nil
}
