package services

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

const (
	ColTimestamp      = "timestamp"
	ColLocation       = "location_name"
	ColCollectionType = "collection_type"
	ColPedestrians    = "pedestrians_count"
	ColWeather        = "weather_condition"

	ColHour      = "hour"
	ColWeekday   = "weekday"
	ColIsWeekend = "is_weekend"
	ColMonth     = "month"
	ColYear      = "year"
)

var requiredColumns = []string{ColTimestamp, ColLocation, ColCollectionType, ColPedestrians}

// nullTokens are the cell values read as missing.
var nullTokens = []string{"", "NA", "NaN", "nan", "null", "NULL", "None", "<nil>"}

// columnTypes pins the types of the key columns instead of detecting them.
var columnTypes = map[string]series.Type{
	ColTimestamp:      series.String,
	ColLocation:       series.String,
	ColCollectionType: series.String,
	ColPedestrians:    series.Float,
	ColWeather:        series.String,
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseTimestamp parses a sensor timestamp. The wall clock of the input is
// kept, including its UTC offset when one is present.
func ParseTimestamp(value string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date-time %q", value)
}

// LoadCSV reads a raw sensor table. Required columns must be present and
// every non-null timestamp must parse. A header without rows is an empty
// table, not an error.
func LoadCSV(r io.Reader) (dataframe.DataFrame, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return dataframe.DataFrame{}, &SchemaError{Message: "unreadable CSV", Cause: err}
	}
	if len(records) == 0 {
		return dataframe.DataFrame{}, &SchemaError{Message: "CSV has no header row"}
	}

	var df dataframe.DataFrame
	if len(records) == 1 {
		df = emptyTable(records[0])
	} else {
		df = dataframe.LoadRecords(records,
			dataframe.HasHeader(true),
			dataframe.DetectTypes(true),
			dataframe.NaNValues(nullTokens),
			dataframe.WithTypes(columnTypes),
		)
	}
	if df.Err != nil {
		return dataframe.DataFrame{}, &SchemaError{Message: "unreadable CSV", Cause: df.Err}
	}
	if err := requireColumns(df); err != nil {
		return dataframe.DataFrame{}, err
	}

	ts := df.Col(ColTimestamp)
	for i := 0; i < ts.Len(); i++ {
		el := ts.Elem(i)
		if el.IsNA() {
			continue
		}
		if _, err := ParseTimestamp(el.String()); err != nil {
			return dataframe.DataFrame{}, &SchemaError{
				Column:  ColTimestamp,
				Message: fmt.Sprintf("row %d", i+1),
				Cause:   err,
			}
		}
	}
	return df, nil
}

// emptyTable builds a zero-row table with the given header.
func emptyTable(header []string) dataframe.DataFrame {
	cols := make([]series.Series, len(header))
	for i, name := range header {
		t, ok := columnTypes[name]
		if !ok {
			t = series.String
		}
		cols[i] = series.New([]string{}, t, name)
	}
	return dataframe.New(cols...)
}

// LoadBytes is LoadCSV over an in-memory upload.
func LoadBytes(data []byte) (dataframe.DataFrame, error) {
	return LoadCSV(bytes.NewReader(data))
}

func requireColumns(df dataframe.DataFrame) error {
	present := make(map[string]bool, df.Ncol())
	for _, name := range df.Names() {
		present[name] = true
	}
	for _, name := range requiredColumns {
		if !present[name] {
			return &SchemaError{Column: name, Message: "required column missing"}
		}
	}
	return nil
}
