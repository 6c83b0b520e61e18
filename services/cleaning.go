package services

import (
	"strings"

	"github.com/go-gota/gota/dataframe"
)

const (
	streetName       = "Bahnhofstrasse"
	zoneColumnMarker = "zone_99"
)

// Clean filters a raw sensor table into an analysis-ready one. The steps run
// in a fixed order: zone_99 columns are dropped before the final null check
// so rows are not lost to nulls in columns that are going away anyway.
// Row order is preserved.
func Clean(raw dataframe.DataFrame) (dataframe.DataFrame, error) {
	if raw.Err != nil {
		return dataframe.DataFrame{}, &SchemaError{Message: "invalid table", Cause: raw.Err}
	}
	if err := requireColumns(raw); err != nil {
		return dataframe.DataFrame{}, err
	}

	collection := raw.Col(ColCollectionType)
	location := raw.Col(ColLocation)
	keep := make([]int, 0, raw.Nrow())
	for i := 0; i < raw.Nrow(); i++ {
		if collection.Elem(i).IsNA() {
			continue
		}
		loc := location.Elem(i)
		if loc.IsNA() || !strings.Contains(loc.String(), streetName) {
			continue
		}
		keep = append(keep, i)
	}
	df := raw.Subset(keep)

	retained := make([]string, 0, df.Ncol())
	for _, name := range df.Names() {
		if !strings.Contains(name, zoneColumnMarker) {
			retained = append(retained, name)
		}
	}
	if len(retained) != df.Ncol() {
		df = df.Select(retained)
	}

	df = df.Subset(completeRows(df))
	if df.Err != nil {
		return dataframe.DataFrame{}, df.Err
	}
	return df, nil
}

// completeRows returns the indexes of rows with no null in any column.
func completeRows(df dataframe.DataFrame) []int {
	complete := make([]bool, df.Nrow())
	for i := range complete {
		complete[i] = true
	}
	for _, name := range df.Names() {
		for i, na := range df.Col(name).IsNaN() {
			if na {
				complete[i] = false
			}
		}
	}
	rows := make([]int, 0, len(complete))
	for i, ok := range complete {
		if ok {
			rows = append(rows, i)
		}
	}
	return rows
}

// DroppedColumns lists the columns of raw removed by Clean.
func DroppedColumns(raw dataframe.DataFrame) []string {
	var dropped []string
	for _, name := range raw.Names() {
		if strings.Contains(name, zoneColumnMarker) {
			dropped = append(dropped, name)
		}
	}
	return dropped
}
