package models

// Point is one labelled value of a chart. Value is nil when the label has
// no data behind it (only the monthly view emits such points).
type Point struct {
	Label string   `json:"label"`
	Value *float64 `json:"value"`
}

type View struct {
	Name   string  `json:"name"`
	Title  string  `json:"title"`
	Kind   string  `json:"kind"`
	XLabel string  `json:"x_label,omitempty"`
	YLabel string  `json:"y_label"`
	Points []Point `json:"points"`
}

type LocationSeries struct {
	Location string     `json:"location"`
	Values   []*float64 `json:"values"`
}

// PivotView holds one series per location over a shared hour axis.
type PivotView struct {
	Name   string           `json:"name"`
	Title  string           `json:"title"`
	Kind   string           `json:"kind"`
	XLabel string           `json:"x_label"`
	YLabel string           `json:"y_label"`
	Hours  []int            `json:"hours"`
	Series []LocationSeries `json:"series"`
}

type Views struct {
	Hourly           View      `json:"hourly"`
	Weekday          View      `json:"weekday"`
	Monthly          View      `json:"monthly"`
	Locations        View      `json:"locations"`
	Weekend          View      `json:"weekend"`
	HourlyByLocation PivotView `json:"hourly_by_location"`
}

// DatasetSummary describes a load of the pipeline.
type DatasetSummary struct {
	Source         string   `json:"source"`
	SHA256         string   `json:"sha256"`
	RawRows        int      `json:"raw_rows"`
	CleanRows      int      `json:"clean_rows"`
	DroppedColumns []string `json:"dropped_columns"`
	Columns        []string `json:"columns"`
	Locations      []string `json:"locations"`
}
