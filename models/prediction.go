package models

const (
	ModeCSV    = "csv"
	ModeManual = "manual"
)

// PredictionRequest carries the user's selections. It binds from JSON or
// from multipart form fields. IsWeekend defaults to weekday >= 5 when
// omitted. The seven lag fields are required in manual mode and ignored in
// csv mode.
type PredictionRequest struct {
	Mode        string  `json:"mode" form:"mode" binding:"omitempty,oneof=csv manual"`
	Hour        int     `json:"hour" form:"hour" binding:"min=0,max=23"`
	Weekday     int     `json:"weekday" form:"weekday" binding:"min=0,max=6"`
	IsWeekend   *bool   `json:"is_weekend" form:"is_weekend"`
	Month       int     `json:"month" form:"month" binding:"min=1,max=12"`
	Temperature float64 `json:"temperature" form:"temperature"`
	Weather     string  `json:"weather" form:"weather"`
	Location    string  `json:"location" form:"location"`

	PrevHourCount    *float64 `json:"prev_hour_count" form:"prev_hour_count"`
	PrevHourCount2   *float64 `json:"prev_hour_count_2" form:"prev_hour_count_2"`
	PrevDaySameHour  *float64 `json:"prev_day_same_hour" form:"prev_day_same_hour"`
	PrevYearSameHour *float64 `json:"prev_year_same_hour" form:"prev_year_same_hour"`
	Rolling3h        *float64 `json:"rolling_3h" form:"rolling_3h"`
	Rolling6h        *float64 `json:"rolling_6h" form:"rolling_6h"`
	Rolling24h       *float64 `json:"rolling_24h" form:"rolling_24h"`
}

// EffectiveMode is Mode with the csv default applied.
func (r PredictionRequest) EffectiveMode() string {
	if r.Mode == "" {
		return ModeCSV
	}
	return r.Mode
}

// Weekend returns IsWeekend, or derives it from Weekday when unset.
func (r PredictionRequest) Weekend() bool {
	if r.IsWeekend != nil {
		return *r.IsWeekend
	}
	return r.Weekday >= 5
}

// MissingLags names the manual lag fields left unset.
func (r PredictionRequest) MissingLags() []string {
	fields := []struct {
		name  string
		value *float64
	}{
		{"prev_hour_count", r.PrevHourCount},
		{"prev_hour_count_2", r.PrevHourCount2},
		{"prev_day_same_hour", r.PrevDaySameHour},
		{"prev_year_same_hour", r.PrevYearSameHour},
		{"rolling_3h", r.Rolling3h},
		{"rolling_6h", r.Rolling6h},
		{"rolling_24h", r.Rolling24h},
	}
	var missing []string
	for _, f := range fields {
		if f.value == nil {
			missing = append(missing, f.name)
		}
	}
	return missing
}

type PredictionResponse struct {
	Prediction    int                `json:"prediction"`
	LogPrediction float64            `json:"log_prediction"`
	ModelVersion  string             `json:"model_version"`
	Mode          string             `json:"mode"`
	Features      map[string]float64 `json:"features"`
}

type UploadViewsResponse struct {
	SHA256 string `json:"sha256"`
	Cached bool   `json:"cached"`
	Data   Views  `json:"data"`
}
