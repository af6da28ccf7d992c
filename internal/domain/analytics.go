package domain

import "time"

// Outcome says whether a stage produced a result or deliberately declined to.
type Outcome string

const (
	OutcomeOK               Outcome = "ok"
	OutcomeNoData           Outcome = "no_data"
	OutcomeInsufficientData Outcome = "insufficient_data"
	OutcomeUpToDate         Outcome = "up_to_date"
)

// Anomaly labels as written to the anomaly artifact.
const (
	LabelNormal  = "Normal"
	LabelAnomaly = "Anomaly"
)

// CleanReport is the result of one cleaning pass
type CleanReport struct {
	Records       []CleanedRecord
	InputRows     int
	Duplicates    int
	MissingFields int
	BadDates      int
	BadNumbers    int
	Outcome       Outcome
}

// Dropped returns how many input rows did not survive cleaning.
func (r CleanReport) Dropped() int {
	return r.Duplicates + r.MissingFields + r.BadDates + r.BadNumbers
}

// ForecastPoint is one row of a forecast artifact
type ForecastPoint struct {
	Date      time.Time `json:"ds"`
	Yhat      float64   `json:"yhat"`
	YhatLower float64   `json:"yhat_lower"`
	YhatUpper float64   `json:"yhat_upper"`
	Trend     float64   `json:"trend"`
	Future    bool      `json:"future"`
}

// ForecastResult is the per-item predicted usage series spanning history and horizon
type ForecastResult struct {
	ItemName     string          `json:"item_name"`
	Horizon      int             `json:"horizon"`
	Observations int             `json:"observations"`
	LastObserved time.Time       `json:"last_observed"`
	Points       []ForecastPoint `json:"points"`
	Outcome      Outcome         `json:"outcome"`
}

// FuturePoints returns the out-of-sample part of the forecast.
func (r ForecastResult) FuturePoints() []ForecastPoint {
	out := make([]ForecastPoint, 0, r.Horizon)
	for _, p := range r.Points {
		if p.Future {
			out = append(out, p)
		}
	}
	return out
}

// AnomalyLabel classifies one historical usage observation
type AnomalyLabel struct {
	Date       time.Time `json:"date"`
	ItemName   string    `json:"item_name"`
	UsageToday float64   `json:"usage_today"`
	Label      string    `json:"anomaly"`
}

// IsAnomaly reports whether the observation was flagged.
func (l AnomalyLabel) IsAnomaly() bool {
	return l.Label == LabelAnomaly
}

// AnomalyResult holds the labels for one item
type AnomalyResult struct {
	ItemName      string         `json:"item_name"`
	Contamination float64        `json:"contamination"`
	Labels        []AnomalyLabel `json:"labels"`
	Outcome       Outcome        `json:"outcome"`
}

// AnomalyCount returns how many labels are anomalous.
func (r AnomalyResult) AnomalyCount() int {
	n := 0
	for _, l := range r.Labels {
		if l.IsAnomaly() {
			n++
		}
	}
	return n
}

// Runout is the consumer-side depletion prediction derived from a forecast
type Runout struct {
	ItemName  string     `json:"item_name"`
	Threshold float64    `json:"threshold"`
	AtRisk    bool       `json:"at_risk"`
	Date      *time.Time `json:"runout_date,omitempty"`
	Message   string     `json:"message"`
}

// ArtifactStatus describes which derived artifacts currently exist
type ArtifactStatus struct {
	CleanedAvailable bool       `json:"cleaned_available"`
	CleanedAt        *time.Time `json:"cleaned_at,omitempty"`
	ForecastItems    []string   `json:"forecast_items"`
	AnomalyAvailable bool       `json:"anomaly_available"`
}
