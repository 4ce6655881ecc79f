// Package models holds the value types shared by the forecast pipeline and its transports.
//
// These types are created fresh per request and never mutated once they leave the component
// that built them. None of them are persisted by this service.
package models

// Correlation direction of an influencing factor
const (
	CorrelationPositive = "positive"
	CorrelationNegative = "negative"
)

// RequestContext carries the categorical context of one forecast request.
// Dates are expected as YYYY-MM-DD; consumers substitute fallbacks when they fail to parse.
type RequestContext struct {
	Site           string `json:"site"`
	Variety        string `json:"variety"`
	Sector         string `json:"sector"`
	PlantType      string `json:"plantType"`
	PlantationDate string `json:"plantationDate"`
	SelectedDate   string `json:"selectedDate"`
}

// HistoricalRecord is one row returned by the historical-records store, keyed by column name.
type HistoricalRecord map[string]any

// HistoricalQueryResult wraps the rows of a history lookup
type HistoricalQueryResult struct {
	Records []HistoricalRecord `json:"records"`
	Count   int                `json:"count"`
}

// EmptyHistory is the result used whenever the history lookup cannot be completed.
func EmptyHistory() HistoricalQueryResult {
	return HistoricalQueryResult{Records: []HistoricalRecord{}, Count: 0}
}

// ForecastPoint is one day of the forecast horizon
type ForecastPoint struct {
	Day   string `json:"day"`
	Date  string `json:"date"`
	Value int    `json:"value"`
}

// InfluencingFactor is a ranked driver of the forecast
type InfluencingFactor struct {
	Name        string `json:"name"`
	Importance  int    `json:"importance"`
	Correlation string `json:"correlation"`
}

// PredictionResult is the response aggregate returned to the dashboard
type PredictionResult struct {
	Predictions []ForecastPoint     `json:"predictions"`
	Total       int                 `json:"total"`
	Average     int                 `json:"average"`
	StdDev      string              `json:"stdDev"`
	Factors     []InfluencingFactor `json:"factors"`
}

// ForecastEvent is the summary broadcast after a successful forecast.
// It deliberately omits the per-day values.
type ForecastEvent struct {
	Site         string `json:"site"`
	Variety      string `json:"variety"`
	Sector       string `json:"sector"`
	PlantType    string `json:"plantType"`
	SelectedDate string `json:"selectedDate"`
	Total        int    `json:"total"`
	Average      int    `json:"average"`
	Days         int    `json:"days"`
}

// NewForecastEvent summarizes a result for its request context
func NewForecastEvent(req RequestContext, res *PredictionResult) ForecastEvent {
	evt := ForecastEvent{
		Site:         req.Site,
		Variety:      req.Variety,
		Sector:       req.Sector,
		PlantType:    req.PlantType,
		SelectedDate: req.SelectedDate,
	}
	if res != nil {
		evt.Total = res.Total
		evt.Average = res.Average
		evt.Days = len(res.Predictions)
	}
	return evt
}
