// Package features turns an upload, its historical context and the request context into the
// numeric matrix consumed by the prediction model.
//
// Encodings are part of the contract with every trained artifact and must not change:
//
//	col 0  site indicator      1 for "alm", 0 otherwise
//	col 1  variety code        a..e -> 0..4, unknown -> 0
//	col 2  plant-type code     gc, gt, lc, rb, sc -> 0..4, unknown -> 0
//	col 3  sector hash         (sum of code points mod 100) / 100
//	col 4  plantation age      whole days from plantation to the forecast day
//	col 5  day index           0..HorizonDays-1
//	col 6+ upload means        mean of the first MaxUploadFeatures numeric columns
package features

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"summerberry-forecast/helpers"
	"summerberry-forecast/models"
	"summerberry-forecast/upload"
)

const (
	// HorizonDays is the fixed forecast window
	HorizonDays = 7

	// BaseColumns is the number of context-derived columns present on every matrix
	BaseColumns = 6

	// MaxUploadFeatures caps how many numeric upload columns become features
	MaxUploadFeatures = 5

	// FallbackPlantationAge is used when either date cannot be parsed
	FallbackPlantationAge = 365

	// AlmSite is the only site encoded as 1
	AlmSite = "alm"
)

// Column indexes of the base features
const (
	ColSite = iota
	ColVariety
	ColPlantType
	ColSectorHash
	ColPlantationAge
	ColDayIndex
)

var baseNames = []string{"site", "variety", "plant_type", "sector_hash", "plantation_age", "day_index"}

var varietyCodes = map[string]float64{"a": 0, "b": 1, "c": 2, "d": 3, "e": 4}

var plantTypeCodes = map[string]float64{"gc": 0, "gt": 1, "lc": 2, "rb": 3, "sc": 4}

// Build produces one row per forecast day.
// history is accepted so artifacts can later consume it; it does not affect the output today.
func Build(table *upload.Table, history models.HistoricalQueryResult, req models.RequestContext) *Matrix {
	_ = history

	uploadNames, uploadMeans := uploadFeatures(table)

	cols := BaseColumns + len(uploadMeans)
	data := mat.NewDense(HorizonDays, cols, nil)

	site := SiteIndicator(req.Site)
	variety := VarietyCode(req.Variety)
	plantType := PlantTypeCode(req.PlantType)
	sector := SectorHash(req.Sector)
	age := PlantationAge(req.PlantationDate, req.SelectedDate)

	for day := 0; day < HorizonDays; day++ {
		data.Set(day, ColSite, site)
		data.Set(day, ColVariety, variety)
		data.Set(day, ColPlantType, plantType)
		data.Set(day, ColSectorHash, sector)
		data.Set(day, ColPlantationAge, float64(age+day))
		data.Set(day, ColDayIndex, float64(day))
		for j, mean := range uploadMeans {
			data.Set(day, BaseColumns+j, mean)
		}
	}

	names := make([]string, 0, cols)
	names = append(names, baseNames...)
	names = append(names, uploadNames...)

	return &Matrix{data: data, names: names}
}

// SiteIndicator encodes the site as a binary flag
func SiteIndicator(site string) float64 {
	if site == AlmSite {
		return 1
	}
	return 0
}

// VarietyCode returns the ordinal of a known variety, 0 otherwise
func VarietyCode(variety string) float64 {
	return varietyCodes[variety]
}

// PlantTypeCode returns the ordinal of a known plant type, 0 otherwise
func PlantTypeCode(plantType string) float64 {
	return plantTypeCodes[plantType]
}

// SectorHash buckets a sector name into [0, 0.99]. Distinct sectors may collide.
func SectorHash(sector string) float64 {
	sum := 0
	for _, r := range sector {
		sum += int(r)
	}
	return float64(sum%100) / 100
}

// PlantationAge returns the whole days between plantation and selected date,
// or FallbackPlantationAge if either date is unparsable.
func PlantationAge(plantationDate, selectedDate string) int {
	planted, err := helpers.ParseISODate(plantationDate)
	if err != nil {
		return FallbackPlantationAge
	}
	selected, err := helpers.ParseISODate(selectedDate)
	if err != nil {
		return FallbackPlantationAge
	}
	return helpers.DaysBetween(planted, selected)
}

func uploadFeatures(table *upload.Table) ([]string, []float64) {
	if table.Empty() {
		return nil, nil
	}

	numeric := table.NumericColumns()
	if len(numeric) > MaxUploadFeatures {
		numeric = numeric[:MaxUploadFeatures]
	}

	names := make([]string, 0, len(numeric))
	means := make([]float64, 0, len(numeric))
	for _, col := range numeric {
		names = append(names, "mean:"+col.Name)
		means = append(means, stat.Mean(col.Values(), nil))
	}
	return names, means
}
