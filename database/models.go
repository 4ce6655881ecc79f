package database

import "time"

// HarvestRecord is one daily harvest measurement for a planting.
// The table belongs to the field data system; this service only reads it,
// except for the optional schema bootstrap in Repository.InitSchema.
//
// Key Fields:
//   - Site, Variety, Sector, PlantationDate: identify a planting (composite index)
//   - RecordDate: the measurement day (history is returned newest first)
//   - HarvestKg: picked quantity for the day
type HarvestRecord struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Site           string    `gorm:"size:16;not null;index:idx_harvest_planting" json:"site"`
	Variety        string    `gorm:"size:8;not null;index:idx_harvest_planting" json:"variety"`
	Sector         string    `gorm:"size:32;not null;index:idx_harvest_planting" json:"sector"`
	PlantType      string    `gorm:"size:8" json:"plant_type"`
	PlantationDate time.Time `gorm:"type:date;not null;index:idx_harvest_planting" json:"plantation_date"`
	RecordDate     time.Time `gorm:"type:date;not null;index" json:"record_date"`
	HarvestKg      float64   `gorm:"type:decimal(12,2)" json:"harvest_kg"`
	Temperature    *float64  `gorm:"type:decimal(5,2)" json:"temperature,omitempty"`
	Humidity       *float64  `gorm:"type:decimal(5,2)" json:"humidity,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// TableName specifies the table name for HarvestRecord
func (HarvestRecord) TableName() string {
	return "harvest_records"
}
