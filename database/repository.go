package database

import (
	"context"

	"go.uber.org/zap"
)

// Repository handles schema management and aggregate reads over harvest_records
type Repository struct {
	db *Database
}

// NewRepository creates a new repository
func NewRepository(db *Database) *Repository {
	return &Repository{db: db}
}

// InitSchema creates or updates the harvest_records table.
// Only used for local setups; production schemas are owned upstream.
func (r *Repository) InitSchema() error {
	r.db.log.Info("Starting database schema initialization")

	if err := r.db.db.AutoMigrate(&HarvestRecord{}); err != nil {
		return WrapDBError("auto-migrate harvest_records", err)
	}

	r.db.log.Info("Database schema initialized")
	return nil
}

// Ping reports store reachability
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

// CountRecords returns the number of stored harvest records
func (r *Repository) CountRecords(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.db.WithContext(ctx).Model(&HarvestRecord{}).Count(&count).Error; err != nil {
		return 0, WrapDBError("count harvest_records", err)
	}
	return count, nil
}

// CountBySite returns record counts grouped by site
func (r *Repository) CountBySite(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Site  string
		Total int64
	}
	err := r.db.db.WithContext(ctx).
		Model(&HarvestRecord{}).
		Select("site, COUNT(*) AS total").
		Group("site").
		Scan(&rows).Error
	if err != nil {
		return nil, WrapDBError("count harvest_records by site", err)
	}

	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Site] = row.Total
	}
	r.db.log.Debug("Counted harvest records by site", zap.Int("sites", len(out)))
	return out, nil
}
