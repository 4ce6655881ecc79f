package database

import (
	"context"
	"time"

	"go.uber.org/zap"

	"summerberry-forecast/models"
)

const historyQuery = `
	SELECT *
	FROM harvest_records
	WHERE site = $1
	  AND variety = $2
	  AND sector = $3
	  AND plantation_date = $4
	ORDER BY record_date DESC
	LIMIT $5`

// HistoryGateway looks up recent harvest records for a planting.
// Every failure is absorbed: callers always get a result.
type HistoryGateway struct {
	db      *Database
	limit   int
	timeout time.Duration
	log     *zap.Logger
}

// NewHistoryGateway creates a gateway returning at most limit rows per lookup.
// A zero timeout leaves deadlines to the caller's context.
func NewHistoryGateway(db *Database, limit int, timeout time.Duration, log *zap.Logger) *HistoryGateway {
	if log == nil {
		log = zap.NewNop()
	}
	if limit <= 0 {
		limit = 30
	}
	return &HistoryGateway{db: db, limit: limit, timeout: timeout, log: log}
}

// FetchHistory returns up to limit records, newest first, or an empty result on any failure
func (g *HistoryGateway) FetchHistory(ctx context.Context, site, variety, sector, plantationDate string) models.HistoricalQueryResult {
	if g == nil || g.db == nil {
		return models.EmptyHistory()
	}

	records, err := g.query(ctx, site, variety, sector, plantationDate)
	if err != nil {
		g.log.Warn("Historical lookup failed, continuing without history",
			zap.String("site", site),
			zap.String("variety", variety),
			zap.String("sector", sector),
			zap.Error(err))
		return models.EmptyHistory()
	}

	return models.HistoricalQueryResult{Records: records, Count: len(records)}
}

// query runs on a dedicated connection inside a read-only transaction.
// Both are released on every path.
func (g *HistoryGateway) query(ctx context.Context, site, variety, sector, plantationDate string) (_ []models.HistoricalRecord, err error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	conn, err := g.db.x.Connx(ctx)
	if err != nil {
		return nil, WrapDBError("acquire connection", err)
	}
	defer conn.Close()

	tx, err := conn.BeginTxx(ctx, nil)
	if err != nil {
		return nil, WrapDBError("begin transaction", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	rows, err := tx.QueryxContext(ctx, historyQuery, site, variety, sector, plantationDate, g.limit)
	if err != nil {
		return nil, WrapDBError("query harvest_records", err)
	}
	defer rows.Close()

	records := make([]models.HistoricalRecord, 0, g.limit)
	for rows.Next() {
		row := make(map[string]interface{})
		if err = rows.MapScan(row); err != nil {
			return nil, WrapDBError("scan harvest_records", err)
		}
		records = append(records, normalizeRecord(row))
	}
	if err = rows.Err(); err != nil {
		return nil, WrapDBError("iterate harvest_records", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, WrapDBError("commit", err)
	}
	return records, nil
}

// normalizeRecord converts driver byte slices (numeric, text) to strings
func normalizeRecord(row map[string]interface{}) models.HistoricalRecord {
	out := make(models.HistoricalRecord, len(row))
	for k, v := range row {
		if b, ok := v.([]byte); ok {
			out[k] = string(b)
			continue
		}
		out[k] = v
	}
	return out
}
