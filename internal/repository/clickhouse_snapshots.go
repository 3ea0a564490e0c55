package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"SignalForge/internal/domain/models"
	"SignalForge/internal/domain/repository"
)

// ClickHouseSnapshots implements SnapshotStore for ClickHouse.
type ClickHouseSnapshots struct {
	db    *sql.DB
	table string
}

// NewClickHouseSnapshots creates ClickHouse snapshot storage.
func NewClickHouseSnapshots(db *sql.DB, table string) repository.SnapshotStore {
	return &ClickHouseSnapshots{db: db, table: table}
}

func (s *ClickHouseSnapshots) Init(ctx context.Context) error {
	return nil // Schema init in pkg
}

const snapshotColumns = "(ts, symbol, bid, ask, last, volume, open, high, low, close)"

func (s *ClickHouseSnapshots) Store(ctx context.Context, snap *models.MarketSnapshot) error {
	q := fmt.Sprintf("INSERT INTO %s %s VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", s.table, snapshotColumns)
	_, err := s.db.ExecContext(ctx, q,
		snap.Timestamp,
		snap.Symbol,
		snap.Bid,
		snap.Ask,
		snap.Last,
		snap.Volume,
		snap.Open,
		snap.High,
		snap.Low,
		snap.Close,
	)
	return err
}

func (s *ClickHouseSnapshots) StoreBatch(ctx context.Context, snaps []*models.MarketSnapshot) error {
	if len(snaps) == 0 {
		return nil
	}
	// Multi-row VALUES to reduce round-trips. Chunked at 2000 rows.
	const chunkSize = 2000
	for start := 0; start < len(snaps); start += chunkSize {
		end := start + chunkSize
		if end > len(snaps) {
			end = len(snaps)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*10)
		for _, snap := range snaps[start:end] {
			if snap == nil || snap.Symbol == "" || snap.Timestamp.IsZero() {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				snap.Timestamp,
				snap.Symbol,
				snap.Bid,
				snap.Ask,
				snap.Last,
				snap.Volume,
				snap.Open,
				snap.High,
				snap.Low,
				snap.Close,
			)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s %s VALUES %s", s.table, snapshotColumns, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

func (s *ClickHouseSnapshots) Query(ctx context.Context, symbol string, from, to time.Time, limit int) ([]*models.MarketSnapshot, error) {
	q := fmt.Sprintf("SELECT symbol, ts, bid, ask, last, volume, open, high, low, close FROM %s WHERE symbol = ? AND ts >= ? AND ts <= ? ORDER BY ts ASC LIMIT ?", s.table)
	rows, err := s.db.QueryContext(ctx, q, symbol, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []*models.MarketSnapshot
	for rows.Next() {
		var m models.MarketSnapshot
		if err := rows.Scan(&m.Symbol, &m.Timestamp, &m.Bid, &m.Ask, &m.Last, &m.Volume, &m.Open, &m.High, &m.Low, &m.Close); err != nil {
			return nil, err
		}
		snaps = append(snaps, &m)
	}
	return snaps, rows.Err()
}

func (s *ClickHouseSnapshots) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseSnapshots) Close() error {
	return nil // Managed by pkg
}
