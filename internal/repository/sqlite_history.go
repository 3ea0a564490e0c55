package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
)

// SQLiteHistory implements HistorySource over a local market-data file.
// Backtests default to it: a single-file ohlc_1m table needs no cluster
// and makes replays portable between machines.
type SQLiteHistory struct {
	db *sql.DB
}

// OpenSQLiteHistory opens (and if needed initializes) the database at path.
func OpenSQLiteHistory(path string) (*SQLiteHistory, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	s := &SQLiteHistory{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteHistory) init() error {
	const schema = `
        CREATE TABLE IF NOT EXISTS ohlc_1m (
            symbol TEXT NOT NULL,
            bucket INTEGER NOT NULL,
            open REAL NOT NULL,
            high REAL NOT NULL,
            low REAL NOT NULL,
            close REAL NOT NULL,
            volume REAL NOT NULL DEFAULT 0,
            PRIMARY KEY (symbol, bucket)
        )`
	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("init ohlc_1m: %w", err)
	}
	return nil
}

// Insert writes one candle; used by import tooling and tests.
func (s *SQLiteHistory) Insert(ctx context.Context, c models.Candle) error {
	const q = `INSERT OR REPLACE INTO ohlc_1m (symbol, bucket, open, high, low, close, volume) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q, c.Symbol, c.Bucket.Unix(), c.Open, c.High, c.Low, c.Close, c.Volume)
	return err
}

func (s *SQLiteHistory) GetCandles(ctx context.Context, symbol string, from, to time.Time, tf domrepo.Timeframe) ([]models.Candle, error) {
	if tf != domrepo.TF1m {
		return nil, fmt.Errorf("sqlite history stores 1m candles only, got %s", tf)
	}
	const q = `
        SELECT symbol, bucket, open, high, low, close, volume
        FROM ohlc_1m
        WHERE symbol = ? AND bucket >= ? AND bucket <= ?
        ORDER BY bucket ASC`
	rows, err := s.db.QueryContext(ctx, q, symbol, from.Unix(), to.Unix())
	if err != nil {
		return nil, fmt.Errorf("get candles: %w", err)
	}
	defer rows.Close()
	return scanCandles(rows)
}

func (s *SQLiteHistory) GetLatestNCandles(ctx context.Context, symbol string, n int, tf domrepo.Timeframe) ([]models.Candle, error) {
	if tf != domrepo.TF1m {
		return nil, fmt.Errorf("sqlite history stores 1m candles only, got %s", tf)
	}
	const q = `
        SELECT symbol, bucket, open, high, low, close, volume
        FROM ohlc_1m
        WHERE symbol = ?
        ORDER BY bucket DESC
        LIMIT ?`
	rows, err := s.db.QueryContext(ctx, q, symbol, n)
	if err != nil {
		return nil, fmt.Errorf("get latest candles: %w", err)
	}
	defer rows.Close()

	out, err := scanCandles(rows)
	if err != nil {
		return nil, err
	}
	// reverse to ASC
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func scanCandles(rows *sql.Rows) ([]models.Candle, error) {
	var out []models.Candle
	for rows.Next() {
		var c models.Candle
		var bucket int64
		if err := rows.Scan(&c.Symbol, &bucket, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		c.Bucket = time.Unix(bucket, 0).UTC()
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLiteHistory) Close() error { return s.db.Close() }
