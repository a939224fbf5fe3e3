package service

import (
	"context"
	"time"

	"options_analyzer/internal/models"
	"options_analyzer/pkg/db"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

// Archive persists fetched daily closes so a later run can still compute
// volatility when the data provider is down.
type Archive interface {
	SaveCloses(ctx context.Context, ticker string, closes []models.Close) error
	LoadCloses(ctx context.Context, ticker string, start, end time.Time) ([]models.Close, error)
}

const (
	createClosesTable = `
CREATE TABLE IF NOT EXISTS daily_closes (
	ticker     TEXT             NOT NULL,
	day        DATE             NOT NULL,
	close      DOUBLE PRECISION NOT NULL,
	updated_at TIMESTAMPTZ      NOT NULL DEFAULT now(),
	PRIMARY KEY (ticker, day)
)`

	upsertClose = `
INSERT INTO daily_closes (ticker, day, close, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (ticker, day) DO UPDATE
SET close = EXCLUDED.close, updated_at = now()`

	selectCloses = `
SELECT day, close
FROM daily_closes
WHERE ticker = $1 AND day >= $2 AND day < $3
ORDER BY day`
)

// PgArchive implements Archive on daily_closes.
type PgArchive struct {
	tx db.TxManager
}

func NewPgArchive(tx db.TxManager) *PgArchive {
	return &PgArchive{tx: tx}
}

// EnsureSchema creates the daily_closes table if it is missing.
func (a *PgArchive) EnsureSchema(ctx context.Context) error {
	if _, err := a.tx.Conn().Exec(ctx, createClosesTable); err != nil {
		return errors.Wrap(err, "create daily_closes")
	}
	return nil
}

func (a *PgArchive) SaveCloses(ctx context.Context, ticker string, closes []models.Close) error {
	if len(closes) == 0 {
		return nil
	}

	return a.tx.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, c := range closes {
			batch.Queue(upsertClose, ticker, dateOnly(c.Date), c.Price)
		}
		if err := tx.SendBatch(ctxTx, batch).Close(); err != nil {
			return errors.Wrapf(err, "upsert closes %s", ticker)
		}
		return nil
	})
}

func (a *PgArchive) LoadCloses(ctx context.Context, ticker string, start, end time.Time) ([]models.Close, error) {
	rows, err := a.tx.Conn().Query(ctx, selectCloses, ticker, dateOnly(start), dateOnly(end))
	if err != nil {
		return nil, errors.Wrapf(err, "select closes %s", ticker)
	}
	defer rows.Close()

	var out []models.Close
	for rows.Next() {
		var c models.Close
		if err := rows.Scan(&c.Date, &c.Price); err != nil {
			return nil, errors.Wrapf(err, "scan close %s", ticker)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "iterate closes %s", ticker)
	}
	return out, nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
