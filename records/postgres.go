package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/p2pbot/core/logger"
)

const recordColumns = `id, user_id, amount, transaction_type, date, comment, created_at`

// PostgresStore persists records in the p2p_transactions table.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore wraps an open connection pool.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create inserts rec and returns the generated id.
func (s *PostgresStore) Create(ctx context.Context, rec NewRecord) (int64, error) {
	if err := validateNew(rec); err != nil {
		return 0, err
	}
	date := rec.Date
	if date.IsZero() {
		date = time.Now()
	}
	start := time.Now()
	var id int64
	err := s.db.QueryRowxContext(ctx,
		`INSERT INTO p2p_transactions (user_id, amount, transaction_type, date, comment)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		rec.OwnerID, rec.Amount, string(rec.Kind), date, rec.Comment,
	).Scan(&id)
	if err != nil {
		logFailure(ctx, "create", start, err)
		return 0, storeErr("create", err)
	}
	logger.Debug(ctx, "records", "record.create",
		slog.String("status", "ok"),
		slog.Int64("record_id", id),
		slog.Duration("duration", logger.Took(start)),
	)
	return id, nil
}

// Get loads a single record.
func (s *PostgresStore) Get(ctx context.Context, id int64) (Record, error) {
	start := time.Now()
	var r Record
	err := s.db.GetContext(ctx, &r,
		`SELECT `+recordColumns+` FROM p2p_transactions WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		logFailure(ctx, "get", start, err)
		return Record{}, storeErr("get", err)
	}
	return r, nil
}

// Update writes the non-nil fields of ch in a single statement.
func (s *PostgresStore) Update(ctx context.Context, id int64, ch Changes) error {
	if err := validateChanges(ch); err != nil {
		return err
	}
	sets := make([]string, 0, 4)
	args := make([]any, 0, 5)
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if ch.Amount != nil {
		add("amount", *ch.Amount)
	}
	if ch.Kind != nil {
		add("transaction_type", string(*ch.Kind))
	}
	if ch.Date != nil {
		add("date", *ch.Date)
	}
	if ch.Comment != nil {
		add("comment", *ch.Comment)
	}
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE p2p_transactions SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(args))

	start := time.Now()
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		logFailure(ctx, "update", start, err)
		return storeErr("update", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr("update", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	logger.Debug(ctx, "records", "record.update",
		slog.String("status", "ok"),
		slog.Int64("record_id", id),
		slog.Int("fields", len(sets)),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}

// ListByOwner returns all records of an owner, newest first.
func (s *PostgresStore) ListByOwner(ctx context.Context, ownerID int64) ([]Record, error) {
	start := time.Now()
	var out []Record
	err := s.db.SelectContext(ctx, &out,
		`SELECT `+recordColumns+` FROM p2p_transactions
		 WHERE user_id = $1
		 ORDER BY date DESC, id DESC`, ownerID)
	if err != nil {
		logFailure(ctx, "list", start, err)
		return nil, storeErr("list", err)
	}
	return out, nil
}

// Ping checks that the database answers; used by the readiness probe.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func logFailure(ctx context.Context, op string, start time.Time, err error) {
	logger.Error(ctx, "records", "record."+op,
		slog.String("status", "fail"),
		slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		slog.Duration("duration", logger.Took(start)),
	)
}
