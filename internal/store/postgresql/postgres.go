package postgresql

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/bsv-faucet/faucet/internal/store"
)

const postgresDriverName = "postgres"

//go:embed migrations/*.sql
var migrationsFS embed.FS

var ErrFailedToMigrate = errors.New("failed to run schema migrations")

// PostgreSQL is the durable HistoryStore. ReservePending runs the count and
// the insert in a single serializable transaction so the ordinal is
// consistent with the inserted row even without the caller's reservation
// lock.
type PostgreSQL struct {
	db  *sql.DB
	now func() time.Time
}

func WithNow(nowFunc func() time.Time) func(*PostgreSQL) {
	return func(p *PostgreSQL) {
		p.now = nowFunc
	}
}

func New(dbInfo string, idleConns int, maxOpenConns int, opts ...func(*PostgreSQL)) (*PostgreSQL, error) {
	db, err := sql.Open(postgresDriverName, dbInfo)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres DB: %w", err)
	}

	db.SetMaxIdleConns(idleConns)
	db.SetMaxOpenConns(maxOpenConns)

	p := &PostgreSQL{
		db:  db,
		now: time.Now,
	}

	for _, opt := range opts {
		opt(p)
	}

	err = p.migrate()
	if err != nil {
		return nil, err
	}

	return p, nil
}

func (p *PostgreSQL) migrate() error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return errors.Join(ErrFailedToMigrate, err)
	}

	driver, err := migratepostgres.WithInstance(p.db, &migratepostgres.Config{})
	if err != nil {
		return errors.Join(ErrFailedToMigrate, err)
	}

	m, err := migrate.NewWithInstance("iofs", source, postgresDriverName, driver)
	if err != nil {
		return errors.Join(ErrFailedToMigrate, err)
	}

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Join(ErrFailedToMigrate, err)
	}

	return nil
}

func (p *PostgreSQL) Count(ctx context.Context) (int64, error) {
	q := `SELECT COUNT(*) FROM transaction_history;`

	var count int64
	err := p.db.QueryRowContext(ctx, q).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

func (p *PostgreSQL) ReservePending(ctx context.Context, userHash string, amountAt func(ordinal int64) (int64, error)) (*store.HistoryRecord, error) {
	tx, err := p.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var count int64
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM transaction_history;`).Scan(&count)
	if err != nil {
		return nil, err
	}

	ordinal := count + 1

	amount, err := amountAt(ordinal)
	if err != nil {
		return nil, err
	}

	record := &store.HistoryRecord{
		UserHash:      userHash,
		TransactionID: store.TransactionIDPending,
		Amount:        amount,
		CreatedAt:     p.now().UTC(),
	}

	q := `
	INSERT INTO transaction_history (user_hash, transaction_id, amount, created_at)
	VALUES ($1, $2, $3, $4)
	RETURNING id;`

	err = tx.QueryRowContext(ctx, q, record.UserHash, record.TransactionID, record.Amount, record.CreatedAt).Scan(&record.ID)
	if err != nil {
		return nil, err
	}

	err = tx.Commit()
	if err != nil {
		return nil, err
	}

	return record, nil
}

func (p *PostgreSQL) Finalize(ctx context.Context, id int64, transactionID string) error {
	q := `UPDATE transaction_history SET transaction_id = $1 WHERE id = $2;`

	result, err := p.db.ExecContext(ctx, q, transactionID, id)
	if err != nil {
		return err
	}

	return requireOneRow(result)
}

func (p *PostgreSQL) Delete(ctx context.Context, id int64) error {
	q := `DELETE FROM transaction_history WHERE id = $1;`

	result, err := p.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}

	return requireOneRow(result)
}

func (p *PostgreSQL) ExistsByUserHash(ctx context.Context, userHash string) (bool, error) {
	q := `SELECT EXISTS (SELECT 1 FROM transaction_history WHERE user_hash = $1);`

	var exists bool
	err := p.db.QueryRowContext(ctx, q, userHash).Scan(&exists)
	if err != nil {
		return false, err
	}

	return exists, nil
}

func (p *PostgreSQL) ListByUserHash(ctx context.Context, userHash string) ([]*store.HistoryRecord, error) {
	q := `
	SELECT id, user_hash, transaction_id, amount, created_at
	FROM transaction_history
	WHERE user_hash = $1
	ORDER BY created_at DESC, id DESC;`

	rows, err := p.db.QueryContext(ctx, q, userHash)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*store.HistoryRecord
	for rows.Next() {
		record := &store.HistoryRecord{}
		err = rows.Scan(&record.ID, &record.UserHash, &record.TransactionID, &record.Amount, &record.CreatedAt)
		if err != nil {
			return nil, err
		}

		records = append(records, record)
	}

	return records, rows.Err()
}

func (p *PostgreSQL) Close() error {
	return p.db.Close()
}

func requireOneRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if affected == 0 {
		return store.ErrNotFound
	}

	return nil
}
