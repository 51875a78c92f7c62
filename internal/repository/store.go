package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type scope struct {
	users       *UserRepository
	sessions    *SessionRepository
	cars        *CarRepository
	inspections *InspectionRepository
	reports     *ReportRepository
}

func newScope(db DBTX) scope {
	return scope{
		users:       NewUserRepository(db),
		sessions:    NewSessionRepository(db),
		cars:        NewCarRepository(db),
		inspections: NewInspectionRepository(db),
		reports:     NewReportRepository(db),
	}
}

func (s scope) Users() Users             { return s.users }
func (s scope) Sessions() Sessions       { return s.sessions }
func (s scope) Cars() Cars               { return s.cars }
func (s scope) Inspections() Inspections { return s.inspections }
func (s scope) Reports() Reports         { return s.reports }

type PostgresStore struct {
	scope
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{
		scope: newScope(pool),
		pool:  pool,
	}
}

func (s *PostgresStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		return fn(newScope(tx))
	})
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func violatedConstraint(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}
