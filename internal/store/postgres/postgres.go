// Package postgres is the self-hosted guest backend on PostgreSQL.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/JonMunkholm/weddingplanner/internal/core"
	"github.com/JonMunkholm/weddingplanner/internal/store"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

//go:embed schema.sql
var schemaSQL string

// uniqueViolation is the SQLSTATE for a unique index conflict.
const uniqueViolation = "23505"

// contextCheckInterval is how many rows are inserted between ctx checks.
const contextCheckInterval = 100

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// DB is a DBTX that can open transactions, such as *pgxpool.Pool.
type DB interface {
	DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store keeps guests in the guests table.
type Store struct {
	db     DB
	logger *slog.Logger
}

// New wraps db. A nil logger uses slog.Default().
func New(db DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

// EnsureSchema creates the guests table and its indexes if missing.
func EnsureSchema(ctx context.Context, db DBTX) error {
	if _, err := db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure guests schema: %w", err)
	}
	return nil
}

// ExistingEmails implements core.EmailChecker.
func (s *Store) ExistingEmails(ctx context.Context, weddingID string, emails []string) ([]string, error) {
	if len(emails) == 0 {
		return nil, nil
	}

	lowered := make([]string, len(emails))
	for i, e := range emails {
		lowered[i] = core.NormalizeEmail(e)
	}

	rows, err := s.db.Query(ctx,
		`SELECT email FROM guests WHERE wedding_id = $1 AND lower(email) = ANY($2)`,
		weddingID, lowered)
	if err != nil {
		return nil, fmt.Errorf("query existing emails: %w", err)
	}
	found, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan existing emails: %w", err)
	}
	return found, nil
}

const insertGuestSQL = `INSERT INTO guests (id, wedding_id, name, email, rsvp_status, preferred_language)
VALUES ($1, $2, $3, $4, $5, $6)`

// BulkCreateGuests implements core.GuestCreator. All inserts share one
// transaction; each runs under its own savepoint so a failed row is
// reported without aborting the rest. Rows hitting the unique email index
// are skipped, other insert failures are counted as failed.
func (s *Store) BulkCreateGuests(ctx context.Context, weddingID string, guests []core.GuestInput) (*core.BulkImportGuestResult, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // No-op if already committed

	result := &core.BulkImportGuestResult{
		CreatedGuests: []core.CreatedGuest{},
		Errors:        []core.BulkImportError{},
	}

	for i, in := range guests {
		if i%contextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("operation cancelled at row %d: %w", in.RowIndex+1, err)
			}
		}

		g := store.Normalize(in)
		if err := store.Check(g); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, store.RowError(g, err.Error()))
			continue
		}

		savepointName := fmt.Sprintf("sp_%d", i)
		if _, err := tx.Exec(ctx, fmt.Sprintf("SAVEPOINT %s", savepointName)); err != nil {
			return nil, fmt.Errorf("failed to create savepoint at row %d: %w", in.RowIndex+1, err)
		}

		id := uuid.New().String()
		_, err := tx.Exec(ctx, insertGuestSQL, id, weddingID, g.Name, g.Email, int16(g.RSVPStatus), g.PreferredLanguage)
		if err != nil {
			if _, rbErr := tx.Exec(ctx, fmt.Sprintf("ROLLBACK TO SAVEPOINT %s", savepointName)); rbErr != nil {
				return nil, fmt.Errorf("failed to rollback savepoint at row %d: %w", in.RowIndex+1, rbErr)
			}
			if isUniqueViolation(err) {
				result.Skipped++
				result.Errors = append(result.Errors, store.RowError(g, core.MsgExistingEmail))
				continue
			}
			s.logger.WarnContext(ctx, "guest insert failed",
				"wedding_id", weddingID,
				"row", in.RowIndex+1,
				"error", err,
			)
			result.Failed++
			result.Errors = append(result.Errors, store.RowError(g, insertMessage(err)))
			continue
		}

		if _, err := tx.Exec(ctx, fmt.Sprintf("RELEASE SAVEPOINT %s", savepointName)); err != nil {
			return nil, fmt.Errorf("failed to release savepoint at row %d: %w", in.RowIndex+1, err)
		}

		result.Created++
		result.CreatedGuests = append(result.CreatedGuests, core.CreatedGuest{ID: id, Name: g.Name, Email: g.Email})
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return result, nil
}

// Guests lists a wedding's guests ordered by creation time, then name.
func (s *Store) Guests(ctx context.Context, weddingID string) ([]store.Guest, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id::text, wedding_id, name, email, rsvp_status, preferred_language, created_at
		FROM guests WHERE wedding_id = $1 ORDER BY created_at, name`,
		weddingID)
	if err != nil {
		return nil, fmt.Errorf("query guests: %w", err)
	}

	guests, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.Guest, error) {
		var g store.Guest
		var rsvp int16
		err := row.Scan(&g.ID, &g.WeddingID, &g.Name, &g.Email, &rsvp, &g.PreferredLanguage, &g.CreatedAt)
		g.RSVPStatus = core.RSVPStatus(rsvp)
		return g, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan guests: %w", err)
	}
	return guests, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// insertMessage turns an insert error into a row message. Postgres errors
// carry a readable message; anything else is reported generically.
func insertMessage(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Message != "" {
		return "db error: " + strings.TrimSpace(pgErr.Message)
	}
	return "db error: " + err.Error()
}
