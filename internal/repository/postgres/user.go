package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dtroode/userauth-server/internal/model"
)

var (
	_ model.UserStore = (*UserRepository)(nil)
	_ model.Pinger    = (*UserRepository)(nil)
)

// DBTX is the subset of *pgxpool.Pool the repository needs.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

const userColumns = `id, email, hashed_password, session_id, reset_token, created_at, updated_at`

// Index names from database/migrations mapped to logical fields.
var constraintFields = map[string]model.Field{
	"uq_users_email":           model.FieldEmail,
	"ck_users_email_not_empty": model.FieldEmail,
	"uq_users_session_id":      model.FieldSessionID,
	"users_pkey":               model.FieldID,
}

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{
		db: db,
	}
}

func (r *UserRepository) Add(ctx context.Context, email, hashedPassword string) (model.User, error) {
	const op = "postgres.UserRepository.Add"

	query := `INSERT INTO users (id, email, hashed_password)
			  VALUES ($1, $2, $3)
			  RETURNING ` + userColumns

	user, err := scanUser(r.db.QueryRow(ctx, query, uuid.New(), email, hashedPassword))
	if err != nil {
		return model.User{}, classifyError(op, err)
	}

	return user, nil
}

func (r *UserRepository) FindBy(ctx context.Context, criteria model.Criteria) (model.User, error) {
	const op = "postgres.UserRepository.FindBy"

	terms, err := criteria.Terms()
	if err != nil {
		return model.User{}, err
	}

	where, args := whereClause(terms)
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where + ` ORDER BY created_at, id LIMIT 1`

	user, err := scanUser(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, classifyError(op, err)
	}

	return user, nil
}

// Update applies the patch in a single statement.
func (r *UserRepository) Update(ctx context.Context, id uuid.UUID, patch model.Patch) error {
	const op = "postgres.UserRepository.Update"

	terms, err := patch.Terms()
	if err != nil {
		return err
	}
	if len(terms) == 0 {
		return nil
	}

	sets := make([]string, 0, len(terms)+1)
	args := make([]any, 0, len(terms)+1)
	for _, t := range terms {
		args = append(args, t.Value)
		sets = append(sets, fmt.Sprintf("%s = $%d", t.Field, len(args)))
	}
	sets = append(sets, "updated_at = NOW()")
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE users SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(args))

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return classifyError(op, err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}

	return nil
}

func (r *UserRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func whereClause(terms []model.Term) (string, []any) {
	conds := make([]string, 0, len(terms))
	args := make([]any, 0, len(terms))
	for _, t := range terms {
		if t.Value == nil {
			conds = append(conds, fmt.Sprintf("%s IS NULL", t.Field))
			continue
		}
		if t.Field == model.FieldID {
			// Criteria.Terms has already validated the id.
			args = append(args, uuid.MustParse(*t.Value))
		} else {
			args = append(args, *t.Value)
		}
		conds = append(conds, fmt.Sprintf("%s = $%d", t.Field, len(args)))
	}
	return strings.Join(conds, " AND "), args
}

func scanUser(row pgx.Row) (model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID, &user.Email, &user.HashedPassword, &user.SessionID, &user.ResetToken,
		&user.CreatedAt, &user.UpdatedAt,
	)
	return user, err
}

func classifyError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation, pgerrcode.NotNullViolation, pgerrcode.CheckViolation:
			field := string(constraintFields[pgErr.ConstraintName])
			if field == "" {
				field = pgErr.ColumnName
			}
			return model.ConstraintError{Op: op, Field: field}
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
