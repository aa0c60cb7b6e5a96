package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"

	"github.com/dtroode/userauth-server/internal/model"
)

var (
	_ model.UserStore = (*UserRepository)(nil)
	_ model.Pinger    = (*UserRepository)(nil)
)

type userRow struct {
	ID             string  `gorm:"primaryKey;size:36"`
	Email          string  `gorm:"not null;uniqueIndex:uq_users_email;check:ck_users_email_not_empty,email <> ''"`
	HashedPassword string  `gorm:"not null"`
	SessionID      *string `gorm:"uniqueIndex:uq_users_session_id"`
	ResetToken     *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (userRow) TableName() string { return "users" }

func (r userRow) toModel() (model.User, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return model.User{}, fmt.Errorf("corrupt user id %q: %w", r.ID, err)
	}
	return model.User{
		ID:             id,
		Email:          r.Email,
		HashedPassword: r.HashedPassword,
		SessionID:      r.SessionID,
		ResetToken:     r.ResetToken,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}, nil
}

type UserRepository struct {
	conn *Connection
}

func NewUserRepository(conn *Connection) *UserRepository {
	return &UserRepository{conn: conn}
}

func (r *UserRepository) Add(ctx context.Context, email, hashedPassword string) (model.User, error) {
	const op = "sqlite.UserRepository.Add"

	row := userRow{
		ID:             uuid.NewString(),
		Email:          email,
		HashedPassword: hashedPassword,
	}
	if err := r.conn.DB.WithContext(ctx).Create(&row).Error; err != nil {
		return model.User{}, classifyError(op, err)
	}

	return row.toModel()
}

// FindBy returns the earliest inserted row matching every criterion.
func (r *UserRepository) FindBy(ctx context.Context, criteria model.Criteria) (model.User, error) {
	const op = "sqlite.UserRepository.FindBy"

	terms, err := criteria.Terms()
	if err != nil {
		return model.User{}, err
	}

	q := r.conn.DB.WithContext(ctx).Model(&userRow{})
	for _, t := range terms {
		if t.Value == nil {
			q = q.Where(string(t.Field) + " IS NULL")
			continue
		}
		q = q.Where(string(t.Field)+" = ?", *t.Value)
	}

	var row userRow
	if err := q.Order("rowid").Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, classifyError(op, err)
	}

	return row.toModel()
}

func (r *UserRepository) Update(ctx context.Context, id uuid.UUID, patch model.Patch) error {
	const op = "sqlite.UserRepository.Update"

	terms, err := patch.Terms()
	if err != nil {
		return err
	}
	if len(terms) == 0 {
		return nil
	}

	values := make(map[string]any, len(terms)+1)
	for _, t := range terms {
		if t.Value == nil {
			values[string(t.Field)] = nil
		} else {
			values[string(t.Field)] = *t.Value
		}
	}
	values["updated_at"] = time.Now()

	res := r.conn.DB.WithContext(ctx).Model(&userRow{}).Where("id = ?", id.String()).Updates(values)
	if res.Error != nil {
		return classifyError(op, res.Error)
	}
	if res.RowsAffected == 0 {
		return model.ErrNotFound
	}

	return nil
}

func (r *UserRepository) Ping(ctx context.Context) error {
	return r.conn.Ping(ctx)
}

// classifyError maps sqlite constraint failures ("UNIQUE constraint failed: users.email")
// to model.ConstraintError.
func classifyError(op string, err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return model.ConstraintError{Op: op, Field: constraintColumn(sqliteErr.Error())}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// CHECK failures name the constraint rather than the column.
var checkFields = map[string]model.Field{
	"ck_users_email_not_empty": model.FieldEmail,
}

func constraintColumn(msg string) string {
	_, cols, ok := strings.Cut(msg, "failed: ")
	if !ok {
		return ""
	}
	first, _, _ := strings.Cut(cols, ",")
	first = strings.TrimSpace(first)
	_, col, ok := strings.Cut(first, ".")
	if !ok {
		return string(checkFields[first])
	}
	return col
}
