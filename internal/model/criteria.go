package model

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// Field is a user attribute name as persisted by the stores.
type Field string

const (
	FieldID             Field = "id"
	FieldEmail          Field = "email"
	FieldHashedPassword Field = "hashed_password"
	FieldSessionID      Field = "session_id"
	FieldResetToken     Field = "reset_token"
)

var queryableFields = map[Field]struct{}{
	FieldID:             {},
	FieldEmail:          {},
	FieldHashedPassword: {},
	FieldSessionID:      {},
	FieldResetToken:     {},
}

var mutableFields = map[Field]struct{}{
	FieldEmail:          {},
	FieldHashedPassword: {},
	FieldSessionID:      {},
}

// Criteria selects users by attribute equality. All entries must match.
// A nil value matches an unset attribute.
type Criteria map[Field]any

// Patch sets user attributes. Only email, hashed_password and session_id
// may be changed; a nil session_id clears the session.
type Patch map[Field]any

// Term is a single normalized field/value pair. Value is nil for NULL.
type Term struct {
	Field Field
	Value *string
}

// Terms validates the criteria and returns them ordered by field name.
func (c Criteria) Terms() ([]Term, error) {
	if len(c) == 0 {
		return nil, fmt.Errorf("%w: empty criteria", ErrInvalidAttribute)
	}

	terms := make([]Term, 0, len(c))
	for f, v := range c {
		if _, ok := queryableFields[f]; !ok {
			return nil, fmt.Errorf("%w: unknown field %q", ErrInvalidAttribute, f)
		}
		val, err := normalizeValue(f, v)
		if err != nil {
			return nil, err
		}
		terms = append(terms, Term{Field: f, Value: val})
	}
	sortTerms(terms)

	return terms, nil
}

// Terms validates the patch and returns it ordered by field name.
// An empty patch yields no terms and no error.
func (p Patch) Terms() ([]Term, error) {
	terms := make([]Term, 0, len(p))
	for f, v := range p {
		if _, ok := mutableFields[f]; !ok {
			return nil, fmt.Errorf("%w: field %q cannot be updated", ErrInvalidAttribute, f)
		}
		val, err := normalizeValue(f, v)
		if err != nil {
			return nil, err
		}
		if val == nil && f != FieldSessionID {
			return nil, fmt.Errorf("%w: field %q cannot be null", ErrInvalidAttribute, f)
		}
		if f == FieldEmail && *val == "" {
			return nil, fmt.Errorf("%w: email cannot be empty", ErrInvalidAttribute)
		}
		terms = append(terms, Term{Field: f, Value: val})
	}
	sortTerms(terms)

	return terms, nil
}

// Matches reports whether the user's attribute equals the term value.
func (t Term) Matches(u User) bool {
	got := u.Value(t.Field)
	if got == nil || t.Value == nil {
		return got == nil && t.Value == nil
	}
	return *got == *t.Value
}

// Value returns the attribute as a nullable string.
func (u User) Value(f Field) *string {
	switch f {
	case FieldID:
		s := u.ID.String()
		return &s
	case FieldEmail:
		return &u.Email
	case FieldHashedPassword:
		return &u.HashedPassword
	case FieldSessionID:
		return u.SessionID
	case FieldResetToken:
		return u.ResetToken
	default:
		return nil
	}
}

// Apply sets the attribute named by t. Callers validate terms beforehand.
func (u *User) Apply(t Term) {
	switch t.Field {
	case FieldEmail:
		u.Email = *t.Value
	case FieldHashedPassword:
		u.HashedPassword = *t.Value
	case FieldSessionID:
		u.SessionID = t.Value
	}
}

func normalizeValue(f Field, v any) (*string, error) {
	if f == FieldID {
		return normalizeID(v)
	}

	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		return &val, nil
	case *string:
		if val == nil {
			return nil, nil
		}
		s := *val
		return &s, nil
	default:
		return nil, fmt.Errorf("%w: unsupported value %T for %q", ErrInvalidAttribute, v, f)
	}
}

func normalizeID(v any) (*string, error) {
	var id uuid.UUID
	switch val := v.(type) {
	case uuid.UUID:
		id = val
	case string:
		parsed, err := uuid.Parse(val)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed id %q", ErrInvalidAttribute, val)
		}
		id = parsed
	default:
		return nil, fmt.Errorf("%w: unsupported value %T for %q", ErrInvalidAttribute, v, FieldID)
	}
	s := id.String()
	return &s, nil
}

func sortTerms(terms []Term) {
	sort.Slice(terms, func(i, j int) bool { return terms[i].Field < terms[j].Field })
}
