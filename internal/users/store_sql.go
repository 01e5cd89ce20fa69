package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/mindengage-results/internal/apperr"
	"github.com/mind-engage/mindengage-results/internal/db"
	"github.com/mind-engage/mindengage-results/internal/rbac"
)

const bcryptCost = 12

var usernameRe = regexp.MustCompile(`^[a-z0-9_.-]{3,32}$`)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

const userCols = `id, username, full_name, email, bio, batch, role, avatar_url, created_at`

func scanUser(row interface{ Scan(...any) error }, extra ...any) (User, error) {
	var u User
	var created int64
	dst := append([]any{&u.ID, &u.Username, &u.FullName, &u.Email, &u.Bio, &u.Batch, &u.Role, &u.AvatarURL, &created}, extra...)
	if err := row.Scan(dst...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, apperr.Wrap(apperr.ErrNotFound, "user not found", err)
		}
		return User{}, err
	}
	u.CreatedAt = time.Unix(created, 0).UTC()
	return u, nil
}

// Register validates input and creates a student account.
func (s *Store) Register(ctx context.Context, in RegisterInput) (User, error) {
	in.Username = strings.ToLower(strings.TrimSpace(in.Username))
	if !usernameRe.MatchString(in.Username) {
		return User{}, apperr.Validation("username must be 3-32 characters of a-z, 0-9, _ . -")
	}
	if len(in.Password) < 6 {
		return User{}, apperr.Validation("password must be at least 6 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return User{}, err
	}
	u := User{
		ID:        uuid.NewString(),
		Username:  in.Username,
		FullName:  strings.TrimSpace(in.FullName),
		Email:     strings.TrimSpace(in.Email),
		Batch:     strings.TrimSpace(in.Batch),
		Role:      rbac.RoleStudent,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	if err := s.create(ctx, u, string(hash)); err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *Store) create(ctx context.Context, u User, hash string) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, role, full_name, email, bio, batch, avatar_url, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		 ON CONFLICT (username) DO NOTHING`,
		u.ID, u.Username, hash, u.Role, u.FullName, u.Email, u.Bio, u.Batch, u.AvatarURL, u.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.New(apperr.ErrConflict, "username already taken")
	}
	return nil
}

// Authenticate checks credentials. Unknown users and bad passwords fail the same way.
func (s *Store) Authenticate(ctx context.Context, username, password string) (User, error) {
	var hash string
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userCols+`, password_hash FROM users WHERE username=$1`,
		strings.ToLower(strings.TrimSpace(username)))
	u, err := scanUser(row, &hash)
	if errors.Is(err, apperr.ErrNotFound) {
		return User{}, apperr.New(apperr.ErrUnauthenticated, "invalid username or password")
	}
	if err != nil {
		return User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return User{}, apperr.New(apperr.ErrUnauthenticated, "invalid username or password")
	}
	return u, nil
}

func (s *Store) GetByID(ctx context.Context, id string) (User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE id=$1`, id))
}

func (s *Store) RoleOf(ctx context.Context, id string) (string, error) {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return u.Role, nil
}

// UpdateProfile applies the non-nil fields of p.
func (s *Store) UpdateProfile(ctx context.Context, id string, p ProfileUpdate) (User, error) {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	set(&u.FullName, p.FullName)
	set(&u.Email, p.Email)
	set(&u.Bio, p.Bio)
	set(&u.Batch, p.Batch)
	set(&u.AvatarURL, p.AvatarURL)
	if u.Email != "" && !strings.Contains(u.Email, "@") {
		return User{}, apperr.Validation("email is not valid")
	}
	if u.AvatarURL != "" && !strings.HasPrefix(u.AvatarURL, "https://") {
		return User{}, apperr.Validation("avatar_url must be an https URL")
	}
	if len(u.Bio) > 1000 {
		return User{}, apperr.Validation("bio is too long")
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE users SET full_name=$1, email=$2, bio=$3, batch=$4, avatar_url=$5 WHERE id=$6`,
		u.FullName, u.Email, u.Bio, u.Batch, u.AvatarURL, id)
	if err != nil {
		return User{}, fmt.Errorf("update profile: %w", err)
	}
	return u, nil
}

func (s *Store) ChangePassword(ctx context.Context, id, oldPassword, newPassword string) error {
	if len(newPassword) < 6 {
		return apperr.Validation("new password must be at least 6 characters")
	}
	var stored string
	err := s.db.QueryRowContext(ctx, `SELECT password_hash FROM users WHERE id=$1`, id).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("user not found")
	}
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(stored), []byte(oldPassword)) != nil {
		return apperr.Forbidden("incorrect old password")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `UPDATE users SET password_hash=$1 WHERE id=$2`, string(hash), id)
	return err
}

// EnsureAdmin creates the admin account if the username is free.
func (s *Store) EnsureAdmin(ctx context.Context, username, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return err
	}
	err = s.create(ctx, User{
		ID:        uuid.NewString(),
		Username:  strings.ToLower(username),
		FullName:  "Administrator",
		Role:      rbac.RoleAdmin,
		CreatedAt: time.Now().UTC(),
	}, string(hash))
	if errors.Is(err, apperr.ErrConflict) {
		return nil
	}
	return err
}

// SetRole changes a user's role (admin tooling). The last admin cannot be demoted.
func (s *Store) SetRole(ctx context.Context, id, role string) error {
	role = strings.ToLower(strings.TrimSpace(role))
	if !rbac.ValidRole(role) {
		return apperr.Validation("invalid role: " + role)
	}
	return db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var cur string
		err := tx.QueryRowContext(ctx, `SELECT role FROM users WHERE id=$1`, id).Scan(&cur)
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound("user not found")
		}
		if err != nil {
			return err
		}
		if cur == rbac.RoleAdmin && role != rbac.RoleAdmin {
			var admins int
			if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM users WHERE role='admin'`).Scan(&admins); err != nil {
				return err
			}
			if admins <= 1 {
				return apperr.New(apperr.ErrConflict, "cannot demote the last admin")
			}
		}
		_, err = tx.ExecContext(ctx, `UPDATE users SET role=$1 WHERE id=$2`, role, id)
		return err
	})
}

// List returns users ordered by username, optionally filtered by role.
func (s *Store) List(ctx context.Context, role string) ([]User, error) {
	var rows *sql.Rows
	var err error
	if role == "" {
		rows, err = s.db.QueryContext(ctx, `SELECT `+userCols+` FROM users ORDER BY username`)
	} else {
		rows, err = s.db.QueryContext(ctx, `SELECT `+userCols+` FROM users WHERE role=$1 ORDER BY username`, role)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
