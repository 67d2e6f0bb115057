package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"pizza-service/internal/model"
)

// AddUser hashes password and inserts the user with its roles.
func (s *Store) AddUser(ctx context.Context, name, email, password string, roles []model.Role) (model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}
	user := model.User{Name: name, Email: strings.TrimSpace(email), Roles: roles}
	err = withTx(ctx, s.DB, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`INSERT INTO users (name, email, password_hash) VALUES ($1, $2, $3) RETURNING id`,
			user.Name, user.Email, string(hash)).Scan(&user.ID)
		if err != nil {
			return classify(err)
		}
		for _, role := range roles {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO user_roles (user_id, role, object_id) VALUES ($1, $2, $3)`,
				user.ID, role.Role, role.ObjectID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return model.User{}, fmt.Errorf("add user %s: %w", email, err)
	}
	return user, nil
}

// Authenticate checks email/password and returns the user with roles.
func (s *Store) Authenticate(ctx context.Context, email, password string) (model.User, error) {
	var (
		user model.User
		hash string
	)
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash FROM users WHERE email=$1`, email).
		Scan(&user.ID, &user.Name, &user.Email, &hash)
	if err != nil {
		return model.User{}, classify(err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return model.User{}, ErrInvalidCredentials
	}
	user.Roles, err = userRoles(ctx, s.DB, user.ID)
	if err != nil {
		return model.User{}, err
	}
	return user, nil
}

func (s *Store) GetUserByID(ctx context.Context, id int64) (model.User, error) {
	var user model.User
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, name, email FROM users WHERE id=$1`, id).
		Scan(&user.ID, &user.Name, &user.Email)
	if err != nil {
		return model.User{}, classify(err)
	}
	user.Roles, err = userRoles(ctx, s.DB, user.ID)
	if err != nil {
		return model.User{}, err
	}
	return user, nil
}

// UpdateUser changes the email and/or password; empty values are left alone.
func (s *Store) UpdateUser(ctx context.Context, id int64, email, password string) (model.User, error) {
	var sets []string
	var args []any
	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return model.User{}, fmt.Errorf("hash password: %w", err)
		}
		args = append(args, string(hash))
		sets = append(sets, fmt.Sprintf("password_hash=$%d", len(args)))
	}
	if email = strings.TrimSpace(email); email != "" {
		args = append(args, email)
		sets = append(sets, fmt.Sprintf("email=$%d", len(args)))
	}
	if len(sets) > 0 {
		args = append(args, id)
		query := fmt.Sprintf(`UPDATE users SET %s WHERE id=$%d`, strings.Join(sets, ", "), len(args))
		res, err := s.DB.ExecContext(ctx, query, args...)
		if err != nil {
			return model.User{}, classify(err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return model.User{}, ErrNotFound
		}
	}
	return s.GetUserByID(ctx, id)
}

// EnsureAdmin creates an admin account unless the email is already taken.
func (s *Store) EnsureAdmin(ctx context.Context, name, email, password string) error {
	_, err := s.AddUser(ctx, name, email, password, []model.Role{{Role: model.RoleAdmin}})
	if errors.Is(err, ErrConflict) {
		return nil
	}
	return err
}

func userRoles(ctx context.Context, q querier, userID int64) ([]model.Role, error) {
	rows, err := q.QueryContext(ctx, `SELECT role, object_id FROM user_roles WHERE user_id=$1 ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	roles := []model.Role{}
	for rows.Next() {
		var r model.Role
		if err := rows.Scan(&r.Role, &r.ObjectID); err != nil {
			return nil, err
		}
		roles = append(roles, r)
	}
	return roles, rows.Err()
}
