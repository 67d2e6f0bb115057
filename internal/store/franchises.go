package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"pizza-service/internal/model"
)

// CreateFranchise inserts the franchise and grants each listed admin the
// franchisee role on it. Every admin email must belong to an existing user.
func (s *Store) CreateFranchise(ctx context.Context, f model.Franchise) (model.Franchise, error) {
	err := withTx(ctx, s.DB, func(tx *sql.Tx) error {
		for i, admin := range f.Admins {
			err := tx.QueryRowContext(ctx, `SELECT id, name FROM users WHERE email=$1`, admin.Email).
				Scan(&f.Admins[i].ID, &f.Admins[i].Name)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return fmt.Errorf("%w: unknown user for franchise admin %s", ErrNotFound, admin.Email)
				}
				return err
			}
		}
		if err := tx.QueryRowContext(ctx,
			`INSERT INTO franchises (name) VALUES ($1) RETURNING id`, f.Name).Scan(&f.ID); err != nil {
			return classify(err)
		}
		for _, admin := range f.Admins {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO user_roles (user_id, role, object_id) VALUES ($1, $2, $3)`,
				admin.ID, model.RoleFranchisee, f.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return model.Franchise{}, fmt.Errorf("create franchise %s: %w", f.Name, err)
	}
	if f.Stores == nil {
		f.Stores = []model.Store{}
	}
	return f, nil
}

// DeleteFranchise removes the franchise, its stores and the franchisee roles scoped to it.
func (s *Store) DeleteFranchise(ctx context.Context, id int64) error {
	return withTx(ctx, s.DB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM user_roles WHERE role=$1 AND object_id=$2`, model.RoleFranchisee, id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM franchises WHERE id=$1`, id)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// GetFranchises lists franchises whose name matches filter, where '*' is a
// wildcard. more reports whether another page exists.
func (s *Store) GetFranchises(ctx context.Context, page, limit int, filter string) (franchises []model.Franchise, more bool, err error) {
	if limit <= 0 {
		limit = 10
	}
	if page < 0 {
		page = 0
	}
	pattern := strings.ReplaceAll(filter, "*", "%")
	if pattern == "" {
		pattern = "%"
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, name FROM franchises WHERE name LIKE $1 ORDER BY id LIMIT $2 OFFSET $3`,
		pattern, limit+1, page*limit)
	if err != nil {
		return nil, false, err
	}
	franchises = []model.Franchise{}
	for rows.Next() {
		var f model.Franchise
		if err := rows.Scan(&f.ID, &f.Name); err != nil {
			rows.Close()
			return nil, false, err
		}
		franchises = append(franchises, f)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, false, err
	}
	if len(franchises) > limit {
		franchises = franchises[:limit]
		more = true
	}
	for i := range franchises {
		franchises[i].Stores, err = franchiseStores(ctx, s.DB, franchises[i].ID)
		if err != nil {
			return nil, false, err
		}
	}
	return franchises, more, nil
}

// GetFranchise loads a franchise with its admins and per-store revenue.
func (s *Store) GetFranchise(ctx context.Context, id int64) (model.Franchise, error) {
	f := model.Franchise{ID: id}
	if err := s.DB.QueryRowContext(ctx, `SELECT name FROM franchises WHERE id=$1`, id).Scan(&f.Name); err != nil {
		return model.Franchise{}, classify(err)
	}
	rows, err := s.DB.QueryContext(ctx, `
		SELECT u.id, u.name, u.email
		FROM user_roles r JOIN users u ON u.id = r.user_id
		WHERE r.role=$1 AND r.object_id=$2
		ORDER BY u.id`, model.RoleFranchisee, id)
	if err != nil {
		return model.Franchise{}, err
	}
	f.Admins = []model.FranchiseAdmin{}
	for rows.Next() {
		var a model.FranchiseAdmin
		if err := rows.Scan(&a.ID, &a.Name, &a.Email); err != nil {
			rows.Close()
			return model.Franchise{}, err
		}
		f.Admins = append(f.Admins, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return model.Franchise{}, err
	}
	f.Stores, err = franchiseStores(ctx, s.DB, id)
	if err != nil {
		return model.Franchise{}, err
	}
	return f, nil
}

// GetUserFranchises returns every franchise userID holds a franchisee role on.
func (s *Store) GetUserFranchises(ctx context.Context, userID int64) ([]model.Franchise, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT object_id FROM user_roles WHERE user_id=$1 AND role=$2 ORDER BY object_id`,
		userID, model.RoleFranchisee)
	if err != nil {
		return nil, err
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	franchises := make([]model.Franchise, 0, len(ids))
	for _, id := range ids {
		f, err := s.GetFranchise(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		franchises = append(franchises, f)
	}
	return franchises, nil
}

func (s *Store) CreateStore(ctx context.Context, franchiseID int64, name string) (model.Store, error) {
	st := model.Store{FranchiseID: franchiseID, Name: name}
	err := s.DB.QueryRowContext(ctx,
		`INSERT INTO stores (franchise_id, name) VALUES ($1, $2) RETURNING id`,
		franchiseID, name).Scan(&st.ID)
	if err != nil {
		return model.Store{}, fmt.Errorf("create store: %w", classify(err))
	}
	return st, nil
}

func (s *Store) DeleteStore(ctx context.Context, franchiseID, storeID int64) error {
	res, err := s.DB.ExecContext(ctx,
		`DELETE FROM stores WHERE franchise_id=$1 AND id=$2`, franchiseID, storeID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func franchiseStores(ctx context.Context, q querier, franchiseID int64) ([]model.Store, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT s.id, s.name, COALESCE(SUM(oi.price), 0)::float8
		FROM stores s
		LEFT JOIN diner_orders o ON o.store_id = s.id
		LEFT JOIN order_items oi ON oi.order_id = o.id
		WHERE s.franchise_id=$1
		GROUP BY s.id, s.name
		ORDER BY s.id`, franchiseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	stores := []model.Store{}
	for rows.Next() {
		var st model.Store
		if err := rows.Scan(&st.ID, &st.Name, &st.TotalRevenue); err != nil {
			return nil, err
		}
		stores = append(stores, st)
	}
	return stores, rows.Err()
}
