package store

import (
	"context"
	"database/sql"
	"fmt"

	"pizza-service/internal/model"
)

// OrdersPageSize is the number of orders returned per page.
const OrdersPageSize = 10

func (s *Store) GetMenu(ctx context.Context) ([]model.MenuItem, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, title, description, image, price::float8 FROM menu ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	menu := []model.MenuItem{}
	for rows.Next() {
		var item model.MenuItem
		if err := rows.Scan(&item.ID, &item.Title, &item.Description, &item.Image, &item.Price); err != nil {
			return nil, err
		}
		menu = append(menu, item)
	}
	return menu, rows.Err()
}

func (s *Store) AddMenuItem(ctx context.Context, item model.MenuItem) (model.MenuItem, error) {
	err := s.DB.QueryRowContext(ctx,
		`INSERT INTO menu (title, description, image, price) VALUES ($1, $2, $3, $4) RETURNING id`,
		item.Title, item.Description, item.Image, item.Price).Scan(&item.ID)
	if err != nil {
		return model.MenuItem{}, classify(err)
	}
	return item, nil
}

// GetOrders returns one page (1-based) of the diner's orders, newest first.
func (s *Store) GetOrders(ctx context.Context, dinerID int64, page int) ([]model.Order, error) {
	if page < 1 {
		page = 1
	}
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, franchise_id, store_id, date
		FROM diner_orders
		WHERE diner_id=$1
		ORDER BY id DESC
		LIMIT $2 OFFSET $3`, dinerID, OrdersPageSize, (page-1)*OrdersPageSize)
	if err != nil {
		return nil, err
	}
	orders := []model.Order{}
	for rows.Next() {
		var o model.Order
		if err := rows.Scan(&o.ID, &o.FranchiseID, &o.StoreID, &o.Date); err != nil {
			rows.Close()
			return nil, err
		}
		orders = append(orders, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items, err = orderItems(ctx, s.DB, orders[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return orders, nil
}

// AddDinerOrder stores the order and its items in one transaction.
func (s *Store) AddDinerOrder(ctx context.Context, dinerID int64, order model.Order) (model.Order, error) {
	err := withTx(ctx, s.DB, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`INSERT INTO diner_orders (diner_id, franchise_id, store_id, date) VALUES ($1, $2, $3, NOW()) RETURNING id, date`,
			dinerID, order.FranchiseID, order.StoreID).Scan(&order.ID, &order.Date)
		if err != nil {
			return classify(err)
		}
		for i, item := range order.Items {
			err := tx.QueryRowContext(ctx,
				`INSERT INTO order_items (order_id, menu_id, description, price) VALUES ($1, $2, $3, $4) RETURNING id`,
				order.ID, item.MenuID, item.Description, item.Price).Scan(&order.Items[i].ID)
			if err != nil {
				return classify(err)
			}
		}
		return nil
	})
	if err != nil {
		return model.Order{}, fmt.Errorf("add order: %w", err)
	}
	return order, nil
}

func orderItems(ctx context.Context, q querier, orderID int64) ([]model.OrderItem, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, menu_id, description, price::float8 FROM order_items WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []model.OrderItem{}
	for rows.Next() {
		var item model.OrderItem
		if err := rows.Scan(&item.ID, &item.MenuID, &item.Description, &item.Price); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
