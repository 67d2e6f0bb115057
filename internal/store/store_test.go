package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"pizza-service/internal/model"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db), mock
}

func expectMet(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestMigrateRunsEveryStatement(t *testing.T) {
	s, mock := newMockStore(t)
	for range migrations {
		mock.ExpectExec("CREATE").WillReturnResult(sqlmock.NewResult(0, 0))
	}
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	expectMet(t, mock)
}

func TestAddUserInsertsRoles(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO users").
		WithArgs("pizza diner", "d@jwt.com", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))
	mock.ExpectExec("INSERT INTO user_roles").
		WithArgs(int64(5), model.RoleDiner, int64(0)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	user, err := s.AddUser(context.Background(), "pizza diner", " d@jwt.com ", "a", []model.Role{{Role: model.RoleDiner}})
	if err != nil {
		t.Fatalf("AddUser: %v", err)
	}
	if user.ID != 5 || user.Email != "d@jwt.com" {
		t.Fatalf("unexpected user: %+v", user)
	}
	expectMet(t, mock)
}

func TestAddUserDuplicateEmail(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO users").WillReturnError(&pgconn.PgError{Code: pgUniqueViolation, Detail: "email"})
	mock.ExpectRollback()

	_, err := s.AddUser(context.Background(), "x", "x@jwt.com", "a", nil)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	expectMet(t, mock)
}

func TestEnsureAdminIgnoresExisting(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO users").WillReturnError(&pgconn.PgError{Code: pgUniqueViolation})
	mock.ExpectRollback()

	if err := s.EnsureAdmin(context.Background(), "admin", "a@jwt.com", "admin"); err != nil {
		t.Fatalf("EnsureAdmin: %v", err)
	}
	expectMet(t, mock)
}

func TestAuthenticate(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)

	t.Run("success", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery("SELECT id, name, email, password_hash FROM users").
			WithArgs("d@jwt.com").
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "password_hash"}).AddRow(2, "diner", "d@jwt.com", string(hash)))
		mock.ExpectQuery("SELECT role, object_id FROM user_roles").
			WithArgs(int64(2)).
			WillReturnRows(sqlmock.NewRows([]string{"role", "object_id"}).AddRow("diner", 0).AddRow("franchisee", 9))
		user, err := s.Authenticate(context.Background(), "d@jwt.com", "secret")
		if err != nil {
			t.Fatalf("Authenticate: %v", err)
		}
		if len(user.Roles) != 2 || !user.AdministersFranchise(9) {
			t.Fatalf("unexpected roles: %+v", user.Roles)
		}
		expectMet(t, mock)
	})

	t.Run("wrong password", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery("SELECT id, name, email, password_hash FROM users").
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "password_hash"}).AddRow(2, "diner", "d@jwt.com", string(hash)))
		if _, err := s.Authenticate(context.Background(), "d@jwt.com", "nope"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("unknown email", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery("SELECT id, name, email, password_hash FROM users").
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "password_hash"}))
		if _, err := s.Authenticate(context.Background(), "ghost@jwt.com", "a"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestUpdateUserEmailOnly(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET email=$1 WHERE id=$2`)).
		WithArgs("new@jwt.com", int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT id, name, email FROM users").
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email"}).AddRow(3, "d", "new@jwt.com"))
	mock.ExpectQuery("SELECT role, object_id FROM user_roles").
		WillReturnRows(sqlmock.NewRows([]string{"role", "object_id"}).AddRow("diner", 0))

	user, err := s.UpdateUser(context.Background(), 3, "new@jwt.com", "")
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if user.Email != "new@jwt.com" {
		t.Fatalf("unexpected email %s", user.Email)
	}
	expectMet(t, mock)
}

func TestUpdateUserMissing(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("UPDATE users").WillReturnResult(sqlmock.NewResult(0, 0))
	if _, err := s.UpdateUser(context.Background(), 99, "x@jwt.com", ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetMenu(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT id, title, description, image").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "description", "image", "price"}).
			AddRow(1, "Veggie", "A garden of delight", "pizza1.png", 0.0038))
	menu, err := s.GetMenu(context.Background())
	if err != nil {
		t.Fatalf("GetMenu: %v", err)
	}
	if len(menu) != 1 || menu[0].Title != "Veggie" || menu[0].Price != 0.0038 {
		t.Fatalf("unexpected menu: %+v", menu)
	}
	expectMet(t, mock)
}

func TestAddDinerOrder(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO diner_orders").
		WithArgs(int64(4), int64(1), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "date"}).AddRow(11, now))
	mock.ExpectQuery("INSERT INTO order_items").
		WithArgs(int64(11), int64(1), "Veggie", 0.05).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(21))
	mock.ExpectCommit()

	order, err := s.AddDinerOrder(context.Background(), 4, model.Order{
		FranchiseID: 1,
		StoreID:     2,
		Items:       []model.OrderItem{{MenuID: 1, Description: "Veggie", Price: 0.05}},
	})
	if err != nil {
		t.Fatalf("AddDinerOrder: %v", err)
	}
	if order.ID != 11 || order.Items[0].ID != 21 {
		t.Fatalf("unexpected order: %+v", order)
	}
	expectMet(t, mock)
}

func TestAddDinerOrderUnknownMenuItem(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO diner_orders").
		WillReturnRows(sqlmock.NewRows([]string{"id", "date"}).AddRow(11, time.Now()))
	mock.ExpectQuery("INSERT INTO order_items").WillReturnError(&pgconn.PgError{Code: pgForeignKeyViolation})
	mock.ExpectRollback()

	_, err := s.AddDinerOrder(context.Background(), 4, model.Order{Items: []model.OrderItem{{MenuID: 404}}})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	expectMet(t, mock)
}

func TestGetOrdersPaginates(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("(?s)SELECT id, franchise_id, store_id, date.+FROM diner_orders").
		WithArgs(int64(4), OrdersPageSize, OrdersPageSize).
		WillReturnRows(sqlmock.NewRows([]string{"id", "franchise_id", "store_id", "date"}).AddRow(7, 1, 1, time.Now()))
	mock.ExpectQuery("SELECT id, menu_id, description").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "menu_id", "description", "price"}).AddRow(1, 1, "Veggie", 0.05))

	orders, err := s.GetOrders(context.Background(), 4, 2)
	if err != nil {
		t.Fatalf("GetOrders: %v", err)
	}
	if len(orders) != 1 || len(orders[0].Items) != 1 {
		t.Fatalf("unexpected orders: %+v", orders)
	}
	expectMet(t, mock)
}

func TestCreateFranchiseUnknownAdmin(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, name FROM users").
		WithArgs("ghost@jwt.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))
	mock.ExpectRollback()

	_, err := s.CreateFranchise(context.Background(), model.Franchise{
		Name:   "pizzaPocket",
		Admins: []model.FranchiseAdmin{{Email: "ghost@jwt.com"}},
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	expectMet(t, mock)
}

func TestCreateFranchiseGrantsRoles(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, name FROM users").
		WithArgs("f@jwt.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(3, "pizza franchisee"))
	mock.ExpectQuery("INSERT INTO franchises").
		WithArgs("pizzaPocket").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectExec("INSERT INTO user_roles").
		WithArgs(int64(3), model.RoleFranchisee, int64(1)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	f, err := s.CreateFranchise(context.Background(), model.Franchise{
		Name:   "pizzaPocket",
		Admins: []model.FranchiseAdmin{{Email: "f@jwt.com"}},
	})
	if err != nil {
		t.Fatalf("CreateFranchise: %v", err)
	}
	if f.ID != 1 || f.Admins[0].ID != 3 || f.Admins[0].Name != "pizza franchisee" {
		t.Fatalf("unexpected franchise: %+v", f)
	}
	expectMet(t, mock)
}

func TestGetFranchisesReportsMore(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT id, name FROM franchises WHERE name LIKE").
		WithArgs("pizza%", 2, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "pizzaPocket").AddRow(2, "pizzaPalace"))
	mock.ExpectQuery("(?s)SELECT s.id, s.name.+FROM stores").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "revenue"}).AddRow(1, "SLC", 0.15))

	franchises, more, err := s.GetFranchises(context.Background(), 0, 1, "pizza*")
	if err != nil {
		t.Fatalf("GetFranchises: %v", err)
	}
	if !more || len(franchises) != 1 || franchises[0].Stores[0].TotalRevenue != 0.15 {
		t.Fatalf("unexpected result more=%v franchises=%+v", more, franchises)
	}
	expectMet(t, mock)
}

func TestDeleteFranchise(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM user_roles").
		WithArgs(model.RoleFranchisee, int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM franchises").
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := s.DeleteFranchise(context.Background(), 1); err != nil {
		t.Fatalf("DeleteFranchise: %v", err)
	}
	expectMet(t, mock)
}

func TestDeleteStoreMissing(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("DELETE FROM stores").
		WithArgs(int64(1), int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	if err := s.DeleteStore(context.Background(), 1, 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetUserFranchisesLoadsAdminsAndRevenue(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT object_id FROM user_roles").
		WithArgs(int64(7), model.RoleFranchisee).
		WillReturnRows(sqlmock.NewRows([]string{"object_id"}).AddRow(2).AddRow(9))
	mock.ExpectQuery("SELECT name FROM franchises").
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("pizzaPocket"))
	mock.ExpectQuery("FROM user_roles r JOIN users u").
		WithArgs(model.RoleFranchisee, int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email"}).AddRow(7, "pizza franchisee", "f@jwt.com"))
	mock.ExpectQuery("FROM stores s").
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "revenue"}).AddRow(4, "SLC", 0.05))
	mock.ExpectQuery("SELECT name FROM franchises").
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"name"}))

	franchises, err := s.GetUserFranchises(context.Background(), 7)
	if err != nil {
		t.Fatalf("GetUserFranchises: %v", err)
	}
	if len(franchises) != 1 {
		t.Fatalf("expected deleted franchise to be skipped, got %+v", franchises)
	}
	f := franchises[0]
	if f.Name != "pizzaPocket" || len(f.Admins) != 1 || f.Admins[0].Email != "f@jwt.com" {
		t.Fatalf("unexpected franchise: %+v", f)
	}
	if len(f.Stores) != 1 || f.Stores[0].TotalRevenue != 0.05 {
		t.Fatalf("unexpected stores: %+v", f.Stores)
	}
	expectMet(t, mock)
}
