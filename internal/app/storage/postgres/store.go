// Package postgres implements the storage interfaces backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/mealdesk/mealdesk/internal/app/domain/canteen"
	"github.com/mealdesk/mealdesk/internal/app/domain/meal"
	"github.com/mealdesk/mealdesk/internal/app/domain/order"
	"github.com/mealdesk/mealdesk/internal/app/domain/setting"
	"github.com/mealdesk/mealdesk/internal/app/domain/user"
	"github.com/mealdesk/mealdesk/internal/app/storage"
)

// Store implements the storage interfaces on a *sql.DB.
type Store struct {
	db *sql.DB
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.CanteenStore = (*Store)(nil)
var _ storage.MealStore = (*Store)(nil)
var _ storage.OrderStore = (*Store)(nil)
var _ storage.SettingStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const uniqueViolation = "23505"

// translate maps driver errors onto the storage sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return storage.ErrDuplicate
	}
	return err
}

// --- UserStore ---------------------------------------------------------------

func (s *Store) CreateUser(ctx context.Context, u user.User) (user.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, email, password_hash, is_admin, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, u.ID, u.Username, u.Email, u.PasswordHash, u.IsAdmin, u.CreatedAt)
	if err != nil {
		return user.User{}, translate(err)
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (user.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, username, email, password_hash, is_admin, created_at
		FROM users
		WHERE id = $1
	`, id))
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (user.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, username, email, password_hash, is_admin, created_at
		FROM users
		WHERE lower(username) = lower($1)
	`, username))
}

func (s *Store) scanUser(row *sql.Row) (user.User, error) {
	var u user.User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt); err != nil {
		return user.User{}, translate(err)
	}
	return u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]user.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, email, password_hash, is_admin, created_at
		FROM users
		ORDER BY created_at
	`)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var result []user.User
	for rows.Next() {
		var u user.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	return result, rows.Err()
}

// --- CanteenStore ------------------------------------------------------------

func (s *Store) CreateCanteen(ctx context.Context, c canteen.Canteen) (canteen.Canteen, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO canteens (id, name, description, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, c.ID, c.Name, c.Description, c.Active, c.CreatedAt)
	if err != nil {
		return canteen.Canteen{}, translate(err)
	}
	return c, nil
}

func (s *Store) UpdateCanteen(ctx context.Context, c canteen.Canteen) (canteen.Canteen, error) {
	existing, err := s.GetCanteen(ctx, c.ID)
	if err != nil {
		return canteen.Canteen{}, err
	}
	c.CreatedAt = existing.CreatedAt

	result, err := s.db.ExecContext(ctx, `
		UPDATE canteens
		SET name = $2, description = $3, is_active = $4
		WHERE id = $1
	`, c.ID, c.Name, c.Description, c.Active)
	if err != nil {
		return canteen.Canteen{}, translate(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return canteen.Canteen{}, storage.ErrNotFound
	}
	return c, nil
}

func (s *Store) GetCanteen(ctx context.Context, id string) (canteen.Canteen, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, is_active, created_at
		FROM canteens
		WHERE id = $1
	`, id)

	var c canteen.Canteen
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &c.Active, &c.CreatedAt); err != nil {
		return canteen.Canteen{}, translate(err)
	}
	return c, nil
}

func (s *Store) ListCanteens(ctx context.Context) ([]canteen.Canteen, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, is_active, created_at
		FROM canteens
		ORDER BY name
	`)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var result []canteen.Canteen
	for rows.Next() {
		var c canteen.Canteen
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.Active, &c.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (s *Store) DeleteCanteen(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM canteens WHERE id = $1`, id)
	if err != nil {
		return translate(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// --- MealStore ---------------------------------------------------------------

func (s *Store) CreateMeal(ctx context.Context, m meal.Meal) (meal.Meal, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO meals (id, canteen_id, name, price, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, m.ID, m.CanteenID, m.Name, m.Price, m.Active, m.CreatedAt)
	if err != nil {
		return meal.Meal{}, translate(err)
	}
	return m, nil
}

func (s *Store) UpdateMeal(ctx context.Context, m meal.Meal) (meal.Meal, error) {
	existing, err := s.GetMeal(ctx, m.ID)
	if err != nil {
		return meal.Meal{}, err
	}
	m.CanteenID = existing.CanteenID
	m.CreatedAt = existing.CreatedAt

	result, err := s.db.ExecContext(ctx, `
		UPDATE meals
		SET name = $2, price = $3, is_active = $4
		WHERE id = $1
	`, m.ID, m.Name, m.Price, m.Active)
	if err != nil {
		return meal.Meal{}, translate(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return meal.Meal{}, storage.ErrNotFound
	}
	return m, nil
}

func (s *Store) GetMeal(ctx context.Context, id string) (meal.Meal, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, canteen_id, name, price, is_active, created_at
		FROM meals
		WHERE id = $1
	`, id)

	var m meal.Meal
	if err := row.Scan(&m.ID, &m.CanteenID, &m.Name, &m.Price, &m.Active, &m.CreatedAt); err != nil {
		return meal.Meal{}, translate(err)
	}
	return m, nil
}

func (s *Store) ListMeals(ctx context.Context, canteenID string) ([]meal.Meal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, canteen_id, name, price, is_active, created_at
		FROM meals
		WHERE $1 = '' OR canteen_id = $1
		ORDER BY name
	`, canteenID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var result []meal.Meal
	for rows.Next() {
		var m meal.Meal
		if err := rows.Scan(&m.ID, &m.CanteenID, &m.Name, &m.Price, &m.Active, &m.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

func (s *Store) DeleteMeal(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM meals WHERE id = $1`, id)
	if err != nil {
		return translate(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// --- OrderStore --------------------------------------------------------------

func (s *Store) CreateOrder(ctx context.Context, o order.Order) (order.Order, error) {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	o.OrderDate = order.Day(o.OrderDate)
	o.CreatedAt = time.Now().UTC()

	// The order_user_day_uc constraint settles concurrent same-day inserts;
	// translate turns that violation into ErrDuplicate.
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO order_records (id, user_id, meal_id, meal_name_snapshot, price_snapshot, order_date, is_paid, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, o.ID, o.UserID, o.MealID, o.MealName, o.Price, o.OrderDate, o.Paid, o.CreatedAt)
	if err != nil {
		return order.Order{}, translate(err)
	}
	return o, nil
}

func (s *Store) UpdateOrder(ctx context.Context, o order.Order) (order.Order, error) {
	existing, err := s.GetOrder(ctx, o.ID)
	if err != nil {
		return order.Order{}, err
	}
	// Only the paid flag is mutable; snapshots stay as created.
	existing.Paid = o.Paid

	result, err := s.db.ExecContext(ctx, `
		UPDATE order_records
		SET is_paid = $2
		WHERE id = $1
	`, existing.ID, existing.Paid)
	if err != nil {
		return order.Order{}, translate(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return order.Order{}, storage.ErrNotFound
	}
	return existing, nil
}

func (s *Store) GetOrder(ctx context.Context, id string) (order.Order, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, meal_id, meal_name_snapshot, price_snapshot, order_date, is_paid, created_at
		FROM order_records
		WHERE id = $1
	`, id)
	return scanOrder(row.Scan)
}

func (s *Store) ListOrdersByUser(ctx context.Context, userID string) ([]order.Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, meal_id, meal_name_snapshot, price_snapshot, order_date, is_paid, created_at
		FROM order_records
		WHERE user_id = $1
		ORDER BY order_date DESC
	`, userID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	return collectOrders(rows)
}

func (s *Store) ListOrdersByDate(ctx context.Context, date time.Time) ([]order.Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, meal_id, meal_name_snapshot, price_snapshot, order_date, is_paid, created_at
		FROM order_records
		WHERE order_date = $1
		ORDER BY created_at
	`, order.Day(date))
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	return collectOrders(rows)
}

func (s *Store) DeleteOrder(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM order_records WHERE id = $1`, id)
	if err != nil {
		return translate(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanOrder(scan func(dest ...any) error) (order.Order, error) {
	var o order.Order
	if err := scan(&o.ID, &o.UserID, &o.MealID, &o.MealName, &o.Price, &o.OrderDate, &o.Paid, &o.CreatedAt); err != nil {
		return order.Order{}, translate(err)
	}
	o.OrderDate = order.Day(o.OrderDate)
	return o, nil
}

func collectOrders(rows *sql.Rows) ([]order.Order, error) {
	var result []order.Order
	for rows.Next() {
		o, err := scanOrder(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, o)
	}
	return result, rows.Err()
}

// --- SettingStore ------------------------------------------------------------

func (s *Store) GetSetting(ctx context.Context, key string) (setting.Setting, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT key, value FROM settings WHERE key = $1
	`, key)

	var entry setting.Setting
	if err := row.Scan(&entry.Key, &entry.Value); err != nil {
		return setting.Setting{}, translate(err)
	}
	return entry, nil
}

func (s *Store) PutSetting(ctx context.Context, entry setting.Setting) (setting.Setting, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`, entry.Key, entry.Value)
	if err != nil {
		return setting.Setting{}, translate(err)
	}
	return entry, nil
}

func (s *Store) ListSettings(ctx context.Context) ([]setting.Setting, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, value FROM settings ORDER BY key
	`)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var result []setting.Setting
	for rows.Next() {
		var entry setting.Setting
		if err := rows.Scan(&entry.Key, &entry.Value); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
