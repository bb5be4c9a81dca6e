package store

import (
	"context"
	"database/sql"
	"time"

	"storefront-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// UpsertCartItem adds a product to a user's cart, accumulating quantity if
// the product is already present.
func (s *Store) UpsertCartItem(ctx context.Context, item *models.CartItem) error {
	query := `
		INSERT INTO cart_items (user_id, product_id, title, unit_price, quantity, category, image_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, title = EXCLUDED.title, unit_price = EXCLUDED.unit_price
		RETURNING id, quantity, created_at`

	return s.db.QueryRowxContext(ctx, query,
		item.UserID, item.ProductID, item.Title, item.UnitPrice,
		item.Quantity, item.Category, item.ImageURL).
		Scan(&item.ID, &item.Quantity, &item.CreatedAt)
}

// UpdateCartItemQuantity sets the quantity of a cart line
func (s *Store) UpdateCartItemQuantity(ctx context.Context, userID, productID string, quantity int) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE cart_items SET quantity = $1 WHERE user_id = $2 AND product_id = $3",
		quantity, userID, productID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteCartItem removes a single cart line
func (s *Store) DeleteCartItem(ctx context.Context, userID, productID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2",
		userID, productID)
	return err
}

// ListCartItems lists a user's cart lines
func (s *Store) ListCartItems(ctx context.Context, userID string) ([]models.CartItem, error) {
	var items []models.CartItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM cart_items WHERE user_id = $1 ORDER BY created_at", userID)
	return items, err
}

// ClearCartItems deletes the given products from a user's cart. A nil or
// empty product list clears the whole cart.
func (s *Store) ClearCartItems(ctx context.Context, userID string, productIDs []string) error {
	if len(productIDs) == 0 {
		_, err := s.db.ExecContext(ctx, "DELETE FROM cart_items WHERE user_id = $1", userID)
		return err
	}

	query, args, err := sqlx.In(
		"DELETE FROM cart_items WHERE user_id = ? AND product_id IN (?)", userID, productIDs)
	if err != nil {
		return err
	}
	query = s.db.Rebind(query)

	_, err = s.db.ExecContext(ctx, query, args...)
	return err
}

// UpsertCourseProgress marks a lesson completed for a user
func (s *Store) UpsertCourseProgress(ctx context.Context, userID, courseID, lessonID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO course_progress (user_id, course_id, lesson_id, completed, completed_at)
		VALUES ($1, $2, $3, TRUE, $4)
		ON CONFLICT (user_id, course_id, lesson_id)
		DO UPDATE SET completed = TRUE, completed_at = EXCLUDED.completed_at`,
		userID, courseID, lessonID, time.Now())
	return err
}

// DeleteCourseProgress removes a lesson completion mark
func (s *Store) DeleteCourseProgress(ctx context.Context, userID, courseID, lessonID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM course_progress WHERE user_id = $1 AND course_id = $2 AND lesson_id = $3",
		userID, courseID, lessonID)
	return err
}

// ListCourseProgress lists completion rows for a user and course
func (s *Store) ListCourseProgress(ctx context.Context, userID, courseID string) ([]models.CourseProgress, error) {
	var rows []models.CourseProgress
	err := s.db.SelectContext(ctx, &rows,
		"SELECT * FROM course_progress WHERE user_id = $1 AND course_id = $2", userID, courseID)
	return rows, err
}

// InsertSubscriber records a newsletter signup, ignoring repeats
func (s *Store) InsertSubscriber(ctx context.Context, email string) (bool, error) {
	var id int64
	err := s.db.GetContext(ctx, &id, `
		INSERT INTO subscribers (email)
		VALUES ($1)
		ON CONFLICT (email) DO NOTHING
		RETURNING id`,
		email)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
