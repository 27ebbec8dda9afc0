package repositories

import (
	"database/sql"
	"fmt"

	"shopsite/internal/models"
)

type CartRepository interface {
	GetOrCreateForUser(userID int) (*models.Cart, error)
	GetOrCreateForSession(sessionKey string) (*models.Cart, error)
	GetActiveForUser(userID int) (*models.Cart, error)
	AddOrUpdateItem(cartID, productID, quantity int) (*models.CartItem, error)
	GetItems(cartID int) ([]*models.CartItem, error)
	UpdateItemQuantity(itemID, quantity int) error
	RemoveItem(itemID int) error
	Deactivate(cartID int) error
	MergeSessionCartIntoUser(sessionKey string, userID int) error
}

type cartRepository struct {
	DB *sql.DB
}

func NewCartRepository(db *sql.DB) CartRepository {
	return &cartRepository{DB: db}
}

func (r *cartRepository) GetOrCreateForUser(userID int) (*models.Cart, error) {
	const q = `
		INSERT INTO carts (user_id, is_active)
		VALUES ($1, TRUE)
		ON CONFLICT (user_id) WHERE is_active DO UPDATE SET is_active = TRUE
		RETURNING id, user_id, session_key, is_active, created_at
	`
	return r.scanCart(r.DB.QueryRow(q, userID))
}

func (r *cartRepository) GetOrCreateForSession(sessionKey string) (*models.Cart, error) {
	const q = `
		INSERT INTO carts (session_key, is_active)
		VALUES ($1, TRUE)
		ON CONFLICT (session_key) WHERE is_active DO UPDATE SET is_active = TRUE
		RETURNING id, user_id, session_key, is_active, created_at
	`
	return r.scanCart(r.DB.QueryRow(q, sessionKey))
}

func (r *cartRepository) GetActiveForUser(userID int) (*models.Cart, error) {
	const q = `
		SELECT id, user_id, session_key, is_active, created_at
		FROM carts
		WHERE user_id = $1 AND is_active
	`
	cart, err := r.scanCart(r.DB.QueryRow(q, userID))
	if err != nil {
		return nil, err
	}
	return cart, nil
}

// AddOrUpdateItem accumulates quantity when the product is already in the cart.
func (r *cartRepository) AddOrUpdateItem(cartID, productID, quantity int) (*models.CartItem, error) {
	const q = `
		INSERT INTO cart_items (cart_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (cart_id, product_id) DO UPDATE
		SET quantity = cart_items.quantity + EXCLUDED.quantity
		RETURNING id, cart_id, product_id, quantity
	`
	item := &models.CartItem{}
	if err := r.DB.QueryRow(q, cartID, productID, quantity).Scan(
		&item.ID, &item.CartID, &item.ProductID, &item.Quantity,
	); err != nil {
		return nil, fmt.Errorf("add cart item: %w", err)
	}
	return item, nil
}

func (r *cartRepository) GetItems(cartID int) ([]*models.CartItem, error) {
	const q = `
		SELECT ci.id, ci.cart_id, ci.product_id, ci.quantity,
		       p.id, p.title, p.description, p.price, p.quantity, COALESCE(p.image_path, ''), p.created_at, p.updated_at
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.id
	`
	rows, err := r.DB.Query(q, cartID)
	if err != nil {
		return nil, fmt.Errorf("get cart items: %w", err)
	}
	defer rows.Close()

	var items []*models.CartItem
	for rows.Next() {
		item := &models.CartItem{Product: &models.Product{}}
		p := item.Product
		if err := rows.Scan(
			&item.ID, &item.CartID, &item.ProductID, &item.Quantity,
			&p.ID, &p.Title, &p.Description, &p.Price, &p.Quantity, &p.ImagePath, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *cartRepository) UpdateItemQuantity(itemID, quantity int) error {
	if _, err := r.DB.Exec(`UPDATE cart_items SET quantity = $1 WHERE id = $2`, quantity, itemID); err != nil {
		return fmt.Errorf("update cart item: %w", err)
	}
	return nil
}

func (r *cartRepository) RemoveItem(itemID int) error {
	if _, err := r.DB.Exec(`DELETE FROM cart_items WHERE id = $1`, itemID); err != nil {
		return fmt.Errorf("remove cart item: %w", err)
	}
	return nil
}

func (r *cartRepository) Deactivate(cartID int) error {
	if _, err := r.DB.Exec(`UPDATE carts SET is_active = FALSE WHERE id = $1`, cartID); err != nil {
		return fmt.Errorf("deactivate cart: %w", err)
	}
	return nil
}

// MergeSessionCartIntoUser reassigns a guest cart after login. Items landing
// on a product already in the user's cart accumulate.
func (r *cartRepository) MergeSessionCartIntoUser(sessionKey string, userID int) error {
	tx, err := r.DB.Begin()
	if err != nil {
		return fmt.Errorf("merge cart begin: %w", err)
	}
	defer tx.Rollback()

	var guestCartID int
	err = tx.QueryRow(`SELECT id FROM carts WHERE session_key = $1 AND is_active`, sessionKey).Scan(&guestCartID)
	if err == sql.ErrNoRows {
		return nil // nothing to merge
	}
	if err != nil {
		return fmt.Errorf("merge cart lookup: %w", err)
	}

	var userCartID int
	err = tx.QueryRow(`
		INSERT INTO carts (user_id, is_active) VALUES ($1, TRUE)
		ON CONFLICT (user_id) WHERE is_active DO UPDATE SET is_active = TRUE
		RETURNING id
	`, userID).Scan(&userCartID)
	if err != nil {
		return fmt.Errorf("merge cart target: %w", err)
	}

	if _, err := tx.Exec(`
		INSERT INTO cart_items (cart_id, product_id, quantity)
		SELECT $1, product_id, quantity FROM cart_items WHERE cart_id = $2
		ON CONFLICT (cart_id, product_id) DO UPDATE
		SET quantity = cart_items.quantity + EXCLUDED.quantity
	`, userCartID, guestCartID); err != nil {
		return fmt.Errorf("merge cart items: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM cart_items WHERE cart_id = $1`, guestCartID); err != nil {
		return fmt.Errorf("merge cart cleanup items: %w", err)
	}
	if _, err := tx.Exec(`UPDATE carts SET is_active = FALSE WHERE id = $1`, guestCartID); err != nil {
		return fmt.Errorf("merge cart cleanup: %w", err)
	}
	return tx.Commit()
}

func (r *cartRepository) scanCart(row *sql.Row) (*models.Cart, error) {
	cart := &models.Cart{}
	var userID sql.NullInt64
	var sessionKey sql.NullString
	if err := row.Scan(&cart.ID, &userID, &sessionKey, &cart.IsActive, &cart.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan cart: %w", err)
	}
	if userID.Valid {
		id := int(userID.Int64)
		cart.UserID = &id
	}
	if sessionKey.Valid {
		k := sessionKey.String
		cart.SessionKey = &k
	}
	return cart, nil
}
