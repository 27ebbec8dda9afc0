package repositories

import (
	"database/sql"
	"fmt"

	"shopsite/internal/models"
)

type ProductRepository interface {
	Create(p *models.Product) error
	GetByID(id int) (*models.Product, error)
	Update(p *models.Product) error
	Delete(id int) error
	List(limit, offset int) ([]*models.Product, error)
	SearchByTitle(query string, limit, offset int) ([]*models.Product, error)
	DecrementStock(id, quantity int) error
}

type productRepository struct {
	DB *sql.DB
}

func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{DB: db}
}

const productColumns = `id, title, description, price, quantity, image_path, created_at, updated_at`

func (r *productRepository) Create(p *models.Product) error {
	const q = `
		INSERT INTO products (title, description, price, quantity, image_path)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	if err := r.DB.QueryRow(q,
		p.Title, p.Description, p.Price, p.Quantity, p.ImagePath,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

func (r *productRepository) GetByID(id int) (*models.Product, error) {
	q := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	p := &models.Product{}
	var image sql.NullString
	err := r.DB.QueryRow(q, id).Scan(
		&p.ID, &p.Title, &p.Description, &p.Price, &p.Quantity,
		&image, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	if image.Valid {
		p.ImagePath = image.String
	}
	return p, nil
}

func (r *productRepository) Update(p *models.Product) error {
	const q = `
		UPDATE products
		SET title = $1, description = $2, price = $3, quantity = $4, image_path = $5, updated_at = NOW()
		WHERE id = $6
	`
	if _, err := r.DB.Exec(q, p.Title, p.Description, p.Price, p.Quantity, p.ImagePath, p.ID); err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	return nil
}

func (r *productRepository) Delete(id int) error {
	if _, err := r.DB.Exec(`DELETE FROM products WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return nil
}

func (r *productRepository) List(limit, offset int) ([]*models.Product, error) {
	q := `SELECT ` + productColumns + ` FROM products ORDER BY title LIMIT $1 OFFSET $2`
	return r.queryProducts(q, limit, offset)
}

func (r *productRepository) SearchByTitle(query string, limit, offset int) ([]*models.Product, error) {
	q := `SELECT ` + productColumns + ` FROM products WHERE title ILIKE '%' || $1 || '%' ORDER BY title LIMIT $2 OFFSET $3`
	return r.queryProducts(q, query, limit, offset)
}

// DecrementStock refuses to oversell: the guard is in the statement itself.
func (r *productRepository) DecrementStock(id, quantity int) error {
	const q = `
		UPDATE products
		SET quantity = quantity - $1, updated_at = NOW()
		WHERE id = $2 AND quantity >= $1
	`
	res, err := r.DB.Exec(q, quantity, id)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("decrement stock rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("insufficient stock for product %d", id)
	}
	return nil
}

func (r *productRepository) queryProducts(q string, args ...any) ([]*models.Product, error) {
	rows, err := r.DB.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		p := &models.Product{}
		var image sql.NullString
		if err := rows.Scan(
			&p.ID, &p.Title, &p.Description, &p.Price, &p.Quantity,
			&image, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		if image.Valid {
			p.ImagePath = image.String
		}
		products = append(products, p)
	}
	return products, rows.Err()
}
