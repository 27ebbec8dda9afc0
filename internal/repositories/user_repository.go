package repositories

import (
	"database/sql"
	"fmt"

	"shopsite/internal/models"
)

type UserRepository interface {
	Create(user *models.User) error
	GetByID(id int) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByUsername(username string) (*models.User, error)
	UpdatePassword(userID int, passwordHash string) error
	Update(user *models.User) error
	Delete(id int) error
	List(limit, offset int) ([]*models.User, error)
	ExistsByEmailOrUsername(email, username string) (emailTaken, usernameTaken bool, err error)
}

type userRepository struct {
	DB *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{DB: db}
}

const userColumns = `id, username, email, password_hash, first_name, last_name, created_at, updated_at`

func scanUser(row *sql.Row) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash,
		&u.FirstName, &u.LastName, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}

func (r *userRepository) Create(user *models.User) error {
	const q = `
		INSERT INTO users (username, email, password_hash, first_name, last_name)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	if err := r.DB.QueryRow(q,
		user.Username, user.Email, user.PasswordHash, user.FirstName, user.LastName,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *userRepository) GetByID(id int) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.DB.QueryRow(q, id))
}

func (r *userRepository) GetByEmail(email string) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.DB.QueryRow(q, email))
}

func (r *userRepository) GetByUsername(username string) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return scanUser(r.DB.QueryRow(q, username))
}

func (r *userRepository) UpdatePassword(userID int, passwordHash string) error {
	const q = `UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2`
	if _, err := r.DB.Exec(q, passwordHash, userID); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

func (r *userRepository) Update(user *models.User) error {
	const q = `
		UPDATE users
		SET username = $1, email = $2, first_name = $3, last_name = $4, updated_at = NOW()
		WHERE id = $5
	`
	if _, err := r.DB.Exec(q, user.Username, user.Email, user.FirstName, user.LastName, user.ID); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

func (r *userRepository) Delete(id int) error {
	if _, err := r.DB.Exec(`DELETE FROM users WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

func (r *userRepository) List(limit, offset int) ([]*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users ORDER BY id LIMIT $1 OFFSET $2`
	rows, err := r.DB.Query(q, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u := &models.User{}
		if err := rows.Scan(
			&u.ID, &u.Username, &u.Email, &u.PasswordHash,
			&u.FirstName, &u.LastName, &u.CreatedAt, &u.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan user row: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// ExistsByEmailOrUsername checks both uniqueness constraints in one query so
// registration can report which field is taken.
func (r *userRepository) ExistsByEmailOrUsername(email, username string) (bool, bool, error) {
	const q = `
		SELECT
			COUNT(*) FILTER (WHERE email = $1),
			COUNT(*) FILTER (WHERE username = $2)
		FROM users
		WHERE email = $1 OR username = $2
	`
	var emailCount, usernameCount int
	if err := r.DB.QueryRow(q, email, username).Scan(&emailCount, &usernameCount); err != nil {
		return false, false, fmt.Errorf("check user exists: %w", err)
	}
	return emailCount > 0, usernameCount > 0, nil
}
