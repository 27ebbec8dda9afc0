package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"shopsite/internal/models"
)

type PasswordOTPRepository interface {
	Upsert(email, code, token string, expiresAt, createdAt time.Time) (*models.PasswordOTP, error)
	GetByEmailAndToken(email, token string) (*models.PasswordOTP, error)
	IncrementAttempts(id int64) (int, error)
	Consume(id int64) (bool, error)
}

type passwordOTPRepository struct {
	DB *sql.DB
}

func NewPasswordOTPRepository(db *sql.DB) PasswordOTPRepository {
	return &passwordOTPRepository{DB: db}
}

// Upsert keeps at most one live code per email: a new issue replaces the
// previous code/token/expiry and zeroes attempts.
func (r *passwordOTPRepository) Upsert(email, code, token string, expiresAt, createdAt time.Time) (*models.PasswordOTP, error) {
	const q = `
		INSERT INTO password_otps (email, code, token, expires_at, attempts, created_at)
		VALUES ($1, $2, $3, $4, 0, $5)
		ON CONFLICT (email) DO UPDATE
		SET code = EXCLUDED.code,
		    token = EXCLUDED.token,
		    expires_at = EXCLUDED.expires_at,
		    attempts = 0,
		    created_at = EXCLUDED.created_at
		RETURNING id
	`
	otp := &models.PasswordOTP{
		Email:     email,
		Code:      code,
		Token:     token,
		ExpiresAt: expiresAt,
		CreatedAt: createdAt,
	}
	if err := r.DB.QueryRow(q, email, code, token, expiresAt, createdAt).Scan(&otp.ID); err != nil {
		return nil, fmt.Errorf("upsert password otp: %w", err)
	}
	return otp, nil
}

func (r *passwordOTPRepository) GetByEmailAndToken(email, token string) (*models.PasswordOTP, error) {
	const q = `
		SELECT id, email, code, token, expires_at, attempts, created_at
		FROM password_otps
		WHERE email = $1 AND token = $2
	`
	otp := &models.PasswordOTP{}
	err := r.DB.QueryRow(q, email, token).Scan(
		&otp.ID, &otp.Email, &otp.Code, &otp.Token,
		&otp.ExpiresAt, &otp.Attempts, &otp.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get password otp: %w", err)
	}
	return otp, nil
}

// IncrementAttempts is a single statement so two racing verifications cannot
// both observe the old counter.
func (r *passwordOTPRepository) IncrementAttempts(id int64) (int, error) {
	const q = `
		UPDATE password_otps
		SET attempts = attempts + 1
		WHERE id = $1
		RETURNING attempts
	`
	var attempts int
	if err := r.DB.QueryRow(q, id).Scan(&attempts); err != nil {
		return 0, fmt.Errorf("increment otp attempts: %w", err)
	}
	return attempts, nil
}

// Consume deletes the record and reports whether this caller got it. Two
// racing correct submissions both see the row, but only one delete removes
// it; the loser must not report success.
func (r *passwordOTPRepository) Consume(id int64) (bool, error) {
	res, err := r.DB.Exec(`DELETE FROM password_otps WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("consume password otp: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("consume password otp: %w", err)
	}
	return n > 0, nil
}
