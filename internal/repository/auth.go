package repository

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"kycportal/internal/models"
)

type AuthRepository interface {
	CreateUser(user *models.User) error
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id int64) (*models.User, error)
	UpdateRefreshTokenHash(id int64, hash string) error
	ClearRefreshToken(id int64) error
	CountUsers() (int, error)
}

type authRepository struct {
	db  *sqlx.DB
	log *logrus.Logger
}

func NewAuthRepository(db *sqlx.DB, log *logrus.Logger) AuthRepository {
	return &authRepository{db: db, log: log}
}

func (r *authRepository) CreateUser(user *models.User) error {
	query := `INSERT INTO users (email, password_hash, role) VALUES ($1, $2, $3) RETURNING id, created_at`
	err := r.db.QueryRowx(query, user.Email, user.PasswordHash, user.Role).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return ErrEmailTaken
		}
		r.log.Errorf("Failed to insert user: %v", err)
		return err
	}
	return nil
}

func (r *authRepository) GetUserByEmail(email string) (*models.User, error) {
	var user models.User
	query := `SELECT id, email, password_hash, role, refresh_token_hash, created_at FROM users WHERE email = $1`
	if err := r.db.Get(&user, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *authRepository) GetUserByID(id int64) (*models.User, error) {
	var user models.User
	query := `SELECT id, email, password_hash, role, refresh_token_hash, created_at FROM users WHERE id = $1`
	if err := r.db.Get(&user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// UpdateRefreshTokenHash overwrites the stored refresh-token hash, which
// invalidates whatever refresh token was live before.
func (r *authRepository) UpdateRefreshTokenHash(id int64, hash string) error {
	query := `UPDATE users SET refresh_token_hash = $1 WHERE id = $2`
	res, err := r.db.Exec(query, hash, id)
	if err != nil {
		r.log.Errorf("Failed to update refresh token hash: %v", err)
		return err
	}
	return checkRowAffected(res, ErrUserNotFound)
}

func (r *authRepository) ClearRefreshToken(id int64) error {
	query := `UPDATE users SET refresh_token_hash = NULL WHERE id = $1`
	_, err := r.db.Exec(query, id)
	return err
}

func (r *authRepository) CountUsers() (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM users`
	if err := r.db.Get(&count, query); err != nil {
		return 0, err
	}
	return count, nil
}

func checkRowAffected(res sql.Result, missing error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return missing
	}
	return nil
}
