package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"kycportal/internal/models"
)

// SearchFilter narrows an admin listing. Zero values mean "no filter".
type SearchFilter struct {
	Status       models.KYCStatus
	Email        string
	MinCreatedAt time.Time
}

type KYCRepository interface {
	Create(kyc *models.KYC) error
	GetByUserID(userID int64) (*models.KYC, error)
	GetByID(id int64) (*models.KYC, error)
	List() ([]models.KYC, error)
	Search(filter SearchFilter) ([]models.KYC, error)
	UpdateStatus(id int64, status models.KYCStatus, notes string) (*models.KYC, error)
	Delete(id int64) error
	Count() (int, error)
	CountByStatus() (map[models.KYCStatus]int, error)
	Recent(limit int) ([]models.KYC, error)
}

type kycRepository struct {
	db  *sqlx.DB
	log *logrus.Logger
}

func NewKYCRepository(db *sqlx.DB, log *logrus.Logger) KYCRepository {
	return &kycRepository{db: db, log: log}
}

const kycColumns = `k.id, k.user_id, k.full_name, k.document_file, k.status, k.admin_notes, k.created_at, k.updated_at, u.email AS user_email`

func (r *kycRepository) Create(kyc *models.KYC) error {
	query := `INSERT INTO kycs (user_id, full_name, document_file, status) VALUES ($1, $2, $3, $4) RETURNING id, created_at, updated_at`
	err := r.db.QueryRowx(query, kyc.UserID, kyc.FullName, kyc.DocumentFile, kyc.Status).
		Scan(&kyc.ID, &kyc.CreatedAt, &kyc.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return ErrDuplicateKYC
		}
		r.log.Errorf("Failed to insert kyc record: %v", err)
		return err
	}
	return nil
}

func (r *kycRepository) GetByUserID(userID int64) (*models.KYC, error) {
	var kyc models.KYC
	query := fmt.Sprintf(`SELECT %s FROM kycs k JOIN users u ON u.id = k.user_id WHERE k.user_id = $1`, kycColumns)
	if err := r.db.Get(&kyc, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrKYCNotFound
		}
		return nil, err
	}
	return &kyc, nil
}

func (r *kycRepository) GetByID(id int64) (*models.KYC, error) {
	var kyc models.KYC
	query := fmt.Sprintf(`SELECT %s FROM kycs k JOIN users u ON u.id = k.user_id WHERE k.id = $1`, kycColumns)
	if err := r.db.Get(&kyc, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrKYCNotFound
		}
		return nil, err
	}
	return &kyc, nil
}

func (r *kycRepository) List() ([]models.KYC, error) {
	var kycs []models.KYC
	query := fmt.Sprintf(`SELECT %s FROM kycs k JOIN users u ON u.id = k.user_id ORDER BY k.created_at DESC`, kycColumns)
	if err := r.db.Select(&kycs, query); err != nil {
		return nil, err
	}
	return kycs, nil
}

func (r *kycRepository) Search(filter SearchFilter) ([]models.KYC, error) {
	conds := make([]string, 0, 3)
	args := make([]interface{}, 0, 3)

	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("k.status = $%d", len(args)))
	}
	if filter.Email != "" {
		args = append(args, "%"+filter.Email+"%")
		conds = append(conds, fmt.Sprintf("u.email ILIKE $%d", len(args)))
	}
	if !filter.MinCreatedAt.IsZero() {
		args = append(args, filter.MinCreatedAt)
		conds = append(conds, fmt.Sprintf("k.created_at >= $%d", len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM kycs k JOIN users u ON u.id = k.user_id`, kycColumns)
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY k.created_at DESC"

	var kycs []models.KYC
	if err := r.db.Select(&kycs, query, args...); err != nil {
		return nil, err
	}
	return kycs, nil
}

func (r *kycRepository) UpdateStatus(id int64, status models.KYCStatus, notes string) (*models.KYC, error) {
	query := `UPDATE kycs SET status = $1, admin_notes = NULLIF($2, ''), updated_at = now() WHERE id = $3`
	res, err := r.db.Exec(query, status, notes, id)
	if err != nil {
		r.log.Errorf("Failed to update kyc status: %v", err)
		return nil, err
	}
	if err := checkRowAffected(res, ErrKYCNotFound); err != nil {
		return nil, err
	}
	return r.GetByID(id)
}

func (r *kycRepository) Delete(id int64) error {
	res, err := r.db.Exec(`DELETE FROM kycs WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkRowAffected(res, ErrKYCNotFound)
}

func (r *kycRepository) Count() (int, error) {
	var count int
	if err := r.db.Get(&count, `SELECT COUNT(*) FROM kycs`); err != nil {
		return 0, err
	}
	return count, nil
}

// CountByStatus returns a bucket per status. Statuses with no records are
// present with a zero count.
func (r *kycRepository) CountByStatus() (map[models.KYCStatus]int, error) {
	counts := make(map[models.KYCStatus]int, 3)
	for _, s := range models.AllStatuses() {
		counts[s] = 0
	}

	rows, err := r.db.Queryx(`SELECT status, COUNT(*) FROM kycs GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var status models.KYCStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func (r *kycRepository) Recent(limit int) ([]models.KYC, error) {
	var kycs []models.KYC
	query := fmt.Sprintf(`SELECT %s FROM kycs k JOIN users u ON u.id = k.user_id ORDER BY k.created_at DESC LIMIT $1`, kycColumns)
	if err := r.db.Select(&kycs, query, limit); err != nil {
		return nil, err
	}
	return kycs, nil
}
