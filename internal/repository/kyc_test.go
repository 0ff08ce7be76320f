package repository

import (
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kycportal/internal/models"
)

var kycRows = []string{"id", "user_id", "full_name", "document_file", "status", "admin_notes", "created_at", "updated_at", "user_email"}

func TestKYCCreateDuplicate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewKYCRepository(db, quietLogger())

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO kycs`)).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "kycs_user_id_key"})

	err := repo.Create(&models.KYC{UserID: 1, FullName: "Alice Smith", DocumentFile: "doc.png", Status: models.StatusPending})
	assert.ErrorIs(t, err, ErrDuplicateKYC)
}

func TestKYCGetByUserIDNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewKYCRepository(db, quietLogger())

	mock.ExpectQuery(`SELECT .+ FROM kycs k JOIN users u ON u\.id = k\.user_id WHERE k\.user_id = \$1`).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows(kycRows))

	_, err := repo.GetByUserID(42)
	assert.ErrorIs(t, err, ErrKYCNotFound)
}

func TestKYCSearchBuildsConditions(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewKYCRepository(db, quietLogger())

	since := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	now := time.Now()

	mock.ExpectQuery(`WHERE k\.status = \$1 AND u\.email ILIKE \$2 AND k\.created_at >= \$3 ORDER BY k\.created_at DESC`).
		WithArgs(models.StatusApproved, "%alice%", since).
		WillReturnRows(sqlmock.NewRows(kycRows).
			AddRow(int64(3), int64(9), "Alice Smith", "a.png", string(models.StatusApproved), nil, now, now, "alice@example.com"))

	got, err := repo.Search(SearchFilter{Status: models.StatusApproved, Email: "alice", MinCreatedAt: since})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "alice@example.com", got[0].UserEmail)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestKYCSearchNoFilter(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewKYCRepository(db, quietLogger())

	mock.ExpectQuery(`SELECT .+ FROM kycs k JOIN users u ON u\.id = k\.user_id ORDER BY k\.created_at DESC`).
		WillReturnRows(sqlmock.NewRows(kycRows))

	got, err := repo.Search(SearchFilter{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestKYCUpdateStatusMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewKYCRepository(db, quietLogger())

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE kycs SET status = $1, admin_notes = NULLIF($2, ''), updated_at = now() WHERE id = $3`)).
		WithArgs(models.StatusRejected, "blurry scan", int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := repo.UpdateStatus(5, models.StatusRejected, "blurry scan")
	assert.ErrorIs(t, err, ErrKYCNotFound)
}

func TestKYCCountByStatusFillsEmptyBuckets(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewKYCRepository(db, quietLogger())

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT status, COUNT(*) FROM kycs GROUP BY status`)).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow(string(models.StatusApproved), 3))

	counts, err := repo.CountByStatus()
	require.NoError(t, err)
	assert.Equal(t, map[models.KYCStatus]int{
		models.StatusPending:  0,
		models.StatusApproved: 3,
		models.StatusRejected: 0,
	}, counts)
}
