package models

import (
	"database/sql"
	"fmt"
	"time"
)

// KYCStatus is the closed set of review states for a KYC record.
type KYCStatus string

const (
	StatusPending  KYCStatus = "PENDING"
	StatusApproved KYCStatus = "APPROVED"
	StatusRejected KYCStatus = "REJECTED"
)

// Valid reports whether s is one of the known statuses.
func (s KYCStatus) Valid() bool {
	return s == StatusPending || s == StatusApproved || s == StatusRejected
}

// AllStatuses lists every status, in the order statistics report them.
func AllStatuses() []KYCStatus {
	return []KYCStatus{StatusPending, StatusApproved, StatusRejected}
}

type KYC struct {
	ID           int64          `db:"id"`
	UserID       int64          `db:"user_id"`
	FullName     string         `db:"full_name"`
	DocumentFile string         `db:"document_file"`
	Status       KYCStatus      `db:"status"`
	AdminNotes   sql.NullString `db:"admin_notes"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	UserEmail    string         `db:"user_email"`
}

// KYCView is the wire representation of a KYC record. The stored filename
// stays server-side; documentUrl is an indirection through the
// authenticated retrieval endpoint.
type KYCView struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"userId"`
	FullName    string    `json:"fullName"`
	DocumentURL string    `json:"documentUrl"`
	Status      KYCStatus `json:"status"`
	AdminNotes  string    `json:"adminNotes,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	UserEmail   string    `json:"userEmail,omitempty"`
}

// View returns the client-safe view of the record.
func (k *KYC) View() KYCView {
	return KYCView{
		ID:          k.ID,
		UserID:      k.UserID,
		FullName:    k.FullName,
		DocumentURL: fmt.Sprintf("/api/kyc/document/%d", k.ID),
		Status:      k.Status,
		AdminNotes:  k.AdminNotes.String,
		CreatedAt:   k.CreatedAt,
		UpdatedAt:   k.UpdatedAt,
		UserEmail:   k.UserEmail,
	}
}

// KYCViews maps a slice of records to their wire representation.
func KYCViews(kycs []KYC) []KYCView {
	views := make([]KYCView, 0, len(kycs))
	for i := range kycs {
		views = append(views, kycs[i].View())
	}
	return views
}

// Statistics aggregates the review workload. StatusCounts always contains
// all three statuses, and VerificationRate is defined as zero when no
// records exist.
type Statistics struct {
	TotalUsers        int               `json:"totalUsers"`
	TotalKYCs         int               `json:"totalKYCs"`
	StatusCounts      map[KYCStatus]int `json:"kycStats"`
	VerificationRate  float64           `json:"verificationRate"`
	RecentSubmissions []KYCView         `json:"recentSubmissions"`
}
