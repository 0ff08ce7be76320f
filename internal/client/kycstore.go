package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// KYC is the client-side view of a verification record.
type KYC struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"userId"`
	FullName    string    `json:"fullName"`
	DocumentURL string    `json:"documentUrl"`
	Status      string    `json:"status"`
	AdminNotes  string    `json:"adminNotes"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	UserEmail   string    `json:"userEmail"`
}

// KYCStats mirrors the statistics endpoint payload.
type KYCStats struct {
	TotalUsers        int            `json:"totalUsers"`
	TotalKYCs         int            `json:"totalKYCs"`
	StatusCounts      map[string]int `json:"kycStats"`
	VerificationRate  float64        `json:"verificationRate"`
	RecentSubmissions []KYC          `json:"recentSubmissions"`
}

// SearchFilter narrows the admin listing. Empty fields are not sent.
type SearchFilter struct {
	Status string
	Email  string
	Date   string // YYYY-MM-DD, minimum creation date
}

const statusApproved = "APPROVED"

// KYCStore caches the caller's own record and, for admins, the full list
// and statistics. Every operation clears the error field up front and, on
// failure, stores the server's message (or a fixed fallback) while still
// returning the error to the caller.
type KYCStore struct {
	api *Client

	mu          sync.Mutex
	userKYC     *KYC
	allKYCs     []KYC
	stats       *KYCStats
	loading     bool
	initialized bool
	lastError   string
}

func NewKYCStore(api *Client) *KYCStore {
	return &KYCStore{api: api}
}

// UserKYC returns the cached own record, or nil when none exists.
func (s *KYCStore) UserKYC() *KYC {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userKYC
}

// AllKYCs returns the cached admin listing.
func (s *KYCStore) AllKYCs() []KYC {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.allKYCs
}

// Stats returns the cached statistics.
func (s *KYCStore) Stats() *KYCStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Initialized reports whether the own record has been fetched at least once.
func (s *KYCStore) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized
}

// Loading reports whether a store operation is in flight.
func (s *KYCStore) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// LastError returns the message of the most recent failure, if any.
func (s *KYCStore) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

type kycResponse struct {
	KYC *KYC `json:"kyc"`
}

type kycsResponse struct {
	KYCs []KYC `json:"kycs"`
}

// Submit uploads a new KYC submission.
func (s *KYCStore) Submit(ctx context.Context, fullName string, file FormFile) error {
	s.begin()
	defer s.end()

	var resp kycResponse
	file.Field = "document"
	err := s.api.doMultipart(ctx, "/api/kyc/submit", map[string]string{"fullName": fullName}, file, &resp)
	if err != nil {
		s.fail(err, "Failed to submit KYC")
		return err
	}

	s.mu.Lock()
	s.userKYC = resp.KYC
	s.mu.Unlock()
	return nil
}

// Status fetches the caller's own record. A null record is a valid answer.
func (s *KYCStore) Status(ctx context.Context) error {
	s.begin()
	defer s.end()

	var resp kycResponse
	err := s.api.doJSON(ctx, http.MethodGet, "/api/kyc/status", nil, &resp)

	s.mu.Lock()
	if err != nil {
		s.userKYC = nil
		s.mu.Unlock()
		s.fail(err, "Failed to fetch KYC status")
		return err
	}
	s.userKYC = resp.KYC
	s.initialized = true
	s.mu.Unlock()
	return nil
}

// All fetches every record (admin).
func (s *KYCStore) All(ctx context.Context) error {
	s.begin()
	defer s.end()

	var resp kycsResponse
	err := s.api.doJSON(ctx, http.MethodGet, "/api/kyc/all", nil, &resp)
	if err != nil {
		s.mu.Lock()
		s.allKYCs = nil
		s.mu.Unlock()
		s.fail(err, "Failed to fetch KYCs")
		return err
	}

	s.mu.Lock()
	s.allKYCs = resp.KYCs
	s.mu.Unlock()
	return nil
}

// Search fetches records matching the filter (admin).
func (s *KYCStore) Search(ctx context.Context, filter SearchFilter) error {
	s.begin()
	defer s.end()

	params := url.Values{}
	if filter.Status != "" {
		params.Set("status", filter.Status)
	}
	if filter.Email != "" {
		params.Set("email", filter.Email)
	}
	if filter.Date != "" {
		params.Set("date", filter.Date)
	}

	path := "/api/kyc/search"
	if encoded := params.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var resp kycsResponse
	err := s.api.doJSON(ctx, http.MethodGet, path, nil, &resp)
	if err != nil {
		s.fail(err, "Failed to search KYCs")
		return err
	}

	s.mu.Lock()
	s.allKYCs = resp.KYCs
	s.mu.Unlock()
	return nil
}

// UpdateStatus applies an admin decision, updates the cached list entry and
// refetches statistics so cached aggregates stay consistent.
func (s *KYCStore) UpdateStatus(ctx context.Context, id int64, status, adminNotes string) error {
	s.begin()
	defer s.end()

	var resp kycResponse
	err := s.api.doJSON(ctx, http.MethodPut, fmt.Sprintf("/api/kyc/%d/status", id), map[string]string{
		"status":     status,
		"adminNotes": adminNotes,
	}, &resp)
	if err != nil {
		s.fail(err, "Failed to update KYC status")
		return err
	}

	s.mu.Lock()
	for i := range s.allKYCs {
		if s.allKYCs[i].ID == id && resp.KYC != nil {
			s.allKYCs[i] = *resp.KYC
		}
	}
	s.mu.Unlock()

	return s.fetchStats(ctx)
}

// Statistics fetches the aggregate view (admin).
func (s *KYCStore) Statistics(ctx context.Context) error {
	s.begin()
	defer s.end()
	return s.fetchStats(ctx)
}

// Document downloads a document's content and content type.
func (s *KYCStore) Document(ctx context.Context, id int64) ([]byte, string, error) {
	s.begin()
	defer s.end()

	data, contentType, err := s.api.getBinary(ctx, fmt.Sprintf("/api/kyc/document/%d", id))
	if err != nil {
		s.fail(err, "Failed to fetch document")
		return nil, "", err
	}
	return data, contentType, nil
}

// Delete removes a record (admin) and drops it from the cached list.
func (s *KYCStore) Delete(ctx context.Context, id int64) error {
	s.begin()
	defer s.end()

	if err := s.api.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/api/kyc/%d", id), nil, nil); err != nil {
		s.fail(err, "Failed to delete KYC")
		return err
	}

	s.mu.Lock()
	kept := s.allKYCs[:0]
	for _, k := range s.allKYCs {
		if k.ID != id {
			kept = append(kept, k)
		}
	}
	s.allKYCs = kept
	s.mu.Unlock()
	return nil
}

// Reset clears all cached state and flags.
func (s *KYCStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userKYC = nil
	s.allKYCs = nil
	s.stats = nil
	s.loading = false
	s.initialized = false
	s.lastError = ""
}

func (s *KYCStore) fetchStats(ctx context.Context) error {
	var stats KYCStats
	err := s.api.doJSON(ctx, http.MethodGet, "/api/kyc/statistics", nil, &stats)
	if err != nil {
		s.mu.Lock()
		s.stats = nil
		s.mu.Unlock()
		s.fail(err, "Failed to fetch KYC statistics")
		return err
	}

	s.mu.Lock()
	s.stats = &stats
	s.mu.Unlock()
	return nil
}

// begin sets loading and clears the previous error.
func (s *KYCStore) begin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = true
	s.lastError = ""
}

func (s *KYCStore) end() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
}

// fail records the server's message when present, else the fallback.
func (s *KYCStore) fail(err error, fallback string) {
	message := fallback
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		message = apiErr.Message
	}
	s.mu.Lock()
	s.lastError = message
	s.mu.Unlock()
}
