package service

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"kycportal/internal/models"
	"kycportal/internal/notifier"
	"kycportal/internal/repository"
	"kycportal/internal/storage"
)

var (
	ErrFullNameRequired = errors.New("full name is required")
	ErrDocumentRequired = errors.New("document file is required")
	ErrInvalidFileType  = errors.New("invalid file type: only JPG, PNG and PDF files are allowed")
	ErrFileTooLarge     = errors.New("file size too large")
	ErrDuplicateKYC     = errors.New("kyc already submitted")
	ErrKYCNotFound      = errors.New("kyc not found")
	ErrDocumentMissing  = errors.New("document file not found")
	ErrForbidden        = errors.New("access denied")
	ErrInvalidStatus    = errors.New("invalid status")
	ErrNotesRequired    = errors.New("admin notes required for rejection")
)

var allowedDocumentTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"application/pdf": true,
}

var allowedDocumentExts = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".pdf":  "application/pdf",
}

// Upload carries a submitted document before it is stored.
type Upload struct {
	Data        []byte
	Filename    string
	ContentType string
}

type KYCService interface {
	Submit(userID int64, fullName string, doc Upload) (*models.KYC, error)
	StatusFor(userID int64) (*models.KYC, error)
	List() ([]models.KYC, error)
	Search(filter repository.SearchFilter) ([]models.KYC, error)
	UpdateStatus(id int64, status models.KYCStatus, notes string) (*models.KYC, error)
	Statistics() (*models.Statistics, error)
	Document(id int64, claims *models.Claims) ([]byte, string, error)
	Delete(id int64) error
}

type kycService struct {
	repo        repository.KYCRepository
	users       repository.AuthRepository
	docs        *storage.DocumentStore
	bot         *notifier.Notifier
	maxFileSize int64
	logger      *zap.Logger
}

func NewKYCService(repo repository.KYCRepository, users repository.AuthRepository, docs *storage.DocumentStore, bot *notifier.Notifier, maxFileSize int64, logger *zap.Logger) KYCService {
	return &kycService{
		repo:        repo,
		users:       users,
		docs:        docs,
		bot:         bot,
		maxFileSize: maxFileSize,
		logger:      logger,
	}
}

// Submit validates the submission, stores the document and creates the
// record in PENDING state. Any failure after the document is written
// removes it again so a rejected submission leaves no orphaned file.
func (s *kycService) Submit(userID int64, fullName string, doc Upload) (*models.KYC, error) {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return nil, ErrFullNameRequired
	}
	if len(doc.Data) == 0 {
		return nil, ErrDocumentRequired
	}
	if int64(len(doc.Data)) > s.maxFileSize {
		return nil, ErrFileTooLarge
	}
	if err := validateDocumentType(doc); err != nil {
		return nil, err
	}

	// The unique constraint on user_id is the real guard; this check just
	// avoids writing a file we would immediately delete.
	if _, err := s.repo.GetByUserID(userID); err == nil {
		return nil, ErrDuplicateKYC
	} else if !errors.Is(err, repository.ErrKYCNotFound) {
		return nil, fmt.Errorf("failed to check existing kyc: %w", err)
	}

	storedName, err := s.docs.Save(doc.Data, doc.Filename)
	if err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}

	kyc := &models.KYC{
		UserID:       userID,
		FullName:     fullName,
		DocumentFile: storedName,
		Status:       models.StatusPending,
	}
	if err := s.repo.Create(kyc); err != nil {
		s.removeDocument(storedName)
		if errors.Is(err, repository.ErrDuplicateKYC) {
			return nil, ErrDuplicateKYC
		}
		return nil, fmt.Errorf("failed to create kyc record: %w", err)
	}

	if user, err := s.users.GetUserByID(userID); err == nil {
		kyc.UserEmail = user.Email
	}

	s.logger.Info("KYC submitted", zap.Int64("kyc_id", kyc.ID), zap.Int64("user_id", userID))
	s.bot.SubmissionReceived(kyc)
	return kyc, nil
}

// StatusFor returns the user's record, or (nil, nil) when none exists yet.
// Absence is not an error: the client routes to the submission page on nil.
func (s *kycService) StatusFor(userID int64) (*models.KYC, error) {
	kyc, err := s.repo.GetByUserID(userID)
	if err != nil {
		if errors.Is(err, repository.ErrKYCNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch kyc status: %w", err)
	}
	return kyc, nil
}

func (s *kycService) List() ([]models.KYC, error) {
	return s.repo.List()
}

func (s *kycService) Search(filter repository.SearchFilter) ([]models.KYC, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	return s.repo.Search(filter)
}

// UpdateStatus applies an admin decision. Notes are mandatory when
// rejecting. Re-deciding an already-decided record is allowed.
func (s *kycService) UpdateStatus(id int64, status models.KYCStatus, notes string) (*models.KYC, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	notes = strings.TrimSpace(notes)
	if status == models.StatusRejected && notes == "" {
		return nil, ErrNotesRequired
	}

	kyc, err := s.repo.UpdateStatus(id, status, notes)
	if err != nil {
		if errors.Is(err, repository.ErrKYCNotFound) {
			return nil, ErrKYCNotFound
		}
		return nil, fmt.Errorf("failed to update kyc status: %w", err)
	}

	s.logger.Info("KYC status updated", zap.Int64("kyc_id", id), zap.String("status", string(status)))
	s.bot.Decision(kyc)
	return kyc, nil
}

func (s *kycService) Statistics() (*models.Statistics, error) {
	totalUsers, err := s.users.CountUsers()
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	totalKYCs, err := s.repo.Count()
	if err != nil {
		return nil, fmt.Errorf("failed to count kyc records: %w", err)
	}
	counts, err := s.repo.CountByStatus()
	if err != nil {
		return nil, fmt.Errorf("failed to count kyc statuses: %w", err)
	}
	recent, err := s.repo.Recent(5)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch recent submissions: %w", err)
	}

	rate := 0.0
	if totalKYCs > 0 {
		rate = float64(counts[models.StatusApproved]) / float64(totalKYCs) * 100
		rate = math.Round(rate*100) / 100
	}

	return &models.Statistics{
		TotalUsers:        totalUsers,
		TotalKYCs:         totalKYCs,
		StatusCounts:      counts,
		VerificationRate:  rate,
		RecentSubmissions: models.KYCViews(recent),
	}, nil
}

// Document returns the decrypted document content and its content type.
// Ownership or the admin role is required. A record whose file has gone
// missing reports ErrDocumentMissing, distinct from ErrKYCNotFound.
func (s *kycService) Document(id int64, claims *models.Claims) ([]byte, string, error) {
	kyc, err := s.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrKYCNotFound) {
			return nil, "", ErrKYCNotFound
		}
		return nil, "", fmt.Errorf("failed to fetch kyc record: %w", err)
	}

	if kyc.UserID != claims.UserID && claims.Role != models.RoleAdmin {
		return nil, "", ErrForbidden
	}

	data, err := s.docs.Open(kyc.DocumentFile)
	if err != nil {
		if errors.Is(err, storage.ErrFileMissing) {
			s.logger.Warn("KYC record has no backing file", zap.Int64("kyc_id", id), zap.String("file", kyc.DocumentFile))
			return nil, "", ErrDocumentMissing
		}
		return nil, "", fmt.Errorf("failed to open document: %w", err)
	}

	return data, documentContentType(kyc.DocumentFile), nil
}

// Delete removes the backing file best-effort, then the record. A failed
// file removal does not block deleting the record.
func (s *kycService) Delete(id int64) error {
	kyc, err := s.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrKYCNotFound) {
			return ErrKYCNotFound
		}
		return fmt.Errorf("failed to fetch kyc record: %w", err)
	}

	s.removeDocument(kyc.DocumentFile)

	if err := s.repo.Delete(id); err != nil {
		if errors.Is(err, repository.ErrKYCNotFound) {
			return ErrKYCNotFound
		}
		return fmt.Errorf("failed to delete kyc record: %w", err)
	}

	s.logger.Info("KYC deleted", zap.Int64("kyc_id", id))
	return nil
}

func (s *kycService) removeDocument(name string) {
	if err := s.docs.Remove(name); err != nil {
		s.logger.Warn("Failed to remove document", zap.String("file", name), zap.Error(err))
	}
}

func validateDocumentType(doc Upload) error {
	mediaType := doc.ContentType
	if i := strings.Index(mediaType, ";"); i >= 0 {
		mediaType = strings.TrimSpace(mediaType[:i])
	}
	if !allowedDocumentTypes[mediaType] {
		return ErrInvalidFileType
	}
	ext := strings.ToLower(filepath.Ext(doc.Filename))
	if _, ok := allowedDocumentExts[ext]; !ok {
		return ErrInvalidFileType
	}
	return nil
}

// documentContentType maps a stored filename to the type it is served with.
func documentContentType(name string) string {
	if ct, ok := allowedDocumentExts[strings.ToLower(filepath.Ext(name))]; ok {
		return ct
	}
	return "application/octet-stream"
}
