package service

import (
	"database/sql"
	"sort"
	"time"

	"kycportal/internal/models"
	"kycportal/internal/repository"
)

// In-memory repositories used across the service tests.

type fakeAuthRepo struct {
	users  map[int64]*models.User
	nextID int64
}

func newFakeAuthRepo() *fakeAuthRepo {
	return &fakeAuthRepo{users: make(map[int64]*models.User), nextID: 1}
}

func (f *fakeAuthRepo) CreateUser(user *models.User) error {
	for _, u := range f.users {
		if u.Email == user.Email {
			return repository.ErrEmailTaken
		}
	}
	user.ID = f.nextID
	f.nextID++
	user.CreatedAt = time.Now()
	stored := *user
	f.users[user.ID] = &stored
	return nil
}

func (f *fakeAuthRepo) GetUserByEmail(email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (f *fakeAuthRepo) GetUserByID(id int64) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeAuthRepo) UpdateRefreshTokenHash(id int64, hash string) error {
	u, ok := f.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.RefreshTokenHash = sql.NullString{String: hash, Valid: true}
	return nil
}

func (f *fakeAuthRepo) ClearRefreshToken(id int64) error {
	if u, ok := f.users[id]; ok {
		u.RefreshTokenHash = sql.NullString{}
	}
	return nil
}

func (f *fakeAuthRepo) CountUsers() (int, error) {
	return len(f.users), nil
}

type fakeKYCRepo struct {
	kycs   map[int64]*models.KYC
	nextID int64
}

func newFakeKYCRepo() *fakeKYCRepo {
	return &fakeKYCRepo{kycs: make(map[int64]*models.KYC), nextID: 1}
}

func (f *fakeKYCRepo) Create(kyc *models.KYC) error {
	for _, k := range f.kycs {
		if k.UserID == kyc.UserID {
			return repository.ErrDuplicateKYC
		}
	}
	kyc.ID = f.nextID
	f.nextID++
	kyc.CreatedAt = time.Now()
	kyc.UpdatedAt = kyc.CreatedAt
	stored := *kyc
	f.kycs[kyc.ID] = &stored
	return nil
}

func (f *fakeKYCRepo) GetByUserID(userID int64) (*models.KYC, error) {
	for _, k := range f.kycs {
		if k.UserID == userID {
			cp := *k
			return &cp, nil
		}
	}
	return nil, repository.ErrKYCNotFound
}

func (f *fakeKYCRepo) GetByID(id int64) (*models.KYC, error) {
	k, ok := f.kycs[id]
	if !ok {
		return nil, repository.ErrKYCNotFound
	}
	cp := *k
	return &cp, nil
}

func (f *fakeKYCRepo) List() ([]models.KYC, error) {
	return f.sorted(), nil
}

func (f *fakeKYCRepo) Search(filter repository.SearchFilter) ([]models.KYC, error) {
	var out []models.KYC
	for _, k := range f.sorted() {
		if filter.Status != "" && k.Status != filter.Status {
			continue
		}
		if !filter.MinCreatedAt.IsZero() && k.CreatedAt.Before(filter.MinCreatedAt) {
			continue
		}
		out = append(out, k)
	}
	return out, nil
}

func (f *fakeKYCRepo) UpdateStatus(id int64, status models.KYCStatus, notes string) (*models.KYC, error) {
	k, ok := f.kycs[id]
	if !ok {
		return nil, repository.ErrKYCNotFound
	}
	k.Status = status
	k.AdminNotes = sql.NullString{String: notes, Valid: notes != ""}
	k.UpdatedAt = time.Now()
	cp := *k
	return &cp, nil
}

func (f *fakeKYCRepo) Delete(id int64) error {
	if _, ok := f.kycs[id]; !ok {
		return repository.ErrKYCNotFound
	}
	delete(f.kycs, id)
	return nil
}

func (f *fakeKYCRepo) Count() (int, error) {
	return len(f.kycs), nil
}

func (f *fakeKYCRepo) CountByStatus() (map[models.KYCStatus]int, error) {
	counts := map[models.KYCStatus]int{
		models.StatusPending:  0,
		models.StatusApproved: 0,
		models.StatusRejected: 0,
	}
	for _, k := range f.kycs {
		counts[k.Status]++
	}
	return counts, nil
}

func (f *fakeKYCRepo) Recent(limit int) ([]models.KYC, error) {
	all := f.sorted()
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (f *fakeKYCRepo) sorted() []models.KYC {
	out := make([]models.KYC, 0, len(f.kycs))
	for _, k := range f.kycs {
		out = append(out, *k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
