package client

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKYCStatusNullRecord(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/kyc/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"kyc": nil})
	})
	api, _ := newTestClient(t, mux)
	store := NewKYCStore(api)

	require.NoError(t, store.Status(context.Background()))
	assert.Nil(t, store.UserKYC())
	assert.True(t, store.Initialized())
	assert.Empty(t, store.LastError())
}

func TestKYCSubmitCachesRecord(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/kyc/submit", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"message": "KYC submitted successfully",
			"kyc":     map[string]interface{}{"id": 3, "fullName": r.FormValue("fullName"), "status": "PENDING"},
		})
	})
	api, _ := newTestClient(t, mux)
	store := NewKYCStore(api)

	err := store.Submit(context.Background(), "Alice Smith", FormFile{
		Name:        "passport.png",
		ContentType: "image/png",
		Data:        []byte("png-bytes"),
	})
	require.NoError(t, err)

	record := store.UserKYC()
	require.NotNil(t, record)
	assert.Equal(t, "Alice Smith", record.FullName)
	assert.Equal(t, "PENDING", record.Status)
}

func TestKYCStoreCapturesServerMessage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/kyc/submit", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusConflict, map[string]string{"message": "KYC already submitted"})
	})
	mux.HandleFunc("/api/kyc/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"kyc": nil})
	})
	api, _ := newTestClient(t, mux)
	store := NewKYCStore(api)

	err := store.Submit(context.Background(), "Alice Smith", FormFile{Name: "doc.png", ContentType: "image/png", Data: []byte("x")})
	require.Error(t, err)
	assert.Equal(t, "KYC already submitted", store.LastError())

	// The next operation clears the stale error.
	require.NoError(t, store.Status(context.Background()))
	assert.Empty(t, store.LastError())
}

func TestKYCUpdateStatusSyncsListAndStats(t *testing.T) {
	var statsCalls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/api/kyc/all", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"kycs": []map[string]interface{}{
				{"id": 3, "status": "PENDING"},
				{"id": 4, "status": "PENDING"},
			},
		})
	})
	mux.HandleFunc("/api/kyc/3/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"message": "KYC approved successfully",
			"kyc":     map[string]interface{}{"id": 3, "status": "APPROVED"},
		})
	})
	mux.HandleFunc("/api/kyc/statistics", func(w http.ResponseWriter, r *http.Request) {
		statsCalls.Add(1)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"totalUsers": 2,
			"totalKYCs":  2,
			"kycStats":   map[string]int{"PENDING": 1, "APPROVED": 1, "REJECTED": 0},
		})
	})
	api, _ := newTestClient(t, mux)
	store := NewKYCStore(api)

	require.NoError(t, store.All(context.Background()))
	require.NoError(t, store.UpdateStatus(context.Background(), 3, "APPROVED", ""))

	kycs := store.AllKYCs()
	require.Len(t, kycs, 2)
	assert.Equal(t, "APPROVED", kycs[0].Status)
	assert.Equal(t, "PENDING", kycs[1].Status)

	assert.Equal(t, int32(1), statsCalls.Load())
	require.NotNil(t, store.Stats())
	assert.Equal(t, 1, store.Stats().StatusCounts["APPROVED"])
}

func TestKYCSearchEncodesFilter(t *testing.T) {
	var gotQuery string

	mux := http.NewServeMux()
	mux.HandleFunc("/api/kyc/search", func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		writeJSON(w, http.StatusOK, map[string]interface{}{"kycs": []map[string]interface{}{}})
	})
	api, _ := newTestClient(t, mux)
	store := NewKYCStore(api)

	require.NoError(t, store.Search(context.Background(), SearchFilter{
		Status: "APPROVED",
		Email:  "alice",
		Date:   "2026-01-15",
	}))
	assert.Equal(t, "date=2026-01-15&email=alice&status=APPROVED", gotQuery)
}

func TestKYCDeleteDropsFromList(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/kyc/all", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"kycs": []map[string]interface{}{
				{"id": 3, "status": "PENDING"},
				{"id": 4, "status": "APPROVED"},
			},
		})
	})
	mux.HandleFunc("/api/kyc/3", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "KYC deleted successfully"})
	})
	api, _ := newTestClient(t, mux)
	store := NewKYCStore(api)

	require.NoError(t, store.All(context.Background()))
	require.NoError(t, store.Delete(context.Background(), 3))

	kycs := store.AllKYCs()
	require.Len(t, kycs, 1)
	assert.Equal(t, int64(4), kycs[0].ID)
}

func TestKYCResetClearsEverything(t *testing.T) {
	api, _ := newTestClient(t, http.NewServeMux())
	store := NewKYCStore(api)

	store.mu.Lock()
	store.userKYC = &KYC{ID: 3}
	store.allKYCs = []KYC{{ID: 3}}
	store.stats = &KYCStats{TotalKYCs: 1}
	store.initialized = true
	store.lastError = "stale"
	store.mu.Unlock()

	store.Reset()
	assert.Nil(t, store.UserKYC())
	assert.Nil(t, store.AllKYCs())
	assert.Nil(t, store.Stats())
	assert.False(t, store.Initialized())
	assert.Empty(t, store.LastError())
}
