package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gdg-garage/cafe-das-mulheres/internal/form"
	"github.com/gdg-garage/cafe-das-mulheres/internal/models"
	"github.com/gdg-garage/cafe-das-mulheres/internal/ratelimit"
	"github.com/gdg-garage/cafe-das-mulheres/internal/session"
	"github.com/gdg-garage/cafe-das-mulheres/internal/stats"
	"github.com/gdg-garage/cafe-das-mulheres/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type submitterMock struct {
	err error

	lock     sync.Mutex
	payloads []form.Payload
}

func (m *submitterMock) Submit(ctx context.Context, payload form.Payload) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.payloads = append(m.payloads, payload)
	return m.err
}

func (m *submitterMock) calls() []form.Payload {
	m.lock.Lock()
	defer m.lock.Unlock()
	return append([]form.Payload(nil), m.payloads...)
}

type failingStore struct{}

func (failingStore) ListLots(ctx context.Context) ([]models.Lot, error) {
	return nil, errors.New("connection refused")
}

func (failingStore) GetLot(ctx context.Context, id string) (models.Lot, error) {
	return models.Lot{}, errors.New("connection refused")
}

type testAPI struct {
	router    *chi.Mux
	submitter *submitterMock
	recorder  *stats.MemoryRecorder
	manager   *session.Manager
}

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to connect database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.Lot{}))

	lots := []models.Lot{
		{ID: "first", Name: "Primeiro lote", Price: 45, Quantity: 5, IsActive: true},
		{ID: "second", Name: "Segundo lote", Price: 60, Quantity: 100, IsActive: true},
		{ID: "early", Name: "Lote antecipado", Price: 30, Quantity: 20, IsActive: false},
	}
	require.NoError(t, db.Create(&lots).Error)

	return db
}

func setupAPI(t *testing.T, lotStore store.LotStore, opts RouterOptions) *testAPI {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	a := &testAPI{
		router:    chi.NewRouter(),
		submitter: &submitterMock{},
		recorder:  stats.NewMemoryRecorder(),
	}
	a.manager = session.NewManager(ctx, session.Options{
		Lots:      lotStore,
		Submitter: a.submitter,
		Stats:     a.recorder,
		Now:       func() time.Time { return time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC) },
	})

	RegisterRoutes(a.router,
		NewLotsHandler(lotStore, time.Second),
		NewSessionHandler(a.manager),
		NewStatsHandler(a.recorder),
		opts,
	)
	return a
}

func (a *testAPI) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// openSession creates a form session and waits for its lots to load.
func (a *testAPI) openSession(t *testing.T) string {
	t.Helper()

	w := a.do(t, http.MethodPost, "/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := decode[session.Snapshot](t, w).ID
	require.NotEmpty(t, id)

	require.Eventually(t, func() bool {
		w := a.do(t, http.MethodGet, "/sessions/"+id, nil)
		return w.Code == http.StatusOK && decode[session.Snapshot](t, w).LotsLoaded
	}, time.Second, 5*time.Millisecond)

	return id
}

func (a *testAPI) fill(t *testing.T, id string, fields map[models.Field]string) {
	t.Helper()

	for field, value := range fields {
		w := a.do(t, http.MethodPatch, "/sessions/"+id+"/fields", map[string]string{
			"field": string(field),
			"value": value,
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
}

var validFields = map[models.Field]string{
	models.FieldName:      "Maria <i>Silva</i>",
	models.FieldPhone:     "(11) 98765-4321",
	models.FieldBirthdate: "1990-05-10",
}

func TestHealth(t *testing.T) {
	a := setupAPI(t, store.NewGormLotStore(setupDB(t)), RouterOptions{})

	w := a.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestListLots(t *testing.T) {
	a := setupAPI(t, store.NewGormLotStore(setupDB(t)), RouterOptions{})

	w := a.do(t, http.MethodGet, "/lots", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	res := decode[struct {
		Lots         []models.Lot `json:"lots"`
		DefaultLotID string       `json:"defaultLotId"`
	}](t, w)

	require.Len(t, res.Lots, 2)
	assert.Equal(t, "first", res.Lots[0].ID)
	assert.Equal(t, "second", res.Lots[1].ID)
	assert.Equal(t, "first", res.DefaultLotID)
}

func TestListLots_StoreFailure(t *testing.T) {
	a := setupAPI(t, failingStore{}, RouterOptions{})

	w := a.do(t, http.MethodGet, "/lots", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), session.MsgLotsFailed)
}

func TestGetLot(t *testing.T) {
	a := setupAPI(t, store.NewGormLotStore(setupDB(t)), RouterOptions{})

	w := a.do(t, http.MethodGet, "/lots/second", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Segundo lote", decode[models.Lot](t, w).Name)

	w = a.do(t, http.MethodGet, "/lots/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionLifecycle(t *testing.T) {
	a := setupAPI(t, store.NewGormLotStore(setupDB(t)), RouterOptions{})
	id := a.openSession(t)

	w := a.do(t, http.MethodGet, "/sessions/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	snap := decode[session.Snapshot](t, w)
	assert.Equal(t, "first", snap.Registrant.LotID)
	assert.Equal(t, 1, snap.Quantity)
	assert.Len(t, snap.Lots, 2)

	w = a.do(t, http.MethodDelete, "/sessions/"+id, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = a.do(t, http.MethodGet, "/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 0, a.manager.Len())
}

func TestUnknownSession(t *testing.T) {
	a := setupAPI(t, store.NewGormLotStore(setupDB(t)), RouterOptions{})

	for _, tc := range []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodGet, "/sessions/nope", nil},
		{http.MethodPatch, "/sessions/nope/fields", map[string]string{"field": "name", "value": "Ana"}},
		{http.MethodPut, "/sessions/nope/quantity", map[string]int{"quantity": 2}},
		{http.MethodPost, "/sessions/nope/submit", nil},
		{http.MethodDelete, "/sessions/nope", nil},
	} {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			w := a.do(t, tc.method, tc.path, tc.body)
			assert.Equal(t, http.StatusNotFound, w.Code)
		})
	}
}

func TestSetField_BadInput(t *testing.T) {
	a := setupAPI(t, store.NewGormLotStore(setupDB(t)), RouterOptions{})
	id := a.openSession(t)

	w := a.do(t, http.MethodPatch, "/sessions/"+id+"/fields", map[string]string{"field": "email", "value": "a@b.c"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(t, http.MethodPatch, "/sessions/"+id+"/fields", map[string]string{"field": "birthdate", "value": "10/05/1990"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmit_Succeeded(t *testing.T) {
	a := setupAPI(t, store.NewGormLotStore(setupDB(t)), RouterOptions{})
	id := a.openSession(t)
	a.fill(t, id, validFields)
	a.fill(t, id, map[models.Field]string{models.FieldLotID: "second"})

	w := a.do(t, http.MethodPut, "/sessions/"+id+"/quantity", map[string]int{"quantity": 3})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = a.do(t, http.MethodPost, "/sessions/"+id+"/submit", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	snap := decode[session.Snapshot](t, w)
	assert.Equal(t, session.StatusSucceeded, snap.Outcome.Status)
	assert.Equal(t, session.MsgSuccess, snap.Outcome.Message)
	assert.Empty(t, snap.Registrant.Name)
	assert.Equal(t, "first", snap.Registrant.LotID)

	calls := a.submitter.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, form.Payload{
		Name:      "Maria Silva",
		Phone:     "11987654321",
		Birthdate: calls[0].Birthdate,
		LotID:     "second",
		Quantity:  3,
	}, calls[0])
	require.NotNil(t, calls[0].Birthdate)
	assert.Equal(t, "1990-05-10T00:00:00.000Z", *calls[0].Birthdate)
}

func TestSubmit_Invalid(t *testing.T) {
	a := setupAPI(t, store.NewGormLotStore(setupDB(t)), RouterOptions{})
	id := a.openSession(t)
	a.fill(t, id, map[models.Field]string{models.FieldName: "A", models.FieldLotID: "early"})

	w := a.do(t, http.MethodPost, "/sessions/"+id+"/submit", nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())

	snap := decode[session.Snapshot](t, w)
	assert.Equal(t, form.MsgName, snap.Errors[models.FieldName])
	assert.Equal(t, form.MsgPhone, snap.Errors[models.FieldPhone])
	assert.Equal(t, form.MsgBirthdateMissing, snap.Errors[models.FieldBirthdate])
	assert.Equal(t, form.MsgLotUnavailable, snap.Errors[models.FieldLotID])
	assert.Empty(t, a.submitter.calls())
}

func TestSubmit_DeliveryFailed(t *testing.T) {
	a := setupAPI(t, store.NewGormLotStore(setupDB(t)), RouterOptions{})
	a.submitter.err = errors.New("webhook responded with status 500")
	id := a.openSession(t)
	a.fill(t, id, validFields)

	w := a.do(t, http.MethodPost, "/sessions/"+id+"/submit", nil)
	require.Equal(t, http.StatusBadGateway, w.Code, w.Body.String())

	snap := decode[session.Snapshot](t, w)
	assert.Equal(t, session.StatusFailed, snap.Outcome.Status)
	assert.Equal(t, session.MsgFailure, snap.Outcome.Message)
	assert.Equal(t, "Maria <i>Silva</i>", snap.Registrant.Name)
}

func TestStats(t *testing.T) {
	a := setupAPI(t, store.NewGormLotStore(setupDB(t)), RouterOptions{})
	id := a.openSession(t)

	w := a.do(t, http.MethodPost, "/sessions/"+id+"/submit", nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	a.fill(t, id, validFields)
	w = a.do(t, http.MethodPost, "/sessions/"+id+"/submit", nil)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Eventually(t, func() bool {
		w := a.do(t, http.MethodGet, "/stats", nil)
		res := decode[struct {
			Succeeded int64 `json:"succeeded"`
			Failed    int64 `json:"failed"`
			Invalid   int64 `json:"invalid"`
		}](t, w)
		return res.Succeeded == 1 && res.Invalid == 1 && res.Failed == 0
	}, time.Second, 5*time.Millisecond)
}

func TestRateLimit_WritesOnly(t *testing.T) {
	limiter := ratelimit.NewStore(0.001, 1)
	a := setupAPI(t, store.NewGormLotStore(setupDB(t)), RouterOptions{Limiter: limiter})

	w := a.do(t, http.MethodPost, "/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w = a.do(t, http.MethodPost, "/sessions", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	for i := 0; i < 3; i++ {
		w = a.do(t, http.MethodGet, "/lots", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestCORS(t *testing.T) {
	a := setupAPI(t, store.NewGormLotStore(setupDB(t)), RouterOptions{EnableCORS: true})

	req := httptest.NewRequest(http.MethodOptions, "/sessions", nil)
	req.Header.Set("Origin", "https://cafedasmulheres.com.br")
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://cafedasmulheres.com.br", w.Header().Get("Access-Control-Allow-Origin"))

	w = a.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
