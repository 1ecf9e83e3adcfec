package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	rows map[uuid.UUID]*Client
}

func newMemStore() *memStore {
	return &memStore{rows: map[uuid.UUID]*Client{}}
}

func (s *memStore) Create(_ context.Context, c *Client) error {
	for _, row := range s.rows {
		if row.Code == c.Code {
			return ErrDuplicateCode
		}
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	clone := *c
	s.rows[c.ID] = &clone
	return nil
}

func (s *memStore) GetByID(_ context.Context, id uuid.UUID) (*Client, error) {
	row, ok := s.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *row
	return &clone, nil
}

func (s *memStore) List(_ context.Context, search string, _, _ int) ([]Client, error) {
	var out []Client
	for _, row := range s.rows {
		if search != "" && !strings.Contains(row.Code, strings.ToUpper(search)) {
			continue
		}
		out = append(out, *row)
	}
	return out, nil
}

func (s *memStore) Update(_ context.Context, c *Client) error {
	if _, ok := s.rows[c.ID]; !ok {
		return ErrNotFound
	}
	for id, row := range s.rows {
		if id != c.ID && row.Code == c.Code {
			return ErrDuplicateCode
		}
	}
	clone := *c
	s.rows[c.ID] = &clone
	return nil
}

func (s *memStore) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := s.rows[id]; !ok {
		return ErrNotFound
	}
	delete(s.rows, id)
	return nil
}

func newTestRouter(store Store) http.Handler {
	h := &Handler{Store: store, Validate: validator.New()}
	r := chi.NewRouter()
	r.Get("/clients", h.List)
	r.Post("/clients", h.Create)
	r.Get("/clients/{id}", h.Get)
	r.Put("/clients/{id}", h.Update)
	r.Delete("/clients/{id}", h.Delete)
	return r
}

func TestCreateClient(t *testing.T) {
	router := newTestRouter(newMemStore())

	body := `{"code":"acme","name":"Acme Logistics","contact_email":"ops@acme.test"}`
	req := httptest.NewRequest(http.MethodPost, "/clients", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var envelope struct {
		Data Client `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Equal(t, "ACME", envelope.Data.Code)
	require.True(t, envelope.Data.Active)
}

func TestCreateClientDuplicateCode(t *testing.T) {
	store := newMemStore()
	require.NoError(t, store.Create(context.Background(), &Client{Code: "ACME", Name: "Acme"}))
	router := newTestRouter(store)

	body := `{"code":"ACME","name":"Acme Again"}`
	req := httptest.NewRequest(http.MethodPost, "/clients", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Body.String(), "CONFLICT")
}

func TestCreateClientValidation(t *testing.T) {
	router := newTestRouter(newMemStore())

	body := `{"code":"A","name":""}`
	req := httptest.NewRequest(http.MethodPost, "/clients", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "VALIDATION_ERROR")
}

func TestGetClientNotFound(t *testing.T) {
	router := newTestRouter(newMemStore())

	req := httptest.NewRequest(http.MethodGet, "/clients/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateClient(t *testing.T) {
	store := newMemStore()
	existing := &Client{Code: "ACME", Name: "Acme"}
	require.NoError(t, store.Create(context.Background(), existing))
	router := newTestRouter(store)

	body := `{"code":"ACME","name":"Acme Logistics BV","active":false}`
	req := httptest.NewRequest(http.MethodPut, "/clients/"+existing.ID.String(), strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	updated, err := store.GetByID(context.Background(), existing.ID)
	require.NoError(t, err)
	require.Equal(t, "Acme Logistics BV", updated.Name)
	require.False(t, updated.Active)
}

func TestDeleteClient(t *testing.T) {
	store := newMemStore()
	existing := &Client{Code: "ACME", Name: "Acme"}
	require.NoError(t, store.Create(context.Background(), existing))
	router := newTestRouter(store)

	req := httptest.NewRequest(http.MethodDelete, "/clients/"+existing.ID.String(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	_, err := store.GetByID(context.Background(), existing.ID)
	require.ErrorIs(t, err, ErrNotFound)
}
