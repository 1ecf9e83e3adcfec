package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAuthRejectsMissingToken(t *testing.T) {
	svc, _ := newTestService(t)
	m := Middleware{Service: svc}

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	rec := httptest.NewRecorder()
	m.RequireAuth(okHandler()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "UNAUTHORIZED")
}

func TestRequireAuthAcceptsBearerToken(t *testing.T) {
	svc, store := newTestService(t)
	seedUser(t, store, "gate@yard.test", "correct horse", []string{RoleGate})
	result, err := svc.Login(context.Background(), "gate@yard.test", "correct horse")
	require.NoError(t, err)

	m := Middleware{Service: svc}
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+result.AccessToken)
	rec := httptest.NewRecorder()
	m.RequireAuth(okHandler()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRoleEnforcesMembership(t *testing.T) {
	svc, store := newTestService(t)
	seedUser(t, store, "gate@yard.test", "correct horse", []string{RoleGate})
	result, err := svc.Login(context.Background(), "gate@yard.test", "correct horse")
	require.NoError(t, err)

	m := Middleware{Service: svc}
	protected := m.RequireAuth(m.RequireRole(RoleBilling)(okHandler()))

	req := httptest.NewRequest(http.MethodGet, "/billing", nil)
	req.Header.Set("Authorization", "Bearer "+result.AccessToken)
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)

	allowed := m.RequireAuth(m.RequireRole(RoleGate)(okHandler()))
	req = httptest.NewRequest(http.MethodGet, "/gate", nil)
	req.Header.Set("Authorization", "Bearer "+result.AccessToken)
	rec = httptest.NewRecorder()
	allowed.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRoleAdminBypass(t *testing.T) {
	svc, store := newTestService(t)
	seedUser(t, store, "admin@yard.test", "correct horse", []string{RoleAdmin})
	result, err := svc.Login(context.Background(), "admin@yard.test", "correct horse")
	require.NoError(t, err)

	m := Middleware{Service: svc}
	protected := m.RequireAuth(m.RequireRole(RoleBilling)(okHandler()))

	req := httptest.NewRequest(http.MethodGet, "/billing", nil)
	req.Header.Set("Authorization", "Bearer "+result.AccessToken)
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}
