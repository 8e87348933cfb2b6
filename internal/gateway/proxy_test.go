package gateway

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func namedBackend(t *testing.T, name string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(name))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestProxyRoutesByPrefix(t *testing.T) {
	users := namedBackend(t, "users")
	orders := namedBackend(t, "orders")

	p, err := NewProxy(map[string]string{
		"/api/users":  users.URL,
		"/api/orders": orders.URL,
	})
	require.NoError(t, err)

	cases := []struct {
		path string
		want string
	}{
		{"/api/users/me", "users"},
		{"/api/orders/42", "orders"},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))

			require.Equal(t, http.StatusOK, rec.Code)
			body, _ := io.ReadAll(rec.Body)
			require.Equal(t, tc.want, string(body))
		})
	}
}

func TestProxyUnknownPathIs404(t *testing.T) {
	p, err := NewProxy(map[string]string{"/api/users": "http://localhost:1"})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/payments", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
}
