package gateway

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultOpenPolicy(t *testing.T) {
	p := DefaultOpenPolicy()

	cases := []struct {
		name   string
		method string
		path   string
		open   bool
	}{
		{"login is open", http.MethodPost, "/api/auth/login", true},
		{"register is open", http.MethodPost, "/api/auth/register", true},
		{"browsing restaurants is open", http.MethodGet, "/api/restaurants/42", true},
		{"browsing menus is open", http.MethodGet, "/api/menu/42", true},
		{"writing restaurants needs a token", http.MethodPost, "/api/restaurants", false},
		{"deleting menus needs a token", http.MethodDelete, "/api/menu/42", false},
		{"profile needs a token", http.MethodGet, "/api/users/me", false},
		{"orders need a token", http.MethodPost, "/api/orders", false},
		{"auth prefix does not leak to siblings", http.MethodPost, "/api/authority", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.open, p.IsOpen(tc.method, tc.path))
		})
	}
}

func TestOpenPolicyEmptyMethodsMatchAll(t *testing.T) {
	p := NewOpenPolicy(Rule{Prefix: "/public"})

	require.True(t, p.IsOpen(http.MethodGet, "/public/a"))
	require.True(t, p.IsOpen(http.MethodDelete, "/public/a"))
	require.False(t, p.IsOpen(http.MethodGet, "/private"))
}
