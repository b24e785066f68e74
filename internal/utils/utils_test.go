package utils

import (
	"net/http/httptest"
	"testing"
	"time"

	"coursepay/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPagination(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  Pagination
	}{
		{name: "defaults", query: "", want: Pagination{Page: 1, Limit: 20, Offset: 0}},
		{name: "page", query: "?page=3&limit=10", want: Pagination{Page: 3, Limit: 10, Offset: 20}},
		{name: "explicit offset", query: "?limit=10&offset=5", want: Pagination{Page: 1, Limit: 10, Offset: 5}},
		{name: "capped", query: "?limit=500", want: Pagination{Page: 1, Limit: 100, Offset: 0}},
		{name: "invalid", query: "?page=-2&limit=abc&offset=-1", want: Pagination{Page: 1, Limit: 20, Offset: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			var got Pagination
			app.Get("/", func(c *fiber.Ctx) error {
				got = GetPagination(c, 20, 100)
				return nil
			})
			_, err := app.Test(httptest.NewRequest("GET", "/"+tt.query, nil))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTokenRoundTrip(t *testing.T) {
	signed, err := GenerateToken("secret", 42, "s@example.com", models.RoleStudent, time.Minute)
	require.NoError(t, err)

	claims, err := ParseToken("secret", signed)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)
	assert.Equal(t, "42", claims.Subject)

	_, err = ParseToken("other", signed)
	assert.Error(t, err)

	_, err = GenerateToken("", 1, "", models.RoleAdmin, time.Minute)
	assert.Error(t, err)
}

func TestTokenExpired(t *testing.T) {
	signed, err := GenerateToken("secret", 1, "", models.RoleAdmin, -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken("secret", signed)
	assert.Error(t, err)
}

func TestGenerateSecureToken(t *testing.T) {
	a, err := GenerateSecureToken(tokenBytes)
	require.NoError(t, err)
	b, err := GenerateSecureToken(tokenBytes)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Len(t, a, SecureTokenLength(tokenBytes))
}

const tokenBytes = 12
