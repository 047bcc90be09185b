package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/SummerNgcobo/parakeet/internal/config"
	"github.com/SummerNgcobo/parakeet/internal/directory"
	"github.com/SummerNgcobo/parakeet/internal/models"
	"github.com/SummerNgcobo/parakeet/internal/utils"
	"github.com/SummerNgcobo/parakeet/internal/validation"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
	if err := validation.Register(); err != nil {
		panic(err)
	}
}

func testConfig() config.Config {
	return config.Config{
		AppEnv:             "test",
		JwtSecret:          testSecret,
		JwtAccessMinutes:   15,
		JwtRefreshHours:    24,
		AccountTokenHours:  24,
		OfficeLat:          -26.104029891448988,
		OfficeLng:          28.05264119446373,
		OfficeRadiusMeters: 150,
		OfficeAddress:      "155 West Street, Sandton",
		MaxShiftHours:      12,
		Timezone:           "UTC",
	}
}

type account struct {
	User  models.User
	Token string
}

// newAccount creates a validated user with password "password123" and an
// access token for it.
func newAccount(t *testing.T, db *gorm.DB, role string, addr string) account {
	t.Helper()
	hash, err := utils.HashPassword("password123")
	require.NoError(t, err)
	user, err := directory.CreateAccount(db, directory.NewAccount{
		FirstName:    "Test",
		LastName:     role,
		Email:        addr,
		Role:         role,
		PasswordHash: hash,
		Validated:    true,
	})
	require.NoError(t, err)
	token, err := utils.GenerateAccessToken(user.ID.String(), user.Role, user.Email, testSecret, 15)
	require.NoError(t, err)
	return account{User: user, Token: token}
}

func doJSON(t *testing.T, r http.Handler, method string, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
}
