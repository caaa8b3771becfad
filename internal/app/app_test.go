package app

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"user-service/internal/config"
	"user-service/internal/domain"
	"user-service/internal/repository/sqlite"
	"user-service/internal/service"
)

func testConfig() config.Config {
	var cfg config.Config
	cfg.Server.BasePath = "/api/v1/users"
	cfg.Database.Driver = "sqlite"
	cfg.Database.Path = sqlite.MemoryPath
	cfg.Auth.JWTSecret = base64.StdEncoding.EncodeToString(bytes.Repeat([]byte("a"), 32))
	cfg.Auth.TokenTTL = time.Hour
	cfg.Auth.BcryptCost = 4
	cfg.Cache.Enabled = true
	cfg.Cache.Backend = "lru"
	cfg.Cache.Size = 8
	cfg.Cache.TTL = time.Minute
	return cfg
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestNewServesRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	a, err := New(ctx, testConfig(), quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	assert.Nil(t, a.Storage)

	router := a.Router()

	body := `{"username":"alice","password":"password123","email":"alice@example.com","fullName":"Alice"}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/users/register", strings.NewReader(body)))
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/actuator/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewRecordsMetrics(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.Telemetry.Metrics = true

	a, err := New(ctx, cfg, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	require.NotNil(t, a.Meters)

	_, err = a.Users.Register(ctx, registerInput())
	require.NoError(t, err)

	values, err := a.Meters.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1.0, values["usersvc.registration.count"])
}

func TestNewWithRedisCache(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := testConfig()
	cfg.Cache.Backend = "redis"
	cfg.Redis.Addr = mr.Addr()
	cfg.Redis.Prefix = "apptest"

	ctx := context.Background()
	a, err := New(ctx, cfg, quietLogger())
	require.NoError(t, err)

	user, err := a.Users.CreateAccount(ctx, registerInput(), domain.RoleUser)
	require.NoError(t, err)
	_, err = a.Users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, mr.Keys())

	require.NoError(t, a.Close(ctx))
}

func TestNewRejectsBadConfig(t *testing.T) {
	ctx := context.Background()

	cfg := testConfig()
	cfg.Auth.JWTSecret = ""
	_, err := New(ctx, cfg, quietLogger())
	assert.Error(t, err)

	cfg = testConfig()
	cfg.Auth.JWTSecret = base64.StdEncoding.EncodeToString([]byte("too short"))
	_, err = New(ctx, cfg, quietLogger())
	assert.Error(t, err)

	cfg = testConfig()
	cfg.Cache.Backend = "redis"
	cfg.Redis.Addr = "127.0.0.1:1"
	_, err = New(ctx, cfg, quietLogger())
	assert.Error(t, err)
}

func registerInput() service.RegisterInput {
	return service.RegisterInput{
		Username: "bob",
		Password: "password123",
		Email:    "bob@example.com",
		FullName: "Bob",
	}
}
