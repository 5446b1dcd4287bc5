package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jwttoken "anima/internal/jwt_token"
	"anima/internal/platform/config"
	"anima/internal/platform/logger"
	id "anima/pkg/domain"
	"anima/pkg/requestcontext"
	"anima/pkg/testutil"
)

func echoIdentity(t *testing.T, gotUser *string, gotRole *string) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*gotUser = requestcontext.UserID(r.Context()).String()
		*gotRole = requestcontext.Role(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestRequireAuth(t *testing.T) {
	jwt := jwttoken.NewJWTService(config.JWTConfig{SigningKey: "test-key", Issuer: "anima", Audience: "anima-mobile"})
	userID := id.UserID(uuid.New())
	token, err := jwt.GenerateAccessToken(userID, requestcontext.RoleManager, time.Hour)
	require.NoError(t, err)

	var gotUser, gotRole string
	h := RequireAuth(jwt, logger.Discard())(echoIdentity(t, &gotUser, &gotRole))

	t.Run("valid bearer token", func(t *testing.T) {
		req := testutil.WithBearer(httptest.NewRequest(http.MethodGet, "/", nil), token)
		rr := testutil.DoRequest(h, req)
		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Equal(t, userID.String(), gotUser)
		assert.Equal(t, requestcontext.RoleManager, gotRole)
	})

	t.Run("missing token", func(t *testing.T) {
		rr := testutil.DoRequest(h, httptest.NewRequest(http.MethodGet, "/", nil))
		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
	})

	t.Run("token signed with another key", func(t *testing.T) {
		other := jwttoken.NewJWTService(config.JWTConfig{SigningKey: "other-key", Issuer: "anima", Audience: "anima-mobile"})
		forged, err := other.GenerateAccessToken(userID, requestcontext.RoleManager, time.Hour)
		require.NoError(t, err)
		rr := testutil.DoRequest(h, testutil.WithBearer(httptest.NewRequest(http.MethodGet, "/", nil), forged))
		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
	})

	t.Run("query token only on websocket upgrades", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/?access_token="+token, nil)
		rr := testutil.DoRequest(h, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)

		req = httptest.NewRequest(http.MethodGet, "/?access_token="+token, nil)
		req.Header.Set("Upgrade", "websocket")
		rr = testutil.DoRequest(h, req)
		assert.Equal(t, http.StatusNoContent, rr.Code)
	})
}

func TestRequireRole(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	h := RequireRole(requestcontext.RoleManager, logger.Discard())(next)
	userID := uuid.NewString()

	rr := testutil.DoRequest(h, testutil.WithAuth(httptest.NewRequest(http.MethodGet, "/", nil), userID, "employee"))
	testutil.AssertStatusAndError(t, rr, http.StatusForbidden, "forbidden")

	rr = testutil.DoRequest(h, testutil.WithAuth(httptest.NewRequest(http.MethodGet, "/", nil), userID, requestcontext.RoleManager))
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestRequestMetadata(t *testing.T) {
	var ip, ua string
	var at time.Time
	h := RequestMetadata(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		ip = requestcontext.ClientIP(r.Context())
		ua = requestcontext.UserAgent(r.Context())
		at = requestcontext.Now(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	req.Header.Set("User-Agent", "anima-android/2.1")
	testutil.DoRequest(h, req)

	assert.Equal(t, "203.0.113.7", ip)
	assert.Equal(t, "anima-android/2.1", ua)
	assert.WithinDuration(t, time.Now(), at, time.Second)
}

func TestRecovery(t *testing.T) {
	h := Recovery(logger.Discard())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rr := testutil.DoRequest(h, httptest.NewRequest(http.MethodGet, "/", nil))
	testutil.AssertStatusAndError(t, rr, http.StatusInternalServerError, "internal_error")
}
