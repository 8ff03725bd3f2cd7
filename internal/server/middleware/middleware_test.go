package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"festival-companion/backend/internal/metrics"
	"festival-companion/backend/internal/platform/ratelimiter"
	"festival-companion/backend/internal/security"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestContext_AdminAndRequestMeta(t *testing.T) {
	ctx := context.Background()
	if _, ok := GetAdminID(ctx); ok {
		t.Error("GetAdminID on empty context should report false")
	}
	if ClientIP(ctx) != "unknown" {
		t.Errorf("ClientIP = %q, want unknown", ClientIP(ctx))
	}
	ctx = WithRequestMeta(WithAdmin(ctx, "admin-1"), "req-1", "10.0.0.1")
	id, ok := GetAdminID(ctx)
	require.True(t, ok)
	require.Equal(t, "admin-1", id)
	require.Equal(t, "req-1", GetRequestID(ctx))
	require.Equal(t, "10.0.0.1", ClientIP(ctx))
}

func TestExtractBearer(t *testing.T) {
	testCases := []struct {
		header, want string
	}{
		{"Bearer abc.def", "abc.def"},
		{"bearer abc.def", "abc.def"},
		{"  BEARER   abc.def  ", "abc.def"},
		{"", ""},
		{"Basic abc", ""},
		{"Bearer", ""},
	}
	for _, tc := range testCases {
		if got := extractBearer(tc.header); got != tc.want {
			t.Errorf("extractBearer(%q) = %q, want %q", tc.header, got, tc.want)
		}
	}
}

func adminRouter(t *testing.T, tokens *security.TokenProvider) *gin.Engine {
	t.Helper()
	r := gin.New()
	r.GET("/admin", AdminAuth(tokens), func(c *gin.Context) {
		id, _ := GetAdminID(c.Request.Context())
		c.String(http.StatusOK, id)
	})
	return r
}

func TestAdminAuth(t *testing.T) {
	tokens, err := security.NewTestTokenProvider()
	require.NoError(t, err)
	token, _, err := tokens.IssueAdmin("admin-7")
	require.NoError(t, err)
	r := adminRouter(t, tokens)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "admin-7", w.Body.String())

	for _, header := range []string{"", "Bearer not-a-jwt", "Basic " + token} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusUnauthorized, w.Code, "header %q", header)
		require.NotEmpty(t, w.Header().Get("WWW-Authenticate"))
	}
}

func TestRequestLogger_SetsRequestIDAndLogs(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := gin.New()
	r.Use(RequestLogger(zap.New(core)))
	var seenIP, seenID string
	r.GET("/ping", func(c *gin.Context) {
		seenIP = ClientIP(c.Request.Context())
		seenID = GetRequestID(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(requestIDHeader, "req-42")
	r.ServeHTTP(w, req)

	require.Equal(t, "req-42", w.Header().Get(requestIDHeader))
	require.Equal(t, "req-42", seenID)
	require.Equal(t, "192.0.2.1", seenIP)
	entries := logs.FilterMessage("http_request").All()
	require.Len(t, entries, 1)
	require.Equal(t, int64(http.StatusNoContent), entries[0].ContextMap()["status"])
}

func TestRateLimit(t *testing.T) {
	m := metrics.New("test")
	r := gin.New()
	r.POST("/redeem", RateLimit(ratelimiter.New(0.001, 2, time.Minute), m), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/redeem", nil))
		codes = append(codes, w.Code)
	}
	require.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimit_NilLimiterAllows(t *testing.T) {
	r := gin.New()
	r.POST("/redeem", RateLimit(nil, nil), func(c *gin.Context) { c.Status(http.StatusOK) })
	for i := 0; i < 10; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/redeem", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}
}

type recordedAudit struct {
	actorID, handle, action, resource string
}

type fakeAuditLogger struct {
	events []recordedAudit
}

func (f *fakeAuditLogger) LogEvent(ctx context.Context, actorID, deviceHandle, action, resource, metadata string) {
	f.events = append(f.events, recordedAudit{actorID, deviceHandle, action, resource})
}

func TestAudit_OnlyAdminRequests(t *testing.T) {
	logger := &fakeAuditLogger{}
	r := gin.New()
	r.Use(Audit(logger))
	r.GET("/api/admin/transfer/codes", func(c *gin.Context) {
		c.Request = c.Request.WithContext(WithAdmin(c.Request.Context(), "admin-1"))
		c.Status(http.StatusOK)
	})
	r.GET("/api/transfer/codes/active", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/api/admin/transfer/codes", "/api/transfer/codes/active"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	}
	require.Len(t, logger.events, 1)
	require.Equal(t, recordedAudit{"admin-1", "", "admin_list", "transfer_code"}, logger.events[0])
}
