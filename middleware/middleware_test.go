package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"restaurant-menu/apperr"
	"restaurant-menu/config"
	"restaurant-menu/models"
	"restaurant-menu/session"
	"restaurant-menu/statemachine"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newManager(t *testing.T) *session.Manager {
	t.Helper()
	db, err := config.InitDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return session.NewManager(session.NewGormStore(db), []byte("secret"), time.Hour, zaptest.NewLogger(t))
}

func TestCSRF(t *testing.T) {
	r := gin.New()
	r.Use(Logger(zaptest.NewLogger(t)), CSRF(false))
	r.GET("/form/", func(c *gin.Context) { c.String(http.StatusOK, CSRFToken(c)) })
	r.POST("/form/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/form/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	token := w.Body.String()
	require.NotEmpty(t, token)
	cookie := &http.Cookie{Name: CSRFCookie, Value: token}

	post := func(field, header string, withCookie bool) int {
		req := httptest.NewRequest(http.MethodPost, "/form/", strings.NewReader("csrf_token="+field))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		if header != "" {
			req.Header.Set(CSRFHeader, header)
		}
		if withCookie {
			req.AddCookie(cookie)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusNoContent, post(token, "", true))
	assert.Equal(t, http.StatusNoContent, post("", token, true))
	assert.Equal(t, http.StatusForbidden, post("", "", true))
	assert.Equal(t, http.StatusForbidden, post("other", "", true))
	assert.Equal(t, http.StatusForbidden, post(token, "", false))
}

func TestLoadSessionAndLoginRequired(t *testing.T) {
	m := newManager(t)
	_, token, err := m.Start(context.Background(), "", 5, statemachine.EventLogin)
	require.NoError(t, err)

	r := gin.New()
	r.Use(Logger(zaptest.NewLogger(t)), LoadSession(m, "sid"))
	r.POST("/private/delete/", LoginRequired(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	r.GET("/private/", LoginRequired(), func(c *gin.Context) {
		id, ok := session.UserIDFromContext(c.Request.Context())
		require.True(t, ok)
		assert.Equal(t, id, GetUserID(c))
		c.String(http.StatusOK, "hello")
	})

	t.Run("anonymous is redirected with next", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/private/?a=1", nil))
		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/login/?next=%2Fprivate%2F%3Fa%3D1", w.Header().Get("Location"))
	})

	t.Run("anonymous post drops next", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/private/delete/", nil))
		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/login/", w.Header().Get("Location"))
	})

	t.Run("bad cookie is anonymous", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/private/", nil)
		req.AddCookie(&http.Cookie{Name: "sid", Value: "nope"})
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusFound, w.Code)
	})

	t.Run("session passes", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/private/", nil)
		req.AddCookie(&http.Cookie{Name: "sid", Value: token})
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "hello", w.Body.String())
	})
}

type fakeUsers map[uint]*models.User

func (f fakeUsers) FindUserByID(_ context.Context, id uint) (*models.User, error) {
	if u, ok := f[id]; ok {
		return u, nil
	}
	return nil, apperr.NotFound("fake", "User not found.")
}

func TestSuperuserRequired(t *testing.T) {
	users := fakeUsers{
		1: {ID: 1, Username: "admin", IsSuperuser: true},
		2: {ID: 2, Username: "chef"},
	}
	serve := func(userID uint) *httptest.ResponseRecorder {
		r := gin.New()
		r.GET("/admin/", func(c *gin.Context) {
			c.Set(ctxUserID, userID)
		}, SuperuserRequired(users), func(c *gin.Context) {
			c.String(http.StatusOK, GetUser(c).Username)
		})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/", nil))
		return w
	}

	w := serve(1)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "admin", w.Body.String())

	w = serve(2)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/dashboard/", w.Header().Get("Location"))
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(0.001, 2)
	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"))

	r := gin.New()
	r.POST("/login/", NewRateLimiter(0.001, 1).Handler(func(c *gin.Context) {
		c.String(http.StatusTooManyRequests, "slow down")
	}), func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	codes := []int{}
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login/", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestMetricsHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	r := gin.New()
	r.Use(m.Handler())
	r.GET("/food/edit/:id/", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/food/edit/1/", "/food/edit/2/", "/missing"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/food/edit/:id/", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "unmatched", "404")))
}

func TestCORS(t *testing.T) {
	assert.Nil(t, CORS(nil))

	r := gin.New()
	r.Use(CORS([]string{"https://menu.example.com"}))
	r.POST("/login/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/login/", nil)
	req.Header.Set("Origin", "https://menu.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	r.ServeHTTP(w, req)
	assert.Equal(t, "https://menu.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.True(t, strings.Contains(w.Header().Get("Access-Control-Allow-Methods"), "POST"))
}
