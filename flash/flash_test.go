package flash

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func lastFlashCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	var found *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == cookieName {
			found = c
		}
	}
	require.NotNil(t, found)
	return found
}

func TestAddThenPopAcrossRequests(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
	Add(c, Success, "saved")
	Add(c, Error, "but also this")

	cookie := lastFlashCookie(t, w)

	w2 := httptest.NewRecorder()
	c2, _ := gin.CreateTestContext(w2)
	c2.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c2.Request.AddCookie(cookie)

	msgs := Pop(c2)
	assert.Equal(t, []Message{{Success, "saved"}, {Error, "but also this"}}, msgs)
	assert.Equal(t, -1, lastFlashCookie(t, w2).MaxAge)
	assert.Empty(t, Pop(c2))
}

func TestPopSameRequest(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
	Add(c, Info, "one")
	assert.Equal(t, []Message{{Info, "one"}}, Pop(c))
}

func TestPopIgnoresGarbage(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.AddCookie(&http.Cookie{Name: cookieName, Value: "%%%"})
	assert.Empty(t, Pop(c))
}
