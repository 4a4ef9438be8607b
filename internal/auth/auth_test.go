package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndValidate(t *testing.T) {
	m := NewSessionManager("secret", time.Hour)

	token, err := m.Issue(42)
	require.NoError(t, err)

	id, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	token, err := NewSessionManager("one", time.Hour).Issue(1)
	require.NoError(t, err)

	_, err = NewSessionManager("two", time.Hour).Validate(token)
	assert.Error(t, err)
}

func TestValidateRejectsExpired(t *testing.T) {
	m := NewSessionManager("secret", time.Minute)
	m.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, err := m.Issue(1)
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.Validate(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestValidateRejectsOtherSigningMethod(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewSessionManager("secret", time.Hour).Validate(signed)
	assert.Error(t, err)
}

func TestCookieRoundTrip(t *testing.T) {
	m := NewSessionManager("secret", time.Hour)
	token, err := m.Issue(7)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	m.SetCookie(rec, token)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	id, err := m.UserID(req)
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)

	_, err = m.UserID(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestClearCookieExpires(t *testing.T) {
	rec := httptest.NewRecorder()
	NewSessionManager("secret", time.Hour).ClearCookie(rec)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", hash)
	assert.True(t, CheckPasswordHash("hunter2", hash))
	assert.False(t, CheckPasswordHash("hunter3", hash))
}
