package auth

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, sub string, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   sub,
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func TestStore_SaveLoadClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	store := NewStore(path)

	sess, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, sess, "missing file means signed out")

	want := Session{AccessToken: "a", RefreshToken: "r", ExpiresAt: 123, User: SessionUser{ID: "u1", Email: "u@x.io"}}
	require.NoError(t, store.Save(want))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want, *got)

	require.NoError(t, store.Clear())
	require.NoError(t, store.Clear(), "clearing twice is fine")
	got, err = store.Load()
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_LoadErrors(t *testing.T) {
	dir := t.TempDir()

	corrupt := filepath.Join(dir, "corrupt.json")
	require.NoError(t, os.WriteFile(corrupt, []byte("{not json"), 0o600))
	_, err := NewStore(corrupt).Load()
	assert.Error(t, err)

	noToken := filepath.Join(dir, "notoken.json")
	require.NoError(t, os.WriteFile(noToken, []byte(`{"refresh_token":"r"}`), 0o600))
	_, err = NewStore(noToken).Load()
	assert.ErrorContains(t, err, "no access token")
}

func TestStore_LoadFillsUserFromToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	tok := signedToken(t, "user-from-sub", time.Now().Add(time.Hour))
	require.NoError(t, os.WriteFile(path, []byte(`{"access_token":"`+tok+`"}`), 0o600))

	sess, err := NewStore(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "user-from-sub", sess.User.ID)
}

func TestSession_ExpiryPrefersExpiresAt(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	sess := Session{AccessToken: signedToken(t, "u", exp.Add(time.Hour)), ExpiresAt: exp.Unix()}
	got, err := sess.Expiry()
	require.NoError(t, err)
	assert.True(t, got.Equal(exp))

	sess.ExpiresAt = 0
	got, err = sess.Expiry()
	require.NoError(t, err)
	assert.True(t, got.Equal(exp.Add(time.Hour)))

	_, err = Session{AccessToken: "opaque"}.Expiry()
	assert.Error(t, err)
}
