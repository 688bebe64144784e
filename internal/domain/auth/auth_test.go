package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	users map[string]User
}

func (f *fakeStore) FindByEmail(_ context.Context, email string) (User, error) {
	user, ok := f.users[email]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

func (f *fakeStore) Create(_ context.Context, email, passwordHash, role string) (string, error) {
	id := "user-" + email
	f.users[email] = User{ID: id, Email: email, PasswordHash: passwordHash, Role: role}
	return id, nil
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret-password")
	require.NoError(t, err)
	require.NotEqual(t, "s3cret-password", hash)
	require.NoError(t, CheckPassword(hash, "s3cret-password"))
	require.Error(t, CheckPassword(hash, "wrong"))
}

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken("secret", Claims{UserID: "u1", Role: RoleAdmin}, time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken("secret", token)
	require.NoError(t, err)
	require.Equal(t, "u1", claims.UserID)
	require.Equal(t, RoleAdmin, claims.Role)

	_, err = ParseToken("other-secret", token)
	require.Error(t, err)
}

func TestTokenExpiry(t *testing.T) {
	token, err := GenerateToken("secret", Claims{UserID: "u1", Role: RoleViewer}, -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken("secret", token)
	require.Error(t, err)
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{users: map[string]User{}}
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	_, err = store.Create(ctx, "admin@example.com", hash, RoleAdmin)
	require.NoError(t, err)

	svc := NewService(store, "secret")

	token, user, err := svc.Login(ctx, "admin@example.com", "correct horse")
	require.NoError(t, err)
	require.Equal(t, RoleAdmin, user.Role)

	claims, err := svc.Parse(token)
	require.NoError(t, err)
	require.Equal(t, user.ID, claims.UserID)

	// Unknown email and wrong password are indistinguishable.
	_, _, err = svc.Login(ctx, "nobody@example.com", "correct horse")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = svc.Login(ctx, "admin@example.com", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRoles(t *testing.T) {
	require.True(t, ValidRole(RoleAdmin))
	require.True(t, ValidRole(RolePayrollManager))
	require.True(t, ValidRole(RoleViewer))
	require.False(t, ValidRole("hr"))

	require.True(t, CanManagePayroll(RoleAdmin))
	require.True(t, CanManagePayroll(RolePayrollManager))
	require.False(t, CanManagePayroll(RoleViewer))
}
