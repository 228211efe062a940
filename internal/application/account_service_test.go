package application

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/shared-calendar/internal/domain"
	"github.com/example/shared-calendar/internal/testfixtures"
)

func plainHash(password string) (string, error) { return "h:" + password, nil }

func plainVerify(password, hash string) bool { return hash == "h:"+password }

func newAccountService(t *testing.T) (*AccountService, *testfixtures.Harness) {
	t.Helper()
	h := testfixtures.NewHarness(t, nil)
	return NewAccountService(h.Regs, plainHash, plainVerify, testfixtures.DiscardLogger()), h
}

func TestSignUp_CreatesUserWithHashedPassword(t *testing.T) {
	svc, h := newAccountService(t)
	ctx := context.Background()

	user, err := svc.SignUp(ctx, SignUpInput{Username: "alice", Email: "alice@example.com", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, "id-1", user.ID())
	assert.Equal(t, "h:correct horse", user.HashedPassword())

	found, err := h.Regs.Users.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Same(t, user, found)
}

func TestSignUp_Validation(t *testing.T) {
	svc, _ := newAccountService(t)

	_, err := svc.SignUp(context.Background(), SignUpInput{Username: " ", Email: "not-an-email", Password: "short"})

	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	fields := vErr.FieldErrors
	assert.Contains(t, fields, "username")
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "password")
	assert.Equal(t, "validation", ErrorKind(err))
}

func TestSignUp_DuplicateUsername(t *testing.T) {
	svc, _ := newAccountService(t)
	ctx := context.Background()

	_, err := svc.SignUp(ctx, SignUpInput{Username: "alice", Email: "alice@example.com", Password: "password1"})
	require.NoError(t, err)

	_, err = svc.SignUp(ctx, SignUpInput{Username: "alice", Email: "other@example.com", Password: "password2"})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestLogIn(t *testing.T) {
	svc, _ := newAccountService(t)
	ctx := context.Background()

	created, err := svc.SignUp(ctx, SignUpInput{Username: "alice", Email: "alice@example.com", Password: "password1"})
	require.NoError(t, err)

	user, err := svc.LogIn(ctx, "alice", "password1")
	require.NoError(t, err)
	assert.Equal(t, created.ID(), user.ID())

	_, err = svc.LogIn(ctx, "alice", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.LogIn(ctx, "nobody", "password1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestChangePassword(t *testing.T) {
	svc, _ := newAccountService(t)
	ctx := context.Background()

	user, err := svc.SignUp(ctx, SignUpInput{Username: "alice", Email: "alice@example.com", Password: "password1"})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.ChangePassword(ctx, user.ID(), "wrong-password", "password2"), ErrInvalidCredentials)

	var vErr *domain.ValidationError
	assert.ErrorAs(t, svc.ChangePassword(ctx, user.ID(), "password1", "short"), &vErr)

	require.NoError(t, svc.ChangePassword(ctx, user.ID(), "password1", "password2"))
	_, err = svc.LogIn(ctx, "alice", "password2")
	assert.NoError(t, err)
}

func TestDeleteAccount_RemovesSoleSchedules(t *testing.T) {
	svc, h := newAccountService(t)
	ctx := context.Background()

	user, err := svc.SignUp(ctx, SignUpInput{Username: "alice", Email: "alice@example.com", Password: "password1"})
	require.NoError(t, err)
	schedule := h.Schedule(t, user)
	h.Element(t, testfixtures.NewEventFields(testfixtures.At(10, 0), testfixtures.At(11, 0), []string{schedule.ID()}, testfixtures.WithElementID("E1")))

	assert.ErrorIs(t, svc.DeleteAccount(ctx, user.ID(), "wrong-password"), ErrInvalidCredentials)
	require.NoError(t, svc.DeleteAccount(ctx, user.ID(), "password1"))

	exists, err := h.Regs.Users.Exists(ctx, user.ID())
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = h.Regs.Schedules.Exists(ctx, schedule.ID())
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = h.Regs.Elements.Exists(ctx, "E1")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestArgon2idRoundTrip(t *testing.T) {
	params := Argon2idParams{Memory: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

	hash, err := Argon2idHasher(params)("s3cret-password")
	require.NoError(t, err)

	assert.True(t, Argon2idVerifier("s3cret-password", hash))
	assert.False(t, Argon2idVerifier("other-password", hash))
	assert.True(t, errors.Is(VerifyPassword("plain", "x"), ErrInvalidPasswordHash))
}
