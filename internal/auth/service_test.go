package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/statio/backend/internal/apperr"
	"github.com/statio/backend/internal/models"
	"github.com/statio/backend/internal/notify"
)

func newTestService(t *testing.T) (*Service, *memStore, *captureSink) {
	t.Helper()
	store := newMemStore()
	sink := &captureSink{}
	svc := NewService(store, plainHasher{}, NewJWTService("secret", 30), sink, "https://status.example.com/", zap.NewNop())
	return svc, store, sink
}

func register(t *testing.T, svc *Service, email string) *models.User {
	t.Helper()
	u, err := svc.Register(context.Background(), RegisterInput{Email: email, Password: "password1"})
	require.NoError(t, err)
	return u
}

func TestFirstUserBootstrap(t *testing.T) {
	svc, _, _ := newTestService(t)

	first := register(t, svc, "first@example.com")
	assert.Equal(t, models.RoleAdmin, first.Role)
	assert.True(t, first.IsSuperuser)
	assert.True(t, first.IsActive)

	second := register(t, svc, "second@example.com")
	assert.Equal(t, models.RoleViewer, second.Role)
	assert.False(t, second.IsSuperuser)
	assert.Nil(t, second.OrganizationID)
}

func TestConcurrentRegistrationHasOneSuperuser(t *testing.T) {
	svc, store, _ := newTestService(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Register(context.Background(), RegisterInput{
				Email:    fmt.Sprintf("user%d@example.com", i),
				Password: "password1",
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	supers := 0
	for _, u := range store.users {
		if u.IsSuperuser {
			supers++
		}
	}
	assert.Equal(t, 1, supers)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc, _, _ := newTestService(t)
	register(t, svc, "dup@example.com")

	_, err := svc.Register(context.Background(), RegisterInput{Email: " DUP@example.com ", Password: "password1"})
	assert.True(t, errors.Is(err, apperr.ErrConflict))
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Register(context.Background(), RegisterInput{Email: "a@example.com", Password: "short"})
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestLogin(t *testing.T) {
	svc, store, _ := newTestService(t)
	u := register(t, svc, "ops@example.com")

	tok, err := svc.Login(context.Background(), "OPS@example.com", "password1")
	require.NoError(t, err)
	assert.Equal(t, "bearer", tok.TokenType)
	assert.Equal(t, 1800, tok.ExpiresIn)
	assert.Equal(t, u.ID, tok.User.ID)

	_, err = svc.Login(context.Background(), "ops@example.com", "wrong")
	assert.True(t, errors.Is(err, apperr.ErrUnauthorized))

	_, err = svc.Login(context.Background(), "nobody@example.com", "password1")
	assert.True(t, errors.Is(err, apperr.ErrUnauthorized))

	store.setActive(u.ID, false)
	_, err = svc.Login(context.Background(), "ops@example.com", "password1")
	assert.True(t, errors.Is(err, apperr.ErrUnauthorized))
}

func TestUpdateMe(t *testing.T) {
	svc, _, _ := newTestService(t)
	register(t, svc, "taken@example.com")
	u := register(t, svc, "me@example.com")
	p := PrincipalFor(u)

	taken := "taken@example.com"
	_, err := svc.UpdateMe(context.Background(), p, ProfileUpdate{Email: &taken})
	assert.True(t, errors.Is(err, apperr.ErrConflict))

	name, pw := "Ops Person", "new-password"
	got, err := svc.UpdateMe(context.Background(), p, ProfileUpdate{FullName: &name, Password: &pw})
	require.NoError(t, err)
	assert.Equal(t, "Ops Person", *got.FullName)

	_, err = svc.Login(context.Background(), "me@example.com", "new-password")
	assert.NoError(t, err)
}

func resetToken(t *testing.T, sink *captureSink) string {
	t.Helper()
	require.NotEmpty(t, sink.events)
	ev := sink.events[len(sink.events)-1]
	require.Equal(t, notify.EventPasswordReset, ev.Type)
	i := strings.Index(ev.Body, "token=")
	require.GreaterOrEqual(t, i, 0)
	return strings.Fields(ev.Body[i+len("token="):])[0]
}

func TestPasswordResetFlow(t *testing.T) {
	svc, _, sink := newTestService(t)
	register(t, svc, "ops@example.com")
	ctx := context.Background()

	require.NoError(t, svc.RequestPasswordReset(ctx, "ops@example.com"))
	require.Len(t, sink.events, 1)
	assert.Equal(t, "ops@example.com", sink.events[0].Recipient)
	assert.Contains(t, sink.events[0].Body, "https://status.example.com/reset-password?token=")
	token := resetToken(t, sink)

	require.NoError(t, svc.ResetPassword(ctx, token, "brand-new-pass"))
	_, err := svc.Login(ctx, "ops@example.com", "brand-new-pass")
	assert.NoError(t, err)

	err = svc.ResetPassword(ctx, token, "another-pass")
	assert.True(t, errors.Is(err, apperr.ErrValidation), "tokens are single use")
}

func TestPasswordResetUnknownEmailIsSilent(t *testing.T) {
	svc, _, sink := newTestService(t)
	require.NoError(t, svc.RequestPasswordReset(context.Background(), "ghost@example.com"))
	assert.Empty(t, sink.events)
}

func TestPasswordResetExpires(t *testing.T) {
	svc, _, sink := newTestService(t)
	register(t, svc, "ops@example.com")
	ctx := context.Background()

	require.NoError(t, svc.RequestPasswordReset(ctx, "ops@example.com"))
	token := resetToken(t, sink)

	svc.now = func() time.Time { return time.Now().Add(models.PasswordResetTTL + time.Minute) }
	err := svc.ResetPassword(ctx, token, "brand-new-pass")
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	err = svc.ResetPassword(ctx, "not-a-token", "brand-new-pass")
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}
