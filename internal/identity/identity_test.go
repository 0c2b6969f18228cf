package identity

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tandem/internal/model"
	"tandem/pkg/rbac"
)

func TestVerifyRoundTrip(t *testing.T) {
	v := NewVerifier("s3cret", "https://id.example")
	tok, err := v.Sign("user_2abc", rbac.RoleAdmin, time.Hour)
	require.NoError(t, err)

	claims, err := v.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "user_2abc", claims.UserID)
	assert.Equal(t, rbac.RoleAdmin, claims.Role)
}

func TestVerifyRejects(t *testing.T) {
	v := NewVerifier("s3cret", "https://id.example")

	_, err := v.Verify("")
	assert.ErrorIs(t, err, ErrMissingToken)

	other, _ := NewVerifier("other", "https://id.example").Sign("u1", "", time.Hour)
	_, err = v.Verify(other)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)

	wrongIssuer, _ := NewVerifier("s3cret", "https://evil.example").Sign("u1", "", time.Hour)
	_, err = v.Verify(wrongIssuer)
	assert.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)

	expired, _ := v.Sign("u1", "", -time.Minute)
	_, err = v.Verify(expired)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	noSubject, _ := v.Sign("", "", time.Hour)
	_, err = v.Verify(noSubject)
	assert.Error(t, err)
}

func TestVerifyNormalizesRole(t *testing.T) {
	v := NewVerifier("s3cret", "")
	tok, err := v.Sign("u1", "authenticated", time.Hour)
	require.NoError(t, err)

	claims, err := v.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleUser, claims.Role)
}

func TestExtractToken(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	assert.Empty(t, ExtractToken(r))

	r.Header.Set("Authorization", "Bearer abc.def")
	assert.Equal(t, "abc.def", ExtractToken(r))

	r.Header.Set("Authorization", "Basic abc")
	assert.Empty(t, ExtractToken(r))
}

type memProfiles struct {
	rows    map[string]model.Profile
	failing bool
}

func (m *memProfiles) FindByID(_ context.Context, id string) (*model.Profile, error) {
	p, ok := m.rows[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &p, nil
}

func (m *memProfiles) Upsert(_ context.Context, p *model.Profile) error {
	if m.failing {
		return errors.New("db down")
	}
	m.rows[p.ID] = *p
	return nil
}

func (m *memProfiles) Delete(_ context.Context, id string) error {
	delete(m.rows, id)
	return nil
}

type memDeduper struct {
	seen map[string]bool
}

func (d *memDeduper) AcquireOnce(_ context.Context, handler, id string) bool {
	key := handler + ":" + id
	if d.seen[key] {
		return false
	}
	d.seen[key] = true
	return true
}

func (d *memDeduper) Release(_ context.Context, handler, id string) {
	delete(d.seen, handler+":"+id)
}

func created(id string) Event {
	return Event{Type: EventUserCreated, Data: EventUser{
		ID:             id,
		EmailAddresses: []EmailAddress{{EmailAddress: "ada@example.com"}, {EmailAddress: "alt@example.com"}},
		FirstName:      "Ada",
		LastName:       "Lovelace",
		ImageURL:       "https://img.example/ada.png",
	}}
}

func TestHandleEventLifecycle(t *testing.T) {
	profiles := &memProfiles{rows: map[string]model.Profile{}}
	svc := NewService(profiles, &memDeduper{seen: map[string]bool{}}, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, svc.HandleEvent(ctx, "msg_1", created("user_1")))
	p, err := svc.CurrentUser(ctx, "user_1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "ada@example.com", p.Email)
	assert.Equal(t, "Ada Lovelace", p.FullName)

	upd := created("user_1")
	upd.Type = EventUserUpdated
	upd.Data.LastName = ""
	require.NoError(t, svc.HandleEvent(ctx, "msg_2", upd))
	p, _ = svc.CurrentUser(ctx, "user_1")
	assert.Equal(t, "Ada", p.FullName)

	require.NoError(t, svc.HandleEvent(ctx, "msg_3", Event{Type: EventUserDeleted, Data: EventUser{ID: "user_1"}}))
	p, err = svc.CurrentUser(ctx, "user_1")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestHandleEventDeduplicates(t *testing.T) {
	profiles := &memProfiles{rows: map[string]model.Profile{}}
	svc := NewService(profiles, &memDeduper{seen: map[string]bool{}}, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, svc.HandleEvent(ctx, "msg_1", created("user_1")))
	delete(profiles.rows, "user_1")
	require.NoError(t, svc.HandleEvent(ctx, "msg_1", created("user_1")))
	assert.NotContains(t, profiles.rows, "user_1")
}

func TestHandleEventFailureReleasesDelivery(t *testing.T) {
	profiles := &memProfiles{rows: map[string]model.Profile{}, failing: true}
	svc := NewService(profiles, &memDeduper{seen: map[string]bool{}}, zap.NewNop())
	ctx := context.Background()

	assert.Error(t, svc.HandleEvent(ctx, "msg_1", created("user_1")))
	profiles.failing = false
	require.NoError(t, svc.HandleEvent(ctx, "msg_1", created("user_1")))
	assert.Contains(t, profiles.rows, "user_1")
}

func TestHandleEventValidation(t *testing.T) {
	svc := NewService(&memProfiles{rows: map[string]model.Profile{}}, nil, zap.NewNop())
	ctx := context.Background()

	assert.ErrorIs(t, svc.HandleEvent(ctx, "", Event{Type: EventUserCreated}), model.ErrInvalidInput)
	assert.NoError(t, svc.HandleEvent(ctx, "", Event{Type: "session.created", Data: EventUser{ID: "u"}}))
}
