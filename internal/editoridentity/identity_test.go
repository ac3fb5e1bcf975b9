package editoridentity

import (
	"context"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podscribe/transcript-service/internal/store"
	"podscribe/transcript-service/models"
)

func newTestService() (*Service, *store.MemoryStore) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	st := store.NewMemoryStore()
	return NewService(st, logger), st
}

func TestLoginCreatesEditor(t *testing.T) {
	svc, _ := newTestService()

	editor, err := svc.Login(context.Background(), "Alice@Example.com ", "Alice Smith")
	require.NoError(t, err)

	assert.Equal(t, "alice@example.com", editor.Email)
	assert.Equal(t, "Alice Smith", editor.Name)
	assert.NotEmpty(t, editor.ID)
	assert.False(t, editor.LoginTime.IsZero())
}

func TestLoginIsIdempotentPerEmail(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	first, err := svc.Login(ctx, "bob@example.com", "Bob")
	require.NoError(t, err)

	// Repeat login with different casing and name resolves to the stored
	// record instead of creating a duplicate.
	second, err := svc.Login(ctx, "BOB@example.com", "Robert")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Email, second.Email)
	assert.Equal(t, "Bob", second.Name)
}

func TestLoginRejectsMalformedInput(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	tests := []struct {
		name  string
		email string
		dName string
	}{
		{"empty email", "", "Alice"},
		{"not an email", "not-an-email", "Alice"},
		{"empty name", "alice@example.com", ""},
		{"name with control chars", "alice@example.com", "Alice\x00"},
		{"name with angle brackets", "alice@example.com", "<script>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Login(ctx, tt.email, tt.dName)
			assert.ErrorIs(t, err, ErrInvalidFormat)
		})
	}
}

func TestRequire(t *testing.T) {
	assert.ErrorIs(t, Require(nil), ErrUnauthenticated)
	assert.NoError(t, Require(&models.Editor{Email: "a@b.co"}))
}

func TestResolve(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Resolve(ctx, "ghost@example.com")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	created, err := svc.Login(ctx, "carol@example.com", "Carol")
	require.NoError(t, err)

	resolved, err := svc.Resolve(ctx, " Carol@Example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, resolved.ID)
}
