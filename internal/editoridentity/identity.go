// Package editoridentity resolves and validates the acting editor. Every
// mutating entry point in the service requires a resolved identity; the
// identity is threaded as a parameter, never held in package state.
package editoridentity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"podscribe/transcript-service/internal/store"
	"podscribe/transcript-service/models"
)

var (
	// ErrUnauthenticated signals that a mutating call arrived without a
	// resolved editor. Handlers surface it as a prompt-login response, not
	// a generic failure.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrInvalidFormat is returned for a malformed email or name.
	ErrInvalidFormat = errors.New("invalid email or name format")
)

// Display names are restricted to letters, digits, spaces and a few
// punctuation marks.
var nameRe = regexp.MustCompile(`^[\p{L}\p{N} .,'-]{1,100}$`)

// Service performs login resolution against the editors table.
type Service struct {
	store    store.Store
	validate *validator.Validate
	log      *logrus.Logger
}

// NewService creates an identity service over the given store.
func NewService(st store.Store, log *logrus.Logger) *Service {
	return &Service{store: st, validate: validator.New(), log: log}
}

// NormalizeEmail trims and lowercases an email so repeat logins resolve to
// the same editor record.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Require short-circuits mutating calls that arrive without an identity.
func Require(editor *models.Editor) error {
	if editor == nil {
		return ErrUnauthenticated
	}
	return nil
}

// Login validates and normalizes the email and name, then resolves or
// creates the editor record keyed by normalized email. Repeat logins with
// the same email return the stored record (with its authoritative id and
// name) rather than creating a duplicate.
func (s *Service) Login(ctx context.Context, email, name string) (*models.Editor, error) {
	normalized := NormalizeEmail(email)
	name = strings.TrimSpace(name)

	if err := s.validate.Var(normalized, "required,email"); err != nil {
		return nil, fmt.Errorf("email %q: %w", email, ErrInvalidFormat)
	}
	if !nameRe.MatchString(name) {
		return nil, fmt.Errorf("name %q: %w", name, ErrInvalidFormat)
	}

	_, err := s.store.GetEditorByEmail(ctx, normalized)
	if err == nil {
		resolved, err := s.store.TouchEditorLogin(ctx, normalized)
		if err != nil {
			return nil, fmt.Errorf("login %s: %w", normalized, err)
		}
		s.log.WithFields(logrus.Fields{"editor_email": normalized, "editor_id": resolved.ID}).
			Info("Editor logged in")
		return resolved, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("login %s: %w", normalized, err)
	}

	now := time.Now().UTC()
	created, err := s.store.InsertEditor(ctx, models.Editor{
		ID:        uuid.New(),
		Email:     normalized,
		Name:      name,
		LoginTime: now,
		CreatedAt: now,
	})
	if err != nil {
		return nil, fmt.Errorf("login %s: %w", normalized, err)
	}

	s.log.WithFields(logrus.Fields{"editor_email": normalized, "editor_id": created.ID}).
		Info("Editor record created")
	return created, nil
}

// Resolve looks up an already-registered editor by email. Used by handlers
// to turn the per-request identity header into an Editor value.
func (s *Service) Resolve(ctx context.Context, email string) (*models.Editor, error) {
	normalized := NormalizeEmail(email)
	if normalized == "" {
		return nil, ErrUnauthenticated
	}
	editor, err := s.store.GetEditorByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("resolving editor %s: %w", normalized, err)
	}
	return editor, nil
}
