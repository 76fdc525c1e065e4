package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/dmitrymomot/authstarter/pkg/logger"
	"github.com/dmitrymomot/authstarter/pkg/sanitizer"
)

const oauthStatePrefix = "oauth-state:"

// OAuthService runs the authorization code flow for any number of
// providers. State is single use and bound to the callback URL.
type OAuthService struct {
	storage       OAuthStorage
	verifications VerificationStore
	adapters      map[string]ProviderAdapter
	stateTTL      time.Duration
	verifiedOnly  bool
	logger        *slog.Logger
}

type OAuthOption func(*OAuthService)

func WithStateTTL(ttl time.Duration) OAuthOption {
	return func(s *OAuthService) { s.stateTTL = ttl }
}

// WithVerifiedOnly rejects provider e-mails the provider hasn't verified.
func WithVerifiedOnly(verifiedOnly bool) OAuthOption {
	return func(s *OAuthService) { s.verifiedOnly = verifiedOnly }
}

func WithProvider(a ProviderAdapter) OAuthOption {
	return func(s *OAuthService) { s.adapters[a.ProviderID()] = a }
}

func WithOAuthLogger(l *slog.Logger) OAuthOption {
	return func(s *OAuthService) { s.logger = l }
}

func NewOAuthService(storage OAuthStorage, verifications VerificationStore, opts ...OAuthOption) *OAuthService {
	s := &OAuthService{
		storage:       storage,
		verifications: verifications,
		adapters:      make(map[string]ProviderAdapter),
		stateTTL:      10 * time.Minute,
		verifiedOnly:  true,
		logger:        logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Providers lists configured provider IDs in sorted order.
func (s *OAuthService) Providers() []string {
	ids := make([]string, 0, len(s.adapters))
	for id := range s.adapters {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (s *OAuthService) adapter(provider string) (ProviderAdapter, error) {
	a, ok := s.adapters[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}
	return a, nil
}

// GetAuthURL stores a fresh state and returns the provider consent URL.
func (s *OAuthService) GetAuthURL(ctx context.Context, provider, callbackURL string) (string, error) {
	a, err := s.adapter(provider)
	if err != nil {
		return "", err
	}

	state, err := randomToken(32)
	if err != nil {
		return "", err
	}
	if err := s.verifications.Set(ctx, Verification{
		Identifier: oauthStatePrefix + state,
		Value:      provider + "|" + callbackURL,
		ExpiresAt:  time.Now().Add(s.stateTTL),
	}); err != nil {
		return "", fmt.Errorf("store state: %w", err)
	}

	url, err := a.AuthURL(state)
	if err != nil {
		return "", fmt.Errorf("build auth url: %w", err)
	}
	return url, nil
}

// Auth handles the provider callback. An existing link signs the user in.
// Otherwise a user with the same verified e-mail gets the provider linked,
// and anyone else gets a new account.
func (s *OAuthService) Auth(ctx context.Context, provider, code, state string) (*OAuthResult, error) {
	a, err := s.adapter(provider)
	if err != nil {
		return nil, err
	}
	if state == "" {
		return nil, ErrInvalidState
	}

	v, err := s.verifications.Consume(ctx, oauthStatePrefix+state)
	if err != nil {
		if errors.Is(err, ErrVerificationNotFound) {
			return nil, ErrInvalidState
		}
		return nil, fmt.Errorf("validate state: %w", err)
	}
	stateProvider, callbackURL, ok := strings.Cut(v.Value, "|")
	if !ok || stateProvider != provider {
		return nil, ErrInvalidState
	}
	if code == "" {
		return nil, ErrInvalidCode
	}

	profile, err := a.ResolveProfile(ctx, code)
	if err != nil {
		if errors.Is(err, ErrInvalidCode) || errors.Is(err, ErrNoPrimaryEmail) {
			return nil, err
		}
		return nil, fmt.Errorf("resolve provider profile: %w", err)
	}
	if profile.ProviderUserID == "" {
		return nil, errors.New("invalid profile: missing provider user id")
	}
	profile.Email = sanitizer.NormalizeEmail(profile.Email)
	if s.verifiedOnly && !profile.EmailVerified {
		return nil, ErrUnverifiedEmail
	}

	res, err := s.resolveUser(ctx, provider, profile)
	if err != nil {
		return nil, err
	}
	if res.User.IsBanned(time.Now()) {
		return nil, ErrUserBanned
	}
	res.CallbackURL = callbackURL
	return res, nil
}

func (s *OAuthService) resolveUser(ctx context.Context, provider string, profile ProviderProfile) (*OAuthResult, error) {
	user, err := s.storage.GetUserByOAuth(ctx, provider, profile.ProviderUserID)
	if err == nil {
		return &OAuthResult{User: user}, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("check oauth link: %w", err)
	}

	user, err = s.storage.GetUserByEmail(ctx, profile.Email)
	switch {
	case err == nil:
		// Only a provider-verified address may be linked to an account.
		if !profile.EmailVerified {
			return nil, ErrProviderEmailInUse
		}
		if err := s.storage.StoreOAuthLink(ctx, user.ID, provider, profile.ProviderUserID); err != nil {
			return nil, fmt.Errorf("link %s account: %w", provider, err)
		}
		if !user.EmailVerified || (user.Image == "" && profile.AvatarURL != "") {
			user.EmailVerified = true
			if user.Image == "" {
				user.Image = profile.AvatarURL
			}
			if err := s.storage.UpdateUser(ctx, user); err != nil {
				return nil, fmt.Errorf("update linked user: %w", err)
			}
		}
		s.logger.InfoContext(ctx, "oauth account linked",
			logger.UserID(user.ID), logger.Provider(provider), logger.Component("oauth"))
		return &OAuthResult{User: user}, nil
	case !errors.Is(err, ErrUserNotFound):
		return nil, fmt.Errorf("check existing email: %w", err)
	}

	user = newUser(profile.Email, sanitizer.Apply(profile.Name, sanitizer.SingleLine, sanitizer.NFC), profile.EmailVerified)
	user.Image = profile.AvatarURL
	if err := s.storage.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	if err := s.storage.StoreOAuthLink(ctx, user.ID, provider, profile.ProviderUserID); err != nil {
		if delErr := s.storage.DeleteUser(ctx, user.ID); delErr != nil {
			s.logger.ErrorContext(ctx, "failed to clean up user after oauth link save failure",
				logger.UserID(user.ID),
				logger.Provider(provider),
				logger.Error(delErr),
				logger.Component("oauth"),
			)
		}
		return nil, fmt.Errorf("store oauth link: %w", err)
	}
	return &OAuthResult{User: user, IsNewUser: true}, nil
}
