package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	id "civicwatch/pkg/domain"
	dErrors "civicwatch/pkg/domain-errors"
	"civicwatch/pkg/platform/sentinel"
	"civicwatch/pkg/requestcontext"

	"civicwatch/internal/jwttoken"
	"civicwatch/internal/notify"
	"civicwatch/internal/ratelimit"
	"civicwatch/internal/user"
)

const (
	defaultTTL         = 5 * time.Minute
	defaultMaxAttempts = 3
)

// Enqueuer is the slice of the notification dispatcher the authenticator
// needs for code delivery.
type Enqueuer interface {
	Enqueue(n notify.Notification) bool
}

// Service issues and verifies one-time codes and mints tokens on success.
type Service struct {
	codes       Store
	users       user.Store
	tokens      *jwttoken.Service
	limiter     *ratelimit.Limiter
	codePolicy  ratelimit.Policy
	dispatcher  Enqueuer
	logger      *slog.Logger
	ttl         time.Duration
	maxAttempts int
}

// Option configures the authenticator.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithDispatcher(d Enqueuer) Option {
	return func(s *Service) {
		s.dispatcher = d
	}
}

func WithCodePolicy(p ratelimit.Policy) Option {
	return func(s *Service) {
		s.codePolicy = p
	}
}

func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.ttl = ttl
	}
}

func WithMaxAttempts(n int) Option {
	return func(s *Service) {
		s.maxAttempts = n
	}
}

// NewService wires the authenticator. codes, users, tokens, and limiter are
// required; delivery and policy knobs come in as options.
func NewService(codes Store, users user.Store, tokens *jwttoken.Service, limiter *ratelimit.Limiter, opts ...Option) (*Service, error) {
	if codes == nil || users == nil || tokens == nil || limiter == nil {
		return nil, fmt.Errorf("codes, users, tokens, and limiter are required")
	}
	s := &Service{
		codes:   codes,
		users:   users,
		tokens:  tokens,
		limiter: limiter,
		codePolicy: ratelimit.Policy{
			Kind:   "code_request",
			Limit:  5,
			Window: time.Hour,
		},
		logger:      slog.Default(),
		ttl:         defaultTTL,
		maxAttempts: defaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue generates a fresh six-digit code for the address, stores its hash,
// and hands the plaintext to the delivery dispatcher. Re-issuing replaces
// any code still pending for the address.
func (s *Service) Issue(ctx context.Context, address string) error {
	address, err := normalizeAddress(address)
	if err != nil {
		return err
	}

	res, err := s.limiter.Consume(ctx, s.codePolicy, address)
	if err != nil {
		return err
	}
	if !res.Allowed {
		return dErrors.Wrap(&ratelimit.DeniedError{Result: res}, dErrors.CodeRateLimited, "code request limit reached")
	}

	code, err := generateCode()
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate code")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash code")
	}

	now := requestcontext.Now(ctx)
	rec := &Record{
		Address:   address,
		CodeHash:  hash,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.codes.Save(ctx, rec); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store code")
	}

	if s.dispatcher != nil {
		s.dispatcher.Enqueue(notify.Notification{
			Targets: []notify.Target{{Kind: notify.TargetPublisher, Address: address}},
			Title:   "Your sign-in code",
			Body:    fmt.Sprintf("Your code expires in %d minutes.", int(s.ttl.Minutes())),
			Data:    map[string]string{"code": code},
		})
	}

	s.logger.InfoContext(ctx, "one-time code issued",
		"address", address,
		"expires_at", rec.ExpiresAt,
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}

// Verify checks a candidate code for the address and mints a token pair on
// success. Every failure reason maps to unauthorized; the code is consumed
// on success and can never be replayed.
func (s *Service) Verify(ctx context.Context, address string, candidate string) (jwttoken.TokenPair, error) {
	address, err := normalizeAddress(address)
	if err != nil {
		return jwttoken.TokenPair{}, err
	}
	if len(candidate) != codeLength {
		return jwttoken.TokenPair{}, dErrors.New(dErrors.CodeValidation, "code must be six digits")
	}

	now := requestcontext.Now(ctx)
	err = s.codes.Consume(ctx, address, s.maxAttempts, now, func(hash []byte) bool {
		return bcrypt.CompareHashAndPassword(hash, []byte(candidate)) == nil
	})
	if err != nil {
		return jwttoken.TokenPair{}, s.verifyError(ctx, address, err)
	}

	u, err := s.findOrCreateUser(ctx, address, now)
	if err != nil {
		return jwttoken.TokenPair{}, err
	}

	pair, err := s.tokens.GenerateTokenPair(u.ID, string(u.Role))
	if err != nil {
		return jwttoken.TokenPair{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to mint tokens")
	}

	s.logger.InfoContext(ctx, "one-time code verified",
		"address", address,
		"user_id", u.ID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	return pair, nil
}

// RunSweeper deletes expired codes on a fixed interval until the context is
// cancelled, independent of verification traffic.
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			n, err := s.codes.DeleteExpired(ctx, now)
			if err != nil {
				s.logger.ErrorContext(ctx, "code sweep failed", "error", err)
				continue
			}
			if n > 0 {
				s.logger.InfoContext(ctx, "expired codes swept", "count", n)
			}
		}
	}
}

func (s *Service) verifyError(ctx context.Context, address string, err error) error {
	var reason string
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		reason = "no pending code"
	case errors.Is(err, sentinel.ErrExpired):
		reason = "code expired"
	case errors.Is(err, sentinel.ErrExhausted):
		reason = "attempt limit reached"
	case errors.Is(err, sentinel.ErrMismatch):
		reason = "code mismatch"
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify code")
	}

	s.logger.InfoContext(ctx, "one-time code rejected",
		"address", address,
		"reason", reason,
		"request_id", requestcontext.RequestID(ctx),
	)
	return dErrors.Wrap(err, dErrors.CodeUnauthorized, reason)
}

// findOrCreateUser registers first-time addresses as plain citizens.
func (s *Service) findOrCreateUser(ctx context.Context, address string, now time.Time) (*user.User, error) {
	u, err := s.users.FindByEmail(ctx, address)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}

	u = &user.User{
		ID:        id.NewUserID(),
		Email:     address,
		Role:      user.RoleCitizen,
		CreatedAt: now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return s.users.FindByEmail(ctx, address)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
	}
	return u, nil
}

const codeLength = 6

// generateCode draws a uniform six-digit code from crypto/rand.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func normalizeAddress(address string) (string, error) {
	address = strings.ToLower(strings.TrimSpace(address))
	if address == "" || !strings.Contains(address, "@") {
		return "", dErrors.New(dErrors.CodeValidation, "a valid email address is required")
	}
	return address, nil
}
