package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/oksasatya/finboard/internal/domain/entity"
	repo "github.com/oksasatya/finboard/internal/domain/repository"
	"github.com/oksasatya/finboard/internal/infrastructure/audit"
	"github.com/oksasatya/finboard/pkg/helpers"
)

// ErrInvalidCredentials is the only error Authenticate ever returns.
// Every denial looks the same so the endpoint cannot be used to probe for accounts.
var ErrInvalidCredentials = errors.New("invalid credentials")

// FailureKind is the internal reason a login attempt was rejected.
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureMissingCredentials
	FailureUserNotFound
	FailureCredentialUnavailable
	FailurePasswordMismatch
	FailureStoreUnavailable
)

func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureMissingCredentials:
		return "missing_credentials"
	case FailureUserNotFound:
		return "user_not_found"
	case FailureCredentialUnavailable:
		return "credential_unavailable"
	case FailurePasswordMismatch:
		return "password_mismatch"
	case FailureStoreUnavailable:
		return "store_unavailable"
	}
	return "unknown"
}

// LoginState tracks a single attempt: Idle -> CredentialsSubmitted -> Validated -> TokenIssued, or Rejected.
type LoginState string

const (
	StateIdle                 LoginState = "idle"
	StateCredentialsSubmitted LoginState = "credentials_submitted"
	StateValidated            LoginState = "validated"
	StateTokenIssued          LoginState = "token_issued"
	StateRejected             LoginState = "rejected"
)

// AttemptMeta carries request details used only for diagnostics.
type AttemptMeta struct {
	IP        string
	UserAgent string
	RequestID string
}

type attemptMetaKey struct{}

// WithAttemptMeta attaches request details to ctx for audit records.
func WithAttemptMeta(ctx context.Context, m AttemptMeta) context.Context {
	return context.WithValue(ctx, attemptMetaKey{}, m)
}

func attemptMetaFrom(ctx context.Context) AttemptMeta {
	m, _ := ctx.Value(attemptMetaKey{}).(AttemptMeta)
	return m
}

// Authenticator verifies email/password pairs against the user store.
// It holds no per-attempt state and is safe for concurrent use.
type Authenticator struct {
	repo     repo.UserRepository
	logger   *logrus.Logger
	recorder audit.Recorder
	now      func() time.Time

	// dummy hash compared on early denials so lookups cost roughly the same
	dummyOnce sync.Once
	dummyHash []byte
}

func NewAuthenticator(r repo.UserRepository, logger *logrus.Logger, recorder audit.Recorder) *Authenticator {
	if logger == nil {
		logger = helpers.NewNopLogger()
	}
	return &Authenticator{repo: r, logger: logger, recorder: recorder, now: time.Now}
}

// Authenticate returns the claims for a valid email/password pair.
// Any failure, including store errors, yields ErrInvalidCredentials.
func (a *Authenticator) Authenticate(ctx context.Context, email, password string) (entity.Claims, error) {
	u, err := a.AuthenticateUser(ctx, email, password)
	if err != nil {
		return entity.Claims{}, err
	}
	return ClaimsFor(u), nil
}

// AuthenticateUser is Authenticate returning the stored record instead of claims.
// The returned user never carries its password hash.
func (a *Authenticator) AuthenticateUser(ctx context.Context, email, password string) (*entity.User, error) {
	u, kind, err := a.check(ctx, email, password)
	meta := attemptMetaFrom(ctx)
	if kind != FailureNone {
		a.logFailure(email, kind, err, meta)
		a.record(ctx, audit.Event{
			Email:     email,
			Outcome:   audit.OutcomeDenied,
			Reason:    kind.String(),
			IP:        meta.IP,
			UserAgent: meta.UserAgent,
			RequestID: meta.RequestID,
			At:        a.now().UTC(),
		})
		loginFailures.Add(kind.String(), 1)
		return nil, ErrInvalidCredentials
	}
	if r := u.Role.OrDefault(); !r.Valid() {
		a.logger.WithFields(logrus.Fields{"user_id": u.ID, "role": r}).Warn("stored role not recognised; passing through")
	}
	a.record(ctx, audit.Event{
		Email:     u.Email,
		UserID:    u.ID,
		Outcome:   audit.OutcomeSuccess,
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
		RequestID: meta.RequestID,
		At:        a.now().UTC(),
	})
	loginSuccesses.Add(1)
	return u, nil
}

// check runs the verification steps in order and reports why an attempt failed.
func (a *Authenticator) check(ctx context.Context, email, password string) (*entity.User, FailureKind, error) {
	if email == "" || password == "" {
		return nil, FailureMissingCredentials, nil
	}

	u, err := a.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			a.burnCompare(password)
			return nil, FailureUserNotFound, nil
		}
		return nil, FailureStoreUnavailable, err
	}
	if u == nil {
		a.burnCompare(password)
		return nil, FailureUserNotFound, nil
	}

	if !u.HasSecret() {
		u, err = a.repo.FindByEmailWithSecret(ctx, email)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return nil, FailureCredentialUnavailable, nil
			}
			return nil, FailureStoreUnavailable, err
		}
		if !u.HasSecret() {
			return nil, FailureCredentialUnavailable, nil
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, FailureStoreUnavailable, err
	}
	if !helpers.CompareHashAndPassword(u.PasswordHash, password) {
		return nil, FailurePasswordMismatch, nil
	}

	out := *u
	out.PasswordHash = ""
	return &out, FailureNone, nil
}

func (a *Authenticator) burnCompare(password string) {
	a.dummyOnce.Do(func() {
		a.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("finboard-dummy-password"), bcrypt.DefaultCost)
	})
	_ = bcrypt.CompareHashAndPassword(a.dummyHash, []byte(password))
}

func (a *Authenticator) logFailure(email string, kind FailureKind, err error, meta AttemptMeta) {
	entry := a.logger.WithFields(logrus.Fields{
		"email":        email,
		"auth_failure": kind.String(),
		"request_id":   meta.RequestID,
	})
	if err != nil {
		entry.WithError(err).Error("authentication aborted")
		return
	}
	entry.Debug("authentication rejected")
}

func (a *Authenticator) record(ctx context.Context, e audit.Event) {
	if a.recorder != nil {
		a.recorder.Record(ctx, e)
	}
}
