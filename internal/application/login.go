package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/finboard/internal/domain/entity"
	repo "github.com/oksasatya/finboard/internal/domain/repository"
	"github.com/oksasatya/finboard/pkg/helpers"
)

// ErrUnauthenticated is returned when a session token is missing, invalid or expired.
var ErrUnauthenticated = errors.New("unauthenticated")

// LoginNotifier is told about successful logins, e.g. to email the account owner.
type LoginNotifier interface {
	NotifyLogin(ctx context.Context, s entity.SessionView, meta AttemptMeta) error
}

type TokenPair struct {
	AccessToken        string
	AccessTokenExpiry  time.Time
	RefreshToken       string
	RefreshTokenExpiry time.Time
}

// LoginResult is what a successful login or refresh hands back to the transport layer.
type LoginResult struct {
	Session entity.SessionView
	Tokens  TokenPair
}

// Service orchestrates login: authenticate, issue claims, sign tokens, project the session.
type Service struct {
	Auth     *Authenticator
	Repo     repo.UserRepository
	JWT      *helpers.JWTManager
	Notifier LoginNotifier
	Logger   *logrus.Logger

	notifying sync.WaitGroup
}

func NewService(auth *Authenticator, r repo.UserRepository, jwt *helpers.JWTManager, notifier LoginNotifier, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = helpers.NewNopLogger()
	}
	return &Service{Auth: auth, Repo: r, JWT: jwt, Notifier: notifier, Logger: logger}
}

func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	meta := attemptMetaFrom(ctx)
	log := s.Logger.WithFields(logrus.Fields{"request_id": meta.RequestID, "state": StateCredentialsSubmitted})
	log.Debug("login attempt")

	u, err := s.Auth.AuthenticateUser(ctx, email, password)
	if err != nil {
		log.WithField("state", StateRejected).Debug("login rejected")
		return nil, ErrInvalidCredentials
	}
	log = log.WithFields(logrus.Fields{"user_id": u.ID, "state": StateValidated})

	res, err := s.issue(IssueClaims(u))
	if err != nil {
		log.WithError(err).WithField("state", StateRejected).Error("token issue failed")
		return nil, ErrInvalidCredentials
	}
	log.WithField("state", StateTokenIssued).Info("login succeeded")

	if s.Notifier != nil {
		s.notifying.Add(1)
		go func(ctx context.Context) {
			defer s.notifying.Done()
			if nErr := s.Notifier.NotifyLogin(ctx, res.Session, meta); nErr != nil {
				log.WithError(nErr).Warn("login notification failed")
			}
		}(context.WithoutCancel(ctx))
	}
	return res, nil
}

// Wait blocks until in-flight login notifications have finished.
func (s *Service) Wait() {
	s.notifying.Wait()
}

// Refresh exchanges a refresh token for a new pair. The user is re-read so a
// removed account cannot keep refreshing; the role is re-read too.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	claims, err := s.JWT.ParseRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	u, err := s.Repo.FindByID(ctx, claims.UserID)
	if err != nil || u == nil {
		if err != nil && !errors.Is(err, repo.ErrNotFound) {
			s.Logger.WithError(err).WithField("user_id", claims.UserID).Error("refresh lookup failed")
		}
		return nil, ErrInvalidCredentials
	}
	res, err := s.issue(IssueClaims(u))
	if err != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Error("token issue failed")
		return nil, ErrInvalidCredentials
	}
	return res, nil
}

// Session verifies an access token and projects the session view. No I/O.
func (s *Service) Session(accessToken string) (entity.SessionView, error) {
	claims, err := s.JWT.ParseAccessToken(accessToken)
	if err != nil {
		return entity.SessionView{}, ErrUnauthenticated
	}
	return ProjectSession(TokenClaimsFrom(claims)), nil
}

func (s *Service) issue(tc entity.TokenClaims) (*LoginResult, error) {
	id := identityOf(tc)
	access, aexp, err := s.JWT.GenerateAccessToken(id)
	if err != nil {
		return nil, err
	}
	refresh, rexp, err := s.JWT.GenerateRefreshToken(id)
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		Session: ProjectSession(tc),
		Tokens:  TokenPair{AccessToken: access, AccessTokenExpiry: aexp, RefreshToken: refresh, RefreshTokenExpiry: rexp},
	}, nil
}

// TokenClaimsFrom converts verified JWT claims back into domain token claims.
func TokenClaimsFrom(c *helpers.Claims) entity.TokenClaims {
	id := c.Identity()
	return entity.TokenClaims{UserID: id.UserID, Email: id.Email, Name: id.Name, Role: entity.Role(id.Role)}
}

func identityOf(tc entity.TokenClaims) helpers.Identity {
	return helpers.Identity{UserID: tc.UserID, Email: tc.Email, Name: tc.Name, Role: string(tc.Role)}
}
