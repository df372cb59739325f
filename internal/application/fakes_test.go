package application

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/oksasatya/finboard/internal/domain/entity"
	repo "github.com/oksasatya/finboard/internal/domain/repository"
	"github.com/oksasatya/finboard/internal/infrastructure/audit"
	"github.com/oksasatya/finboard/pkg/helpers"
)

// fakeUserRepo mimics a store whose default projection drops the password hash.
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]entity.User

	findByEmailCalls  int
	withSecretCalls   int
	findByIDCalls     int
	findErr           error
	withSecretErr     error
	dropSecretOnReads bool
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]entity.User{}}
}

func (f *fakeUserRepo) add(u entity.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[u.Email] = u
}

func (f *fakeUserRepo) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findByEmailCalls++
	if f.findErr != nil {
		return nil, f.findErr
	}
	u, ok := f.users[email]
	if !ok {
		return nil, repo.ErrNotFound
	}
	u.PasswordHash = ""
	return &u, nil
}

func (f *fakeUserRepo) FindByEmailWithSecret(_ context.Context, email string) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.withSecretCalls++
	if f.withSecretErr != nil {
		return nil, f.withSecretErr
	}
	u, ok := f.users[email]
	if !ok {
		return nil, repo.ErrNotFound
	}
	if f.dropSecretOnReads {
		u.PasswordHash = ""
	}
	return &u, nil
}

func (f *fakeUserRepo) FindByID(_ context.Context, id string) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findByIDCalls++
	for _, u := range f.users {
		if u.ID == id {
			u.PasswordHash = ""
			return &u, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (f *fakeUserRepo) UpsertByEmail(_ context.Context, u *entity.User) error {
	f.add(*u)
	return nil
}

func (f *fakeUserRepo) lookups() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.findByEmailCalls + f.withSecretCalls
}

type captureRecorder struct {
	mu     sync.Mutex
	events []audit.Event
}

func (c *captureRecorder) Record(_ context.Context, e audit.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *captureRecorder) last() audit.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.events[len(c.events)-1]
}

func mustHash(t *testing.T, plain string) string {
	t.Helper()
	h, err := helpers.HashPasswordCost(plain, bcrypt.MinCost)
	require.NoError(t, err)
	return h
}

// seededRepo holds one user per role plus a record with no role.
func seededRepo(t *testing.T) *fakeUserRepo {
	t.Helper()
	r := newFakeUserRepo()
	r.add(entity.User{ID: "u-startup", Email: "startup@example.com", Name: "Startup", PasswordHash: mustHash(t, "password123"), Role: entity.RoleStartup})
	r.add(entity.User{ID: "u-sme", Email: "sme@example.com", Name: "Sme", PasswordHash: mustHash(t, "password123"), Role: entity.RoleSME})
	r.add(entity.User{ID: "u-ent", Email: "enterprise@example.com", Name: "Enterprise", PasswordHash: mustHash(t, "password123"), Role: entity.RoleEnterprise})
	r.add(entity.User{ID: "u-legacy", Email: "legacy@example.com", Name: "Legacy", PasswordHash: mustHash(t, "password123")})
	return r
}
