package taskbook

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/taskbook/internal/core/entity"
	"github.com/colonyops/taskbook/internal/core/eventbus"
	"github.com/colonyops/taskbook/internal/core/gateway"
	"github.com/colonyops/taskbook/internal/core/logging"
	"github.com/colonyops/taskbook/internal/core/user"
)

// UserEntity is the collection name users are stored under.
const UserEntity = "users"

// UserRepository stores users and enforces case-insensitive uniqueness of
// usernames and emails. Users are never deleted.
type UserRepository struct {
	store *entity.Store[user.User]
	bus   *eventbus.EventBus
	now   func() time.Time
	log   zerolog.Logger
}

// NewUserRepository hydrates the user collection from gw.
func NewUserRepository(ctx context.Context, gw *gateway.Gateway, bus *eventbus.EventBus, now func() time.Time, log zerolog.Logger) *UserRepository {
	log = logging.With(log, "user-repository")
	return &UserRepository{
		store: entity.New[user.User](ctx, gw, UserEntity, user.Codec{}, log),
		bus:   bus,
		now:   now,
		log:   log,
	}
}

// Create validates and stores a new user.
func (r *UserRepository) Create(ctx context.Context, p user.CreateParams) (user.User, error) {
	u, err := user.New(p, user.NewID(), r.now())
	if err != nil {
		return user.User{}, fmt.Errorf("create user: %w", err)
	}
	if _, taken := r.FindByUsername(u.Username); taken {
		return user.User{}, fmt.Errorf("create user %q: %w", u.Username, user.ErrDuplicateUsername)
	}
	if _, taken := r.FindByEmail(u.Email); taken {
		return user.User{}, fmt.Errorf("create user %q: %w", u.Username, user.ErrDuplicateEmail)
	}

	err = r.store.Put(ctx, u)
	r.bus.PublishUserCreated(eventbus.UserCreatedPayload{User: u})
	r.log.Debug().Ctx(ctx).Str("user_id", u.ID).Str("username", u.Username).Msg("user created")
	if err != nil {
		return u, fmt.Errorf("create user %q: %w", u.Username, err)
	}
	return u, nil
}

func (r *UserRepository) FindByID(id string) (user.User, bool) {
	return r.store.FindByID(id)
}

// FindAll returns every user in insertion order.
func (r *UserRepository) FindAll() []user.User {
	return r.store.FindAll()
}

// FindByUsername looks a user up by case-insensitive username.
func (r *UserRepository) FindByUsername(username string) (user.User, bool) {
	name := strings.ToLower(strings.TrimSpace(username))
	return r.store.Find(func(u user.User) bool { return u.Username == name })
}

// FindByEmail looks a user up by case-insensitive email.
func (r *UserRepository) FindByEmail(email string) (user.User, bool) {
	e := strings.ToLower(strings.TrimSpace(email))
	return r.store.Find(func(u user.User) bool { return u.Email == e })
}

// FindActive returns the users that have not been deactivated.
func (r *UserRepository) FindActive() []user.User {
	return r.store.Filter(func(u user.User) bool { return u.IsActive })
}

// Len returns the number of stored users.
func (r *UserRepository) Len() int {
	return r.store.Len()
}

// Skipped returns how many stored users were dropped as corrupt on load.
func (r *UserRepository) Skipped() int {
	return r.store.Skipped()
}

// RecordLogin stamps the user's last login time.
func (r *UserRepository) RecordLogin(ctx context.Context, id string) (user.User, bool, error) {
	return r.mutate(ctx, id, func(u *user.User, now time.Time) error {
		u.RecordLogin(now)
		return nil
	})
}

// UpdateProfile changes the full name and email. The new email must not
// belong to another user.
func (r *UserRepository) UpdateProfile(ctx context.Context, id, fullName, email string) (user.User, bool, error) {
	return r.mutate(ctx, id, func(u *user.User, _ time.Time) error {
		if strings.TrimSpace(email) != "" {
			if other, taken := r.FindByEmail(email); taken && other.ID != u.ID {
				return user.ErrDuplicateEmail
			}
		}
		return u.UpdateProfile(fullName, email)
	})
}

// UpdatePreferences merges recognized preference keys into the user's settings.
func (r *UserRepository) UpdatePreferences(ctx context.Context, id string, updates map[string]any) (user.User, bool, error) {
	return r.mutate(ctx, id, func(u *user.User, _ time.Time) error {
		return u.UpdatePreferences(updates)
	})
}

func (r *UserRepository) Activate(ctx context.Context, id string) (user.User, bool, error) {
	return r.mutate(ctx, id, func(u *user.User, _ time.Time) error {
		u.Activate()
		return nil
	})
}

func (r *UserRepository) Deactivate(ctx context.Context, id string) (user.User, bool, error) {
	return r.mutate(ctx, id, func(u *user.User, _ time.Time) error {
		u.Deactivate()
		return nil
	})
}

// SetRole changes the user's role.
func (r *UserRepository) SetRole(ctx context.Context, id string, role user.Role) (user.User, bool, error) {
	return r.mutate(ctx, id, func(u *user.User, _ time.Time) error {
		parsed, err := user.ParseRole(string(role))
		if err != nil {
			return err
		}
		u.Role = parsed
		return nil
	})
}

func (r *UserRepository) mutate(ctx context.Context, id string, fn func(*user.User, time.Time) error) (user.User, bool, error) {
	prev, ok := r.store.FindByID(id)
	if !ok {
		return user.User{}, false, nil
	}

	next := prev.Clone()
	if err := fn(&next, r.now()); err != nil {
		return user.User{}, true, fmt.Errorf("update user %s: %w", id, err)
	}

	err := r.store.Put(ctx, next)
	r.bus.PublishUserUpdated(eventbus.UserUpdatedPayload{User: next})
	if err != nil {
		return next, true, fmt.Errorf("update user %s: %w", id, err)
	}
	return next, true, nil
}

// Snapshot returns the encoded collection as it would be persisted.
func (r *UserRepository) Snapshot() ([]json.RawMessage, error) {
	return r.store.Snapshot()
}
