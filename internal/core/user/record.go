package user

import (
	"encoding/json"
	"fmt"

	"github.com/colonyops/taskbook/internal/core/task"
)

// Codec encodes users for the entity store.
type Codec struct{}

func (Codec) Encode(u User) (json.RawMessage, error) {
	return json.Marshal(u)
}

// Decode validates the username and email of a stored user. A missing
// activity flag reads as active, missing preference keys keep their
// defaults and an unknown role falls back to RoleUser.
func (Codec) Decode(raw json.RawMessage) (User, error) {
	u := User{IsActive: true, Preferences: DefaultPreferences()}
	if err := json.Unmarshal(raw, &u); err != nil {
		return User{}, fmt.Errorf("decode user: %w", err)
	}

	if u.ID == "" {
		return User{}, ErrMissingID
	}
	var err error
	if u.Username, err = NormalizeUsername(u.Username); err != nil {
		return User{}, fmt.Errorf("user %s: %w", u.ID, err)
	}
	if u.Email, err = NormalizeEmail(u.Email); err != nil {
		return User{}, fmt.Errorf("user %s: %w", u.ID, err)
	}
	if u.Role, err = ParseRole(string(u.Role)); err != nil {
		u.Role = RoleUser
	}
	u.Preferences.DefaultCategory = task.ParseCategory(string(u.Preferences.DefaultCategory))

	u.CreatedAt = u.CreatedAt.UTC()
	if u.LastLoginAt != nil {
		l := u.LastLoginAt.UTC()
		u.LastLoginAt = &l
	}
	return u, nil
}
