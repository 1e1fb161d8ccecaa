package user

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/taskbook/internal/core/task"
)

var now = time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC)

func TestNew(t *testing.T) {
	u, err := New(CreateParams{Username: "  Alice ", Email: " Alice@X.com ", FullName: " Alice A "}, NewID(), now)
	require.NoError(t, err)

	assert.Regexp(t, `^user_[0-9a-f-]{36}$`, u.ID)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, "alice@x.com", u.Email)
	assert.Equal(t, "Alice A", u.FullName)
	assert.Equal(t, RoleUser, u.Role)
	assert.True(t, u.IsActive)
	assert.Equal(t, now, u.CreatedAt)
	assert.Nil(t, u.LastLoginAt)
	assert.Equal(t, DefaultPreferences(), u.Preferences)
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name   string
		params CreateParams
		want   error
	}{
		{name: "empty username", params: CreateParams{Username: " ", Email: "a@b.co"}, want: ErrEmptyUsername},
		{name: "no at", params: CreateParams{Username: "a", Email: "ab.co"}, want: ErrInvalidEmail},
		{name: "no tld", params: CreateParams{Username: "a", Email: "a@b"}, want: ErrInvalidEmail},
		{name: "space inside", params: CreateParams{Username: "a", Email: "a b@c.de"}, want: ErrInvalidEmail},
		{name: "two ats", params: CreateParams{Username: "a", Email: "a@b@c.de"}, want: ErrInvalidEmail},
		{name: "empty email", params: CreateParams{Username: "a"}, want: ErrInvalidEmail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.params, NewID(), now)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestUpdateProfile(t *testing.T) {
	u, err := New(CreateParams{Username: "bob", Email: "bob@x.com"}, NewID(), now)
	require.NoError(t, err)

	require.NoError(t, u.UpdateProfile("Bob B", ""))
	assert.Equal(t, "Bob B", u.FullName)
	assert.Equal(t, "bob@x.com", u.Email)

	require.NoError(t, u.UpdateProfile("", "BOB@y.org"))
	assert.Equal(t, "Bob B", u.FullName)
	assert.Equal(t, "bob@y.org", u.Email)

	assert.ErrorIs(t, u.UpdateProfile("x", "broken"), ErrInvalidEmail)
	assert.Equal(t, "Bob B", u.FullName, "failed update leaves profile unchanged")
}

func TestActivation(t *testing.T) {
	u, err := New(CreateParams{Username: "c", Email: "c@x.com"}, NewID(), now)
	require.NoError(t, err)

	u.Deactivate()
	assert.False(t, u.IsActive)
	u.Activate()
	assert.True(t, u.IsActive)

	u.RecordLogin(now.Add(time.Hour))
	require.NotNil(t, u.LastLoginAt)
	assert.Equal(t, now.Add(time.Hour), *u.LastLoginAt)

	c := u.Clone()
	*c.LastLoginAt = now
	assert.Equal(t, now.Add(time.Hour), *u.LastLoginAt)
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole(" Admin ")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, r)

	_, err = ParseRole("root")
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestPreferences_Merge(t *testing.T) {
	base := DefaultPreferences()

	got, err := base.Merge(map[string]any{
		"theme":              "dark",
		"defaultCategory":    "bogus",
		"emailNotifications": false,
		"language":           "id",
		"fontSize":           14,
	})
	require.NoError(t, err)
	assert.Equal(t, Preferences{
		Theme:              "dark",
		DefaultCategory:    task.CategoryPersonal,
		EmailNotifications: false,
		Language:           "id",
	}, got)

	got, err = base.Merge(map[string]any{"defaultCategory": "work"})
	require.NoError(t, err)
	assert.Equal(t, task.CategoryWork, got.DefaultCategory)

	tests := map[string]any{
		"theme":              1,
		"defaultCategory":    true,
		"emailNotifications": "yes",
		"language":           nil,
	}
	for key, value := range tests {
		t.Run("wrong type "+key, func(t *testing.T) {
			got, err := base.Merge(map[string]any{key: value})
			assert.ErrorIs(t, err, ErrInvalidPreference)
			assert.Equal(t, base, got)
		})
	}
}

func TestUpdatePreferences(t *testing.T) {
	u, err := New(CreateParams{Username: "d", Email: "d@x.com"}, NewID(), now)
	require.NoError(t, err)

	require.NoError(t, u.UpdatePreferences(map[string]any{"theme": "dark"}))
	assert.Equal(t, "dark", u.Preferences.Theme)

	assert.ErrorIs(t, u.UpdatePreferences(map[string]any{"language": 5}), ErrInvalidPreference)
	assert.Equal(t, "en", u.Preferences.Language)
}

func TestCodec(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		u, err := New(CreateParams{Username: "e", Email: "e@x.com", FullName: "E"}, NewID(), now)
		require.NoError(t, err)
		u.RecordLogin(now)
		u.Role = RoleAdmin
		u.Preferences.Theme = "dark"

		raw, err := Codec{}.Encode(u)
		require.NoError(t, err)
		decoded, err := Codec{}.Decode(raw)
		require.NoError(t, err)
		assert.Equal(t, u, decoded)
	})

	t.Run("wire shape", func(t *testing.T) {
		u, err := New(CreateParams{Username: "f", Email: "f@x.com"}, NewID(), now)
		require.NoError(t, err)
		raw, err := Codec{}.Encode(u)
		require.NoError(t, err)

		var m map[string]any
		require.NoError(t, json.Unmarshal(raw, &m))
		for _, key := range []string{"id", "username", "email", "fullName", "role", "isActive", "createdAt", "lastLoginAt", "preferences"} {
			assert.Contains(t, m, key)
		}
		assert.Equal(t, map[string]any{
			"theme":              "light",
			"defaultCategory":    "personal",
			"emailNotifications": true,
			"language":           "en",
		}, m["preferences"])
	})

	t.Run("defaults for missing fields", func(t *testing.T) {
		u, err := Codec{}.Decode(json.RawMessage(`{"id":"u1","username":"G","email":"g@x.com","preferences":{"theme":"dark"}}`))
		require.NoError(t, err)
		assert.Equal(t, "g", u.Username)
		assert.True(t, u.IsActive)
		assert.Equal(t, RoleUser, u.Role)
		assert.Equal(t, "dark", u.Preferences.Theme)
		assert.Equal(t, "en", u.Preferences.Language)
		assert.True(t, u.Preferences.EmailNotifications)
	})

	t.Run("inactive kept", func(t *testing.T) {
		u, err := Codec{}.Decode(json.RawMessage(`{"id":"u1","username":"h","email":"h@x.com","isActive":false}`))
		require.NoError(t, err)
		assert.False(t, u.IsActive)
	})

	rejects := []struct {
		name string
		raw  string
		want error
	}{
		{name: "missing id", raw: `{"username":"a","email":"a@x.com"}`, want: ErrMissingID},
		{name: "null username", raw: `{"id":"u","username":null,"email":"a@x.com"}`, want: ErrEmptyUsername},
		{name: "bad email", raw: `{"id":"u","username":"a","email":"nope"}`, want: ErrInvalidEmail},
	}
	for _, tt := range rejects {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Codec{}.Decode(json.RawMessage(tt.raw))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
