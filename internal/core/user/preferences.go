package user

import (
	"fmt"

	"github.com/colonyops/taskbook/internal/core/task"
)

// Preference keys.
const (
	PrefTheme              = "theme"
	PrefDefaultCategory    = "defaultCategory"
	PrefEmailNotifications = "emailNotifications"
	PrefLanguage           = "language"
)

// Preferences is the fixed set of user settings.
type Preferences struct {
	Theme              string        `json:"theme"`
	DefaultCategory    task.Category `json:"defaultCategory"`
	EmailNotifications bool          `json:"emailNotifications"`
	Language           string        `json:"language"`
}

func DefaultPreferences() Preferences {
	return Preferences{
		Theme:              "light",
		DefaultCategory:    task.CategoryPersonal,
		EmailNotifications: true,
		Language:           "en",
	}
}

// Merge returns p with the recognized keys of updates applied. Unknown keys
// are dropped. A known key holding a value of the wrong type is rejected and
// nothing is applied.
func (p Preferences) Merge(updates map[string]any) (Preferences, error) {
	out := p
	for key, v := range updates {
		switch key {
		case PrefTheme:
			s, ok := v.(string)
			if !ok {
				return p, fmt.Errorf("%s: %w: want string, got %T", key, ErrInvalidPreference, v)
			}
			out.Theme = s
		case PrefDefaultCategory:
			s, ok := v.(string)
			if !ok {
				return p, fmt.Errorf("%s: %w: want string, got %T", key, ErrInvalidPreference, v)
			}
			out.DefaultCategory = task.ParseCategory(s)
		case PrefEmailNotifications:
			b, ok := v.(bool)
			if !ok {
				return p, fmt.Errorf("%s: %w: want bool, got %T", key, ErrInvalidPreference, v)
			}
			out.EmailNotifications = b
		case PrefLanguage:
			s, ok := v.(string)
			if !ok {
				return p, fmt.Errorf("%s: %w: want string, got %T", key, ErrInvalidPreference, v)
			}
			out.Language = s
		}
	}
	return out, nil
}

// UpdatePreferences merges updates into the user's preferences.
func (u *User) UpdatePreferences(updates map[string]any) error {
	merged, err := u.Preferences.Merge(updates)
	if err != nil {
		return err
	}
	u.Preferences = merged
	return nil
}
