package eventbus

import (
	"github.com/rs/zerolog"
)

// RegisterAuditLogger subscribes to every mutation event and records it at
// info level, one line per change.
func RegisterAuditLogger(bus *EventBus, logger zerolog.Logger) {
	bus.SubscribeTaskCreated(func(p TaskCreatedPayload) {
		logger.Info().
			Str("event", string(EventTaskCreated)).
			Str("task_id", p.Task.ID).
			Str("owner_id", p.Task.OwnerID).
			Msg("task created")
	})

	bus.SubscribeTaskUpdated(func(p TaskUpdatedPayload) {
		e := logger.Info().
			Str("event", string(EventTaskUpdated)).
			Str("task_id", p.Task.ID)
		if p.Previous.Status != p.Task.Status {
			e = e.Str("from", string(p.Previous.Status)).Str("to", string(p.Task.Status))
		}
		e.Msg("task updated")
	})

	bus.SubscribeTaskDeleted(func(p TaskDeletedPayload) {
		logger.Info().
			Str("event", string(EventTaskDeleted)).
			Str("task_id", p.TaskID).
			Msg("task deleted")
	})

	bus.SubscribeUserCreated(func(p UserCreatedPayload) {
		logger.Info().
			Str("event", string(EventUserCreated)).
			Str("user_id", p.User.ID).
			Str("username", p.User.Username).
			Msg("user registered")
	})

	bus.SubscribeUserUpdated(func(p UserUpdatedPayload) {
		logger.Info().
			Str("event", string(EventUserUpdated)).
			Str("user_id", p.User.ID).
			Str("role", string(p.User.Role)).
			Bool("active", p.User.IsActive).
			Msg("user updated")
	})
}
