package logging

import "context"

type contextKey string

const (
	actorIDKey contextKey = "actor_id"
	commandKey contextKey = "command"
)

// WithActorID adds the id of the acting user to the context.
func WithActorID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, actorIDKey, userID)
}

// WithCommand adds the CLI command path to the context.
func WithCommand(ctx context.Context, command string) context.Context {
	return context.WithValue(ctx, commandKey, command)
}

// GetActorID retrieves the acting user id from the context.
// Returns empty string if not present.
func GetActorID(ctx context.Context) string {
	if id, ok := ctx.Value(actorIDKey).(string); ok {
		return id
	}
	return ""
}

// GetCommand retrieves the command path from the context.
// Returns empty string if not present.
func GetCommand(ctx context.Context) string {
	if c, ok := ctx.Value(commandKey).(string); ok {
		return c
	}
	return ""
}
