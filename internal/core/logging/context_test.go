package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextValues(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetActorID(ctx))
	assert.Empty(t, GetCommand(ctx))

	ctx = WithActorID(ctx, "user_1")
	ctx = WithCommand(ctx, "taskbook task create")

	assert.Equal(t, "user_1", GetActorID(ctx))
	assert.Equal(t, "taskbook task create", GetCommand(ctx))
}
