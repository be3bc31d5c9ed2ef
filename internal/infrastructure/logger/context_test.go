package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithRunID(t *testing.T) {
	ctx := WithRunID(context.Background(), "run-123")
	assert.Equal(t, "run-123", RunID(ctx))
}

func TestRunID_NotSet(t *testing.T) {
	assert.Empty(t, RunID(context.Background()))
}

func TestWithOrganizationID(t *testing.T) {
	ctx := WithOrganizationID(context.Background(), "org-456")
	assert.Equal(t, "org-456", OrganizationID(ctx))
}

func TestOrganizationID_NotSet(t *testing.T) {
	assert.Empty(t, OrganizationID(context.Background()))
}

func TestWithRunID_Override(t *testing.T) {
	ctx := WithRunID(context.Background(), "first")
	ctx = WithRunID(ctx, "second")
	assert.Equal(t, "second", RunID(ctx))
}

func TestContextFields_Empty(t *testing.T) {
	fields := ContextFields(context.Background())
	assert.Empty(t, fields)
}

func TestContextFields_RunOnly(t *testing.T) {
	ctx := WithRunID(context.Background(), "run-1")

	fields := ContextFields(ctx)
	require.Len(t, fields, 1)
	assert.Equal(t, "run_id", fields[0].Key)
	assert.Equal(t, "run-1", fields[0].String)
}

func TestContextFields_Both(t *testing.T) {
	ctx := WithRunID(context.Background(), "run-1")
	ctx = WithOrganizationID(ctx, "org-1")

	fields := ContextFields(ctx)
	require.Len(t, fields, 2)

	keys := map[string]string{}
	for _, f := range fields {
		keys[f.Key] = f.String
	}
	assert.Equal(t, "run-1", keys["run_id"])
	assert.Equal(t, "org-1", keys["organization_id"])
}
