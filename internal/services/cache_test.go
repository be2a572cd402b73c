package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1000, 0)
	c := NewMemoryCache()
	c.now = func() time.Time { return now }

	got, err := c.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, got)

	p := &Profile{Catalog: "pid5"}
	require.NoError(t, c.Set(ctx, "s1", p, time.Minute))
	got, err = c.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Same(t, p, got)

	now = now.Add(2 * time.Minute)
	got, err = c.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, c.Set(ctx, "s2", p, 0))
	now = now.Add(time.Hour)
	got, _ = c.Get(ctx, "s2")
	assert.Same(t, p, got)
	require.NoError(t, c.Delete(ctx, "s2"))
	got, _ = c.Get(ctx, "s2")
	assert.Nil(t, got)
}
