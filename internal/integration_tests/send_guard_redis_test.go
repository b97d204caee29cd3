//go:build integration

package integration_tests

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unionhub/internal/platform/redis"
	"unionhub/pkg/testutil"
	"unionhub/pkg/testutil/containers"
)

func TestSendGuardAgainstRedis(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	ctx := context.Background()
	guard := redis.NewSendGuard(rc.Client, time.Second)

	testutil.Given(t, "a slot claimed by one campaign", func(t *testing.T) {
		won, err := guard.Claim(ctx, "ticket:em-1")
		require.NoError(t, err)
		require.True(t, won)

		testutil.Then(t, "a second claim loses", func(t *testing.T) {
			won, err := guard.Claim(ctx, "ticket:em-1")
			require.NoError(t, err)
			assert.False(t, won)
		})

		testutil.Then(t, "other members are unaffected", func(t *testing.T) {
			won, err := guard.Claim(ctx, "ticket:em-2")
			require.NoError(t, err)
			assert.True(t, won)
		})
	})

	testutil.When(t, "the slot is released after a failed send", func(t *testing.T) {
		require.NoError(t, guard.Release(ctx, "ticket:em-1"))

		testutil.Then(t, "it can be claimed again", func(t *testing.T) {
			won, err := guard.Claim(ctx, "ticket:em-1")
			require.NoError(t, err)
			assert.True(t, won)
		})
	})

	testutil.When(t, "the ttl passes", func(t *testing.T) {
		testutil.Then(t, "the slot frees itself", func(t *testing.T) {
			require.Eventually(t, func() bool {
				won, err := guard.Claim(ctx, "ticket:em-2")
				return err == nil && won
			}, 5*time.Second, 100*time.Millisecond)
		})
	})
}
