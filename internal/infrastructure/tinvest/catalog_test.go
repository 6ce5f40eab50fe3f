package tinvest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCouponsSumOutsideWindowSkipsTheCall(t *testing.T) {
	now := time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC)
	client := &Client{}

	for _, to := range []time.Time{now.Add(-time.Hour), now} {
		sum, err := client.CouponsSum(context.Background(), "F1", now, to)
		require.NoError(t, err)
		assert.Zero(t, sum)
	}
}
