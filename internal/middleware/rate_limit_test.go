package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTokenBucketDrains(t *testing.T) {
	tb := NewTokenBucket(3, 1)

	for i := 0; i < 3; i++ {
		require.True(t, tb.Allow(), "第 %d 次应放行", i+1)
	}
	// 桶空且未到补充周期，拒绝
	require.False(t, tb.Allow())
}

func TestTokenBucketRefillCapped(t *testing.T) {
	tb := NewTokenBucket(2, 100)
	require.True(t, tb.Allow())

	// 手动回拨补充时间，模拟经过 10 秒；补满也不能超过容量
	tb.mu.Lock()
	tb.lastRefill = tb.lastRefill.Add(-10 * time.Second)
	tb.mu.Unlock()

	require.True(t, tb.Allow())
	require.True(t, tb.Allow())
	require.False(t, tb.Allow())
}
