package benchmark

import (
	"fmt"
	"testing"
	"time"

	"github.com/gnrllybttr/pacer/pkg/pacing/debounce"
	"github.com/gnrllybttr/pacer/pkg/pacing/ratelimit"
	"github.com/gnrllybttr/pacer/pkg/pacing/throttle"
)

// BenchmarkDebounceMaybeExecute measures trigger overhead under a burst
// that never lets the quiet window elapse.
func BenchmarkDebounceMaybeExecute(b *testing.B) {
	d, err := debounce.New(func(int) {}, debounce.Options[int]{Wait: time.Hour})
	if err != nil {
		b.Fatalf("failed to create debouncer: %v", err)
	}
	defer d.Cancel()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		d.MaybeExecute(i)
	}
}

// BenchmarkThrottleMaybeExecute measures call overhead inside an active
// window, the hot path for high-frequency callers.
func BenchmarkThrottleMaybeExecute(b *testing.B) {
	th, err := throttle.New(func(int) {}, throttle.Options[int]{Wait: time.Hour})
	if err != nil {
		b.Fatalf("failed to create throttler: %v", err)
	}
	defer th.Cancel()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		th.MaybeExecute(i)
	}
}

// BenchmarkRateLimiterAdmission measures admission checks across history
// sizes, since pruning cost grows with the per-window limit.
func BenchmarkRateLimiterAdmission(b *testing.B) {
	limits := []int{10, 100, 1000}

	for _, limit := range limits {
		b.Run(limitLabel(limit), func(b *testing.B) {
			rl, err := ratelimit.New(func(int) {}, ratelimit.Options[int]{
				Limit:  limit,
				Window: time.Hour,
			})
			if err != nil {
				b.Fatalf("failed to create rate limiter: %v", err)
			}

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				rl.MaybeExecute(i)
			}
		})
	}
}

func limitLabel(limit int) string {
	return fmt.Sprintf("limit-%d", limit)
}
