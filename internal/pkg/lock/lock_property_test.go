package lock

import (
	"sync"
	"testing"

	"pgregory.net/rapid"
)

// TestConcurrentClaimSafetyProperty checks that any set of concurrent
// read-modify-write operations on the same user, run under the user's
// lock, produces the same result as running them sequentially.
func TestConcurrentClaimSafetyProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		initial := rapid.Int64Range(0, 100000).Draw(t, "initial")
		numOps := rapid.IntRange(2, 20).Draw(t, "numOps")

		deltas := make([]int64, numOps)
		expected := initial
		for i := range deltas {
			deltas[i] = rapid.Int64Range(-500, 500).Draw(t, "delta")
			expected += deltas[i]
		}

		userID := rapid.Int64Range(1, 1000000).Draw(t, "userID")
		ul := NewUserLock()
		tally := initial

		var wg sync.WaitGroup
		wg.Add(numOps)
		for _, delta := range deltas {
			go func(d int64) {
				defer wg.Done()
				ul.Lock(userID)
				defer ul.Unlock(userID)
				tally += d
			}(delta)
		}
		wg.Wait()

		if tally != expected {
			t.Fatalf("tally mismatch: expected %d, got %d (initial=%d, numOps=%d)",
				expected, tally, initial, numOps)
		}
	})
}

// TestWithLockSerializesProperty checks the WithLock convenience wrapper
// the same way.
func TestWithLockSerializesProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numOps := rapid.IntRange(5, 30).Draw(t, "numOps")
		perOp := rapid.Int64Range(1, 100).Draw(t, "perOp")
		userID := rapid.Int64Range(1, 1000000).Draw(t, "userID")

		ul := NewUserLock()
		var tally int64

		var wg sync.WaitGroup
		wg.Add(numOps)
		for i := 0; i < numOps; i++ {
			go func() {
				defer wg.Done()
				_ = ul.WithLock(userID, func() error {
					tally += perOp
					return nil
				})
			}()
		}
		wg.Wait()

		if want := int64(numOps) * perOp; tally != want {
			t.Fatalf("tally mismatch: expected %d, got %d", want, tally)
		}
	})
}

// TestIndependentUsersDoNotBlockProperty checks that locks for different
// users never interleave each other's tallies.
func TestIndependentUsersDoNotBlockProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numUsers := rapid.IntRange(2, 10).Draw(t, "numUsers")
		opsPerUser := rapid.IntRange(5, 20).Draw(t, "opsPerUser")

		ul := NewUserLock()
		tallies := make([]int64, numUsers)

		var wg sync.WaitGroup
		wg.Add(numUsers * opsPerUser)
		for u := 0; u < numUsers; u++ {
			for i := 0; i < opsPerUser; i++ {
				go func(u int) {
					defer wg.Done()
					userID := int64(u + 1)
					ul.Lock(userID)
					defer ul.Unlock(userID)
					tallies[u] += 10
				}(u)
			}
		}
		wg.Wait()

		for u, tally := range tallies {
			if want := int64(opsPerUser) * 10; tally != want {
				t.Fatalf("user %d tally mismatch: expected %d, got %d", u+1, want, tally)
			}
		}
	})
}
