package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gnrllybttr/pacer/internal/testutil"
	perrors "github.com/gnrllybttr/pacer/pkg/common/errors"
)

func TestAsyncProcessesAndDeliversResults(t *testing.T) {
	q, err := NewAsync(func(_ context.Context, v int) (int, error) { return v * 10, nil },
		AsyncOptions[int, int]{})
	testutil.AssertNoError(t, err)

	q.AddItem(7)

	select {
	case res := <-q.Results():
		testutil.AssertNoError(t, res.Err)
		testutil.AssertEqual(t, res.Item, 7)
		testutil.AssertEqual(t, res.Result, 70)
	case <-time.After(time.Second):
		t.Fatal("no result delivered")
	}
}

func TestAsyncConcurrencyBound(t *testing.T) {
	gate := make(chan struct{})
	q, err := NewAsync(func(_ context.Context, v int) (int, error) {
		<-gate
		return v, nil
	}, AsyncOptions[int, int]{Concurrency: 2})
	testutil.AssertNoError(t, err)

	for i := 0; i < 4; i++ {
		q.AddItem(i)
	}

	testutil.Eventually(t, func() bool { return q.State().InFlight == 2 }, time.Second, 5*time.Millisecond)
	testutil.AssertEqual(t, q.Size(), 2)

	close(gate)
	testutil.Eventually(t, func() bool { return q.State().SettleCount == 4 }, time.Second, 5*time.Millisecond)
	testutil.AssertEqual(t, q.Size(), 0)
}

func TestAsyncSerialDrain(t *testing.T) {
	var rec testutil.CallRecorder[int]
	q, err := NewAsync(func(_ context.Context, v int) (int, error) {
		time.Sleep(20 * time.Millisecond)
		rec.Record(v)
		return v, nil
	}, AsyncOptions[int, int]{Concurrency: 1})
	testutil.AssertNoError(t, err)

	q.AddItem(1)
	q.AddItem(2)
	q.AddItem(3)

	testutil.Eventually(t, func() bool { return q.State().SettleCount == 3 }, time.Second, 5*time.Millisecond)
	testutil.AssertEqual(t, q.Size(), 0)
	testutil.AssertEqual(t, rec.Count(), 3)
}

func TestAsyncExpiredItemsReportedInResults(t *testing.T) {
	clk := testutil.NewMockClock(time.Unix(1000, 0))
	q, err := NewAsync(func(_ context.Context, v string) (string, error) { return v, nil },
		AsyncOptions[string, string]{
			Stopped:            true,
			ExpirationDuration: time.Second,
			Clock:              clk,
		})
	testutil.AssertNoError(t, err)

	q.AddItem("old")
	clk.Advance(2 * time.Second)
	q.Flush()

	select {
	case res := <-q.Results():
		if !errors.Is(res.Err, perrors.ErrExpired) {
			t.Fatalf("res.Err = %v, want ErrExpired", res.Err)
		}
		testutil.AssertEqual(t, res.Item, "old")
	case <-time.After(time.Second):
		t.Fatal("no expiration result delivered")
	}
	testutil.AssertEqual(t, q.State().ExpirationCount, 1)
}

func TestAsyncFailureDoesNotStallQueue(t *testing.T) {
	boom := errors.New("boom")
	q, err := NewAsync(func(_ context.Context, v int) (int, error) {
		if v == 1 {
			return 0, boom
		}
		return v, nil
	}, AsyncOptions[int, int]{})
	testutil.AssertNoError(t, err)

	q.AddItem(1)
	q.AddItem(2)

	testutil.Eventually(t, func() bool { return q.State().SettleCount == 2 }, time.Second, 5*time.Millisecond)
	st := q.State()
	testutil.AssertEqual(t, st.ErrorCount, 1)
	testutil.AssertEqual(t, st.SuccessCount, 1)
}

func TestAsyncErrorGatingInResults(t *testing.T) {
	boom := errors.New("boom")
	fn := func(context.Context, int) (int, error) { return 0, boom }

	t.Run("swallowed by default", func(t *testing.T) {
		q, err := NewAsync(fn, AsyncOptions[int, int]{})
		testutil.AssertNoError(t, err)

		q.AddItem(1)
		res := <-q.Results()
		testutil.AssertNoError(t, res.Err)
	})

	t.Run("carried with ThrowOnError", func(t *testing.T) {
		q, err := NewAsync(fn, AsyncOptions[int, int]{ThrowOnError: true})
		testutil.AssertNoError(t, err)

		q.AddItem(1)
		res := <-q.Results()
		if !errors.Is(res.Err, boom) {
			t.Fatalf("res.Err = %v, want boom", res.Err)
		}
	})
}

func TestAsyncAbortSettlesInFlight(t *testing.T) {
	release := make(chan struct{})
	q, err := NewAsync(func(ctx context.Context, v int) (int, error) {
		select {
		case <-release:
			return v, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}, AsyncOptions[int, int]{})
	testutil.AssertNoError(t, err)

	q.AddItem(1)
	testutil.Eventually(t, func() bool { return q.State().InFlight == 1 }, time.Second, 5*time.Millisecond)

	q.Abort()

	res := <-q.Results()
	if !errors.Is(res.Err, perrors.ErrAborted) {
		t.Fatalf("res.Err = %v, want ErrAborted", res.Err)
	}
	testutil.AssertEqual(t, q.State().IsRunning, false)

	// The aborted item's late completion must not settle a second time.
	close(release)
	time.Sleep(50 * time.Millisecond)
	testutil.AssertEqual(t, q.State().SettleCount, 1)
}

func TestAsyncStartAfterAbortResumes(t *testing.T) {
	var rec testutil.CallRecorder[int]
	q, err := NewAsync(func(_ context.Context, v int) (int, error) {
		rec.Record(v)
		return v, nil
	}, AsyncOptions[int, int]{})
	testutil.AssertNoError(t, err)

	q.Abort()
	q.AddItem(1)
	testutil.AssertEqual(t, rec.Count(), 0)

	q.Start()
	testutil.Eventually(t, func() bool { return rec.Count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestAsyncSettleHooks(t *testing.T) {
	var order []string
	done := make(chan struct{})
	q, err := NewAsync(func(_ context.Context, v int) (int, error) { return v, nil },
		AsyncOptions[int, int]{
			OnSuccess: func(int) { order = append(order, "success") },
			OnExecute: func(int) { order = append(order, "execute") },
			OnSettled: func() { order = append(order, "settled"); close(done) },
		})
	testutil.AssertNoError(t, err)

	q.AddItem(1)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("item did not settle")
	}

	testutil.AssertEqual(t, len(order), 3)
	testutil.AssertEqual(t, order[0], "success")
	testutil.AssertEqual(t, order[1], "execute")
	testutil.AssertEqual(t, order[2], "settled")
}

func TestAsyncFuncWrapper(t *testing.T) {
	enqueue, results, stop := AsyncFunc(func(_ context.Context, s string) (int, error) {
		return len(s), nil
	})
	defer stop()

	testutil.AssertEqual(t, enqueue("four"), true)
	res := <-results
	testutil.AssertEqual(t, res.Result, 4)
}
