package debounce

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gnrllybttr/pacer/internal/testutil"
	perrors "github.com/gnrllybttr/pacer/pkg/common/errors"
	"github.com/gnrllybttr/pacer/pkg/common/state"
)

func TestAsyncCoalescedCallersShareResult(t *testing.T) {
	var executions atomic.Int32
	fn := func(_ context.Context, q string) (string, error) {
		executions.Add(1)
		return "result:" + q, nil
	}

	d, err := NewAsync(fn, AsyncOptions[string, string]{Wait: 30 * time.Millisecond})
	testutil.AssertNoError(t, err)

	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	var wg sync.WaitGroup
	results := make([]string, 3)
	for i, q := range []string{"a", "b", "c"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := d.MaybeExecute(ctx, q)
			testutil.AssertNoError(t, err)
			results[i] = res
		}()
		time.Sleep(5 * time.Millisecond)
	}
	wg.Wait()

	testutil.AssertEqual(t, executions.Load(), 1)
	// All callers observe the execution with the latest arguments.
	testutil.AssertEqual(t, results[0], "result:c")
	testutil.AssertEqual(t, results[1], "result:c")
	testutil.AssertEqual(t, results[2], "result:c")
	testutil.AssertEqual(t, d.State().SuccessCount, 1)
}

func TestAsyncDisabled(t *testing.T) {
	d, err := NewAsync(func(context.Context, int) (int, error) { return 0, nil },
		AsyncOptions[int, int]{Wait: time.Millisecond, Disabled: true})
	testutil.AssertNoError(t, err)

	_, err = d.MaybeExecute(context.Background(), 1)
	if !errors.Is(err, perrors.ErrDisabled) {
		t.Fatalf("err = %v, want ErrDisabled", err)
	}
}

func TestAsyncErrorGating(t *testing.T) {
	boom := errors.New("boom")
	fn := func(context.Context, int) (int, error) { return 0, boom }

	t.Run("swallowed by default", func(t *testing.T) {
		var gotErr error
		var settled atomic.Int32
		d, err := NewAsync(fn, AsyncOptions[int, int]{
			Wait:      5 * time.Millisecond,
			OnError:   func(e error) { gotErr = e },
			OnSettled: func() { settled.Add(1) },
		})
		testutil.AssertNoError(t, err)

		res, err := d.MaybeExecute(context.Background(), 1)
		testutil.AssertNoError(t, err)
		testutil.AssertEqual(t, res, 0)
		testutil.AssertEqual(t, gotErr, error(boom))
		testutil.AssertEqual(t, settled.Load(), 1)
		testutil.AssertEqual(t, d.State().ErrorCount, 1)
	})

	t.Run("returned with ThrowOnError", func(t *testing.T) {
		d, err := NewAsync(fn, AsyncOptions[int, int]{
			Wait:         5 * time.Millisecond,
			ThrowOnError: true,
		})
		testutil.AssertNoError(t, err)

		_, err = d.MaybeExecute(context.Background(), 1)
		if !errors.Is(err, boom) {
			t.Fatalf("err = %v, want boom", err)
		}
	})
}

func TestAsyncCancelAborts(t *testing.T) {
	d, err := NewAsync(func(context.Context, int) (int, error) { return 42, nil },
		AsyncOptions[int, int]{Wait: time.Hour})
	testutil.AssertNoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		_, err := d.MaybeExecute(context.Background(), 1)
		errCh <- err
	}()

	testutil.Eventually(t, func() bool { return d.State().IsPending }, time.Second, 5*time.Millisecond)
	d.Cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, perrors.ErrAborted) {
			t.Fatalf("err = %v, want ErrAborted", err)
		}
	case <-time.After(time.Second):
		t.Fatal("caller not released after Cancel")
	}
	testutil.AssertEqual(t, d.State().Status, state.Idle)
}

func TestAsyncAbortFinality(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	fn := func(context.Context, int) (int, error) {
		close(started)
		<-release
		return 99, nil
	}

	d, err := NewAsync(fn, AsyncOptions[int, int]{Wait: time.Millisecond})
	testutil.AssertNoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		_, err := d.MaybeExecute(context.Background(), 1)
		errCh <- err
	}()

	<-started // trailing execution is in flight
	d.Cancel()

	err = <-errCh
	if !errors.Is(err, perrors.ErrAborted) {
		t.Fatalf("err = %v, want ErrAborted", err)
	}

	// The original execution finishing later must not overwrite the
	// aborted outcome.
	close(release)
	time.Sleep(20 * time.Millisecond)
}

func TestAsyncCallerContextCanceled(t *testing.T) {
	d, err := NewAsync(func(context.Context, int) (int, error) { return 0, nil },
		AsyncOptions[int, int]{Wait: time.Hour})
	testutil.AssertNoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := d.MaybeExecute(ctx, 1)
		errCh <- err
	}()

	testutil.Eventually(t, func() bool { return d.State().IsPending }, time.Second, 5*time.Millisecond)
	cancel()

	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestAsyncFlush(t *testing.T) {
	d, err := NewAsync(func(_ context.Context, v int) (int, error) { return v * 2, nil },
		AsyncOptions[int, int]{Wait: time.Hour})
	testutil.AssertNoError(t, err)

	resCh := make(chan int, 1)
	go func() {
		res, _ := d.MaybeExecute(context.Background(), 21)
		resCh <- res
	}()

	testutil.Eventually(t, func() bool { return d.State().IsPending }, time.Second, 5*time.Millisecond)
	d.Flush()

	testutil.AssertEqual(t, <-resCh, 42)
	testutil.AssertEqual(t, d.State().ExecutionCount, 1)
}

func TestAsyncWindowWithoutExecution(t *testing.T) {
	// Leading-only: a second in-window call waits for the window to close
	// and receives the zero result since no trailing execution happens.
	d, err := NewAsync(func(_ context.Context, v int) (int, error) { return v, nil },
		AsyncOptions[int, int]{Wait: 30 * time.Millisecond, Edges: EdgeLeading})
	testutil.AssertNoError(t, err)

	res, err := d.MaybeExecute(context.Background(), 5)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, res, 5)

	res, err = d.MaybeExecute(context.Background(), 6)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, res, 0)
	testutil.AssertEqual(t, d.State().ExecutionCount, 1)
}
