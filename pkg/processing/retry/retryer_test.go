package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/gnrllybttr/pacer/internal/testutil"
	perrors "github.com/gnrllybttr/pacer/pkg/common/errors"
)

func TestNewValidation(t *testing.T) {
	valid := func(context.Context, int) (int, error) { return 0, nil }

	tests := []struct {
		name    string
		fn      func(context.Context, int) (int, error)
		opts    Options[int, int]
		wantErr bool
	}{
		{"valid", valid, Options[int, int]{}, false},
		{"nil fn", nil, Options[int, int]{}, true},
		{"negative maxAttempts", valid, Options[int, int]{MaxAttempts: -1}, true},
		{"negative baseWait", valid, Options[int, int]{BaseWait: -time.Second}, true},
		{"negative jitter", valid, Options[int, int]{Jitter: -time.Second}, true},
		{"negative total budget", valid, Options[int, int]{MaxTotalExecutionTime: -time.Second}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.fn, tt.opts)
			if tt.wantErr {
				testutil.AssertError(t, err)
			} else {
				testutil.AssertNoError(t, err)
			}
		})
	}
}

func TestFirstAttemptSuccess(t *testing.T) {
	r, err := New(func(_ context.Context, v int) (int, error) { return v * 2, nil },
		Options[int, int]{})
	testutil.AssertNoError(t, err)

	res, err := r.Execute(context.Background(), 21)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, res, 42)

	st := r.State()
	testutil.AssertEqual(t, st.AttemptCount, 1)
	testutil.AssertEqual(t, st.ExecutionCount, 1)
	testutil.AssertEqual(t, st.SuccessCount, 1)
	testutil.AssertEqual(t, st.ErrorCount, 0)
	testutil.AssertEqual(t, st.CurrentAttempt, 0)
	testutil.AssertEqual(t, st.IsExecuting, false)
}

func TestRetriesUntilSuccess(t *testing.T) {
	boom := errors.New("boom")
	var retries []int
	calls := 0

	r, err := New(func(context.Context, string) (string, error) {
		calls++
		if calls < 3 {
			return "", boom
		}
		return "ok", nil
	}, Options[string, string]{
		MaxAttempts: 5,
		BaseWait:    time.Millisecond,
		OnRetry:     func(attempt int) { retries = append(retries, attempt) },
	})
	testutil.AssertNoError(t, err)

	res, err := r.Execute(context.Background(), "job")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, res, "ok")
	testutil.AssertEqual(t, calls, 3)

	testutil.AssertEqual(t, len(retries), 2)
	testutil.AssertEqual(t, retries[0], 2)
	testutil.AssertEqual(t, retries[1], 3)

	st := r.State()
	testutil.AssertEqual(t, st.AttemptCount, 3)
	testutil.AssertEqual(t, st.ExecutionCount, 1)
	testutil.AssertEqual(t, st.ErrorCount, 2)
	testutil.AssertEqual(t, st.SuccessCount, 1)
	testutil.AssertEqual(t, st.SettleCount, 1)
}

func TestExhaustionReturnsLastError(t *testing.T) {
	boom := errors.New("boom")
	errs := 0

	r, err := New(func(context.Context, int) (int, error) { return 0, boom },
		Options[int, int]{
			MaxAttempts: 2,
			BaseWait:    time.Millisecond,
			OnError:     func(error) { errs++ },
		})
	testutil.AssertNoError(t, err)

	_, err = r.Execute(context.Background(), 1)
	if !errors.Is(err, perrors.ErrAttemptsExhausted) {
		t.Fatalf("err = %v, want ErrAttemptsExhausted", err)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped boom", err)
	}
	testutil.AssertEqual(t, errs, 2)

	st := r.State()
	testutil.AssertEqual(t, st.AttemptCount, 2)
	testutil.AssertEqual(t, st.ExecutionCount, 0)
	testutil.AssertEqual(t, st.SuccessCount, 0)
}

func TestSuppressErrors(t *testing.T) {
	boom := errors.New("boom")
	r, err := New(func(context.Context, int) (int, error) { return 0, boom },
		Options[int, int]{
			MaxAttempts:    2,
			BaseWait:       time.Millisecond,
			SuppressErrors: true,
		})
	testutil.AssertNoError(t, err)

	res, err := r.Execute(context.Background(), 1)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, res, 0)
	testutil.AssertEqual(t, r.State().ErrorCount, 2)
}

func TestBackoffFormulas(t *testing.T) {
	base := 100 * time.Millisecond
	tests := []struct {
		name    string
		backoff Backoff
		attempt int
		want    time.Duration
	}{
		{"exponential first", BackoffExponential, 1, base},
		{"exponential second", BackoffExponential, 2, 2 * base},
		{"exponential fourth", BackoffExponential, 4, 8 * base},
		{"linear first", BackoffLinear, 1, base},
		{"linear third", BackoffLinear, 3, 3 * base},
		{"fixed fifth", BackoffFixed, 5, base},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := New(func(context.Context, int) (int, error) { return 0, nil },
				Options[int, int]{BaseWait: base, Backoff: tt.backoff})
			testutil.AssertNoError(t, err)
			testutil.AssertEqual(t, r.backoff(r.Options(), tt.attempt), tt.want)
		})
	}
}

func TestBackoffMaxWaitCap(t *testing.T) {
	r, err := New(func(context.Context, int) (int, error) { return 0, nil },
		Options[int, int]{
			BaseWait: 100 * time.Millisecond,
			MaxWait:  250 * time.Millisecond,
		})
	testutil.AssertNoError(t, err)

	testutil.AssertEqual(t, r.backoff(r.Options(), 5), 250*time.Millisecond)
}

func TestBackoffJitterBounds(t *testing.T) {
	base := 50 * time.Millisecond
	jitter := 20 * time.Millisecond
	r, err := New(func(context.Context, int) (int, error) { return 0, nil },
		Options[int, int]{BaseWait: base, Backoff: BackoffFixed, Jitter: jitter})
	testutil.AssertNoError(t, err)

	for i := 0; i < 100; i++ {
		d := r.backoff(r.Options(), 1)
		if d < base || d >= base+jitter {
			t.Fatalf("delay %s outside [%s, %s)", d, base, base+jitter)
		}
	}
}

func TestTotalBudgetStopsSequence(t *testing.T) {
	clk := testutil.NewMockClock(time.Unix(1000, 0))
	boom := errors.New("boom")
	calls := 0

	r, err := New(func(context.Context, int) (int, error) {
		calls++
		clk.Advance(10 * time.Second)
		return 0, boom
	}, Options[int, int]{
		MaxAttempts:           5,
		BaseWait:              time.Millisecond,
		MaxTotalExecutionTime: 5 * time.Second,
		Clock:                 clk,
	})
	testutil.AssertNoError(t, err)

	_, err = r.Execute(context.Background(), 1)
	if !errors.Is(err, perrors.ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	testutil.AssertEqual(t, calls, 1)
}

func TestPerAttemptBudget(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	r, err := New(func(ctx context.Context, _ int) (int, error) {
		select {
		case <-block:
		case <-ctx.Done():
		}
		return 0, ctx.Err()
	}, Options[int, int]{
		MaxAttempts:      2,
		BaseWait:         time.Millisecond,
		MaxExecutionTime: 20 * time.Millisecond,
	})
	testutil.AssertNoError(t, err)

	_, err = r.Execute(context.Background(), 1)
	if !errors.Is(err, perrors.ErrAttemptsExhausted) {
		t.Fatalf("err = %v, want ErrAttemptsExhausted", err)
	}
	if !errors.Is(err, perrors.ErrTimeout) {
		t.Fatalf("err = %v, want wrapped ErrTimeout", err)
	}
	testutil.AssertEqual(t, r.State().AttemptCount, 2)
	testutil.AssertEqual(t, r.State().ExecutionCount, 0)
}

func TestAbortCancelsSequence(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	aborted := false

	r, err := New(func(_ context.Context, v int) (int, error) {
		close(started)
		<-release
		return v, nil
	}, Options[int, int]{OnAbort: func() { aborted = true }})
	testutil.AssertNoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		_, err := r.Execute(context.Background(), 1)
		errCh <- err
	}()

	<-started
	r.Abort()
	r.Abort() // idempotent

	if err := <-errCh; !errors.Is(err, perrors.ErrAborted) {
		t.Fatalf("err = %v, want ErrAborted", err)
	}
	testutil.AssertEqual(t, aborted, true)
	testutil.AssertEqual(t, r.State().IsExecuting, false)

	// The aborted attempt's late completion must not settle again.
	close(release)
	time.Sleep(20 * time.Millisecond)
	testutil.AssertEqual(t, r.State().SettleCount, 1)
	testutil.AssertEqual(t, r.State().SuccessCount, 0)
}

func TestCallerContextCanceled(t *testing.T) {
	boom := errors.New("boom")
	ctx, cancel := context.WithCancel(context.Background())

	r, err := New(func(context.Context, int) (int, error) {
		cancel()
		return 0, boom
	}, Options[int, int]{MaxAttempts: 3, BaseWait: time.Hour})
	testutil.AssertNoError(t, err)

	_, err = r.Execute(ctx, 1)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestWrappedCancellationTerminates(t *testing.T) {
	calls := 0
	r, err := New(func(context.Context, int) (int, error) {
		calls++
		return 0, fmt.Errorf("fetch page: %w", context.Canceled)
	}, Options[int, int]{MaxAttempts: 3, BaseWait: time.Millisecond})
	testutil.AssertNoError(t, err)

	_, err = r.Execute(context.Background(), 1)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want wrapped context.Canceled", err)
	}
	testutil.AssertEqual(t, calls, 1)
}

func TestDisabled(t *testing.T) {
	r, err := New(func(context.Context, int) (int, error) { return 0, nil },
		Options[int, int]{Disabled: true})
	testutil.AssertNoError(t, err)

	_, err = r.Execute(context.Background(), 1)
	if !errors.Is(err, perrors.ErrDisabled) {
		t.Fatalf("err = %v, want ErrDisabled", err)
	}
}

func TestExecuteAfterAbortRuns(t *testing.T) {
	started := make(chan struct{})
	r, err := New(func(_ context.Context, v int) (int, error) {
		select {
		case started <- struct{}{}:
		default:
		}
		return v, nil
	}, Options[int, int]{})
	testutil.AssertNoError(t, err)

	errCh := make(chan error, 1)
	blockR, _ := New(func(context.Context, int) (int, error) {
		<-make(chan struct{})
		return 0, nil
	}, Options[int, int]{})
	go func() {
		_, err := blockR.Execute(context.Background(), 1)
		errCh <- err
	}()
	testutil.Eventually(t, func() bool { return blockR.State().IsExecuting }, time.Second, time.Millisecond)
	blockR.Abort()
	<-errCh

	// A fresh sequence after an abort executes normally.
	res, err := r.Execute(context.Background(), 7)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, res, 7)
}

func TestFuncWrapper(t *testing.T) {
	calls := 0
	execute := Func(func(context.Context, string) (int, error) {
		calls++
		if calls < 2 {
			return 0, errors.New("transient")
		}
		return calls, nil
	})

	res, err := execute(context.Background(), "x")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, res, 2)
}
