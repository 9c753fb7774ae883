package queue

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/gnrllybttr/pacer/internal/testutil"
)

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name    string
		fn      func(int)
		opts    Options[int]
		wantErr bool
	}{
		{"valid", func(int) {}, Options[int]{}, false},
		{"nil fn", nil, Options[int]{}, true},
		{"negative maxSize", func(int) {}, Options[int]{MaxSize: -1}, true},
		{"negative wait", func(int) {}, Options[int]{Wait: -time.Second}, true},
		{"negative expiration", func(int) {}, Options[int]{ExpirationDuration: -time.Second}, true},
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

func TestFIFOOrder(t *testing.T) {
	q, err := New(func(string) {}, Options[string]{Stopped: true})
	testutil.AssertNoError(t, err)

	q.AddItem("a")
	q.AddItem("b")
	q.AddItem("c")

	var got []string
	for {
		item, ok := q.GetNextItem()
		if !ok {
			break
		}
		got = append(got, item)
	}

	want := []string{"a", "b", "c"}
	testutil.AssertEqual(t, len(got), len(want))
	for i := range want {
		testutil.AssertEqual(t, got[i], want[i])
	}
}

func TestLIFOOrder(t *testing.T) {
	q, err := New(func(string) {}, Options[string]{GetItemsFrom: PositionBack, Stopped: true})
	testutil.AssertNoError(t, err)

	q.AddItem("a")
	q.AddItem("b")
	q.AddItem("c")

	item, _ := q.GetNextItem()
	testutil.AssertEqual(t, item, "c")
	item, _ = q.GetNextItem()
	testutil.AssertEqual(t, item, "b")
	item, _ = q.GetNextItem()
	testutil.AssertEqual(t, item, "a")
}

func TestPositionOverride(t *testing.T) {
	q, err := New(func(string) {}, Options[string]{Stopped: true})
	testutil.AssertNoError(t, err)

	q.AddItem("normal")
	q.AddItem("urgent", PositionFront)

	item, _ := q.GetNextItem()
	testutil.AssertEqual(t, item, "urgent")
}

func TestCapacityRejection(t *testing.T) {
	var rejected []int
	q, err := New(func(int) {}, Options[int]{
		MaxSize:  2,
		Stopped:  true,
		OnReject: func(item int) { rejected = append(rejected, item) },
	})
	testutil.AssertNoError(t, err)

	testutil.AssertEqual(t, q.AddItem(1), true)
	testutil.AssertEqual(t, q.AddItem(2), true)
	testutil.AssertEqual(t, q.AddItem(3), false)

	// Rejection leaves the buffer untouched.
	testutil.AssertEqual(t, q.Size(), 2)
	testutil.AssertEqual(t, q.State().RejectionCount, 1)
	testutil.AssertEqual(t, len(rejected), 1)
	testutil.AssertEqual(t, rejected[0], 3)

	item, _ := q.Peek()
	testutil.AssertEqual(t, item, 1)
}

func TestExpirationSweep(t *testing.T) {
	clk := testutil.NewMockClock(time.Unix(1000, 0))
	var expired []string

	q, err := New(func(string) {}, Options[string]{
		Stopped:            true,
		ExpirationDuration: time.Second,
		Clock:              clk,
		OnExpire:           func(item string) { expired = append(expired, item) },
	})
	testutil.AssertNoError(t, err)

	q.AddItem("old")
	clk.Advance(2 * time.Second)
	q.AddItem("fresh")

	item, ok := q.GetNextItem()
	testutil.AssertEqual(t, ok, true)
	testutil.AssertEqual(t, item, "fresh")
	testutil.AssertEqual(t, len(expired), 1)
	testutil.AssertEqual(t, expired[0], "old")
	testutil.AssertEqual(t, q.State().ExpirationCount, 1)
}

func TestProcessesItemsByDefault(t *testing.T) {
	var rec testutil.CallRecorder[int]
	q, err := New(rec.Record, Options[int]{})
	testutil.AssertNoError(t, err)

	q.AddItem(1)
	q.AddItem(2)
	q.AddItem(3)

	testutil.Eventually(t, func() bool { return rec.Count() == 3 }, time.Second, 5*time.Millisecond)
	testutil.AssertEqual(t, q.Size(), 0)
	testutil.AssertEqual(t, q.State().ExecutionCount, 3)
}

func TestStopPausesProcessing(t *testing.T) {
	var rec testutil.CallRecorder[int]
	q, err := New(rec.Record, Options[int]{Wait: 20 * time.Millisecond})
	testutil.AssertNoError(t, err)

	q.Stop()
	q.AddItem(1)
	time.Sleep(60 * time.Millisecond)
	testutil.AssertEqual(t, rec.Count(), 0)
	testutil.AssertEqual(t, q.Size(), 1)

	q.Start()
	testutil.Eventually(t, func() bool { return rec.Count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestFlushProcessesSynchronously(t *testing.T) {
	var rec testutil.CallRecorder[int]
	q, err := New(rec.Record, Options[int]{Wait: time.Hour})
	testutil.AssertNoError(t, err)

	q.AddItem(1)
	q.AddItem(2)
	q.Flush()

	testutil.AssertEqual(t, rec.Count(), 2)
	testutil.AssertEqual(t, q.Size(), 0)
}

func TestFlushWaitsForInFlightItem(t *testing.T) {
	entered := make(chan struct{})
	gate := make(chan struct{})
	var in atomic.Int32
	var overlap atomic.Bool

	q, err := New(func(v int) {
		if in.Add(1) > 1 {
			overlap.Store(true)
		}
		if v == 1 {
			close(entered)
			<-gate
		}
		in.Add(-1)
	}, Options[int]{})
	testutil.AssertNoError(t, err)

	q.AddItem(1)
	<-entered
	q.AddItem(2)

	done := make(chan struct{})
	go func() {
		q.Flush()
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	close(gate)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("flush did not return")
	}
	testutil.AssertEqual(t, overlap.Load(), false)
	testutil.Eventually(t, func() bool { return q.State().ExecutionCount == 2 }, time.Second, 5*time.Millisecond)
}

func TestClearKeepsCounters(t *testing.T) {
	q, err := New(func(int) {}, Options[int]{Stopped: true})
	testutil.AssertNoError(t, err)

	q.AddItem(1)
	q.AddItem(2)
	q.Clear()

	testutil.AssertEqual(t, q.Size(), 0)
	testutil.AssertEqual(t, q.State().AddItemCount, 2)
}

func TestResetZeroesCounters(t *testing.T) {
	q, err := New(func(int) {}, Options[int]{MaxSize: 1, Stopped: true})
	testutil.AssertNoError(t, err)

	q.AddItem(1)
	q.AddItem(2)
	q.Reset()

	st := q.State()
	testutil.AssertEqual(t, st.AddItemCount, 0)
	testutil.AssertEqual(t, st.RejectionCount, 0)
	testutil.AssertEqual(t, q.Size(), 0)
}

func TestDisabledRejectsItems(t *testing.T) {
	q, err := New(func(int) {}, Options[int]{Disabled: true})
	testutil.AssertNoError(t, err)

	testutil.AssertEqual(t, q.AddItem(1), false)
	testutil.AssertEqual(t, q.Size(), 0)
}

func TestOnItemsChange(t *testing.T) {
	var last []string
	q, err := New(func(string) {}, Options[string]{
		Stopped:       true,
		OnItemsChange: func(items []string) { last = items },
	})
	testutil.AssertNoError(t, err)

	q.AddItem("a")
	q.AddItem("b")
	testutil.AssertEqual(t, len(last), 2)

	q.GetNextItem()
	testutil.AssertEqual(t, len(last), 1)
}

func TestFuncWrapper(t *testing.T) {
	var rec testutil.CallRecorder[string]
	enqueue, stop := Func(rec.Record)
	defer stop()

	testutil.AssertEqual(t, enqueue("job"), true)
	testutil.Eventually(t, func() bool { return rec.Count() == 1 }, time.Second, 5*time.Millisecond)
}
