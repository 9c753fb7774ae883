package debounce

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/gnrllybttr/pacer/internal/testutil"
	"github.com/gnrllybttr/pacer/pkg/common/state"
)

func TestNewValidation(t *testing.T) {
	if _, err := New[int](nil, Options[int]{Wait: time.Millisecond}); err == nil {
		t.Error("nil fn should fail")
	}
	if _, err := New(func(int) {}, Options[int]{Wait: -time.Millisecond}); err == nil {
		t.Error("negative wait should fail")
	}
	d, err := New(func(int) {}, Options[int]{Wait: time.Millisecond})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, d.State().Status, state.Idle)
}

func TestCoalescing(t *testing.T) {
	var rec testutil.CallRecorder[int]
	d, err := New(rec.Record, Options[int]{Wait: 50 * time.Millisecond})
	testutil.AssertNoError(t, err)

	// Calls spaced closer than wait coalesce into one trailing execution
	// using the last call's arguments.
	d.MaybeExecute(1)
	time.Sleep(10 * time.Millisecond)
	d.MaybeExecute(2)
	time.Sleep(10 * time.Millisecond)
	d.MaybeExecute(3)

	testutil.AssertEqual(t, rec.Count(), 0)
	testutil.Eventually(t, func() bool { return rec.Count() == 1 }, time.Second, 5*time.Millisecond)

	last, _ := rec.Last()
	testutil.AssertEqual(t, last, 3)
	testutil.AssertEqual(t, d.State().ExecutionCount, 1)
	testutil.AssertEqual(t, d.State().Status, state.Idle)
}

func TestLeadingEdge(t *testing.T) {
	var rec testutil.CallRecorder[string]
	d, err := New(rec.Record, Options[string]{
		Wait:  50 * time.Millisecond,
		Edges: EdgeLeading,
	})
	testutil.AssertNoError(t, err)

	d.MaybeExecute("first")
	testutil.AssertEqual(t, rec.Count(), 1)

	// In-window calls neither execute nor schedule a trailing run.
	d.MaybeExecute("second")
	d.MaybeExecute("third")
	testutil.AssertEqual(t, rec.Count(), 1)

	// After the window closes the leading edge is available again.
	testutil.Eventually(t, func() bool { return !d.State().IsPending }, time.Second, 5*time.Millisecond)
	d.MaybeExecute("fourth")
	testutil.AssertEqual(t, rec.Count(), 2)

	last, _ := rec.Last()
	testutil.AssertEqual(t, last, "fourth")
}

func TestBothEdges(t *testing.T) {
	var rec testutil.CallRecorder[int]
	d, err := New(rec.Record, Options[int]{
		Wait:  40 * time.Millisecond,
		Edges: EdgeBoth,
	})
	testutil.AssertNoError(t, err)

	d.MaybeExecute(1) // leading
	d.MaybeExecute(2) // trailing candidate
	testutil.AssertEqual(t, rec.Count(), 1)

	testutil.Eventually(t, func() bool { return rec.Count() == 2 }, time.Second, 5*time.Millisecond)
	calls := rec.Calls()
	testutil.AssertEqual(t, calls[0], 1)
	testutil.AssertEqual(t, calls[1], 2)
}

func TestBothEdgesSingleCall(t *testing.T) {
	var rec testutil.CallRecorder[int]
	d, err := New(rec.Record, Options[int]{
		Wait:  30 * time.Millisecond,
		Edges: EdgeBoth,
	})
	testutil.AssertNoError(t, err)

	// A lone call executes only on the leading edge.
	d.MaybeExecute(7)
	time.Sleep(60 * time.Millisecond)
	testutil.AssertEqual(t, rec.Count(), 1)
}

func TestCancel(t *testing.T) {
	var rec testutil.CallRecorder[int]
	d, err := New(rec.Record, Options[int]{Wait: 30 * time.Millisecond})
	testutil.AssertNoError(t, err)

	d.MaybeExecute(1)
	d.Cancel()

	time.Sleep(60 * time.Millisecond)
	testutil.AssertEqual(t, rec.Count(), 0)
	testutil.AssertEqual(t, d.State().Status, state.Idle)

	// The debouncer is reusable after Cancel.
	d.MaybeExecute(2)
	testutil.Eventually(t, func() bool { return rec.Count() == 1 }, time.Second, 5*time.Millisecond)
	last, _ := rec.Last()
	testutil.AssertEqual(t, last, 2)
}

func TestFlush(t *testing.T) {
	var rec testutil.CallRecorder[int]
	d, err := New(rec.Record, Options[int]{Wait: time.Hour})
	testutil.AssertNoError(t, err)

	d.MaybeExecute(9)
	testutil.AssertEqual(t, rec.Count(), 0)

	d.Flush()
	testutil.AssertEqual(t, rec.Count(), 1)
	testutil.AssertEqual(t, d.State().Status, state.Idle)

	// Flush with nothing pending is a no-op.
	d.Flush()
	testutil.AssertEqual(t, rec.Count(), 1)
}

func TestDisabled(t *testing.T) {
	var rec testutil.CallRecorder[int]
	d, err := New(rec.Record, Options[int]{Wait: 10 * time.Millisecond, Disabled: true})
	testutil.AssertNoError(t, err)

	testutil.AssertEqual(t, d.State().Status, state.Disabled)
	d.MaybeExecute(1)
	time.Sleep(30 * time.Millisecond)
	testutil.AssertEqual(t, rec.Count(), 0)
}

func TestSetOptionsDisableCancelsPending(t *testing.T) {
	var rec testutil.CallRecorder[int]
	opts := Options[int]{Wait: 30 * time.Millisecond}
	d, err := New(rec.Record, opts)
	testutil.AssertNoError(t, err)

	d.MaybeExecute(1)
	opts.Disabled = true
	testutil.AssertNoError(t, d.SetOptions(opts))

	time.Sleep(60 * time.Millisecond)
	testutil.AssertEqual(t, rec.Count(), 0)
	testutil.AssertEqual(t, d.State().Status, state.Disabled)

	opts.Disabled = false
	testutil.AssertNoError(t, d.SetOptions(opts))
	testutil.AssertEqual(t, d.State().Status, state.Idle)
}

func TestOnExecuteCallback(t *testing.T) {
	var executed atomic.Int32
	d, err := New(func(int) {}, Options[int]{
		Wait:      10 * time.Millisecond,
		OnExecute: func(int) { executed.Add(1) },
	})
	testutil.AssertNoError(t, err)

	d.MaybeExecute(1)
	testutil.Eventually(t, func() bool { return executed.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestSubscribe(t *testing.T) {
	var rec testutil.CallRecorder[int]
	d, err := New(rec.Record, Options[int]{Wait: 10 * time.Millisecond})
	testutil.AssertNoError(t, err)

	var snaps testutil.CallRecorder[State]
	unsub := d.Subscribe(snaps.Record)

	d.MaybeExecute(1)
	testutil.Eventually(t, func() bool { return snaps.Count() >= 3 }, time.Second, 5*time.Millisecond)

	snapshots := snaps.Calls()
	testutil.AssertEqual(t, snapshots[0].Status, state.Pending)
	final := snapshots[len(snapshots)-1]
	testutil.AssertEqual(t, final.Status, state.Idle)
	testutil.AssertEqual(t, final.ExecutionCount, 1)

	unsub()
	before := snaps.Count()
	d.MaybeExecute(2)
	testutil.Eventually(t, func() bool { return rec.Count() == 2 }, time.Second, 5*time.Millisecond)
	testutil.AssertEqual(t, snaps.Count(), before)
}

func TestFuncWrapper(t *testing.T) {
	var rec testutil.CallRecorder[int]
	trigger, cancel := Func(20*time.Millisecond, rec.Record)

	trigger(1)
	trigger(2)
	testutil.Eventually(t, func() bool { return rec.Count() == 1 }, time.Second, 5*time.Millisecond)
	last, _ := rec.Last()
	testutil.AssertEqual(t, last, 2)

	trigger(3)
	cancel()
	time.Sleep(50 * time.Millisecond)
	testutil.AssertEqual(t, rec.Count(), 1)
}
