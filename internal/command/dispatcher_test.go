package command

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"
)

// recordingSender captures every frame written by the dispatcher.
type recordingSender struct {
	mu     sync.Mutex
	frames []wireCommand
	fail   error
}

func (s *recordingSender) Send(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	var w wireCommand
	if err := json.Unmarshal(frame, &w); err != nil {
		return err
	}
	s.frames = append(s.frames, w)
	return nil
}

func (s *recordingSender) sent() []wireCommand {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]wireCommand, len(s.frames))
	copy(out, s.frames)
	return out
}

func TestDispatcher_HoldsCommandsWhileOneInFlight(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(sender, nil)

	methods := []string{"A", "B", "C", "D"}
	for _, m := range methods {
		d.Enqueue(m, nil)
	}

	if got := len(sender.sent()); got != 1 {
		t.Fatalf("sent = %d, want 1", got)
	}
	if got := len(d.Pending()); got != len(methods)-1 {
		t.Errorf("pending = %d, want %d", got, len(methods)-1)
	}

	for i := 1; i < len(methods); i++ {
		d.OnCompletion(map[string]any{"jsonrpc": "2.0"})
		frames := sender.sent()
		if len(frames) != i+1 {
			t.Fatalf("after completion %d: sent = %d, want %d", i, len(frames), i+1)
		}
		if frames[i].Method != methods[i] {
			t.Errorf("frame %d method = %q, want %q", i, frames[i].Method, methods[i])
		}
	}

	d.OnCompletion(nil)
	if _, ok := d.InFlight(); ok {
		t.Error("expected idle dispatcher after final completion")
	}
}

func TestDispatcher_IDsAndUIDs(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(sender, nil)

	uid1 := d.Enqueue("A", Params{"IsOn": true})
	d.OnCompletion(nil)
	uid2 := d.Enqueue("B", nil)

	frames := sender.sent()
	if len(frames) != 2 {
		t.Fatalf("sent = %d, want 2", len(frames))
	}
	if frames[0].ID != 1 || frames[1].ID != 2 {
		t.Errorf("ids = %d,%d, want 1,2", frames[0].ID, frames[1].ID)
	}
	if frames[0].Params[ParamUID] != uid1 {
		t.Errorf("frame 0 UID = %v, want %s", frames[0].Params[ParamUID], uid1)
	}
	if frames[0].Params["IsOn"] != true {
		t.Errorf("frame 0 IsOn = %v, want true", frames[0].Params["IsOn"])
	}
	if frames[1].Params[ParamUID] != uid2 {
		t.Errorf("frame 1 UID = %v, want %s", frames[1].Params[ParamUID], uid2)
	}
	if uid1 == uid2 {
		t.Error("expected distinct UIDs")
	}

	if m, ok := d.MethodFor(uid2); !ok || m != "B" {
		t.Errorf("MethodFor(uid2) = %q,%v, want B,true", m, ok)
	}
}

func TestDispatcher_DoesNotMutateCallerParams(t *testing.T) {
	d := NewDispatcher(&recordingSender{}, nil)
	params := Params{"Level": 0}

	d.Enqueue("RemoteSetLogEvent", params)

	if _, ok := params[ParamUID]; ok {
		t.Error("caller params gained a UID")
	}
}

func TestDispatcher_AuthThenDashboard(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(sender, nil)

	d.Enqueue(MethodAuthenticate, Params{"Base": "dTpw"})
	d.Enqueue(MethodSetDashboardMode, Params{"IsOn": true})

	frames := sender.sent()
	if len(frames) != 1 || frames[0].Method != MethodAuthenticate {
		t.Fatalf("before completion: frames = %+v, want only %s", frames, MethodAuthenticate)
	}

	d.OnCompletion(map[string]any{"jsonrpc": "2.0", "result": 0})

	frames = sender.sent()
	if len(frames) != 2 || frames[1].Method != MethodSetDashboardMode {
		t.Fatalf("after completion: frames = %+v, want %s second", frames, MethodSetDashboardMode)
	}
}

func TestDispatcher_SendFailureKeepsCommand(t *testing.T) {
	sender := &recordingSender{fail: errors.New("broken pipe")}
	d := NewDispatcher(sender, nil)

	d.Enqueue("A", nil)
	d.Enqueue("B", nil)

	if _, ok := d.InFlight(); ok {
		t.Error("in-flight slot should be free after send failure")
	}
	pending := d.Pending()
	if len(pending) != 2 || pending[0].Method != "A" {
		t.Fatalf("pending = %+v, want A first", pending)
	}
	if got := d.Stats().SendErrors; got == 0 {
		t.Error("expected send errors to be counted")
	}

	sender.mu.Lock()
	sender.fail = nil
	sender.mu.Unlock()

	d.AttemptDispatch()
	frames := sender.sent()
	if len(frames) != 1 || frames[0].Method != "A" {
		t.Errorf("frames = %+v, want A", frames)
	}
}

func TestDispatcher_SuspendResume(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(sender, nil)

	d.Enqueue("A", nil) // in flight
	d.Enqueue("B", nil)

	d.Suspend()
	if _, ok := d.InFlight(); ok {
		t.Fatal("suspend should clear the in-flight slot")
	}
	d.Enqueue("C", nil)
	if got := len(sender.sent()); got != 1 {
		t.Errorf("sent while suspended = %d, want 1", got)
	}

	uids := d.Resume(
		Request{Method: MethodAuthenticate, Params: Params{"Base": "x"}},
		Request{Method: MethodSetDashboardMode, Params: Params{"IsOn": true}},
	)
	if len(uids) != 2 {
		t.Fatalf("resume uids = %d, want 2", len(uids))
	}

	want := []string{MethodAuthenticate, MethodSetDashboardMode, "A", "B", "C"}
	for i := 0; i < len(want); i++ {
		if i > 0 {
			d.OnCompletion(nil)
		}
	}
	frames := sender.sent()[1:]
	if len(frames) != len(want) {
		t.Fatalf("replayed = %d, want %d", len(frames), len(want))
	}
	for i, w := range want {
		if frames[i].Method != w {
			t.Errorf("replay %d = %q, want %q", i, frames[i].Method, w)
		}
	}
}

func TestDispatcher_CompletionWhenIdle(t *testing.T) {
	d := NewDispatcher(&recordingSender{}, nil)

	d.OnCompletion(map[string]any{"jsonrpc": "2.0"})

	s := d.Stats()
	if s.Completed != 0 {
		t.Errorf("Completed = %d, want 0", s.Completed)
	}
	if s.InFlight {
		t.Error("InFlight = true, want false")
	}
}

func TestDispatcher_Stats(t *testing.T) {
	d := NewDispatcher(&recordingSender{}, nil)

	d.Enqueue("A", nil)
	d.Enqueue("B", nil)
	d.OnCompletion(nil)

	s := d.Stats()
	if s.Enqueued != 2 {
		t.Errorf("Enqueued = %d, want 2", s.Enqueued)
	}
	if s.Sent != 2 {
		t.Errorf("Sent = %d, want 2", s.Sent)
	}
	if s.Completed != 1 {
		t.Errorf("Completed = %d, want 1", s.Completed)
	}
	if !s.InFlight || s.InFlightMethod != "B" {
		t.Errorf("InFlight = %v/%q, want true/B", s.InFlight, s.InFlightMethod)
	}
}

func TestDispatcher_ResumeSupersedesPendingBootstrap(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(sender, nil)

	old := d.Enqueue(MethodSetDashboardMode, Params{"IsOn": true}) // in flight
	d.Enqueue("UserCommand", nil)
	d.Enqueue(MethodGetFilterConfiguration, nil)
	d.Suspend()

	uids := d.Resume(
		Request{Method: MethodSetDashboardMode, Params: Params{"IsOn": true}},
		Request{Method: MethodSetLogEvent, Params: Params{"IsOn": true, "Level": 0}},
		Request{Method: MethodGetFilterConfiguration, Params: Params{}},
	)

	pending := d.Pending()
	var got []string
	if cmd, ok := d.InFlight(); ok {
		got = append(got, cmd.Method)
		if cmd.UID == old {
			t.Errorf("in-flight uid = %q, want a fresh bootstrap uid", cmd.UID)
		}
		if cmd.UID != uids[0] {
			t.Errorf("in-flight uid = %q, want %q", cmd.UID, uids[0])
		}
	}
	for _, cmd := range pending {
		got = append(got, cmd.Method)
	}

	want := []string{MethodSetDashboardMode, MethodSetLogEvent, MethodGetFilterConfiguration, "UserCommand"}
	if len(got) != len(want) {
		t.Fatalf("queue = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("queue[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if s := d.Stats(); s.Superseded != 2 {
		t.Errorf("Superseded = %d, want 2", s.Superseded)
	}

	// Repeated flaps do not grow the queue.
	for i := 0; i < 3; i++ {
		d.Suspend()
		d.Resume(
			Request{Method: MethodSetDashboardMode, Params: Params{"IsOn": true}},
			Request{Method: MethodSetLogEvent, Params: Params{"IsOn": true, "Level": 0}},
			Request{Method: MethodGetFilterConfiguration, Params: Params{}},
		)
	}
	if n := len(d.Pending()); n != len(want)-1 {
		t.Errorf("pending after flaps = %d, want %d", n, len(want)-1)
	}
}

// blockingSender holds every Send until released.
type blockingSender struct {
	entered chan struct{}
	release chan struct{}
}

func (s *blockingSender) Send([]byte) error {
	s.entered <- struct{}{}
	<-s.release
	return nil
}

func TestDispatcher_SnapshotsDoNotWaitOnSend(t *testing.T) {
	sender := &blockingSender{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	d := NewDispatcher(sender, nil)

	enqueued := make(chan struct{})
	go func() {
		d.Enqueue("Slow", nil)
		close(enqueued)
	}()
	<-sender.entered

	snap := make(chan Stats, 1)
	go func() { snap <- d.Stats() }()

	select {
	case s := <-snap:
		if !s.InFlight || s.InFlightMethod != "Slow" {
			t.Errorf("InFlight = %v/%q, want true/Slow", s.InFlight, s.InFlightMethod)
		}
	case <-time.After(time.Second):
		t.Fatal("Stats blocked while the sender was writing")
	}
	if _, ok := d.InFlight(); !ok {
		t.Error("InFlight() = false during send, want true")
	}

	close(sender.release)
	<-enqueued
	if s := d.Stats(); s.Sent != 1 {
		t.Errorf("Sent = %d, want 1", s.Sent)
	}
}
