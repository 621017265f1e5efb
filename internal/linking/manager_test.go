package linking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fitproapp/fitlink/internal/gateway"
)

func TestManager_SupersedesInFlightAttempt(t *testing.T) {
	gw := &fakeGateway{
		loginResp: login("state-1"),
		exchangeFn: func(code, state string) (*gateway.AuthResult, error) {
			return &gateway.AuthResult{Success: true, UserID: "u1"}, nil
		},
	}
	r := newRig(gw, "") // no auto-dispatch; the test drives callbacks

	m := NewManager(r.deps, time.Minute)

	firstDone := make(chan error, 1)
	go func() {
		_, err := m.Link(context.Background(), music)
		firstDone <- err
	}()

	// wait until the first attempt stored its state and is awaiting the
	// callback; only then is it safe to repoint the fake gateway
	require.Eventually(t, func() bool {
		stored, err := r.store.Get(context.Background(), "spotify_auth_state")
		return err == nil && stored == "state-1"
	}, time.Second, 5*time.Millisecond)

	// second attempt supersedes the first
	gw.loginResp = login("state-2")
	secondDone := make(chan *Result, 1)
	go func() {
		res, err := m.Link(context.Background(), music)
		require.NoError(t, err)
		secondDone <- res
	}()

	select {
	case err := <-firstDone:
		require.ErrorIs(t, err, ErrSuperseded)
	case <-time.After(time.Second):
		t.Fatal("first attempt was not superseded")
	}

	// the second session subscribes after persisting its state, so keep
	// dispatching until it picks the callback up; duplicates are dropped
	var res *Result
	require.Eventually(t, func() bool {
		r.disp.Dispatch("fitpro://callback?code=XYZ&state=state-2")
		select {
		case res = <-secondDone:
			return true
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, "u1", res.AccountID)
	require.False(t, m.InFlight(music))
}

func TestManager_ClearsRegistrationAfterSettle(t *testing.T) {
	gw := &fakeGateway{loginResp: login("abc")}
	r := newRig(gw, "fitpro://callback?cancelled=true")

	m := NewManager(r.deps, time.Minute)
	_, err := m.Link(context.Background(), music)
	require.ErrorIs(t, err, ErrCancelled)
	require.False(t, m.InFlight(music))
}

func TestManager_ParentContextCancellation(t *testing.T) {
	gw := &fakeGateway{loginResp: login("abc")}
	r := newRig(gw, "")

	m := NewManager(r.deps, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := m.Link(ctx, music)
		done <- err
	}()
	require.Eventually(t, func() bool { return m.InFlight(music) }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, ErrCancelled)
	case <-time.After(time.Second):
		t.Fatal("attempt did not settle on context cancellation")
	}
}
