package service

import (
	"context"
	"testing"
	"time"

	"github.com/loanops/commsync/internal/model"
	"github.com/loanops/commsync/internal/pkg/apperrors"
	"github.com/stretchr/testify/require"
)

func newTestLoop(client *fakeClient, interval time.Duration, cycles CycleStore) *Loop {
	rec := NewReconciler(testConfig(), client, nil, nil)
	return NewLoop(NewPoller(client), rec, interval, cycles)
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}

func TestLoopAuthErrorHalts(t *testing.T) {
	client := newFakeClient()
	client.pipelinesErr = apperrors.NewAuth("access token rejected", nil)

	loop := newTestLoop(client, 10*time.Millisecond, nil)
	loop.Start()

	select {
	case err := <-loop.Fatal():
		require.True(t, apperrors.IsAuth(err))
	case <-time.After(2 * time.Second):
		t.Fatal("expected fatal error from auth failure")
	}
	waitFor(t, time.Second, func() bool { return loop.State() == StateHalted })

	// No further cycles get scheduled after the halt.
	require.Error(t, loop.TriggerNow())
}

func TestLoopTransientFetchErrorRecovers(t *testing.T) {
	client := newFakeClient()
	client.addOpportunity("pip1", model.Opportunity{
		ID:            "opp1",
		MonetaryValue: ptr(0.0),
		CustomFields:  []model.CustomField{{ID: "loan_amount", Value: 100000.0}},
	})
	client.mu.Lock()
	client.pipelinesErr = apperrors.NewTransient("gateway timeout", nil)
	client.mu.Unlock()

	cycles := NewMemCycleStore()
	loop := newTestLoop(client, 20*time.Millisecond, cycles)
	loop.Start()
	defer loop.Stop()

	// First cycle fails at fetch and is skipped.
	waitFor(t, time.Second, func() bool {
		last, _ := cycles.LastCycle(context.Background())
		return last != nil && last.FetchError != ""
	})
	require.Zero(t, client.updateCount())

	// Upstream recovers; the next scheduled cycle runs and reconciles.
	client.mu.Lock()
	client.pipelinesErr = nil
	client.mu.Unlock()

	waitFor(t, 2*time.Second, func() bool { return client.updateCount() == 1 })

	select {
	case err := <-loop.Fatal():
		t.Fatalf("transient error must not be fatal, got %v", err)
	default:
	}
}

func TestLoopPartialFailureIsolation(t *testing.T) {
	client := newFakeClient()
	for _, id := range []string{"opp1", "opp2", "opp3"} {
		client.addOpportunity("pip1", model.Opportunity{
			ID:            id,
			MonetaryValue: ptr(0.0),
			CustomFields:  []model.CustomField{{ID: "loan_amount", Value: 100000.0}},
		})
	}
	client.updateErrFor["opp2"] = apperrors.NewTransient("write failed", nil)

	cycles := NewMemCycleStore()
	loop := newTestLoop(client, time.Hour, cycles)
	loop.Start()
	defer loop.Stop()

	waitFor(t, 2*time.Second, func() bool {
		last, _ := cycles.LastCycle(context.Background())
		return last != nil && last.Fetched == 3
	})

	last, err := cycles.LastCycle(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, last.Updated)
	require.Equal(t, 1, last.Failed)
	// Records after the failing one are still processed in the same cycle.
	require.Equal(t, []string{"opp1", "opp3"}, client.updatedIDs())
}

func TestLoopManualTrigger(t *testing.T) {
	client := newFakeClient()
	client.addOpportunity("pip1", model.Opportunity{
		ID:            "opp1",
		MonetaryValue: ptr(0.0),
		CustomFields:  []model.CustomField{{ID: "loan_amount", Value: 100000.0}},
	})

	loop := newTestLoop(client, time.Hour, NewMemCycleStore())
	loop.Start()
	defer loop.Stop()

	// Startup cycle applies the first update.
	waitFor(t, 2*time.Second, func() bool { return client.updateCount() == 1 })

	// Drift the value upstream, then trigger a manual cycle.
	client.mu.Lock()
	client.opportunities["pip1"][0].MonetaryValue = ptr(1.0)
	client.mu.Unlock()

	waitFor(t, time.Second, func() bool { return loop.State() == StateIdle })
	require.NoError(t, loop.TriggerNow())
	waitFor(t, 2*time.Second, func() bool { return client.updateCount() == 2 })
}

func TestLoopStopIsGraceful(t *testing.T) {
	client := newFakeClient()
	loop := newTestLoop(client, time.Hour, nil)
	loop.Start()

	waitFor(t, time.Second, func() bool { return loop.State() == StateIdle })
	loop.Stop()
	require.Equal(t, StateHalted, loop.State())
}
