package recordstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitSnapshot(t *testing.T, ch <-chan Snapshot) Snapshot {
	t.Helper()
	select {
	case snap := <-ch:
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return Snapshot{}
	}
}

func TestSubscribeDeliversInitialSnapshot(t *testing.T) {
	m := NewMemStores()
	_, err := m.CreateInvoice(context.Background(), &Invoice{UserID: "user-1", InvoiceID: "INV-1", IsValid: true})
	require.NoError(t, err)

	hub := NewHub(m.Stores())
	hub.Start()
	defer hub.Stop()

	ch, cancel := hub.Subscribe("user-1")
	defer cancel()

	snap := waitSnapshot(t, ch)
	require.Len(t, snap.Invoices, 1)
	assert.Equal(t, "INV-1", snap.Invoices[0].InvoiceID)
	assert.NotNil(t, snap.Jobs, "empty collections arrive as empty slices, not nil")
	assert.NotNil(t, snap.Submitted)
}

func TestNotifyPushesFreshState(t *testing.T) {
	m := NewMemStores()
	hub := NewHub(m.Stores())
	hub.Start()
	defer hub.Stop()

	ch, cancel := hub.Subscribe("user-1")
	defer cancel()

	first := waitSnapshot(t, ch)
	assert.Empty(t, first.Invoices)

	_, err := m.CreateInvoice(context.Background(), &Invoice{UserID: "user-1", InvoiceID: "INV-2", IsValid: true})
	require.NoError(t, err)
	hub.Notify("user-1")

	require.Eventually(t, func() bool {
		select {
		case snap := <-ch:
			return len(snap.Invoices) == 1 && snap.Invoices[0].InvoiceID == "INV-2"
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

func TestLaggingSubscriberGetsNewestSnapshot(t *testing.T) {
	m := NewMemStores()
	hub := NewHub(m.Stores())
	hub.Start()
	defer hub.Stop()

	// Never read between notifies; the buffered slot must end up holding
	// the newest state.
	ch, cancel := hub.Subscribe("user-1")
	defer cancel()

	for i := 0; i < 3; i++ {
		_, err := m.CreateInvoice(context.Background(), &Invoice{UserID: "user-1", IsValid: true})
		require.NoError(t, err)
		hub.Notify("user-1")
	}

	require.Eventually(t, func() bool {
		select {
		case snap := <-ch:
			return len(snap.Invoices) == 3
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCancelRemovesSubscription(t *testing.T) {
	m := NewMemStores()
	hub := NewHub(m.Stores())
	hub.Start()
	defer hub.Stop()

	_, cancelA := hub.Subscribe("user-1")
	chB, cancelB := hub.Subscribe("user-1")
	assert.Equal(t, 2, hub.SubscriberCount("user-1"))

	cancelA()
	assert.Equal(t, 1, hub.SubscriberCount("user-1"))

	// The remaining subscriber still receives pushes.
	_, err := m.CreateInvoice(context.Background(), &Invoice{UserID: "user-1", IsValid: true})
	require.NoError(t, err)
	hub.Notify("user-1")
	require.Eventually(t, func() bool {
		select {
		case snap := <-chB:
			return len(snap.Invoices) == 1
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)

	cancelB()
	assert.Equal(t, 0, hub.SubscriberCount("user-1"))
}

func TestNotifyWithoutSubscribersIsCheap(t *testing.T) {
	m := NewMemStores()
	hub := NewHub(m.Stores())
	hub.Start()
	defer hub.Stop()

	// Must not block or panic.
	for i := 0; i < 100; i++ {
		hub.Notify("nobody-listening")
	}
}
