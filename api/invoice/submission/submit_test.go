package submission

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"InvoiceDesk/internal/recordstore"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu    sync.Mutex
	users []string
}

func (n *recordingNotifier) Notify(userID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.users = append(n.users, userID)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.users)
}

type recordingCache struct {
	mu          sync.Mutex
	invalidated []string
}

func (c *recordingCache) Invalidate(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, userID)
}

func (c *recordingCache) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.invalidated)
}

type fixture struct {
	mem      *recordstore.MemStores
	cache    *recordingCache
	notifier *recordingNotifier
	tx       *Transaction
}

func newFixture() *fixture {
	mem := recordstore.NewMemStores()
	cache := &recordingCache{}
	notifier := &recordingNotifier{}
	return &fixture{
		mem:      mem,
		cache:    cache,
		notifier: notifier,
		tx:       NewTransaction(mem.Stores(), cache, notifier),
	}
}

// seedSubmittable creates n valid invoices with PDFs attached, numbered for
// stable ordering in assertions.
func (f *fixture) seedSubmittable(t *testing.T, userID string, n int) []recordstore.Invoice {
	t.Helper()
	ctx := context.Background()
	attached := time.Now()

	out := make([]recordstore.Invoice, 0, n)
	for i := 0; i < n; i++ {
		path := fmt.Sprintf("pdfs/%s/inv-%02d/1_evidence.pdf", userID, i)
		name := "evidence.pdf"
		inv, err := f.mem.CreateInvoice(ctx, &recordstore.Invoice{
			UserID:        userID,
			InvoiceID:     fmt.Sprintf("b4a6c8e0-1f2d-4a3b-9c5e-%012d", i),
			SellerID:      "11111111-1111-4111-8111-111111111111",
			DebtorID:      "22222222-2222-4222-8222-222222222222",
			Currency:      "EUR",
			Amount:        decimal.RequireFromString("1500.25"),
			Product:       "FACTORING",
			IssueDate:     "2026-01-10",
			DueDate:       "2026-03-10",
			UploadDate:    "2026-01-15",
			UploadJobID:   "job-1",
			IsValid:       true,
			PDFPath:       &path,
			PDFFileName:   &name,
			PDFAttachedAt: &attached,
		})
		require.NoError(t, err)
		out = append(out, *inv)
	}
	return out
}

func TestSubmitFullRun(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	invoices := f.seedSubmittable(t, "user-1", 2)

	report := f.tx.Submit(ctx, "user-1", "Priya Shah", invoices)

	assert.Equal(t, OutcomeFull, report.Outcome)
	assert.Equal(t, 2, report.Attempted)
	assert.Equal(t, 2, report.Submitted)
	assert.Zero(t, report.CopyFailures)
	assert.Zero(t, report.DeleteFailures)
	assert.Empty(t, report.Errors)

	// Originals are gone, copies exist and carry provenance.
	assert.Equal(t, 0, f.mem.InvoiceCount())
	subs, err := f.mem.ListSubmitted(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, subs, 2)

	byOriginal := map[string]recordstore.SubmittedInvoice{}
	for _, s := range subs {
		byOriginal[s.OriginalInvoiceID] = s
	}
	for _, inv := range invoices {
		s, ok := byOriginal[inv.ID]
		require.True(t, ok, "submitted copy points back at original %s", inv.ID)
		assert.Equal(t, inv.InvoiceID, s.InvoiceID)
		assert.True(t, inv.Amount.Equal(s.Amount))
		assert.Equal(t, inv.UploadJobID, s.OriginalUploadJobID)
		assert.Equal(t, "Priya Shah", s.SubmittedBy)
		require.NotNil(t, s.PDFPath)
		assert.Equal(t, *inv.PDFPath, *s.PDFPath, "PDF is referenced, not moved")
		assert.NotEmpty(t, s.SubmittedDate)
	}

	assert.GreaterOrEqual(t, f.notifier.count(), 1)
	assert.GreaterOrEqual(t, f.cache.count(), 1)
}

func TestSubmitInterleavedCopyFailureDeletesOnlyCopied(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	invoices := f.seedSubmittable(t, "user-1", 3)
	poisonedBusinessID := invoices[1].InvoiceID

	f.mem.CreateSubmittedErr = func(sub *recordstore.SubmittedInvoice) error {
		if sub.InvoiceID == poisonedBusinessID {
			return errors.New("copy rejected")
		}
		return nil
	}

	report := f.tx.Submit(ctx, "user-1", "Priya Shah", invoices)

	assert.Equal(t, OutcomePartial, report.Outcome)
	assert.Equal(t, 3, report.Attempted)
	assert.Equal(t, 2, report.Submitted)
	assert.Equal(t, 1, report.CopyFailures)
	assert.Zero(t, report.DeleteFailures)

	// The invoice whose copy failed keeps its original; deletion is tracked
	// by record identity, so the failure in the middle shifts nothing.
	remaining, err := f.mem.ListInvoices(ctx, "user-1", recordstore.InvoiceFilter{})
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, invoices[1].ID, remaining[0].ID)

	subs, err := f.mem.ListSubmitted(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, subs, 2)
}

func TestSubmitDeleteFailureLeavesDuplicateWindow(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	invoices := f.seedSubmittable(t, "user-1", 2)
	stuck := invoices[0].ID

	f.mem.DeleteInvoiceErr = func(id string) error {
		if id == stuck {
			return errors.New("delete rejected")
		}
		return nil
	}

	report := f.tx.Submit(ctx, "user-1", "Priya Shah", invoices)

	assert.Equal(t, OutcomePartial, report.Outcome)
	assert.Equal(t, 2, report.Submitted)
	assert.Equal(t, 1, report.DeleteFailures)

	// Copy and original now coexist; a later run would submit it again.
	assert.Equal(t, 1, f.mem.InvoiceCount())
	assert.Equal(t, 2, f.mem.SubmittedCount())
}

func TestSubmitAllCopiesFail(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	invoices := f.seedSubmittable(t, "user-1", 2)

	f.mem.CreateSubmittedErr = func(*recordstore.SubmittedInvoice) error {
		return errors.New("storage down")
	}

	report := f.tx.Submit(ctx, "user-1", "Priya Shah", invoices)

	assert.Equal(t, OutcomeFailed, report.Outcome)
	assert.Zero(t, report.Submitted)
	assert.Equal(t, 2, report.CopyFailures)
	assert.Equal(t, 2, f.mem.InvoiceCount(), "all originals stay put")
	assert.Equal(t, 0, f.mem.SubmittedCount())
	assert.Contains(t, report.Message, "submission failed for all 2 invoices")
}

func TestSubmitCapsErrorSampleInMessage(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	invoices := f.seedSubmittable(t, "user-1", 6)

	f.mem.CreateSubmittedErr = func(*recordstore.SubmittedInvoice) error {
		return errors.New("storage down")
	}

	report := f.tx.Submit(ctx, "user-1", "Priya Shah", invoices)

	assert.Len(t, report.Errors, 6, "full error list is kept")
	assert.Contains(t, report.Message, "and 3 more errors", "display message is capped")
}
