package attachments

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"InvoiceDesk/internal/objectstore"
	"InvoiceDesk/internal/recordstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pdfBytes = []byte("%PDF-1.7\n1 0 obj\n<< /Type /Catalog >>\nendobj\n%%EOF")

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

type fixture struct {
	mem      *recordstore.MemStores
	objects  *objectstore.MemStore
	notifier *recordingNotifier
	manager  *Manager
}

func newFixture() *fixture {
	mem := recordstore.NewMemStores()
	objects := objectstore.NewMemStore()
	notifier := &recordingNotifier{}
	return &fixture{
		mem:      mem,
		objects:  objects,
		notifier: notifier,
		manager:  NewManager(mem.Stores(), objects, notifier),
	}
}

func (f *fixture) seedInvoice(t *testing.T, userID string) *recordstore.Invoice {
	t.Helper()
	inv, err := f.mem.CreateInvoice(context.Background(), &recordstore.Invoice{
		UserID:  userID,
		IsValid: true,
	})
	require.NoError(t, err)
	return inv
}

func TestAttachStoresBlobAndUpdatesInvoice(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	inv := f.seedInvoice(t, "user-1")

	updated, err := f.manager.Attach(ctx, "user-1", inv.ID, "evidence.pdf", "application/pdf", pdfBytes)
	require.NoError(t, err)

	require.NotNil(t, updated.PDFPath)
	assert.True(t, strings.HasPrefix(*updated.PDFPath, objectstore.PDFPrefix("user-1")+inv.ID+"/"),
		"blob key is namespaced per owner and invoice")
	require.NotNil(t, updated.PDFFileName)
	assert.Equal(t, "evidence.pdf", *updated.PDFFileName)
	assert.NotNil(t, updated.PDFAttachedAt)
	assert.True(t, updated.HasPDF())

	assert.True(t, f.objects.Has(*updated.PDFPath))
	assert.GreaterOrEqual(t, f.notifier.count(), 1)
}

func TestAttachRejectsNonPDFBeforeUpload(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	inv := f.seedInvoice(t, "user-1")

	// Wrong magic is always refused, whatever the declared signals say.
	_, err := f.manager.Attach(ctx, "user-1", inv.ID, "evidence.pdf", "application/pdf", []byte("not a pdf"))
	assert.ErrorIs(t, err, ErrNotPDF)

	// Declared type and extension are checked when present.
	_, err = f.manager.Attach(ctx, "user-1", inv.ID, "evidence.pdf", "image/png", pdfBytes)
	assert.ErrorIs(t, err, ErrNotPDF)
	_, err = f.manager.Attach(ctx, "user-1", inv.ID, "evidence.docx", "application/pdf", pdfBytes)
	assert.ErrorIs(t, err, ErrNotPDF)

	// Nothing reached storage and the invoice stayed clean.
	assert.Equal(t, 0, f.objects.Len())
	got, err := f.mem.GetInvoice(ctx, "user-1", inv.ID)
	require.NoError(t, err)
	assert.False(t, got.HasPDF())
}

func TestAttachMissingDeclarationsStillPass(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	inv := f.seedInvoice(t, "user-1")

	// Browsers sometimes omit the content type; the magic carries the gate.
	_, err := f.manager.Attach(ctx, "user-1", inv.ID, "evidence.pdf", "", pdfBytes)
	assert.NoError(t, err)
}

func TestAttachRecordFailureLeavesOrphanedBlob(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	inv := f.seedInvoice(t, "user-1")

	f.mem.UpdateInvoiceErr = func(id string) error { return errors.New("record write rejected") }

	_, err := f.manager.Attach(ctx, "user-1", inv.ID, "evidence.pdf", "application/pdf", pdfBytes)
	require.Error(t, err)

	// The uploaded blob is left in place, never rolled back.
	assert.Equal(t, 1, f.objects.Len())
	got, err := f.mem.GetInvoice(ctx, "user-1", inv.ID)
	require.NoError(t, err)
	assert.False(t, got.HasPDF())
}

func TestAttachUnknownInvoice(t *testing.T) {
	f := newFixture()
	_, err := f.manager.Attach(context.Background(), "user-1",
		"2e7f0d4b-5a1c-4f6e-8b9d-3c2a1e0f9b8d", "evidence.pdf", "application/pdf", pdfBytes)
	assert.ErrorIs(t, err, recordstore.ErrNotFound)
	assert.Equal(t, 0, f.objects.Len())
}

func TestDetachClearsFieldsKeepsBlob(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	inv := f.seedInvoice(t, "user-1")

	attached, err := f.manager.Attach(ctx, "user-1", inv.ID, "evidence.pdf", "application/pdf", pdfBytes)
	require.NoError(t, err)
	blobPath := *attached.PDFPath

	detached, err := f.manager.Detach(ctx, "user-1", inv.ID)
	require.NoError(t, err)
	assert.Nil(t, detached.PDFPath)
	assert.Nil(t, detached.PDFFileName)
	assert.Nil(t, detached.PDFAttachedAt)
	assert.False(t, detached.HasPDF())

	// The blob survives a detach so the action is recoverable.
	assert.True(t, f.objects.Has(blobPath))

	_, err = f.manager.Detach(ctx, "user-1", inv.ID)
	assert.ErrorIs(t, err, ErrNoPDFAttached)
}

func TestViewURLScopedToOwner(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	inv := f.seedInvoice(t, "user-1")

	attached, err := f.manager.Attach(ctx, "user-1", inv.ID, "evidence.pdf", "application/pdf", pdfBytes)
	require.NoError(t, err)

	url, err := f.manager.ViewURL(ctx, "user-1", *attached.PDFPath)
	require.NoError(t, err)
	assert.NotEmpty(t, url)

	_, err = f.manager.ViewURL(ctx, "user-2", *attached.PDFPath)
	assert.ErrorIs(t, err, ErrPathNotOwned)
}
