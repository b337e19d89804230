package files

import (
	"context"
	"errors"
	"sync"
	"testing"

	"InvoiceDesk/internal/objectstore"
	"InvoiceDesk/internal/recordstore"

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

type fixture struct {
	mem      *recordstore.MemStores
	objects  *objectstore.MemStore
	cache    *Cache
	notifier *recordingNotifier
	coord    *Coordinator
}

func newFixture() *fixture {
	mem := recordstore.NewMemStores()
	objects := objectstore.NewMemStore()
	cache := NewCache(objects)
	notifier := &recordingNotifier{}
	return &fixture{
		mem:      mem,
		objects:  objects,
		cache:    cache,
		notifier: notifier,
		coord:    NewCoordinator(mem.Stores(), objects, cache, notifier),
	}
}

// seedUpload stores a file object plus one job with n invoices against it.
func (f *fixture) seedUpload(t *testing.T, userID, sourcePath string, n int) *recordstore.UploadJob {
	t.Helper()
	ctx := context.Background()

	_, err := f.objects.Upload(ctx, sourcePath, []byte("csv bytes"), "text/csv", nil)
	require.NoError(t, err)

	job, err := f.mem.CreateJob(ctx, &recordstore.UploadJob{
		UserID:     userID,
		FileName:   "invoices.csv",
		FileType:   recordstore.FileTypeCSV,
		Status:     recordstore.JobProcessing,
		SourcePath: sourcePath,
	})
	require.NoError(t, err)

	for i := 0; i < n; i++ {
		_, err := f.mem.CreateInvoice(ctx, &recordstore.Invoice{
			UserID:      userID,
			UploadJobID: job.ID,
			IsValid:     true,
		})
		require.NoError(t, err)
	}
	return job
}

func TestDeleteFileRemovesEverything(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	job := f.seedUpload(t, "user-1", "invoices/user-1/1_invoices.csv", 4)

	result, err := f.coord.DeleteFile(ctx, "user-1", "invoices/user-1/1_invoices.csv")
	require.NoError(t, err)
	assert.Equal(t, 1, result.JobsDeleted)
	assert.Equal(t, 4, result.InvoicesDeleted)

	_, err = f.mem.GetJob(ctx, "user-1", job.ID)
	assert.ErrorIs(t, err, recordstore.ErrNotFound)
	assert.Equal(t, 0, f.mem.InvoiceCount())
	assert.False(t, f.objects.Has("invoices/user-1/1_invoices.csv"))
	assert.GreaterOrEqual(t, f.notifier.count(), 1)
}

func TestDeleteFileInvoiceFailureKeepsJobAndFile(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	job := f.seedUpload(t, "user-1", "invoices/user-1/1_invoices.csv", 5)

	invoices, err := f.mem.ListInvoices(ctx, "user-1", recordstore.InvoiceFilter{})
	require.NoError(t, err)
	poisoned := map[string]bool{invoices[0].ID: true, invoices[1].ID: true}
	f.mem.DeleteInvoiceErr = func(id string) error {
		if poisoned[id] {
			return errors.New("delete rejected")
		}
		return nil
	}

	_, err = f.coord.DeleteFile(ctx, "user-1", "invoices/user-1/1_invoices.csv")
	require.Error(t, err)

	var orphan *OrphanRiskError
	require.True(t, errors.As(err, &orphan))
	assert.Equal(t, 2, orphan.Failed)
	assert.Equal(t, 5, orphan.Total)
	assert.Equal(t, "failed to delete 2 of 5 invoices", orphan.Error())

	// The job and the stored file survive so nothing is orphaned.
	_, err = f.mem.GetJob(ctx, "user-1", job.ID)
	assert.NoError(t, err)
	assert.True(t, f.objects.Has("invoices/user-1/1_invoices.csv"))
}

func TestDeleteFileJobDeleteFailureKeepsStorageObject(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.seedUpload(t, "user-1", "invoices/user-1/1_invoices.csv", 2)

	f.mem.DeleteJobErr = func(id string) error { return errors.New("job delete rejected") }

	_, err := f.coord.DeleteFile(ctx, "user-1", "invoices/user-1/1_invoices.csv")
	require.Error(t, err)
	assert.True(t, f.objects.Has("invoices/user-1/1_invoices.csv"))
}

func TestDeleteFileWithNoJobsStillRemovesObject(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, err := f.objects.Upload(ctx, "invoices/user-1/orphan.csv", []byte("x"), "text/csv", nil)
	require.NoError(t, err)

	result, err := f.coord.DeleteFile(ctx, "user-1", "invoices/user-1/orphan.csv")
	require.NoError(t, err)
	assert.Equal(t, 0, result.JobsDeleted)
	assert.False(t, f.objects.Has("invoices/user-1/orphan.csv"))
}

func TestDeleteFileScopedToOwner(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.seedUpload(t, "user-2", "invoices/user-2/1_invoices.csv", 3)

	// user-1 cannot reach into user-2's namespace at all.
	_, err := f.coord.DeleteFile(ctx, "user-1", "invoices/user-2/1_invoices.csv")
	assert.ErrorIs(t, err, ErrPathNotOwned)
	assert.Equal(t, 3, f.mem.InvoiceCount(), "another user's invoices stay put")
	assert.Equal(t, 1, f.mem.JobCount())
	assert.True(t, f.objects.Has("invoices/user-2/1_invoices.csv"))
}

func TestCacheInvalidateForcesRefresh(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.objects.Upload(ctx, objectstore.InvoiceFilePrefix("user-1")+"a.csv", []byte("x"), "text/csv", nil)
	require.NoError(t, err)

	files, err := f.cache.List(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, files, 1)

	// A second object does not appear until the cache is invalidated.
	_, err = f.objects.Upload(ctx, objectstore.InvoiceFilePrefix("user-1")+"b.csv", []byte("y"), "text/csv", nil)
	require.NoError(t, err)

	files, err = f.cache.List(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, files, 1)

	f.cache.Invalidate("user-1")
	files, err = f.cache.List(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestDeleteFileInvalidatesCache(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.seedUpload(t, "user-1", objectstore.InvoiceFilePrefix("user-1")+"1_invoices.csv", 1)

	files, err := f.cache.List(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, files, 1)

	_, err = f.coord.DeleteFile(ctx, "user-1", objectstore.InvoiceFilePrefix("user-1")+"1_invoices.csv")
	require.NoError(t, err)

	files, err = f.cache.List(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, files)
}
