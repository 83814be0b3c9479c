package worker

import (
	"Go_Share/internal/gate"
	"Go_Share/internal/mq"
	"Go_Share/internal/placement"
	"Go_Share/internal/quota"
	"Go_Share/internal/repo"
	"Go_Share/internal/task"
	"Go_Share/model"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ownerMap map[uint64]*model.User

func (o ownerMap) GetByID(_ context.Context, id uint64) (*model.User, error) {
	if u, ok := o[id]; ok {
		return u, nil
	}
	return nil, errors.New("no such user")
}

type recordingAudit struct {
	mu      sync.Mutex
	entries []UploadAudit
}

func (a *recordingAudit) RecordUpload(_ context.Context, entry UploadAudit) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
	return nil
}

type recordingNotifier struct {
	notices []UploadNotice
	err     error
}

func (n *recordingNotifier) NotifyUpload(_ context.Context, notice UploadNotice) error {
	n.notices = append(n.notices, notice)
	return n.err
}

type panicResolver struct{}

func (panicResolver) Resolve(string, string) (string, error) { panic("boom") }

type fixture struct {
	store    *repo.MemoryShareStore
	audit    *recordingAudit
	notifier *recordingNotifier
	worker   *IngestWorker
	staging  string
	dest     string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repo.NewMemoryShareStore()
	require.NoError(t, store.Create(context.Background(), &model.ShareRecord{
		ID:           "s1",
		Token:        "tok",
		ResourcePath: "inbox",
		OwnerID:      7,
		Type:         model.ShareTypeUpload,
		IsActive:     true,
	}))
	f := &fixture{
		store:    store,
		audit:    &recordingAudit{},
		notifier: &recordingNotifier{},
		staging:  t.TempDir(),
		dest:     filepath.Join(t.TempDir(), "inbox"),
	}
	f.worker = NewIngestWorker(Deps{
		Shares:   store,
		Owners:   ownerMap{7: {ID: 7, UserName: "alice", Email: "alice@example.com"}},
		Paths:    placement.NewResolver(),
		Quota:    quota.NewAccountant(store, time.Second),
		Audit:    f.audit,
		Notifier: f.notifier,
	})
	return f
}

// stage writes a tusd-like artifact pair and returns its completion event.
func (f *fixture) stage(t *testing.T, id, filename, body string) task.CompletionEvent {
	t.Helper()
	path := filepath.Join(f.staging, id)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	require.NoError(t, os.WriteFile(path+".info", []byte(`{}`), 0o644))
	return task.CompletionEvent{
		SessionID:   id,
		FinalSize:   int64(len(body)),
		StagingPath: path,
		Metadata: map[string]string{
			gate.MetaShareID:    "s1",
			gate.MetaDestPath:   f.dest,
			gate.MetaFilename:   filename,
			gate.MetaShareToken: "tok",
			gate.MetaClientIP:   "203.0.113.9",
		},
	}
}

func TestProcessPlacesFileAndRecords(t *testing.T) {
	f := newFixture(t)
	event := f.stage(t, "u1", "report.pdf", "hello")

	require.NoError(t, f.worker.Process(context.Background(), event))

	data, err := os.ReadFile(filepath.Join(f.dest, "report.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	assert.NoFileExists(t, event.StagingPath)
	assert.NoFileExists(t, event.StagingPath+".info")

	share, err := f.store.GetByID(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), share.TotalUploadedBytes)
	assert.Equal(t, int64(1), share.UploadCount)

	require.Len(t, f.audit.entries, 1)
	entry := f.audit.entries[0]
	require.NotNil(t, entry.ActorID)
	assert.Equal(t, uint64(7), *entry.ActorID)
	assert.Equal(t, "alice", entry.ShareOwner)
	assert.Equal(t, "inbox/report.pdf", entry.ResourcePath)
	assert.Equal(t, "203.0.113.9", entry.ClientIP)

	require.Len(t, f.notifier.notices, 1)
	assert.Equal(t, "report.pdf", f.notifier.notices[0].FileName)
	assert.Equal(t, int64(5), f.notifier.notices[0].Size)
}

func TestProcessRenamesOnCollision(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.MkdirAll(f.dest, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(f.dest, "a.txt"), []byte("old"), 0o644))

	require.NoError(t, f.worker.Process(context.Background(), f.stage(t, "u1", "a.txt", "new")))
	require.NoError(t, f.worker.Process(context.Background(), f.stage(t, "u2", "a.txt", "newer")))

	old, _ := os.ReadFile(filepath.Join(f.dest, "a.txt"))
	first, _ := os.ReadFile(filepath.Join(f.dest, "a[1].txt"))
	second, _ := os.ReadFile(filepath.Join(f.dest, "a[2].txt"))
	assert.Equal(t, "old", string(old))
	assert.Equal(t, "new", string(first))
	assert.Equal(t, "newer", string(second))

	share, _ := f.store.GetByID(context.Background(), "s1")
	assert.Equal(t, int64(8), share.TotalUploadedBytes)
	assert.Equal(t, int64(2), share.UploadCount)
}

func TestProcessDropsMalformedEvent(t *testing.T) {
	f := newFixture(t)
	event := f.stage(t, "u1", "../escape.txt", "x")

	err := f.worker.Process(context.Background(), event)
	assert.ErrorIs(t, err, ErrPermanentData)
	assert.FileExists(t, event.StagingPath)
	assert.Empty(t, f.audit.entries)
}

func TestProcessMoveFailureSkipsCounters(t *testing.T) {
	f := newFixture(t)
	event := f.stage(t, "u1", "a.txt", "x")
	event.StagingPath = filepath.Join(f.staging, "gone")

	err := f.worker.Process(context.Background(), event)
	assert.ErrorIs(t, err, ErrTransientIO)

	share, _ := f.store.GetByID(context.Background(), "s1")
	assert.Zero(t, share.UploadCount)
	assert.Empty(t, f.audit.entries)
	assert.Empty(t, f.notifier.notices)
}

func TestProcessToleratesDeletedShare(t *testing.T) {
	f := newFixture(t)
	event := f.stage(t, "u1", "a.txt", "abc")
	require.NoError(t, f.store.Delete(context.Background(), "s1"))

	require.NoError(t, f.worker.Process(context.Background(), event))
	assert.FileExists(t, filepath.Join(f.dest, "a.txt"))

	require.Len(t, f.audit.entries, 1)
	assert.Nil(t, f.audit.entries[0].ActorID)
	assert.Empty(t, f.notifier.notices)
}

func TestProcessNotifyFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("smtp down")

	require.NoError(t, f.worker.Process(context.Background(), f.stage(t, "u1", "a.txt", "abc")))
	assert.Len(t, f.notifier.notices, 1)
}

func TestHandleRecoversPanic(t *testing.T) {
	f := newFixture(t)
	f.worker.deps.Paths = panicResolver{}

	assert.NotPanics(t, func() {
		f.worker.Handle(context.Background(), f.stage(t, "u1", "a.txt", "abc"))
	})
}

func TestRunDrainsQueueInOrder(t *testing.T) {
	f := newFixture(t)
	q := mq.NewChannelQueue(4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, q.Publish(ctx, f.stage(t, "u1", "a.txt", "1")))
	require.NoError(t, q.Publish(ctx, f.stage(t, "u2", "a.txt", "22")))

	done := make(chan error, 1)
	go func() { done <- f.worker.Run(ctx, q) }()

	require.Eventually(t, func() bool {
		share, err := f.store.GetByID(context.Background(), "s1")
		return err == nil && share.UploadCount == 2
	}, 2*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	first, _ := os.ReadFile(filepath.Join(f.dest, "a.txt"))
	second, _ := os.ReadFile(filepath.Join(f.dest, "a[1].txt"))
	assert.Equal(t, "1", string(first))
	assert.Equal(t, "22", string(second))
}
