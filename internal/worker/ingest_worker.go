package worker

import (
	"Go_Share/internal/mq"
	"Go_Share/internal/task"
	"Go_Share/model"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"
)

var (
	// ErrTransientIO covers filesystem failures while placing a file.
	ErrTransientIO = errors.New("transient io error")
	// ErrPermanentData marks events whose data can never be placed.
	ErrPermanentData = errors.New("permanent data error")
)

type ShareLookup interface {
	GetByID(ctx context.Context, id string) (*model.ShareRecord, error)
}

type OwnerDirectory interface {
	GetByID(ctx context.Context, id uint64) (*model.User, error)
}

type PathResolver interface {
	Resolve(basePath, desiredName string) (string, error)
}

type UploadRecorder interface {
	RecordUpload(ctx context.Context, shareID string, deltaBytes int64) error
}

// UploadAudit is the audit entry for one placed file.
type UploadAudit struct {
	ActorID      *uint64
	ClientIP     string
	ResourcePath string
	FileName     string
	Size         int64
	ShareToken   string
	ShareOwner   string
}

// UploadNotice tells a share owner that a file arrived.
type UploadNotice struct {
	Owner      *model.User
	ShareToken string
	FileName   string
	FinalPath  string
	Size       int64
	ClientIP   string
}

type AuditSink interface {
	RecordUpload(ctx context.Context, entry UploadAudit) error
}

type Notifier interface {
	NotifyUpload(ctx context.Context, notice UploadNotice) error
}

type Deps struct {
	Shares   ShareLookup
	Owners   OwnerDirectory
	Paths    PathResolver
	Quota    UploadRecorder
	Audit    AuditSink
	Notifier Notifier
	// Timeout bounds each side-effect call. Defaults to 5s.
	Timeout time.Duration
}

// IngestWorker moves finished uploads out of staging, one event at a time.
type IngestWorker struct {
	deps Deps
}

func NewIngestWorker(deps Deps) *IngestWorker {
	if deps.Timeout <= 0 {
		deps.Timeout = 5 * time.Second
	}
	return &IngestWorker{deps: deps}
}

// Run consumes q until ctx is done. Nothing returned by a single event stops it.
func (w *IngestWorker) Run(ctx context.Context, q mq.Queue) error {
	log.Printf("ingest worker: started")
	err := q.Consume(ctx, w.Handle)
	log.Printf("ingest worker: stopped")
	return err
}

// Handle processes one completion event and logs any failure.
func (w *IngestWorker) Handle(ctx context.Context, event task.CompletionEvent) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("ingest worker: panic on session %s: %v\n%s", event.SessionID, r, debug.Stack())
		}
	}()
	if err := w.Process(ctx, event); err != nil {
		log.Printf("ingest worker: session %s: %v", event.SessionID, err)
	}
}

// Process places the staged file and applies the bookkeeping. A returned
// error means the event was dropped; the staged artifact is left in place.
func (w *IngestWorker) Process(ctx context.Context, event task.CompletionEvent) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrPermanentData, err)
	}

	share, owner := w.lookupOwner(ctx, event.ShareID())

	destDir := event.DestPath()
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("%w: create destination %s: %v", ErrTransientIO, destDir, err)
	}
	finalPath, err := w.deps.Paths.Resolve(destDir, event.Filename())
	if err != nil {
		return fmt.Errorf("%w: resolve name: %v", ErrTransientIO, err)
	}
	if err := os.Rename(event.StagingPath, finalPath); err != nil {
		return fmt.Errorf("%w: move %s: %v", ErrTransientIO, event.StagingPath, err)
	}
	_ = os.Remove(event.StagingPath + ".info")

	if err := w.recordUpload(ctx, event.ShareID(), event.FinalSize); err != nil {
		log.Printf("ingest worker: quota update for share %s failed: %v", event.ShareID(), err)
	}

	w.emit(ctx, event, share, owner, finalPath)
	log.Printf("ingest worker: placed %s (%d bytes) for share %s", finalPath, event.FinalSize, event.ShareID())
	return nil
}

// lookupOwner returns whatever it can find; a missing share or user only
// means the audit entry has no actor.
func (w *IngestWorker) lookupOwner(ctx context.Context, shareID string) (*model.ShareRecord, *model.User) {
	if w.deps.Shares == nil {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, w.deps.Timeout)
	defer cancel()
	share, err := w.deps.Shares.GetByID(ctx, shareID)
	if err != nil {
		log.Printf("ingest worker: share %s lookup: %v", shareID, err)
		return nil, nil
	}
	if w.deps.Owners == nil {
		return share, nil
	}
	owner, err := w.deps.Owners.GetByID(ctx, share.OwnerID)
	if err != nil {
		log.Printf("ingest worker: owner %d lookup: %v", share.OwnerID, err)
		return share, nil
	}
	return share, owner
}

func (w *IngestWorker) recordUpload(ctx context.Context, shareID string, size int64) error {
	if w.deps.Quota == nil {
		return nil
	}
	return w.deps.Quota.RecordUpload(ctx, shareID, size)
}

func (w *IngestWorker) emit(ctx context.Context, event task.CompletionEvent, share *model.ShareRecord, owner *model.User, finalPath string) {
	resourcePath := finalPath
	if share != nil {
		resourcePath = filepath.ToSlash(filepath.Join(share.ResourcePath, filepath.Base(finalPath)))
	}

	if w.deps.Audit != nil {
		entry := UploadAudit{
			ClientIP:     event.ClientIP(),
			ResourcePath: resourcePath,
			FileName:     filepath.Base(finalPath),
			Size:         event.FinalSize,
			ShareToken:   event.ShareToken(),
		}
		if owner != nil {
			id := owner.ID
			entry.ActorID = &id
			entry.ShareOwner = owner.UserName
		}
		auditCtx, cancel := context.WithTimeout(ctx, w.deps.Timeout)
		if err := w.deps.Audit.RecordUpload(auditCtx, entry); err != nil {
			log.Printf("ingest worker: audit for %s failed: %v", finalPath, err)
		}
		cancel()
	}

	if w.deps.Notifier != nil && owner != nil {
		notice := UploadNotice{
			Owner:      owner,
			ShareToken: event.ShareToken(),
			FileName:   filepath.Base(finalPath),
			FinalPath:  resourcePath,
			Size:       event.FinalSize,
			ClientIP:   event.ClientIP(),
		}
		notifyCtx, cancel := context.WithTimeout(ctx, w.deps.Timeout)
		if err := w.deps.Notifier.NotifyUpload(notifyCtx, notice); err != nil {
			log.Printf("ingest worker: notify owner %d failed: %v", owner.ID, err)
		}
		cancel()
	}
}
