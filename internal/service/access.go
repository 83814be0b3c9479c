package service

import (
	"Go_Share/internal/dto"
	"Go_Share/internal/gate"
	"Go_Share/internal/repo"
	"Go_Share/internal/storage"
	"Go_Share/model"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path"
	"strings"
	"time"
)

// DeniedError carries the gate decision that refused a request.
type DeniedError struct {
	Decision gate.Decision
}

func (e *DeniedError) Error() string {
	return "share access denied: " + e.Decision.String()
}

// AccessRecorder counts satisfied requests.
type AccessRecorder interface {
	RecordAccess(ctx context.Context, shareID string) error
}

type AccessLogStore interface {
	Create(ctx context.Context, entry *model.ShareAccessLog) error
}

// Visitor is the anonymous or logged-in caller of a public share route.
type Visitor struct {
	IP            string
	UserAgent     string
	Referer       string
	Password      *string
	Authenticated bool
}

// Download is an opened share resource. Reader is nil for directories,
// which are streamed with WriteArchive.
type Download struct {
	Share  *model.ShareRecord
	Info   storage.ObjectInfo
	Reader io.ReadCloser
}

// AccessService serves the public side of shares.
type AccessService struct {
	store   repo.ShareStore
	gate    *gate.AccessGate
	quota   AccessRecorder
	source  storage.Source
	logs    AccessLogStore
	baseURL string
	now     func() time.Time
}

func NewAccessService(store repo.ShareStore, g *gate.AccessGate, quota AccessRecorder, source storage.Source, logs AccessLogStore, baseURL string) *AccessService {
	return &AccessService{
		store:   store,
		gate:    g,
		quota:   quota,
		source:  source,
		logs:    logs,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}
}

func (s *AccessService) lookup(ctx context.Context, token string) (*model.ShareRecord, error) {
	if strings.TrimSpace(token) == "" {
		return nil, nil
	}
	share, err := s.store.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repo.ErrShareNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return share, nil
}

func (s *AccessService) evaluate(ctx context.Context, token string, op gate.Operation, v Visitor) (*model.ShareRecord, error) {
	share, err := s.lookup(ctx, token)
	if err != nil {
		return nil, err
	}
	decision := s.gate.Evaluate(share, gate.Request{
		Operation:     op,
		Now:           s.now(),
		Password:      v.Password,
		Authenticated: v.Authenticated,
	})
	if decision != gate.Allowed {
		return nil, &DeniedError{Decision: decision}
	}
	return share, nil
}

func probeOperation(t model.ShareType) gate.Operation {
	switch t {
	case model.ShareTypeUpload:
		return gate.OpUpload
	case model.ShareTypeDownload, model.ShareTypeEdit:
		return gate.OpDownload
	}
	return gate.OpDownload
}

// Probe reports what the share needs without consuming an access. Missing,
// inactive, expired or exhausted shares are returned as DeniedError; login
// and password requirements are reported in the response instead.
func (s *AccessService) Probe(ctx context.Context, token string, v Visitor) (*dto.ProbeResponse, error) {
	share, err := s.lookup(ctx, token)
	if err != nil {
		return nil, err
	}
	decision := gate.NotFound
	if share != nil {
		decision = s.gate.Evaluate(share, gate.Request{
			Operation:     probeOperation(share.Type),
			Now:           s.now(),
			Password:      v.Password,
			Authenticated: v.Authenticated,
		})
	}
	switch decision {
	case gate.NotFound, gate.WrongType, gate.Inactive, gate.Expired, gate.QuotaExceeded:
		return nil, &DeniedError{Decision: decision}
	case gate.Allowed, gate.LoginRequired, gate.PasswordRequired, gate.InvalidPassword:
	}

	resp := &dto.ProbeResponse{
		Type:          share.Type,
		NeedsPassword: share.HasPassword(),
		RequireLogin:  share.RequireLogin,
		Editable:      share.Type == model.ShareTypeEdit && share.Editable,
		ExpiresAt:     share.ExpiresAt,
		Decision:      decision.String(),
	}
	if decision != gate.Allowed {
		return resp, nil
	}

	resp.Name = path.Base(strings.TrimSuffix(share.ResourcePath, "/"))
	if info, err := s.source.Stat(ctx, share.ResourcePath); err == nil {
		resp.IsDir = info.IsDir
		resp.Size = info.Size
	} else {
		log.Printf("share probe: stat %s: %v", share.ResourcePath, err)
	}
	if share.Type == model.ShareTypeUpload {
		resp.Upload = &dto.UploadLimits{
			MaxFileSizeBytes:  share.MaxFileSizeBytes,
			MaxTotalSizeBytes: share.MaxTotalSizeBytes,
			RemainingBytes:    share.RemainingBytes(),
			AllowedExtensions: append([]string{}, share.AllowedExtensions...),
			UploadURL:         s.baseURL + "/api/uploads/",
		}
	}
	return resp, nil
}

// OpenDownload runs the gate, opens the resource and counts the access.
// The caller must close Reader.
func (s *AccessService) OpenDownload(ctx context.Context, token string, v Visitor) (*Download, error) {
	share, err := s.evaluate(ctx, token, gate.OpDownload, v)
	if err != nil {
		return nil, err
	}

	info, err := s.source.Stat(ctx, share.ResourcePath)
	if err != nil {
		return nil, fmt.Errorf("stat shared resource: %w", err)
	}
	dl := &Download{Share: share, Info: info}
	if !info.IsDir {
		reader, opened, err := s.source.Open(ctx, share.ResourcePath)
		if err != nil {
			return nil, fmt.Errorf("open shared resource: %w", err)
		}
		dl.Reader = reader
		dl.Info = opened
	}

	if err := s.quota.RecordAccess(ctx, share.ID); err != nil {
		if dl.Reader != nil {
			_ = dl.Reader.Close()
		}
		return nil, err
	}
	s.logAccess(ctx, share, v)
	return dl, nil
}

// WriteArchive streams a directory resource as a zip.
func (s *AccessService) WriteArchive(ctx context.Context, dl *Download, w io.Writer) error {
	return writeZip(ctx, s.source, dl.Share.ResourcePath, w)
}

// Edit replaces the content of an editable edit share.
func (s *AccessService) Edit(ctx context.Context, token string, v Visitor, body io.Reader, size int64) (int64, error) {
	share, err := s.evaluate(ctx, token, gate.OpEdit, v)
	if err != nil {
		return 0, err
	}
	n, err := s.source.Write(ctx, share.ResourcePath, body, size)
	if err != nil {
		return 0, fmt.Errorf("write shared resource: %w", err)
	}
	if err := s.quota.RecordAccess(ctx, share.ID); err != nil {
		log.Printf("share edit: access count for %s failed: %v", share.ID, err)
	}
	return n, nil
}

func (s *AccessService) logAccess(ctx context.Context, share *model.ShareRecord, v Visitor) {
	if s.logs == nil {
		return
	}
	entry := &model.ShareAccessLog{
		ShareID:    share.ID,
		OwnerID:    share.OwnerID,
		VisitorIP:  v.IP,
		Referer:    v.Referer,
		UserAgent:  v.UserAgent,
		AccessedAt: s.now(),
	}
	if err := s.logs.Create(context.WithoutCancel(ctx), entry); err != nil {
		log.Printf("share access log: %v", err)
	}
}
