package gate

import (
	"Go_Share/internal/repo"
	"Go_Share/model"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Keys of the rewritten upload session metadata.
const (
	MetaShareID    = "shareId"
	MetaDestPath   = "destPath"
	MetaFilename   = "filename"
	MetaShareToken = "shareToken"
	MetaClientIP   = "clientIP"
)

// Reason identifies why an upload session was refused.
type Reason string

const (
	ReasonAccess            Reason = "access_denied"
	ReasonInvalidFilename   Reason = "invalid_filename"
	ReasonSizeUnknown       Reason = "size_unknown"
	ReasonFileTooLarge      Reason = "file_too_large"
	ReasonBudgetExceeded    Reason = "budget_exceeded"
	ReasonExtensionRejected Reason = "extension_not_allowed"
	ReasonInvalidDest       Reason = "invalid_destination"
)

// Rejection is a structured refusal the transport renders to the client.
type Rejection struct {
	Status            int      `json:"-"`
	Reason            Reason   `json:"reason"`
	Decision          Decision `json:"-"`
	Message           string   `json:"error"`
	RemainingBytes    *int64   `json:"remaining_bytes,omitempty"`
	MaxFileSize       int64    `json:"max_file_size,omitempty"`
	AllowedExtensions []string `json:"allowed_extensions,omitempty"`

	kind error
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("upload rejected (%s): %s", r.Reason, r.Message)
}

// Unwrap exposes ErrValidation or ErrPolicy.
func (r *Rejection) Unwrap() error {
	return r.kind
}

// UploadRequest is what the transport knows when a session is opened.
type UploadRequest struct {
	Token         string
	Filename      string
	DeclaredSize  int64
	SizeDeferred  bool
	Password      *string
	Authenticated bool
	ClientIP      string
	Now           time.Time
}

// DestResolver maps a share resource path to an absolute local directory.
type DestResolver func(resourcePath string) (string, error)

// UploadGate specializes AccessGate for upload shares.
type UploadGate struct {
	store   repo.ShareStore
	access  *AccessGate
	resolve DestResolver
}

func NewUploadGate(store repo.ShareStore, access *AccessGate, resolve DestResolver) *UploadGate {
	return &UploadGate{store: store, access: access, resolve: resolve}
}

// Authorize looks up the share by token and validates a new session.
// A non-nil error means the lookup itself failed.
func (g *UploadGate) Authorize(ctx context.Context, req UploadRequest) (map[string]string, *Rejection, error) {
	if strings.TrimSpace(req.Token) == "" {
		return nil, &Rejection{
			Status:   http.StatusBadRequest,
			Reason:   ReasonAccess,
			Decision: NotFound,
			Message:  "share token is required",
			kind:     ErrValidation,
		}, nil
	}
	share, err := g.store.GetByToken(ctx, req.Token)
	if err != nil && !errors.Is(err, repo.ErrShareNotFound) {
		return nil, nil, err
	}
	meta, rej := g.Check(share, req)
	return meta, rej, nil
}

// Check validates req against share. It reads TotalUploadedBytes without
// reserving anything, so concurrent sessions may overshoot the budget.
func (g *UploadGate) Check(share *model.ShareRecord, req UploadRequest) (map[string]string, *Rejection) {
	decision := g.access.Evaluate(share, Request{
		Operation:     OpUpload,
		Now:           req.Now,
		Password:      req.Password,
		Authenticated: req.Authenticated,
	})
	if decision != Allowed {
		return nil, &Rejection{
			Status:   uploadStatus(decision),
			Reason:   ReasonAccess,
			Decision: decision,
			Message:  decision.Message(),
			kind:     ErrPolicy,
		}
	}

	if err := ValidateFilename(req.Filename); err != nil {
		return nil, &Rejection{
			Status:  http.StatusBadRequest,
			Reason:  ReasonInvalidFilename,
			Message: strings.TrimPrefix(err.Error(), ErrValidation.Error()+": "),
			kind:    ErrValidation,
		}
	}

	if req.SizeDeferred && (share.MaxFileSizeBytes > 0 || share.MaxTotalSizeBytes > 0) {
		return nil, &Rejection{
			Status:  http.StatusBadRequest,
			Reason:  ReasonSizeUnknown,
			Message: "upload size must be declared for this share",
			kind:    ErrPolicy,
		}
	}

	if share.MaxFileSizeBytes > 0 && req.DeclaredSize > share.MaxFileSizeBytes {
		return nil, &Rejection{
			Status:      http.StatusRequestEntityTooLarge,
			Reason:      ReasonFileTooLarge,
			Message:     fmt.Sprintf("file size %d bytes exceeds the limit of %d bytes", req.DeclaredSize, share.MaxFileSizeBytes),
			MaxFileSize: share.MaxFileSizeBytes,
			kind:        ErrPolicy,
		}
	}

	if share.MaxTotalSizeBytes > 0 && share.TotalUploadedBytes+req.DeclaredSize > share.MaxTotalSizeBytes {
		remaining := share.RemainingBytes()
		return nil, &Rejection{
			Status:         http.StatusRequestEntityTooLarge,
			Reason:         ReasonBudgetExceeded,
			Message:        fmt.Sprintf("file size %d bytes exceeds the remaining share capacity of %d bytes", req.DeclaredSize, remaining),
			RemainingBytes: &remaining,
			kind:           ErrPolicy,
		}
	}

	if len(share.AllowedExtensions) > 0 {
		ext := ExtensionOf(req.Filename)
		if !share.AllowedExtensions.Contains(ext) {
			allowed := append([]string(nil), share.AllowedExtensions...)
			return nil, &Rejection{
				Status:            http.StatusBadRequest,
				Reason:            ReasonExtensionRejected,
				Message:           fmt.Sprintf("file type %q is not allowed, allowed types: %s", ext, strings.Join(allowed, ", ")),
				AllowedExtensions: allowed,
				kind:              ErrPolicy,
			}
		}
	}

	dest := share.ResourcePath
	if g.resolve != nil {
		resolved, err := g.resolve(share.ResourcePath)
		if err != nil {
			return nil, &Rejection{
				Status:  http.StatusBadRequest,
				Reason:  ReasonInvalidDest,
				Message: "share destination is not available",
				kind:    ErrPolicy,
			}
		}
		dest = resolved
	}

	return map[string]string{
		MetaShareID:    share.ID,
		MetaDestPath:   dest,
		MetaFilename:   req.Filename,
		MetaShareToken: share.Token,
		MetaClientIP:   req.ClientIP,
	}, nil
}

// uploadStatus maps access decisions onto the pre-create hook status codes.
func uploadStatus(d Decision) int {
	switch d {
	case NotFound:
		return http.StatusNotFound
	case Inactive, Expired, QuotaExceeded:
		return http.StatusGone
	default:
		return http.StatusBadRequest
	}
}
