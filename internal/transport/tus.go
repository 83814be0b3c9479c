// Package transport adapts the tus resumable-upload server to share uploads.
package transport

import (
	"Go_Share/internal/gate"
	"Go_Share/internal/mq"
	"Go_Share/internal/task"
	"Go_Share/utils"
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/tus/tusd/v2/pkg/filestore"
	tushandler "github.com/tus/tusd/v2/pkg/handler"
	"github.com/tus/tusd/v2/pkg/memorylocker"
)

// BasePath is where the tus endpoints are mounted.
const BasePath = "/api/uploads/"

// Authorizer is the upload gate seen from the transport.
type Authorizer interface {
	Authorize(ctx context.Context, req gate.UploadRequest) (map[string]string, *gate.Rejection, error)
}

type Config struct {
	StagingDir string
	JWTSecret  string
	// MaxSize caps a single upload at the protocol level; 0 leaves it to the shares.
	MaxSize int64
}

// Uploads owns the tusd handler and the bridge from finished uploads to the ingest queue.
type Uploads struct {
	cfg     Config
	gate    Authorizer
	queue   mq.Queue
	handler *tushandler.Handler
	now     func() time.Time
}

func NewUploads(cfg Config, g Authorizer, queue mq.Queue) (*Uploads, error) {
	u := &Uploads{cfg: cfg, gate: g, queue: queue, now: time.Now}

	// No concatenation: every completed session must be a whole file,
	// otherwise partial uploads would be placed and counted on their own.
	store := filestore.New(cfg.StagingDir)
	composer := tushandler.NewStoreComposer()
	composer.UseCore(store)
	composer.UseTerminater(store)
	composer.UseLengthDeferrer(store)
	memorylocker.New().UseIn(composer)

	h, err := tushandler.NewHandler(tushandler.Config{
		BasePath:                BasePath,
		StoreComposer:           composer,
		MaxSize:                 cfg.MaxSize,
		NotifyCompleteUploads:   true,
		DisableDownload:         true,
		RespectForwardedHeaders: true,
		PreUploadCreateCallback: u.PreCreate,
	})
	if err != nil {
		return nil, err
	}
	u.handler = h
	return u, nil
}

// Handler serves the tus protocol. Mount it with the BasePath prefix stripped.
func (u *Uploads) Handler() http.Handler {
	return http.StripPrefix(strings.TrimSuffix(BasePath, "/"), u.handler)
}

// PreCreate runs the upload gate before tusd allocates a session. On success
// the session metadata is replaced by the gate's rewritten metadata.
func (u *Uploads) PreCreate(hook tushandler.HookEvent) (tushandler.HTTPResponse, tushandler.FileInfoChanges, error) {
	ctx := hook.Context
	if ctx == nil {
		ctx = context.Background()
	}
	meta, rejection, err := u.gate.Authorize(ctx, u.uploadRequest(hook))
	if err != nil {
		log.Printf("tus: pre-create lookup failed: %v", err)
		return tushandler.HTTPResponse{}, tushandler.FileInfoChanges{}, rejectError(http.StatusInternalServerError, "ERR_SHARE_LOOKUP", "share lookup failed", nil)
	}
	if rejection != nil {
		return tushandler.HTTPResponse{}, tushandler.FileInfoChanges{}, rejectError(rejection.Status, "ERR_"+strings.ToUpper(string(rejection.Reason)), rejection.Message, rejection)
	}
	return tushandler.HTTPResponse{}, tushandler.FileInfoChanges{MetaData: tushandler.MetaData(meta)}, nil
}

func rejectError(status int, code, message string, payload any) tushandler.Error {
	if payload == nil {
		payload = map[string]string{"error": message}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		body = []byte(`{"error":"upload rejected"}`)
	}
	return tushandler.Error{
		ErrorCode: code,
		Message:   message,
		HTTPResponse: tushandler.HTTPResponse{
			StatusCode: status,
			Body:       string(body),
			Header:     tushandler.HTTPHeader{"Content-Type": "application/json"},
		},
	}
}

func (u *Uploads) uploadRequest(hook tushandler.HookEvent) gate.UploadRequest {
	meta := hook.Upload.MetaData
	header := hook.HTTPRequest.Header

	req := gate.UploadRequest{
		Token:        firstNonEmpty(meta[gate.MetaShareToken], meta["token"], header.Get("X-Share-Token")),
		Filename:     firstNonEmpty(meta[gate.MetaFilename], meta["name"]),
		DeclaredSize: hook.Upload.Size,
		SizeDeferred: hook.Upload.SizeIsDeferred,
		ClientIP:     ClientIP(hook.HTTPRequest),
		Now:          u.now(),
	}
	if password := firstNonEmpty(meta["password"], header.Get("X-Share-Password")); password != "" {
		req.Password = &password
	}
	if token, ok := utils.BearerToken(header.Get("Authorization")); ok {
		if _, err := utils.VerifyToken(u.cfg.JWTSecret, token); err == nil {
			req.Authenticated = true
		}
	}
	return req
}

// ClientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the peer address.
func ClientIP(r tushandler.HTTPRequest) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// CompletionEvent converts a finished tus upload into an ingest event.
func (u *Uploads) CompletionEvent(hook tushandler.HookEvent) task.CompletionEvent {
	info := hook.Upload
	staging := info.Storage["Path"]
	if staging == "" {
		staging = filepath.Join(u.cfg.StagingDir, info.ID)
	}
	meta := make(map[string]string, len(info.MetaData))
	for k, v := range info.MetaData {
		meta[k] = v
	}
	return task.CompletionEvent{
		SessionID:   info.ID,
		FinalSize:   info.Offset,
		StagingPath: staging,
		Metadata:    meta,
	}
}

// Forward publishes every completed whole upload until ctx is done.
func (u *Uploads) Forward(ctx context.Context) {
	u.forward(ctx, u.handler.CompleteUploads)
}

func (u *Uploads) forward(ctx context.Context, completed <-chan tushandler.HookEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case hook, ok := <-completed:
			if !ok {
				return
			}
			if hook.Upload.IsPartial {
				log.Printf("tus: session %s is a partial upload, not ingesting", hook.Upload.ID)
				continue
			}
			event := u.CompletionEvent(hook)
			if err := u.queue.Publish(ctx, event); err != nil {
				log.Printf("tus: enqueue session %s failed: %v", event.SessionID, err)
				continue
			}
			log.Printf("tus: session %s completed (%d bytes)", event.SessionID, event.FinalSize)
		}
	}
}
