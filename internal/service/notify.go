package service

import (
	"Go_Share/internal/worker"
	"Go_Share/model"
	"Go_Share/utils"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log"
	"net/url"
	"strings"

	"github.com/dustin/go-humanize"
)

type NotificationStore interface {
	Create(ctx context.Context, n *model.Notification) error
}

// MailSender delivers an HTML mail; utils.SendMail in production.
type MailSender func(cfg utils.SMTPConfig, to, subject, html string) error

// NotificationService stores owner notifications and mails a copy when SMTP is set up.
type NotificationService struct {
	store   NotificationStore
	smtp    utils.SMTPConfig
	send    MailSender
	baseURL string
	slots   chan struct{}
}

const mailSlots = 4

func NewNotificationService(store NotificationStore, smtp utils.SMTPConfig, send MailSender, baseURL string) *NotificationService {
	return &NotificationService{
		store:   store,
		smtp:    smtp,
		send:    send,
		baseURL: strings.TrimRight(baseURL, "/"),
		slots:   make(chan struct{}, mailSlots),
	}
}

type uploadNoticeMetadata struct {
	ShareToken string `json:"shareToken"`
	Filename   string `json:"filename"`
	Size       int64  `json:"size"`
	ClientIP   string `json:"clientIP"`
}

func (s *NotificationService) NotifyUpload(ctx context.Context, notice worker.UploadNotice) error {
	if notice.Owner == nil {
		return nil
	}
	meta, err := json.Marshal(uploadNoticeMetadata{
		ShareToken: notice.ShareToken,
		Filename:   notice.FileName,
		Size:       notice.Size,
		ClientIP:   notice.ClientIP,
	})
	if err != nil {
		return err
	}
	size := humanize.Bytes(uint64(notice.Size))
	n := &model.Notification{
		UserID:   notice.Owner.ID,
		Type:     model.NotificationShareUpload,
		Title:    "New file uploaded",
		Message:  fmt.Sprintf("%s (%s) was uploaded to your share", notice.FileName, size),
		Link:     s.baseURL + "/files?path=" + url.QueryEscape(notice.FinalPath),
		Metadata: string(meta),
	}
	if err := s.store.Create(ctx, n); err != nil {
		return err
	}

	if s.send != nil && s.smtp.Enabled() && notice.Owner.Email != "" {
		body := fmt.Sprintf(`
		<h2>Hi %s</h2>
		<p><b>%s</b> (%s) was uploaded to your share.</p>
		<a href="%s">Open</a>
	`, html.EscapeString(notice.Owner.DisplayName()), html.EscapeString(notice.FileName), size, html.EscapeString(n.Link))
		s.mailAsync(notice.Owner.Email, n.Title, body)
	}
	return nil
}

// mailAsync hands the mail to a background sender. SMTP sends cannot be
// cancelled, so at most mailSlots are in flight and extra mails are dropped.
func (s *NotificationService) mailAsync(to, subject, body string) {
	select {
	case s.slots <- struct{}{}:
	default:
		log.Printf("notify: mail backlog full, dropping mail to %s", to)
		return
	}
	go func() {
		defer func() { <-s.slots }()
		if err := s.send(s.smtp, to, subject, body); err != nil {
			log.Printf("notify: mail to %s failed: %v", to, err)
		}
	}()
}
