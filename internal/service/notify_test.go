package service

import (
	"Go_Share/internal/worker"
	"Go_Share/model"
	"Go_Share/utils"
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryNotifications struct {
	items []model.Notification
}

func (m *memoryNotifications) Create(_ context.Context, n *model.Notification) error {
	m.items = append(m.items, *n)
	return nil
}

type sentMail struct {
	to, subject, body string
}

func TestNotifyUploadStoresAndMails(t *testing.T) {
	store := &memoryNotifications{}
	sent := make(chan sentMail, 1)
	send := func(_ utils.SMTPConfig, to, subject, html string) error {
		sent <- sentMail{to, subject, html}
		return nil
	}
	smtp := utils.SMTPConfig{Host: "smtp.example.com", Port: "587", User: "bot", Pass: "pw", From: "bot@example.com"}
	svc := NewNotificationService(store, smtp, send, "https://share.example.com/")

	err := svc.NotifyUpload(context.Background(), worker.UploadNotice{
		Owner:      &model.User{ID: 3, UserName: "carol", NickName: "Carol", Email: "carol@example.com"},
		ShareToken: "tok",
		FileName:   "<b>report</b>.pdf",
		FinalPath:  "inbox/report.pdf",
		Size:       2048,
		ClientIP:   "203.0.113.5",
	})
	require.NoError(t, err)

	require.Len(t, store.items, 1)
	n := store.items[0]
	assert.Equal(t, uint64(3), n.UserID)
	assert.Equal(t, model.NotificationShareUpload, n.Type)
	assert.Contains(t, n.Message, "2.0 kB")
	assert.Equal(t, "https://share.example.com/files?path=inbox%2Freport.pdf", n.Link)

	var meta map[string]any
	require.NoError(t, json.Unmarshal([]byte(n.Metadata), &meta))
	assert.Equal(t, "tok", meta["shareToken"])
	assert.Equal(t, "203.0.113.5", meta["clientIP"])

	select {
	case mail := <-sent:
		assert.Equal(t, "carol@example.com", mail.to)
		assert.Contains(t, mail.body, "Carol")
		assert.Contains(t, mail.body, "&lt;b&gt;report&lt;/b&gt;.pdf")
	case <-time.After(2 * time.Second):
		t.Fatal("mail was never sent")
	}
}

func TestNotifyUploadDoesNotWaitForMail(t *testing.T) {
	store := &memoryNotifications{}
	release := make(chan struct{})
	defer close(release)
	send := func(utils.SMTPConfig, string, string, string) error {
		<-release
		return nil
	}
	smtp := utils.SMTPConfig{Host: "smtp.example.com", Port: "587", User: "bot", Pass: "pw", From: "bot@example.com"}
	svc := NewNotificationService(store, smtp, send, "")

	notice := worker.UploadNotice{Owner: &model.User{ID: 3, Email: "carol@example.com"}, FileName: "a.txt"}
	done := make(chan struct{})
	go func() {
		defer close(done)
		// more than mailSlots: the surplus is dropped instead of queued
		for i := 0; i < mailSlots+3; i++ {
			assert.NoError(t, svc.NotifyUpload(context.Background(), notice))
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("NotifyUpload blocked on a stalled mail sender")
	}
	assert.Len(t, store.items, mailSlots+3)
	assert.Len(t, svc.slots, mailSlots)
}

func TestNotifyUploadWithUnresponsiveSMTPServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var mu sync.Mutex
	var conns []net.Conn
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			// accept and never send the greeting
			mu.Lock()
			conns = append(conns, c)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			c.Close()
		}
	})

	_, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	smtp := utils.SMTPConfig{Host: "127.0.0.1", Port: port, User: "bot", Pass: "pw", From: "bot@example.com"}
	store := &memoryNotifications{}
	svc := NewNotificationService(store, smtp, utils.SendMail, "")

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	start := time.Now()
	err = svc.NotifyUpload(ctx, worker.UploadNotice{
		Owner:    &model.User{ID: 3, Email: "carol@example.com"},
		FileName: "a.txt",
	})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
	assert.Len(t, store.items, 1)
}

func TestNotifyUploadMailFailureIsSwallowed(t *testing.T) {
	store := &memoryNotifications{}
	send := func(utils.SMTPConfig, string, string, string) error { return errors.New("smtp down") }
	smtp := utils.SMTPConfig{Host: "smtp.example.com", Port: "587", User: "bot", Pass: "pw", From: "bot@example.com"}
	svc := NewNotificationService(store, smtp, send, "")

	err := svc.NotifyUpload(context.Background(), worker.UploadNotice{
		Owner:    &model.User{ID: 3, Email: "carol@example.com"},
		FileName: "a.txt",
	})
	require.NoError(t, err)
	assert.Len(t, store.items, 1)
}

func TestNotifyUploadWithoutSMTP(t *testing.T) {
	store := &memoryNotifications{}
	called := false
	send := func(utils.SMTPConfig, string, string, string) error {
		called = true
		return nil
	}
	svc := NewNotificationService(store, utils.SMTPConfig{}, send, "")

	require.NoError(t, svc.NotifyUpload(context.Background(), worker.UploadNotice{Owner: &model.User{ID: 1, Email: "a@example.com"}, FileName: "a"}))
	assert.False(t, called)
	assert.Len(t, store.items, 1)

	require.NoError(t, svc.NotifyUpload(context.Background(), worker.UploadNotice{FileName: "orphan"}))
	assert.Len(t, store.items, 1, "no owner, no notification")
}

type memoryAudit struct {
	entries []model.AuditLog
}

func (m *memoryAudit) Create(_ context.Context, entry *model.AuditLog) error {
	m.entries = append(m.entries, *entry)
	return nil
}

func TestAuditRecordUpload(t *testing.T) {
	store := &memoryAudit{}
	svc := NewAuditService(store)
	actor := uint64(5)

	require.NoError(t, svc.RecordUpload(context.Background(), worker.UploadAudit{
		ActorID:      &actor,
		ClientIP:     "203.0.113.5",
		ResourcePath: "inbox/a.pdf",
		FileName:     "a.pdf",
		Size:         10,
		ShareToken:   "tok",
		ShareOwner:   "dave",
	}))
	require.NoError(t, svc.RecordUpload(context.Background(), worker.UploadAudit{FileName: "b.pdf", ShareToken: "tok"}))

	require.Len(t, store.entries, 2)
	first := store.entries[0]
	assert.Equal(t, model.AuditEventFileUpload, first.EventType)
	require.NotNil(t, first.ActorID)
	assert.Equal(t, uint64(5), *first.ActorID)
	assert.Equal(t, "inbox/a.pdf", first.ResourcePath)

	var details map[string]any
	require.NoError(t, json.Unmarshal([]byte(first.Details), &details))
	assert.Equal(t, "share_upload", details["source"])
	assert.Equal(t, "dave", details["shareOwner"])
	assert.EqualValues(t, 10, details["size"])

	assert.Nil(t, store.entries[1].ActorID)
	assert.NotContains(t, store.entries[1].Details, "shareOwner")
}
