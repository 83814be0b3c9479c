package service

import (
	"Go_Share/internal/dto"
	"Go_Share/internal/repo"
	"Go_Share/internal/storage"
	"Go_Share/model"
	"Go_Share/utils"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSharedTree(t *testing.T) *storage.LocalSource {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "inbox"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "docs", "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "docs", "a.txt"), []byte("alpha"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "docs", "sub", "b.txt"), []byte("beta"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.md"), []byte("# notes"), 0o644))
	return storage.NewLocalSource(root)
}

func newShareService(t *testing.T) (*ShareService, *repo.MemoryShareStore) {
	t.Helper()
	store := repo.NewMemoryShareStore()
	svc := NewShareService(store, storage.NewRouter(newSharedTree(t), nil))
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return svc, store
}

func TestCreateShareValidation(t *testing.T) {
	svc, _ := newShareService(t)
	past := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		req  dto.CreateShareRequest
	}{
		{"unknown type", dto.CreateShareRequest{ResourcePath: "docs", Type: "mirror"}},
		{"missing resource", dto.CreateShareRequest{ResourcePath: "nope", Type: "download"}},
		{"upload to file", dto.CreateShareRequest{ResourcePath: "notes.md", Type: "upload"}},
		{"upload to object storage", dto.CreateShareRequest{ResourcePath: "minio://bucket/inbox", Type: "upload"}},
		{"edit a directory", dto.CreateShareRequest{ResourcePath: "docs", Type: "edit"}},
		{"limits on download", dto.CreateShareRequest{ResourcePath: "docs", Type: "download", MaxTotalSizeBytes: 10}},
		{"editable download", dto.CreateShareRequest{ResourcePath: "docs", Type: "download", Editable: true}},
		{"bad extension", dto.CreateShareRequest{ResourcePath: "inbox", Type: "upload", AllowedExtensions: []string{"pdf", "tar.gz"}}},
		{"expiry in the past", dto.CreateShareRequest{ResourcePath: "docs", Type: "download", ExpiresAt: &past}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateShare(context.Background(), 1, tc.req)
			assert.ErrorIs(t, err, ErrInvalidShare)
		})
	}
}

func TestCreateUploadShare(t *testing.T) {
	svc, store := newShareService(t)

	share, err := svc.CreateShare(context.Background(), 9, dto.CreateShareRequest{
		ResourcePath:      "/inbox/",
		Type:              "UPLOAD",
		Password:          "hunter2",
		ExpireDays:        3,
		MaxFileSizeBytes:  1 << 20,
		MaxTotalSizeBytes: 10 << 20,
		AllowedExtensions: []string{".PDF", "docx", "pdf"},
	})
	require.NoError(t, err)

	assert.Equal(t, "inbox", share.ResourcePath)
	assert.Equal(t, model.ShareTypeUpload, share.Type)
	assert.True(t, share.IsActive)
	assert.NotEmpty(t, share.Token)
	assert.Equal(t, model.ExtensionSet{"docx", "pdf"}, share.AllowedExtensions)
	require.NotNil(t, share.ExpiresAt)
	assert.Equal(t, svc.now().Add(72*time.Hour), *share.ExpiresAt)
	assert.NotEqual(t, "hunter2", share.PasswordHash)
	assert.True(t, utils.CheckPwd("hunter2", share.PasswordHash))

	stored, err := store.GetByToken(context.Background(), share.Token)
	require.NoError(t, err)
	assert.Equal(t, share.ID, stored.ID)
}

func TestCreateShareExpiresAtWins(t *testing.T) {
	svc, _ := newShareService(t)
	at := svc.now().Add(time.Hour)

	share, err := svc.CreateShare(context.Background(), 1, dto.CreateShareRequest{
		ResourcePath: "docs/a.txt",
		Type:         "edit",
		Editable:     true,
		ExpiresAt:    &at,
		ExpireDays:   30,
	})
	require.NoError(t, err)
	require.NotNil(t, share.ExpiresAt)
	assert.Equal(t, at, *share.ExpiresAt)
	assert.True(t, share.Editable)
}

func TestTokensAreUnique(t *testing.T) {
	svc, _ := newShareService(t)
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		share, err := svc.CreateShare(context.Background(), 1, dto.CreateShareRequest{ResourcePath: "docs", Type: "download"})
		require.NoError(t, err)
		assert.False(t, seen[share.Token])
		seen[share.Token] = true
	}
}

func TestListSharesPaginates(t *testing.T) {
	svc, store := newShareService(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Create(context.Background(), &model.ShareRecord{
			ID:        string(rune('a' + i)),
			Token:     "tok" + string(rune('a'+i)),
			OwnerID:   1,
			Type:      model.ShareTypeDownload,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}
	require.NoError(t, store.Create(context.Background(), &model.ShareRecord{ID: "other", Token: "x", OwnerID: 2}))

	page, total, err := svc.ListShares(context.Background(), 1, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, page, 2)
	assert.Equal(t, "c", page[0].ID)
	assert.Equal(t, "b", page[1].ID)

	page, _, err = svc.ListShares(context.Background(), 1, 9, 2)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestOwnerOnlyMutations(t *testing.T) {
	svc, store := newShareService(t)
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, &model.ShareRecord{ID: "s1", Token: "tok", OwnerID: 1, Type: model.ShareTypeDownload, IsActive: true}))

	assert.ErrorIs(t, svc.Deactivate(ctx, 2, "s1"), ErrForbidden)
	assert.ErrorIs(t, svc.Delete(ctx, 2, "s1"), ErrForbidden)
	assert.ErrorIs(t, svc.Deactivate(ctx, 1, "missing"), repo.ErrShareNotFound)

	require.NoError(t, svc.Deactivate(ctx, 1, "s1"))
	share, err := store.GetByID(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, share.IsActive)

	require.NoError(t, svc.Delete(ctx, 1, "s1"))
	_, err = store.GetByID(ctx, "s1")
	assert.ErrorIs(t, err, repo.ErrShareNotFound)
}
