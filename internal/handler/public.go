package handler

import (
	"Go_Share/internal/dto"
	"Go_Share/internal/service"
	"Go_Share/model"
	"Go_Share/utils"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
)

// AccessLogLister reads the per-share access log.
type AccessLogLister interface {
	ListByShare(ctx context.Context, shareID string, limit int) ([]model.ShareAccessLog, error)
}

// PublicHandler serves the token routes used by share visitors.
type PublicHandler struct {
	access *service.AccessService
	// MaxEditBytes caps the body of an edit request; 0 means unlimited.
	MaxEditBytes int64
}

func NewPublicHandler(access *service.AccessService) *PublicHandler {
	return &PublicHandler{access: access}
}

func visitorFrom(c *gin.Context) service.Visitor {
	v := service.Visitor{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Referer:   c.Request.Referer(),
	}
	password := c.GetHeader("X-Share-Password")
	if password == "" {
		password = c.Query("password")
	}
	if password != "" {
		v.Password = &password
	}
	_, v.Authenticated = utils.CurrentUserID(c)
	return v
}

func writeAccessError(c *gin.Context, prefix string, err error) {
	var denied *service.DeniedError
	if errors.As(err, &denied) {
		c.JSON(denied.Decision.HTTPStatus(), gin.H{
			"error":    denied.Decision.Message(),
			"decision": denied.Decision.String(),
		})
		return
	}
	log.Printf("share: %s: %v", prefix, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": prefix})
}

// Probe describes the share without counting an access.
func (h *PublicHandler) Probe(c *gin.Context) {
	resp, err := h.access.Probe(c.Request.Context(), c.Param("token"), visitorFrom(c))
	if err != nil {
		writeAccessError(c, "probe share failed", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Download streams the shared file, or a zip for a shared directory.
func (h *PublicHandler) Download(c *gin.Context) {
	dl, err := h.access.OpenDownload(c.Request.Context(), c.Param("token"), visitorFrom(c))
	if err != nil {
		writeAccessError(c, "download failed", err)
		return
	}

	if dl.Reader == nil {
		name := path.Base(strings.TrimSuffix(dl.Share.ResourcePath, "/"))
		if name == "" || name == "." || name == "/" {
			name = "share"
		}
		c.Header("Content-Disposition", utils.ContentDisposition(name+".zip"))
		c.Header("Content-Type", "application/zip")
		c.Status(http.StatusOK)
		if err := h.access.WriteArchive(c.Request.Context(), dl, c.Writer); err != nil {
			log.Printf("share: archive %s failed: %v", dl.Share.ResourcePath, err)
		}
		return
	}
	defer dl.Reader.Close()

	contentType := dl.Info.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Disposition", utils.ContentDisposition(dl.Info.Name))
	c.Header("Content-Type", contentType)
	c.Header("Content-Length", fmt.Sprintf("%d", dl.Info.Size))
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, dl.Reader); err != nil {
		log.Printf("share: download %s interrupted: %v", dl.Share.ResourcePath, err)
	}
}

// Edit overwrites the content of an editable edit share with the request body.
func (h *PublicHandler) Edit(c *gin.Context) {
	body := io.Reader(c.Request.Body)
	if h.MaxEditBytes > 0 {
		if c.Request.ContentLength > h.MaxEditBytes {
			utils.Fail(c, http.StatusRequestEntityTooLarge, "content too large")
			return
		}
		body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxEditBytes)
	}
	n, err := h.access.Edit(c.Request.Context(), c.Param("token"), visitorFrom(c), body, c.Request.ContentLength)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.Fail(c, http.StatusRequestEntityTooLarge, "content too large")
			return
		}
		writeAccessError(c, "edit failed", err)
		return
	}
	c.JSON(http.StatusOK, dto.EditResponse{Size: n})
}
