package handler

import (
	"Go_Share/internal/dto"
	"Go_Share/internal/repo"
	"Go_Share/internal/service"
	"Go_Share/utils"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// ShareHandler serves the owner endpoints.
type ShareHandler struct {
	shares  *service.ShareService
	logs    AccessLogLister
	baseURL string
}

func NewShareHandler(shares *service.ShareService, logs AccessLogLister, baseURL string) *ShareHandler {
	return &ShareHandler{shares: shares, logs: logs, baseURL: strings.TrimRight(baseURL, "/")}
}

func (h *ShareHandler) shareURL(token string) string {
	return h.baseURL + "/api/s/" + token
}

// Create creates a share link.
func (h *ShareHandler) Create(c *gin.Context) {
	var req dto.CreateShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	userID := c.MustGet("user_id").(uint64)
	share, err := h.shares.CreateShare(c.Request.Context(), userID, req)
	if err != nil {
		writeShareError(c, "create share failed", err)
		return
	}
	c.JSON(http.StatusCreated, dto.ShareResponse{
		ShareRecord: share,
		HasPassword: share.HasPassword(),
		URL:         h.shareURL(share.Token),
	})
}

// List returns the current user's shares.
func (h *ShareHandler) List(c *gin.Context) {
	var req dto.ListSharesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	userID := c.MustGet("user_id").(uint64)
	shares, total, err := h.shares.ListShares(c.Request.Context(), userID, req.Page, req.PageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list shares failed: " + err.Error()})
		return
	}
	items := make([]dto.ShareResponse, 0, len(shares))
	for i := range shares {
		share := &shares[i]
		items = append(items, dto.ShareResponse{
			ShareRecord: share,
			HasPassword: share.HasPassword(),
			URL:         h.shareURL(share.Token),
		})
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": total})
}

func (h *ShareHandler) Deactivate(c *gin.Context) {
	userID := c.MustGet("user_id").(uint64)
	if err := h.shares.Deactivate(c.Request.Context(), userID, c.Param("id")); err != nil {
		writeShareError(c, "deactivate share failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "success"})
}

func (h *ShareHandler) Delete(c *gin.Context) {
	userID := c.MustGet("user_id").(uint64)
	if err := h.shares.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		writeShareError(c, "delete share failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "success"})
}

// AccessLogs returns recent access log rows of one share.
func (h *ShareHandler) AccessLogs(c *gin.Context) {
	userID := c.MustGet("user_id").(uint64)
	shareID := c.Param("id")
	if _, err := h.shares.Owned(c.Request.Context(), userID, shareID); err != nil {
		writeShareError(c, "list share access logs failed", err)
		return
	}
	limit := parsePositiveInt(c.Query("limit"), 50)
	items, err := h.logs.ListByShare(c.Request.Context(), shareID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list share access logs failed: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func writeShareError(c *gin.Context, prefix string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidShare):
		utils.Fail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, repo.ErrShareNotFound):
		utils.Fail(c, http.StatusNotFound, "share not found")
	case errors.Is(err, service.ErrForbidden):
		utils.Fail(c, http.StatusForbidden, "permission denied")
	default:
		utils.Fail(c, http.StatusInternalServerError, prefix+": "+err.Error())
	}
}

func parsePositiveInt(raw string, fallback int) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
