package http

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"weatherguard/internal/cache"
	"weatherguard/internal/domain"
	"weatherguard/internal/service"
)

var allowedAvatarExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// AccountHandler serves the account screen. A fresh ProfileEditor is built
// for every request from the caller's session.
type AccountHandler struct {
	logger         *zap.Logger
	deps           service.ProfileEditorDeps
	display        cache.Provider
	maxUploadBytes int64
}

func NewAccountHandler(logger *zap.Logger, deps service.ProfileEditorDeps, display cache.Provider, maxUploadBytes int64) *AccountHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 10 << 20
	}
	return &AccountHandler{
		logger:         logger,
		deps:           deps,
		display:        display,
		maxUploadBytes: maxUploadBytes,
	}
}

func (h *AccountHandler) editor(session domain.Session, picker service.MediaPicker) *service.ProfileEditor {
	deps := h.deps
	deps.Picker = picker
	if h.display != nil {
		deps.Display = h.display.ForUser(session.UserID)
	}
	return service.NewProfileEditor(h.logger, session, deps)
}

// GetProfile handles GET /account/profile.
func (h *AccountHandler) GetProfile(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	editor := h.editor(session, nil)
	err := editor.LoadProfile(c.Request.Context())
	var silent *service.SilentError
	if err != nil && !errors.As(err, &silent) {
		h.logger.Error("load profile failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load profile"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": editor.View(), "degraded": silent != nil})
}

// UpdateProfile handles PUT /account/profile. It walks the editor through
// load, edit and save in one request.
func (h *AccountHandler) UpdateProfile(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var req struct {
		DisplayName *string `json:"display_name"`
		PhoneNumber *string `json:"phone_number"`
		Birthdate   *string `json:"birthdate"`
		AvatarURL   *string `json:"avatar_url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid update profile request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if req.AvatarURL != nil && service.IsLocalURI(*req.AvatarURL) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "upload avatars through /account/avatar"})
		return
	}

	ctx := c.Request.Context()
	editor := h.editor(session, nil)
	if err := editor.LoadProfile(ctx); err != nil {
		// Saving on top of placeholders would overwrite the stored record.
		h.logger.Warn("update profile without loaded record", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "profile unavailable"})
		return
	}
	editor.BeginEdit()
	if err := editor.Stage(service.ProfileEdits{
		DisplayName: req.DisplayName,
		PhoneNumber: req.PhoneNumber,
		Birthdate:   req.Birthdate,
		AvatarRef:   req.AvatarURL,
	}); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	out, err := editor.SaveChanges(ctx)
	if err != nil {
		h.writeActionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": editor.View(), "notice": out.Notice})
}

// UploadAvatar handles POST /account/avatar with a multipart "file" field.
func (h *AccountHandler) UploadAvatar(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedAvatarExts[ext] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "only .jpg, .jpeg and .png files are allowed"})
		return
	}
	if file.Size > h.maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}

	tmp, err := os.CreateTemp("", "avatar-*"+ext)
	if err != nil {
		h.logger.Error("create upload temp file", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store upload"})
		return
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)
	if err := tmp.Close(); err != nil {
		h.logger.Error("close upload temp file", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store upload"})
		return
	}

	if err := c.SaveUploadedFile(file, tmpPath); err != nil {
		h.logger.Error("save uploaded avatar", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store upload"})
		return
	}

	editor := h.editor(session, uploadPicker{uri: "file://" + filepath.ToSlash(tmpPath)})
	if err := editor.LoadProfile(c.Request.Context()); err != nil {
		h.logger.Warn("load profile before avatar upload", zap.Error(err))
	}
	out, err := editor.PickAvatar(c.Request.Context())
	if err != nil {
		h.writeActionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": editor.View(), "notice": out.Notice})
}

// DeleteAccount handles DELETE /account?confirm=true. Every session of the
// user ends with the identity, this one included.
func (h *AccountHandler) DeleteAccount(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	confirmed := c.Query("confirm") == "true"
	confirmer := service.ConfirmerFunc(func(context.Context, string, string) (bool, error) {
		return confirmed, nil
	})

	out, err := h.editor(session, nil).DeleteAccount(c.Request.Context(), confirmer)
	if err != nil {
		if errors.Is(err, service.ErrDeletionCancelled) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "confirmation required"})
			return
		}
		h.writeActionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notice": out.Notice, "route": out.Route})
}

func (h *AccountHandler) writeActionError(c *gin.Context, err error) {
	if notice, ok := service.NoticeFor(err); ok {
		c.JSON(http.StatusBadGateway, gin.H{"error": notice.Message, "notice": notice})
		return
	}
	h.logger.Error("account action failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

// uploadPicker hands the editor an image the client already uploaded.
type uploadPicker struct {
	uri string
}

func (p uploadPicker) PickImage(context.Context, service.ImageConstraints) (service.PickedImage, error) {
	return service.PickedImage{URI: p.uri}, nil
}
