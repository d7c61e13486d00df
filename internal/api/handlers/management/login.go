package management

import (
	"errors"
	"net/http"
	"time"

	"github.com/cryovex/mcauth/internal/auth/minecraft"
	"github.com/cryovex/mcauth/internal/logging"
	sdkauth "github.com/cryovex/mcauth/sdk/auth"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

type loginRequest struct {
	NoBrowser bool `json:"no_browser"`
}

// PostLogin starts an attempt and answers 202 with its status, or 409 when one is running.
// Poll GetLogin for auth_url when the server has no browser to open.
func (h *Handler) PostLogin(c *gin.Context) {
	if h == nil || h.mgr == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "handler not initialized"})
		return
	}

	var req loginRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "invalid body"})
			return
		}
	}
	handle, err := h.mgr.Start(h.baseCtx, &sdkauth.LoginOptions{NoBrowser: req.NoBrowser})
	switch {
	case errors.Is(err, sdkauth.ErrLoginInProgress):
		body := gin.H{"status": "error", "error": "a login attempt is already in progress"}
		if current := h.mgr.Current(); current != nil {
			body["attempt"] = current.Status()
		}
		c.JSON(http.StatusConflict, body)
		return
	case err != nil:
		log.WithField("request_id", logging.GetGinRequestID(c)).Errorf("failed to start login: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "ok", "attempt": handle.Status()})
}

// GetLogin reports the running or most recent attempt.
func (h *Handler) GetLogin(c *gin.Context) {
	current := h.mgr.Current()
	if current == nil {
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "error": "no login attempt"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "attempt": current.Status()})
}

// DeleteLogin cancels the running attempt.
func (h *Handler) DeleteLogin(c *gin.Context) {
	current := h.mgr.Current()
	if !h.mgr.Cancel() {
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "error": "no login attempt in progress"})
		return
	}
	select {
	case <-current.Done():
	case <-c.Request.Context().Done():
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "attempt": current.Status()})
}

// GetSession returns the saved profile. Tokens are never included.
func (h *Handler) GetSession(c *gin.Context) {
	session, err := h.mgr.Session(c.Request.Context())
	switch {
	case errors.Is(err, minecraft.ErrNoSession):
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "error": "not logged in"})
		return
	case err != nil:
		log.WithField("request_id", logging.GetGinRequestID(c)).Errorf("failed to load session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "failed to load session"})
		return
	}
	body := gin.H{
		"status":   "ok",
		"username": session.Username,
		"uuid":     session.AccountID,
		"expired":  session.Expired(time.Now()),
	}
	if expiresAt, ok := session.ExpiresAt(); ok {
		body["expires_at"] = expiresAt
	}
	c.JSON(http.StatusOK, body)
}

// DeleteSession logs out.
func (h *Handler) DeleteSession(c *gin.Context) {
	if err := h.mgr.Logout(c.Request.Context()); err != nil {
		log.WithField("request_id", logging.GetGinRequestID(c)).Errorf("failed to delete session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "failed to delete session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
