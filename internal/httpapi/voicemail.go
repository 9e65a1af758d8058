package httpapi

import (
	"errors"
	"net/http"

	"callbridge/internal/voicemail"

	"github.com/gin-gonic/gin"
)

func (h Handlers) ListVoicemails(c *gin.Context) {
	uid, ok := identity(c)
	if !ok {
		return
	}
	vms, err := h.Voicemails.List(c.Request.Context(), uid, limitParam(c, 50))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	if vms == nil {
		vms = []voicemail.Voicemail{}
	}
	c.JSON(http.StatusOK, gin.H{"voicemails": vms})
}

func (h Handlers) MarkVoicemailRead(c *gin.Context) {
	uid, ok := identity(c)
	if !ok {
		return
	}
	id := c.Param("id")
	if id == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "voicemail id required"})
		return
	}

	err := h.Voicemails.MarkRead(c.Request.Context(), uid, id)
	switch {
	case errors.Is(err, voicemail.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "voicemail not found"})
	case err != nil:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
	default:
		c.JSON(http.StatusOK, gin.H{"status": "read"})
	}
}

func (h Handlers) DeleteVoicemail(c *gin.Context) {
	uid, ok := identity(c)
	if !ok {
		return
	}
	id := c.Param("id")
	if id == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "voicemail id required"})
		return
	}

	err := h.Voicemails.Delete(c.Request.Context(), uid, id)
	switch {
	case errors.Is(err, voicemail.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "voicemail not found"})
	case err != nil:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
	default:
		c.JSON(http.StatusOK, gin.H{"status": "deleted"})
	}
}
