package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/loanops/commsync/internal/service"
)

type SyncHandler struct {
	loop *service.Loop
}

func NewSyncHandler(loop *service.Loop) *SyncHandler {
	return &SyncHandler{loop: loop}
}

// Trigger schedules an immediate sync cycle.
func (h *SyncHandler) Trigger(c *gin.Context) {
	if err := h.loop.TriggerNow(); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "scheduled"})
}
