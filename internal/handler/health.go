package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/loanops/commsync/internal/service"
)

type HealthHandler struct {
	loop   *service.Loop
	cycles service.CycleStore
}

func NewHealthHandler(loop *service.Loop, cycles service.CycleStore) *HealthHandler {
	return &HealthHandler{loop: loop, cycles: cycles}
}

func (h *HealthHandler) Handle(c *gin.Context) {
	resp := gin.H{
		"status":     "ok",
		"service":    "commsync",
		"loop_state": h.loop.State().String(),
	}
	if h.cycles != nil {
		if last, err := h.cycles.LastCycle(c.Request.Context()); err == nil && last != nil {
			resp["last_cycle"] = last
		}
	}
	c.JSON(http.StatusOK, resp)
}
