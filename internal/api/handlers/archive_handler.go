// backend-go/internal/api/handlers/archive_handler.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/replenish/backend-go/internal/service"
)

type ArchiveHandler struct {
	archive *service.ArchiveService
	exports *service.ExportService
}

func NewArchiveHandler(archive *service.ArchiveService, exports *service.ExportService) *ArchiveHandler {
	return &ArchiveHandler{archive: archive, exports: exports}
}

// List returns archived proposals most recent first, filtered by ?code=.
func (h *ArchiveHandler) List(c *gin.Context) {
	list, err := h.archive.SearchByCode(c.Request.Context(), c.Query("code"))
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *ArchiveHandler) Get(c *gin.Context) {
	p, err := h.archive.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *ArchiveHandler) Export(c *gin.Context) {
	wb, err := h.exports.ArchiveWorkbook(c.Request.Context(), c.Param("id"))
	if err != nil {
		errorResponse(c, err)
		return
	}
	sendWorkbook(c, wb)
}
