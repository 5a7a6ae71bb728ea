// backend-go/internal/api/handlers/proposal_handler.go
package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/replenish/backend-go/internal/api/middleware"
	"github.com/andresuchdata/replenish/backend-go/internal/domain"
	"github.com/andresuchdata/replenish/backend-go/internal/export"
	"github.com/andresuchdata/replenish/backend-go/internal/proposal"
	"github.com/andresuchdata/replenish/backend-go/internal/service"
	pkgerrors "github.com/andresuchdata/replenish/backend-go/pkg/errors"
)

type ProposalHandler struct {
	proposals *service.ProposalService
	exports   *service.ExportService
}

func NewProposalHandler(proposals *service.ProposalService, exports *service.ExportService) *ProposalHandler {
	return &ProposalHandler{proposals: proposals, exports: exports}
}

type proposalView struct {
	Session    string                   `json:"session"`
	State      domain.ProposalState     `json:"state"`
	ItemsCount int                      `json:"items_count"`
	TotalQty   int                      `json:"total_qty"`
	Lines      []proposal.Line          `json:"lines"`
	Suppliers  []proposal.SupplierGroup `json:"suppliers"`
}

type generateRequest struct {
	ItemIDs []string `json:"item_ids"`
}

type qtyRequest struct {
	Qty *int `json:"qty" binding:"required"`
}

type approveRequest struct {
	Approver string `json:"approver"`
}

func newProposalView(snap service.Snapshot) proposalView {
	v := proposalView{
		Session:    snap.Session,
		State:      snap.State,
		ItemsCount: len(snap.Lines),
		Lines:      snap.Lines,
		Suppliers:  snap.Suppliers,
	}
	if v.Lines == nil {
		v.Lines = []proposal.Line{}
	}
	if v.Suppliers == nil {
		v.Suppliers = []proposal.SupplierGroup{}
	}
	for _, l := range snap.Lines {
		v.TotalQty += l.ModifiedQty
	}
	return v
}

func (h *ProposalHandler) respondView(c *gin.Context, session string) {
	c.JSON(http.StatusOK, newProposalView(h.proposals.View(session)))
}

func (h *ProposalHandler) Get(c *gin.Context) {
	h.respondView(c, middleware.SessionID(c))
}

// Generate replaces the draft. An empty selection takes every recommended item.
func (h *ProposalHandler) Generate(c *gin.Context) {
	var req generateRequest
	if !bindJSON(c, &req, true) {
		return
	}

	session := middleware.SessionID(c)
	if _, err := h.proposals.GenerateFromSelection(c.Request.Context(), session, req.ItemIDs); err != nil {
		errorResponse(c, err)
		return
	}
	h.respondView(c, session)
}

func (h *ProposalHandler) UpdateQty(c *gin.Context) {
	var req qtyRequest
	if !bindJSON(c, &req, false) {
		return
	}

	session := middleware.SessionID(c)
	h.proposals.UpdateQty(session, c.Param("itemId"), *req.Qty)
	h.respondView(c, session)
}

func (h *ProposalHandler) Remove(c *gin.Context) {
	session := middleware.SessionID(c)
	if _, err := h.proposals.Remove(session, c.Param("itemId")); err != nil {
		errorResponse(c, err)
		return
	}
	h.respondView(c, session)
}

func (h *ProposalHandler) Clear(c *gin.Context) {
	session := middleware.SessionID(c)
	h.proposals.Clear(session)
	h.respondView(c, session)
}

// Approve archives the draft and returns the archived record.
func (h *ProposalHandler) Approve(c *gin.Context) {
	var req approveRequest
	if !bindJSON(c, &req, false) {
		return
	}

	archived, err := h.proposals.Approve(c.Request.Context(), middleware.SessionID(c), req.Approver)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusCreated, archived)
}

// Export downloads the draft as an xlsx workbook.
func (h *ProposalHandler) Export(c *gin.Context) {
	wb, err := h.exports.DraftWorkbook(c.Request.Context(), middleware.SessionID(c))
	if err != nil {
		errorResponse(c, err)
		return
	}
	sendWorkbook(c, wb)
}

// Publish uploads the draft workbook to object storage.
func (h *ProposalHandler) Publish(c *gin.Context) {
	info, err := h.exports.PublishDraft(c.Request.Context(), middleware.SessionID(c))
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusCreated, info)
}

// ListPublished lists the workbooks published on ?date=YYYY-MM-DD, today by default.
func (h *ProposalHandler) ListPublished(c *gin.Context) {
	day := time.Now().UTC()
	if raw := strings.TrimSpace(c.Query("date")); raw != "" {
		parsed, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			errorResponse(c, pkgerrors.New(pkgerrors.CodeValidation, "invalid date").
				WithDetails(map[string]string{"date": "must be YYYY-MM-DD"}))
			return
		}
		day = parsed
	}

	objects, err := h.exports.ListPublished(c.Request.Context(), day)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": day.Format(time.DateOnly), "objects": objects})
}

func sendWorkbook(c *gin.Context, wb service.Workbook) {
	c.Header("Content-Disposition", `attachment; filename="`+wb.Filename+`"`)
	c.Data(http.StatusOK, export.ContentType, wb.Data)
}
