// backend-go/internal/api/handlers/item_handler.go
package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/replenish/backend-go/internal/domain"
	"github.com/andresuchdata/replenish/backend-go/internal/service"
)

// MaxImportWarnings bounds the warnings echoed by the import endpoint.
const MaxImportWarnings = 10

type ItemHandler struct {
	catalog *service.CatalogService
}

func NewItemHandler(catalog *service.CatalogService) *ItemHandler {
	return &ItemHandler{catalog: catalog}
}

type lookupRequest struct {
	Codes []string `json:"codes" binding:"required"`
}

type matchRequest struct {
	Keys []domain.ItemKey `json:"keys" binding:"required"`
}

// GetAll returns every item with its calculation. ?recommended=true keeps
// only items with something to order.
func (h *ItemHandler) GetAll(c *gin.Context) {
	var (
		items []domain.FullItemData
		err   error
	)
	if c.Query("recommended") == "true" {
		items, err = h.catalog.Recommended(c.Request.Context())
	} else {
		items, err = h.catalog.GetAll(c.Request.Context())
	}
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *ItemHandler) Summary(c *gin.Context) {
	s, err := h.catalog.Summary(c.Request.Context())
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// Lookup matches codes ignoring case and lists the codes that matched nothing.
func (h *ItemHandler) Lookup(c *gin.Context) {
	var req lookupRequest
	if !bindJSON(c, &req, false) {
		return
	}

	items, err := h.catalog.FindByCodes(c.Request.Context(), req.Codes)
	if err != nil {
		errorResponse(c, err)
		return
	}

	matched := make(map[string]struct{}, len(items))
	for _, it := range items {
		matched[strings.ToLower(it.Item.Code)] = struct{}{}
	}
	notFound := make([]string, 0)
	seen := make(map[string]struct{}, len(req.Codes))
	for _, code := range req.Codes {
		norm := strings.ToLower(strings.TrimSpace(code))
		if norm == "" {
			continue
		}
		if _, ok := seen[norm]; ok {
			continue
		}
		seen[norm] = struct{}{}
		if _, ok := matched[norm]; !ok {
			notFound = append(notFound, strings.TrimSpace(code))
		}
	}

	c.JSON(http.StatusOK, gin.H{"items": items, "not_found": notFound})
}

// Match resolves exact (precodice, code) keys.
func (h *ItemHandler) Match(c *gin.Context) {
	var req matchRequest
	if !bindJSON(c, &req, false) {
		return
	}

	items, notFound, err := h.catalog.FindByKeys(c.Request.Context(), req.Keys)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "not_found": notFound})
}

// Get returns one item with its calculation.
func (h *ItemHandler) Get(c *gin.Context) {
	item, err := h.catalog.Detail(c.Request.Context(), c.Param("id"))
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// GetByKey resolves ?precodice=&code= to one item.
func (h *ItemHandler) GetByKey(c *gin.Context) {
	key := domain.ItemKey{Precodice: c.Query("precodice"), Code: c.Query("code")}
	item, err := h.catalog.DetailByKey(c.Request.Context(), key)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// UpdatePurchasing edits supplier, lead time, constraints and stock of one item.
func (h *ItemHandler) UpdatePurchasing(c *gin.Context) {
	var patch domain.PurchasingPatch
	if !bindJSON(c, &patch, false) {
		return
	}

	item, err := h.catalog.UpdatePurchasing(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// Import ingests normalized rows.
func (h *ItemHandler) Import(c *gin.Context) {
	var rows []domain.ImportRow
	if !bindJSON(c, &rows, false) {
		return
	}

	res, err := h.catalog.Ingest(c.Request.Context(), rows)
	if err != nil {
		errorResponse(c, err)
		return
	}
	res.Warnings = boundWarnings(res.Warnings, MaxImportWarnings)
	c.JSON(http.StatusOK, res)
}

func boundWarnings(warnings []string, limit int) []string {
	if len(warnings) <= limit {
		return warnings
	}
	out := append([]string{}, warnings[:limit]...)
	return append(out, fmt.Sprintf("... and %d more warnings", len(warnings)-limit))
}
