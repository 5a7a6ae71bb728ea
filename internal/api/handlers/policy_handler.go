// backend-go/internal/api/handlers/policy_handler.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/replenish/backend-go/internal/domain"
	"github.com/andresuchdata/replenish/backend-go/internal/service"
)

type PolicyHandler struct {
	policies *service.PolicyService
}

func NewPolicyHandler(policies *service.PolicyService) *PolicyHandler {
	return &PolicyHandler{policies: policies}
}

func (h *PolicyHandler) List(c *gin.Context) {
	list, err := h.policies.List(c.Request.Context())
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *PolicyHandler) GetActive(c *gin.Context) {
	p, err := h.policies.GetActive(c.Request.Context())
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *PolicyHandler) Get(c *gin.Context) {
	p, err := h.policies.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Create stores a new inactive policy.
func (h *PolicyHandler) Create(c *gin.Context) {
	var req domain.PolicyParams
	if !bindJSON(c, &req, false) {
		return
	}
	p, err := h.policies.Save(c.Request.Context(), req)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *PolicyHandler) Update(c *gin.Context) {
	var req domain.PolicyParams
	if !bindJSON(c, &req, false) {
		return
	}
	req.ID = c.Param("id")

	p, err := h.policies.Update(c.Request.Context(), req)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *PolicyHandler) Activate(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	if err := h.policies.SetActive(ctx, id); err != nil {
		errorResponse(c, err)
		return
	}
	p, err := h.policies.Get(ctx, id)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
