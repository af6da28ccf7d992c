package handlers

import (
	"net/http"
	"strings"

	"github.com/andresuchdata/grocerystock/internal/domain"
	"github.com/andresuchdata/grocerystock/internal/service"
	"github.com/gin-gonic/gin"
)

type InventoryHandler struct {
	service *service.InventoryService
}

func NewInventoryHandler(service *service.InventoryService) *InventoryHandler {
	return &InventoryHandler{service: service}
}

// CreateEntry records one stock count from the entry form.
func (h *InventoryHandler) CreateEntry(c *gin.Context) {
	var form domain.EntryForm
	if err := c.ShouldBindJSON(&form); err != nil {
		badRequest(c, err)
		return
	}

	item, entry, err := h.service.RecordEntry(c.Request.Context(), form)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"item":    item,
		"entry":   entry,
		"message": "stock entry saved",
	})
}

func (h *InventoryHandler) GetCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": h.service.Categories()})
}

func (h *InventoryHandler) GetSummary(c *gin.Context) {
	filter := domain.SummaryFilter{Category: strings.TrimSpace(c.Query("category"))}
	summaries, err := h.service.Summary(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summaries)
}

func (h *InventoryHandler) GetItems(c *gin.Context) {
	items, err := h.service.ListItems(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if items == nil {
		items = make([]domain.Item, 0)
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}
