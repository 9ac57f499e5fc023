package catalog

import (
	"net/http"

	"agentsouk/internal/api"

	"github.com/gin-gonic/gin"
)

type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

// @Summary      List agents
// @Description  Lists catalog entries sorted ascending by price. Optional category filter.
// @Tags         agents
// @Produce      json
// @Security     BearerAuth
// @Param        category query string false "Category filter"
// @Success      200 {array} catalog.PriceEntry
// @Failure      401 {object} api.ErrorResponse
// @Router       /agents [get]
func (h *Handler) ListAgents(c *gin.Context) {
	if category := c.Query("category"); category != "" {
		c.JSON(http.StatusOK, ListByCategory(category))
		return
	}
	c.JSON(http.StatusOK, ListAll())
}

// @Summary      Get one agent
// @Tags         agents
// @Produce      json
// @Security     BearerAuth
// @Param        slug path string true "Agent slug"
// @Success      200 {object} catalog.PriceEntry
// @Failure      404 {object} api.ErrorResponse
// @Router       /agents/{slug} [get]
func (h *Handler) GetAgent(c *gin.Context) {
	entry, ok := GetPrice(c.Param("slug"))
	if !ok {
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Agent not found"})
		return
	}
	c.JSON(http.StatusOK, entry)
}

// @Summary      Price tiers
// @Description  Catalog partitioned into low/medium/high price bands.
// @Tags         agents
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} catalog.Tiers
// @Router       /agents/tiers [get]
func (h *Handler) GetTiers(c *gin.Context) {
	c.JSON(http.StatusOK, Tierize())
}
