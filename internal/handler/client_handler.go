package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/healthcare-admin-api/internal/models"
	"github.com/noah-isme/healthcare-admin-api/internal/service"
	"github.com/noah-isme/healthcare-admin-api/pkg/response"
)

type clientService interface {
	List(ctx context.Context, filter models.ClientFilter) ([]models.Client, *models.Pagination, error)
	Search(ctx context.Context, q string) (*models.ClientSearchResult, error)
	Get(ctx context.Context, id string) (*models.ClientProfile, error)
	Create(ctx context.Context, req service.ClientRequest) (*models.Client, error)
	Update(ctx context.Context, id string, req service.ClientRequest) (*models.Client, error)
	Patch(ctx context.Context, id string, req service.PatchClientRequest) (*models.Client, error)
	Delete(ctx context.Context, id string) error
}

// ClientHandler exposes client registry endpoints.
type ClientHandler struct {
	clients clientService
}

// NewClientHandler constructs ClientHandler.
func NewClientHandler(clients clientService) *ClientHandler {
	return &ClientHandler{clients: clients}
}

// List godoc
// @Summary List clients
// @Tags Clients
// @Produce json
// @Param search query string false "Search by name or phone"
// @Param area_of_residence query string false "Filter by area of residence"
// @Param created_from query string false "Registered on or after (YYYY-MM-DD)"
// @Param created_to query string false "Registered on or before (YYYY-MM-DD)"
// @Param sort query string false "Sort field"
// @Param order query string false "asc or desc"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /clients [get]
func (h *ClientHandler) List(c *gin.Context) {
	var filter models.ClientFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.AreaOfResidence = strings.TrimSpace(c.Query("area_of_residence"))
	from, to, err := dateRange(c, "created_from", "created_to")
	if err != nil {
		response.Error(c, err)
		return
	}
	filter.CreatedFrom, filter.CreatedTo = from, to
	filter.Page, filter.PageSize = pageParams(c)
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	clients, pagination, err := h.clients.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, clients, pagination)
}

// Search godoc
// @Summary Search clients
// @Description Case-insensitive match on first name, last name or phone number. A blank query returns no results.
// @Tags Clients
// @Produce json
// @Param q query string false "Search text"
// @Success 200 {object} models.ClientSearchResult
// @Security BearerAuth
// @Router /clients/search [get]
func (h *ClientHandler) Search(c *gin.Context) {
	result, err := h.clients.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Get godoc
// @Summary Get client profile
// @Tags Clients
// @Produce json
// @Param id path string true "Client ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /clients/{id} [get]
func (h *ClientHandler) Get(c *gin.Context) {
	profile, err := h.clients.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}

// Create godoc
// @Summary Register client
// @Tags Clients
// @Accept json
// @Produce json
// @Param payload body service.ClientRequest true "Client payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /clients [post]
func (h *ClientHandler) Create(c *gin.Context) {
	var req service.ClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	client, err := h.clients.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, client)
}

// Update godoc
// @Summary Replace client
// @Tags Clients
// @Accept json
// @Produce json
// @Param id path string true "Client ID"
// @Param payload body service.ClientRequest true "Client payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /clients/{id} [put]
func (h *ClientHandler) Update(c *gin.Context) {
	var req service.ClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	client, err := h.clients.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, client, nil)
}

// Patch godoc
// @Summary Partially update client
// @Tags Clients
// @Accept json
// @Produce json
// @Param id path string true "Client ID"
// @Param payload body service.PatchClientRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /clients/{id} [patch]
func (h *ClientHandler) Patch(c *gin.Context) {
	var req service.PatchClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	client, err := h.clients.Patch(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, client, nil)
}

// Delete godoc
// @Summary Delete client
// @Description Removes the client and every enrollment it holds.
// @Tags Clients
// @Param id path string true "Client ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /clients/{id} [delete]
func (h *ClientHandler) Delete(c *gin.Context) {
	if err := h.clients.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
