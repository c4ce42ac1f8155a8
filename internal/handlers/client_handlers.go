package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"studio_booking_backend/internal/models"
	"studio_booking_backend/internal/services"
	"studio_booking_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// ClientHandler serves the admin client management routes.
type ClientHandler struct {
	clientService services.ClientService
}

// NewClientHandler creates a new ClientHandler.
func NewClientHandler(cs services.ClientService) *ClientHandler {
	return &ClientHandler{clientService: cs}
}

func clientIDParam(c *gin.Context) (int64, bool) {
	id, err := utils.StrToInt64(c.Param("id"))
	if err != nil || id <= 0 {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeBadRequest, "Invalid client ID format.", c.Param("id")))
		return 0, false
	}
	return id, true
}

// GetClients handles fetching clients with pagination and search.
func (h *ClientHandler) GetClients(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	req := services.ListClientsRequest{Search: c.Query("search"), Page: page, PageSize: pageSize}

	clients, total, err := h.clientService.GetClients(c.Request.Context(), req)
	if err != nil {
		utils.LogError(err, "GetClients: Error from clientService.GetClients")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch clients.", "Internal error"))
		return
	}
	if clients == nil {
		clients = []models.Client{}
	}
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 10
	}

	c.JSON(http.StatusOK, gin.H{
		"data":      clients,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetClientByID handles fetching a single client.
func (h *ClientHandler) GetClientByID(c *gin.Context) {
	id, ok := clientIDParam(c)
	if !ok {
		return
	}

	client, err := h.clientService.GetProfile(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Client not found.", ""))
			return
		}
		utils.LogError(err, "GetClientByID: Error from clientService.GetProfile for ID "+c.Param("id"))
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch client.", "Internal error"))
		return
	}
	c.JSON(http.StatusOK, client)
}

// UpdateClient handles a partial client update.
func (h *ClientHandler) UpdateClient(c *gin.Context) {
	id, ok := clientIDParam(c)
	if !ok {
		return
	}

	var req services.UpdateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError(err, "UpdateClient: Failed to bind JSON for ID "+c.Param("id"))
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload.", err.Error()))
		return
	}

	client, err := h.clientService.UpdateClient(c.Request.Context(), id, req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUserNotFound):
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Client not found to update.", ""))
		case errors.Is(err, services.ErrClientValidation):
			utils.RespondValidationFailed(c, err.Error())
		case errors.Is(err, services.ErrUsernameExists):
			utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, "Username already exists.", ""))
		default:
			utils.LogError(err, "UpdateClient: Error from clientService.UpdateClient for ID "+c.Param("id"))
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to update client.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, client)
}

// DeleteClient handles deleting a client and, through the schema, their reservations.
func (h *ClientHandler) DeleteClient(c *gin.Context) {
	id, ok := clientIDParam(c)
	if !ok {
		return
	}

	if err := h.clientService.DeleteClient(c.Request.Context(), id); err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Client not found to delete.", ""))
			return
		}
		utils.LogError(err, "DeleteClient: Error from clientService.DeleteClient for ID "+c.Param("id"))
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to delete client.", "Internal error"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Client deleted"})
}
