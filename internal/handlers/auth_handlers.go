package handlers

import (
	"errors"
	"net/http"

	"studio_booking_backend/internal/middleware"
	"studio_booking_backend/internal/models"
	"studio_booking_backend/internal/services"
	"studio_booking_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// AuthHandler holds the client service.
type AuthHandler struct {
	clientService services.ClientService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(cs services.ClientService) *AuthHandler {
	return &AuthHandler{clientService: cs}
}

// Register handles client registration. Registered clients always get the user role.
func (h *AuthHandler) Register(c *gin.Context) {
	var req services.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError(err, "Register: Failed to bind JSON")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload.", err.Error()))
		return
	}

	client, err := h.clientService.Register(c.Request.Context(), req, models.RoleUser)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrClientValidation):
			utils.RespondValidationFailed(c, err.Error())
		case errors.Is(err, services.ErrUsernameExists):
			utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, "Username already exists.", ""))
		default:
			utils.LogError(err, "Register: Error from clientService.Register")
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to register client.", "Internal error"))
		}
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Client registered", "client": client})
}

// Login handles client login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError(err, "Login: Failed to bind JSON")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload.", err.Error()))
		return
	}

	authResp, err := h.clientService.Login(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Invalid username or password.", ""))
			return
		}
		utils.LogError(err, "Login: Error from clientService.Login")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to login.", "Internal error"))
		return
	}
	c.JSON(http.StatusOK, authResp)
}

// GetCurrentClient returns the profile of the authenticated client.
func (h *AuthHandler) GetCurrentClient(c *gin.Context) {
	clientID := c.GetInt64(middleware.ContextUserID)
	if clientID == 0 {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "User not authenticated.", "Missing user ID in context"))
		return
	}

	client, err := h.clientService.GetProfile(c.Request.Context(), clientID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "User profile not found.", ""))
			return
		}
		utils.LogError(err, "GetCurrentClient: Error from clientService.GetProfile for client "+utils.Int64ToStr(clientID))
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to retrieve user profile.", "Internal error"))
		return
	}
	c.JSON(http.StatusOK, client)
}
