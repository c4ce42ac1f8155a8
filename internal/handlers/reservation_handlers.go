package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"studio_booking_backend/internal/middleware"
	"studio_booking_backend/internal/models"
	"studio_booking_backend/internal/services"
	"studio_booking_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// ReservationHandler holds the reservation service.
type ReservationHandler struct {
	reservationService services.ReservationService
}

// NewReservationHandler creates a new ReservationHandler.
func NewReservationHandler(rs services.ReservationService) *ReservationHandler {
	return &ReservationHandler{reservationService: rs}
}

// respondReservationError maps service errors to HTTP responses.
// Rule violations keep their reason code so callers can tell them apart.
func respondReservationError(c *gin.Context, err error, fallback string) {
	re, ok := services.AsReservationError(err)
	if !ok {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, fallback, "Internal error"))
		return
	}

	switch re.Kind {
	case services.KindValidation:
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, re.Message, "").WithReason(re.Code))
	case services.KindRule:
		status, code := http.StatusConflict, utils.ErrCodeConflict
		if errors.Is(re, services.ErrTooSoon) || errors.Is(re, services.ErrOutOfHours) {
			status, code = http.StatusBadRequest, utils.ErrCodeBadRequest
		}
		utils.RespondWithError(c, utils.NewAPIError(status, code, re.Message, "").WithReason(re.Code))
	case services.KindNotFound:
		utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, re.Message, "").WithReason(re.Code))
	default:
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, fallback, "Internal error"))
	}
}

func reservationIDParam(c *gin.Context) (int64, bool) {
	id, err := utils.StrToInt64(c.Param("id"))
	if err != nil || id <= 0 {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeBadRequest, "Invalid reservation ID format.", c.Param("id")))
		return 0, false
	}
	return id, true
}

// bindCaller ties a booking to the authenticated client. Admins may book for
// any client. For other callers client_id defaults to their own id and any
// other id is refused.
func bindCaller(c *gin.Context, req *services.CreateReservationRequest) bool {
	if c.GetString(middleware.ContextUserRole) == models.RoleAdmin {
		return true
	}
	callerID := c.GetInt64(middleware.ContextUserID)
	if !req.ClientID.Set {
		req.ClientID = utils.FlexibleID{Raw: utils.Int64ToStr(callerID), Set: true}
		return true
	}
	if id, err := req.ClientID.Int64(); err == nil && id != callerID {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusForbidden, utils.ErrCodeForbidden, "Cannot book on behalf of another client.", ""))
		return false
	}
	return true
}

// CreateReservation handles a booking request.
func (h *ReservationHandler) CreateReservation(c *gin.Context) {
	var req services.CreateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError(err, "CreateReservation: Failed to bind JSON")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload.", err.Error()))
		return
	}
	if !bindCaller(c, &req) {
		return
	}

	reservation, err := h.reservationService.CreateReservation(c.Request.Context(), req)
	if err != nil {
		respondReservationError(c, err, "Failed to create reservation.")
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":     "Reservation created",
		"reservation": reservation,
	})
}

// GetReservations lists reservations, optionally filtered by status, date and client_id.
func (h *ReservationHandler) GetReservations(c *gin.Context) {
	req := services.ListReservationsRequest{
		Status: c.Query("status"),
		Date:   c.Query("date"),
	}
	if clientIDStr := c.Query("client_id"); clientIDStr != "" {
		id, err := strconv.ParseInt(clientIDStr, 10, 64)
		if err != nil {
			utils.RespondValidationFailed(c, "Invalid client_id format.")
			return
		}
		req.ClientID = &id
	}
	if pageSizeStr := c.Query("page_size"); pageSizeStr != "" {
		pageSize, err := strconv.Atoi(pageSizeStr)
		if err != nil || pageSize <= 0 {
			utils.RespondValidationFailed(c, "Invalid page_size.")
			return
		}
		page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
		if err != nil || page <= 0 {
			utils.RespondValidationFailed(c, "Invalid page.")
			return
		}
		req.Page, req.PageSize = page, pageSize
	}

	reservations, total, err := h.reservationService.GetReservations(c.Request.Context(), req)
	if err != nil {
		respondReservationError(c, err, "Failed to fetch reservations.")
		return
	}
	if reservations == nil {
		reservations = []models.Reservation{}
	}

	c.JSON(http.StatusOK, gin.H{
		"data":      reservations,
		"total":     total,
		"page":      req.Page,
		"page_size": req.PageSize,
	})
}

// UpdateReservation applies a partial update to a reservation.
func (h *ReservationHandler) UpdateReservation(c *gin.Context) {
	id, ok := reservationIDParam(c)
	if !ok {
		return
	}

	var req services.UpdateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError(err, "UpdateReservation: Failed to bind JSON")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload.", err.Error()))
		return
	}

	reservation, err := h.reservationService.UpdateReservation(c.Request.Context(), id, req)
	if err != nil {
		respondReservationError(c, err, "Failed to update reservation.")
		return
	}
	c.JSON(http.StatusOK, reservation)
}

// DeleteReservation removes a reservation.
func (h *ReservationHandler) DeleteReservation(c *gin.Context) {
	id, ok := reservationIDParam(c)
	if !ok {
		return
	}

	if err := h.reservationService.DeleteReservation(c.Request.Context(), id); err != nil {
		respondReservationError(c, err, "Failed to delete reservation.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Reservation deleted"})
}

// GetAvailability reports free slots for the date query parameter.
func (h *ReservationHandler) GetAvailability(c *gin.Context) {
	availability, err := h.reservationService.GetAvailability(c.Request.Context(), c.Query("date"))
	if err != nil {
		respondReservationError(c, err, "Failed to check availability.")
		return
	}
	c.JSON(http.StatusOK, availability)
}
