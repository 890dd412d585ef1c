package handler

import (
	"errors"
	"net/http"

	"github.com/erp/receiving/internal/domain/receiving"
	"github.com/erp/receiving/internal/domain/shared"
	"github.com/erp/receiving/internal/interfaces/http/dto"
	"github.com/erp/receiving/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessList sends a success response for a complete list
func (h *BaseHandler) SuccessList(c *gin.Context, data any, total int) {
	c.JSON(http.StatusOK, dto.NewListResponse(data, total))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Error sends an error response with the given status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, middleware.GetRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// ValidationError sends a 400 validation error response with details
func (h *BaseHandler) ValidationError(c *gin.Context, message string, details []dto.ValidationDetail) {
	c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse(message, middleware.GetRequestID(c), details))
}

// BindingError answers a request whose body or path failed to bind
func (h *BaseHandler) BindingError(c *gin.Context, err error) {
	h.ValidationError(c, "Request validation failed", middleware.ValidationDetails(err))
}

// NoChangesData is the informational body returned when a batch had nothing to record
type NoChangesData struct {
	NoChanges bool   `json:"no_changes"`
	Message   string `json:"message"`
}

// HandleError converts service errors to HTTP responses. Field-level
// validation failures carry their details and an empty batch is answered
// 200 with an informational body. Persistence failures keep their cause in
// the message. Unknown errors become 500.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var verr *receiving.ValidationError
	if errors.As(err, &verr) {
		details := make([]dto.ValidationDetail, len(verr.Errors))
		for i, fe := range verr.Errors {
			details[i] = dto.ValidationDetail{
				Subject: fe.Key.Subject,
				Field:   string(fe.Key.Field),
				Message: fe.Message,
			}
		}
		h.ValidationError(c, receiving.ErrValidationFailed.Message, details)
		return
	}

	if errors.Is(err, receiving.ErrNoChanges) {
		h.Success(c, NoChangesData{NoChanges: true, Message: receiving.NoChangesMessage})
		return
	}

	// Store failures are reported with the failed step and the store's own
	// message so the operator can act on them.
	var perr *receiving.PersistenceError
	if errors.As(err, &perr) {
		_ = c.Error(err)
		h.Error(c, http.StatusInternalServerError, dto.ErrCodePersistence, perr.Error())
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code, status := dto.ResolveDomainError(domainErr)
		if status >= http.StatusInternalServerError {
			_ = c.Error(err)
		}
		h.Error(c, status, code, domainErr.Message)
		return
	}

	_ = c.Error(err)
	h.InternalError(c, "An unexpected error occurred")
}

// parseOrderID reads the :id path parameter
func parseOrderID(c *gin.Context) (uuid.UUID, bool) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(req.ID)
	return id, err == nil
}
