package httputil

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/jwalitptl/quickserve-api/pkg/errors"
	"github.com/jwalitptl/quickserve-api/pkg/validator"
)

// Response wraps all API responses
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

// Error represents API error
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Pagination represents pagination metadata
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// PaginatedResponse wraps paginated data
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Pagination Pagination  `json:"pagination"`
}

var codeNames = map[apperrors.ErrorCode]string{
	apperrors.CodeNotFound:           "NOT_FOUND",
	apperrors.CodeValidation:         "VALIDATION",
	apperrors.CodeUnauthorized:       "UNAUTHORIZED",
	apperrors.CodeInvalidTransition:  "INVALID_TRANSITION",
	apperrors.CodeSchedulingConflict: "SCHEDULING_CONFLICT",
	apperrors.CodeInvalidOperation:   "INVALID_OPERATION",
	apperrors.CodeConflict:           "CONFLICT",
	apperrors.CodeInternal:           "INTERNAL",
}

// RespondWithSuccess sends a success response
func RespondWithSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

// RespondWithCreated sends a success response for a newly created resource
func RespondWithCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    data,
	})
}

// RespondWithError sends an error response
func RespondWithError(c *gin.Context, err error) {
	statusCode := http.StatusInternalServerError
	code := "INTERNAL"
	message := "internal server error"

	if appErr, ok := err.(*apperrors.AppError); ok {
		statusCode = appErr.StatusCode()
		if name, ok := codeNames[appErr.Code]; ok {
			code = name
		}
		if appErr.Code != apperrors.CodeInternal {
			message = appErr.Message
		}
	}

	c.JSON(statusCode, Response{
		Success: false,
		Error: &Error{
			Code:    code,
			Message: message,
		},
	})
}

// RespondWithBindingError sends a validation error for a request that
// failed binding, with the offending field named in the message.
func RespondWithBindingError(c *gin.Context, err error) {
	RespondWithError(c, apperrors.Validation(validator.Message(err)))
}

// RespondWithPagination sends a paginated response
func RespondWithPagination(c *gin.Context, data interface{}, page, pageSize, total int) {
	totalPages := 0
	if pageSize > 0 {
		totalPages = (total + pageSize - 1) / pageSize
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: PaginatedResponse{
			Data: data,
			Pagination: Pagination{
				Page:       page,
				PageSize:   pageSize,
				Total:      total,
				TotalPages: totalPages,
			},
		},
	})
}
