package category

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/quickserve-api/internal/middleware"
	"github.com/jwalitptl/quickserve-api/internal/model"
	"github.com/jwalitptl/quickserve-api/internal/service/category"
	apperrors "github.com/jwalitptl/quickserve-api/pkg/errors"
	"github.com/jwalitptl/quickserve-api/pkg/httputil"
)

type Handler struct {
	service *category.Service
}

func NewHandler(service *category.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) CreateCategory(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized("missing authentication"))
		return
	}

	var req model.CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithBindingError(c, err)
		return
	}

	created, err := h.service.Create(c.Request.Context(), actor, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, created)
}

func (h *Handler) GetCategory(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid id"))
		return
	}

	cat, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, cat)
}

func (h *Handler) UpdateCategory(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized("missing authentication"))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid id"))
		return
	}

	var req model.UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithBindingError(c, err)
		return
	}

	updated, err := h.service.Update(c.Request.Context(), actor, id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, updated)
}

// ListCategories returns active categories for the public catalogue. Admins
// can pass ?all=true to include inactive ones.
func (h *Handler) ListCategories(c *gin.Context) {
	if c.Query("all") == "true" {
		actor, ok := middleware.ActorFromContext(c)
		if !ok {
			httputil.RespondWithError(c, apperrors.Unauthorized("missing authentication"))
			return
		}
		categories, err := h.service.ListAll(c.Request.Context(), actor)
		if err != nil {
			httputil.RespondWithError(c, err)
			return
		}
		httputil.RespondWithSuccess(c, categories)
		return
	}

	categories, err := h.service.ListActive(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, categories)
}
