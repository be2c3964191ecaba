// Package handler exposes engine operations over HTTP. One generic
// handler serves every entity type; routes differ only in path prefix.
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/engine"
	"github.com/storefront/backend/internal/engine/scope"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
)

// EntityHandler serves the CRUD and search endpoints of one entity type
type EntityHandler[T shared.Record] struct {
	svc       *engine.Service[T]
	newRecord func() T
	// eventPrefix names the outbox events of this entity, e.g. "product"
	// yields product.created and product.updated. Empty disables events.
	eventPrefix string
}

// NewEntityHandler creates a handler over one engine service
func NewEntityHandler[T shared.Record](svc *engine.Service[T], newRecord func() T, eventPrefix string) *EntityHandler[T] {
	return &EntityHandler[T]{svc: svc, newRecord: newRecord, eventPrefix: eventPrefix}
}

// Register mounts the entity routes on a router group
func (h *EntityHandler[T]) Register(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("/search", h.Search)
	rg.GET("/count", h.Count)
	rg.GET("/:code", h.Get)
	rg.GET("/:code/detail", h.GetDetail)
	rg.POST("", h.Create)
	rg.PUT("/:code", h.Update)
	rg.DELETE("/:code", h.Delete)
	rg.DELETE("/:code/purge", h.Purge)
}

func queryOptions(c *gin.Context) engine.QueryOptions {
	return engine.QueryOptions{
		Level:        scope.DataLevel(c.Query("level")),
		WithChildren: c.Query("with_children") == "true",
	}
}

// List serves GET ""; paged when a page parameter is present
func (h *EntityHandler[T]) List(c *gin.Context) {
	tenant := middleware.Tenant(c)
	opts := queryOptions(c)

	if pageStr := c.Query("page"); pageStr != "" {
		page, _ := strconv.Atoi(pageStr)
		pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "0"))
		result, err := h.svc.GetAllPaged(c.Request.Context(), tenant,
			shared.PageRequest{Page: page, PageSize: pageSize}, opts)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.NewPagedResponse(result))
		return
	}

	items, err := h.svc.GetAll(c.Request.Context(), tenant, opts)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(items))
}

// Search serves POST "/search"
func (h *EntityHandler[T]) Search(c *gin.Context) {
	var req dto.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(string(shared.KindInvalidInput), err.Error()))
		return
	}

	tenant := middleware.Tenant(c)
	ctx := c.Request.Context()
	conds := req.ToConditions()
	sort := req.ToSort()
	opts := engine.QueryOptions{Level: req.ToLevel(), WithChildren: req.WithChildren}

	switch {
	case len(req.Fields) > 0 && req.Paged():
		result, err := h.svc.SearchFieldsPaged(ctx, tenant, conds, req.Fields, sort, req.ToPage(), opts)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.NewPagedResponse(result))
	case len(req.Fields) > 0:
		rows, err := h.svc.SearchFields(ctx, tenant, conds, req.Fields, sort, opts)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.NewSuccessResponse(rows))
	case req.Paged():
		result, err := h.svc.SearchPaged(ctx, tenant, conds, sort, req.ToPage(), opts)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.NewPagedResponse(result))
	default:
		items, err := h.svc.Search(ctx, tenant, conds, sort, opts)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.NewSuccessResponse(items))
	}
}

// Count serves GET "/count"; a limit parameter bounds the scan
func (h *EntityHandler[T]) Count(c *gin.Context) {
	tenant := middleware.Tenant(c)
	opts := queryOptions(c)

	var (
		total int64
		err   error
	)
	if limitStr := c.Query("limit"); limitStr != "" {
		limit, convErr := strconv.Atoi(limitStr)
		if convErr != nil || limit < 1 {
			c.JSON(http.StatusBadRequest, dto.NewErrorResponse(string(shared.KindInvalidInput), "limit must be a positive integer"))
			return
		}
		total, err = h.svc.CountLimit(c.Request.Context(), tenant, nil, limit, opts)
	} else {
		total, err = h.svc.Count(c.Request.Context(), tenant, nil, opts)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{"count": total}))
}

// Get serves GET "/:code"
func (h *EntityHandler[T]) Get(c *gin.Context) {
	rec, err := h.svc.GetByCode(c.Request.Context(), middleware.Tenant(c), c.Param("code"), queryOptions(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(rec))
}

// GetDetail serves GET "/:code/detail" with an optional comma-separated
// fields parameter; derived fields resolve on this path.
func (h *EntityHandler[T]) GetDetail(c *gin.Context) {
	var fields []string
	if raw := c.Query("fields"); raw != "" {
		fields = strings.Split(raw, ",")
	}
	row, err := h.svc.GetDetail(c.Request.Context(), middleware.Tenant(c), c.Param("code"), fields)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(row))
}

// Create serves POST ""
func (h *EntityHandler[T]) Create(c *gin.Context) {
	rec := h.newRecord()
	if err := c.ShouldBindJSON(rec); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(string(shared.KindInvalidInput), err.Error()))
		return
	}

	tenant := middleware.Tenant(c)
	var err error
	if h.eventPrefix != "" {
		err = h.svc.InsertWithEvent(c.Request.Context(), tenant, rec, h.eventPrefix+".created", payload(rec))
	} else {
		err = h.svc.Insert(c.Request.Context(), tenant, rec)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(rec))
}

// Update serves PUT "/:code"
func (h *EntityHandler[T]) Update(c *gin.Context) {
	rec := h.newRecord()
	if err := c.ShouldBindJSON(rec); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(string(shared.KindInvalidInput), err.Error()))
		return
	}
	rec.Base().Code = c.Param("code")

	tenant := middleware.Tenant(c)
	var err error
	if h.eventPrefix != "" {
		err = h.svc.UpdateWithEvent(c.Request.Context(), tenant, rec, h.eventPrefix+".updated", payload(rec))
	} else {
		err = h.svc.Update(c.Request.Context(), tenant, rec)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(rec))
}

// Delete serves DELETE "/:code" (soft delete)
func (h *EntityHandler[T]) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), middleware.Tenant(c), c.Param("code")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(nil))
}

// Purge serves DELETE "/:code/purge" (hard delete)
func (h *EntityHandler[T]) Purge(c *gin.Context) {
	if err := h.svc.Remove(c.Request.Context(), middleware.Tenant(c), c.Param("code")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(nil))
}

func payload(rec any) string {
	b, err := json.Marshal(rec)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func respondError(c *gin.Context, err error) {
	c.JSON(dto.StatusForError(err), dto.FromError(err))
}
