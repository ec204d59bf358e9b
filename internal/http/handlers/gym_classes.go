package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/gymlog/internal/domain/gymclass"
	"github.com/geocoder89/gymlog/internal/http/middlewares"
	"github.com/geocoder89/gymlog/internal/validation"
	"github.com/gin-gonic/gin"
)

const storeTimeout = 3 * time.Second

type GymClassService interface {
	List(ctx context.Context, uid string) ([]gymclass.GymClass, error)
	Get(ctx context.Context, uid, id string) (gymclass.GymClass, error)
	Create(ctx context.Context, uid string, req gymclass.CreateGymClassRequest) (gymclass.GymClass, error)
	Update(ctx context.Context, uid, id string, req gymclass.UpdateGymClassRequest) (gymclass.GymClass, error)
	Delete(ctx context.Context, uid, id string) (bool, error)
}

type GymClassesHandler struct {
	svc GymClassService
}

func NewGymClassesHandler(svc GymClassService) *GymClassesHandler {
	return &GymClassesHandler{svc: svc}
}

func (h *GymClassesHandler) ListGymClasses(ctx *gin.Context) {
	uid, ok := requireUserID(ctx)
	if !ok {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), storeTimeout)
	defer cancel()

	items, err := h.svc.List(cctx, uid)
	if err != nil {
		respondServiceError(ctx, err, "Failed to fetch gym classes")
		return
	}

	ctx.JSON(http.StatusOK, items)
}

func (h *GymClassesHandler) GetGymClass(ctx *gin.Context) {
	uid, ok := requireUserID(ctx)
	if !ok {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), storeTimeout)
	defer cancel()

	g, err := h.svc.Get(cctx, uid, ctx.Param("id"))
	if err != nil {
		respondServiceError(ctx, err, "Failed to fetch gym class")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, g)
}

func (h *GymClassesHandler) CreateGymClass(ctx *gin.Context) {
	uid, ok := requireUserID(ctx)
	if !ok {
		return
	}

	var req gymclass.CreateGymClassRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), storeTimeout)
	defer cancel()

	g, err := h.svc.Create(cctx, uid, req)
	if err != nil {
		respondServiceError(ctx, err, "Failed to create gym class")
		return
	}

	ctx.Header("Location", "/api/gym-classes/"+g.ID)
	ctx.JSON(http.StatusCreated, g)
}

func (h *GymClassesHandler) UpdateGymClass(ctx *gin.Context) {
	uid, ok := requireUserID(ctx)
	if !ok {
		return
	}

	var req gymclass.UpdateGymClassRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), storeTimeout)
	defer cancel()

	g, err := h.svc.Update(cctx, uid, ctx.Param("id"), req)
	if err != nil {
		respondServiceError(ctx, err, "Failed to update gym class")
		return
	}

	ctx.JSON(http.StatusOK, g)
}

func (h *GymClassesHandler) DeleteGymClass(ctx *gin.Context) {
	uid, ok := requireUserID(ctx)
	if !ok {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), storeTimeout)
	defer cancel()

	deleted, err := h.svc.Delete(cctx, uid, ctx.Param("id"))
	if err != nil {
		respondServiceError(ctx, err, "Failed to delete gym class")
		return
	}

	if !deleted {
		RespondNotFound(ctx, "Gym class not found")
		return
	}

	ctx.Status(http.StatusNoContent)
}

// requireUserID guards against a route mounted without RequireAuth.
func requireUserID(ctx *gin.Context) (string, bool) {
	uid, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "unauthorized", "Authentication required")
		return "", false
	}
	return uid, true
}

// respondServiceError maps the service error taxonomy onto HTTP. Store details are logged, never returned.
func respondServiceError(ctx *gin.Context, err error, internalMessage string) {
	var verr *validation.ValidationError
	if errors.As(err, &verr) {
		RespondValidation(ctx, verr)
		return
	}

	if errors.Is(err, gymclass.ErrNotFound) {
		RespondNotFound(ctx, "Gym class not found")
		return
	}

	slog.Default().ErrorContext(ctx.Request.Context(), internalMessage,
		"err", err,
		"request_id", requestIDFrom(ctx),
	)
	RespondInternal(ctx, internalMessage)
}
