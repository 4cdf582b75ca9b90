package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cppla/threadbbs/middleware"
	"github.com/cppla/threadbbs/services"
	"github.com/cppla/threadbbs/utils"
)

// respondError maps service errors onto the response envelope. Anything that
// is not a validation, lookup or permission failure is logged and answered 500.
func respondError(ctx *gin.Context, err error, what string) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		utils.Invalid(ctx, verr.Fields)
	case errors.Is(err, services.ErrNotFound):
		utils.Error(ctx, http.StatusNotFound, 40400, what+" not found")
	case errors.Is(err, services.ErrPermission):
		utils.Error(ctx, http.StatusForbidden, 40300, "you can only modify your own "+what)
	default:
		utils.Sugar.Errorw("request failed", "path", ctx.FullPath(), "what", what, "err", err)
		_ = ctx.Error(err)
		utils.Error(ctx, http.StatusInternalServerError, 50000, "internal server error")
	}
}

// pathID parses a positive numeric path parameter.
func pathID(ctx *gin.Context, name string) (uint, bool) {
	n, err := strconv.ParseUint(ctx.Param(name), 10, 64)
	if err != nil || n == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid "+name)
		return 0, false
	}
	return uint(n), true
}

func getUserID(ctx *gin.Context) (uint, bool) {
	id, ok := middleware.CurrentUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
	}
	return id, ok
}
