package server

import (
	"errors"
	"net/http"

	"github.com/iceymoss/newsfeed/internal/engine"
	"github.com/iceymoss/newsfeed/internal/repo"
	apperr "github.com/iceymoss/newsfeed/pkg/errors"
	"github.com/iceymoss/newsfeed/pkg/xerr"

	"github.com/gin-gonic/gin"
)

var (
	errPreferencesRequired = apperr.New(xerr.ErrPreferencesRequired, "Please select your preferred topics first")
	errNotFound            = apperr.New(xerr.ErrResourceNotFound, "resource not found")
	errJobNotFound         = apperr.New(xerr.ErrJobNotFound, "task not found")
)

func success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"code": 0, "msg": "ok", "data": data})
}

func badRequest(c *gin.Context, msg string) {
	fail(c, apperr.New(xerr.REQUEST_PARAM_ERROR, msg))
}

// fail 统一错误响应 {code, msg}；非业务错误只回通用信息，原始错误进访问日志
func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repo.ErrNotFound):
		err = errNotFound
	case errors.Is(err, engine.ErrJobNotFound):
		err = errJobNotFound
	}
	code, msg := apperr.CodeOf(err)
	status := apperr.HTTPStatus(code)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, gin.H{"code": code, "msg": msg})
}
