package errors

import (
	"errors"
	"net/http"

	"github.com/iceymoss/newsfeed/pkg/xerr"

	xerrors "github.com/zeromicro/x/errors"
)

// New 构造带业务码的错误
func New(code int, msg string) error {
	return xerrors.New(code, msg)
}

// CodeOf 取出错误码，非业务错误统一按 500 处理
func CodeOf(err error) (int, string) {
	var cm *xerrors.CodeMsg
	if errors.As(err, &cm) {
		return cm.Code, cm.Msg
	}
	return xerr.ErrInternalServer, "internal server error"
}

// HTTPStatus 业务码到 HTTP 状态码
func HTTPStatus(code int) int {
	switch {
	case code == xerr.ErrInternalServer || code == xerr.SERVER_COMMON_ERROR || code == xerr.DB_ERROR:
		return http.StatusInternalServerError
	case code == xerr.REQUEST_PARAM_ERROR:
		return http.StatusBadRequest
	case code >= 1000 && code < 1100:
		return http.StatusBadRequest
	case code >= 1100 && code < 1200:
		return http.StatusUnauthorized
	case code >= 1200 && code < 1300:
		return http.StatusForbidden
	case code >= 1300 && code < 1400:
		return http.StatusNotFound
	case code >= 1400 && code < 1500:
		return http.StatusPreconditionFailed
	default:
		return http.StatusInternalServerError
	}
}
