// Package xerr 业务错误码；HTTP 状态码按号段映射，见 pkg/errors.HTTPStatus
package xerr

// 通用
const (
	SERVER_COMMON_ERROR = 100001
	REQUEST_PARAM_ERROR = 100002
	DB_ERROR            = 100004

	ErrInternalServer = 500
)

// 10xx 参数错误 -> 400
const (
	ErrBadRequest   = 1000
	ErrInvalidInput = 1001
)

// 11xx 身份 -> 401
const ErrUnauthenticated = 1100

// 13xx 资源不存在 -> 404
const (
	ErrNotFound         = 1300
	ErrResourceNotFound = 1301
	ErrJobNotFound      = 1302
)

// 14xx 前置条件 -> 412
const ErrPreferencesRequired = 1400 // 还没选偏好分类
