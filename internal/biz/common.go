package biz

import (
	"github.com/go-kratos/kratos/v2/errors"
)

var (
	BadRequest       = "BAD_REQUEST"
	InvalidArgument  = "INVALID_ARGUMENT"
	InvalidPoint     = "INVALID_COORDINATE"
	InvalidRadius    = "INVALID_RADIUS"
	NotFound         = "NOT_FOUND"
	InternalServer   = "INTERNAL_SERVER"
	StoreUnavailable = "STORE_UNAVAILABLE"
)

var (
	ErrInternalServer = errors.New(500, InternalServer, "internal server error")
	ErrPlaceNotFound  = errors.NotFound(NotFound, "place not found")
)

// storeError 把存储层错误包装为 500，不重试，不返回部分结果。
func storeError(err error) error {
	var se *errors.Error
	if errors.As(err, &se) {
		return err
	}
	return errors.InternalServer(StoreUnavailable, "place store unavailable").WithCause(err)
}
