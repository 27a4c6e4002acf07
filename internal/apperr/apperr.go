package apperr

import (
	"errors"
	"net/http"
)

// Kind 错误分类，对应统一的错误语义
type Kind string

const (
	KindNotFound      Kind = "not_found"
	KindValidation    Kind = "validation"
	KindStateConflict Kind = "state_conflict"
	KindStock         Kind = "stock"
	KindUnauthorized  Kind = "unauthorized"
	KindForbidden     Kind = "forbidden"
	KindUpstream      Kind = "upstream"
)

// Error 带 HTTP 状态码的业务错误，最终统一渲染成
// {"success": false, "message": "..."} 响应体。
type Error struct {
	Kind    Kind
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func New(kind Kind, status int, message string) *Error {
	return &Error{Kind: kind, Status: status, Message: message}
}

func NotFound(message string) *Error {
	return New(KindNotFound, http.StatusNotFound, message)
}

func Validation(message string) *Error {
	return New(KindValidation, http.StatusBadRequest, message)
}

// Conflict 状态冲突。原接口对“未送达不可删除”返回 404，
// 对“已送达不可再流转”返回 400，状态码由调用方指定。
func Conflict(status int, message string) *Error {
	return New(KindStateConflict, status, message)
}

func Stock(message string) *Error {
	return New(KindStock, http.StatusBadRequest, message)
}

func Unauthorized(message string) *Error {
	return New(KindUnauthorized, http.StatusUnauthorized, message)
}

func Forbidden(message string) *Error {
	return New(KindForbidden, http.StatusForbidden, message)
}

func Upstream(message string) *Error {
	return New(KindUpstream, http.StatusInternalServerError, message)
}

// StatusOf 提取错误对应的 HTTP 状态码，非业务错误一律按 500 处理
func StatusOf(err error) int {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Status
	}
	return http.StatusInternalServerError
}

// IsKind 判断错误是否属于某个分类
func IsKind(err error, kind Kind) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind == kind
	}
	return false
}
