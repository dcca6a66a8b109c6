package errors

import (
	stderrors "errors"
)

// ErrorCode 业务错误码
type ErrorCode string

const (
	ErrorCodeInvalidRequest     ErrorCode = "INVALID_REQUEST"
	ErrorCodeNotFound           ErrorCode = "NOT_FOUND"
	ErrorCodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	ErrorCodeConflict           ErrorCode = "CONFLICT"
	ErrorCodeInternalError      ErrorCode = "INTERNAL_ERROR"
	ErrorCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrorCodeTimeout            ErrorCode = "TIMEOUT"
	ErrorCodeRateLimit          ErrorCode = "RATE_LIMIT"

	// 重命名流程
	ErrorCodeInvalidFilename ErrorCode = "INVALID_FILENAME"
	ErrorCodeDownloadFailed  ErrorCode = "DOWNLOAD_FAILED"
	ErrorCodeRenameFailed    ErrorCode = "RENAME_FAILED"
	ErrorCodeUploadFailed    ErrorCode = "UPLOAD_FAILED"
	ErrorCodeFileTooLarge    ErrorCode = "FILE_TOO_LARGE"
	ErrorCodeSessionNotFound ErrorCode = "SESSION_NOT_FOUND"
	ErrorCodeSessionBusy     ErrorCode = "SESSION_BUSY"
)

// ServiceError 业务错误
type ServiceError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

func (e *ServiceError) Error() string {
	if e.Cause != nil {
		return string(e.Code) + ": " + e.Message + ": " + e.Cause.Error()
	}
	return string(e.Code) + ": " + e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// NewServiceError 创建业务错误
func NewServiceError(code ErrorCode, message string) *ServiceError {
	return &ServiceError{
		Code:    code,
		Message: message,
	}
}

// NewServiceErrorWithCause 创建带原因的业务错误
func NewServiceErrorWithCause(code ErrorCode, message string, cause error) *ServiceError {
	return &ServiceError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewServiceErrorWithDetails 创建带详情的业务错误
func NewServiceErrorWithDetails(code ErrorCode, message string, details map[string]interface{}) *ServiceError {
	return &ServiceError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// CodeOf 提取错误链上的业务错误码，非业务错误返回 INTERNAL_ERROR
func CodeOf(err error) ErrorCode {
	var se *ServiceError
	if stderrors.As(err, &se) {
		return se.Code
	}
	return ErrorCodeInternalError
}

// Is 判断错误链上是否存在指定错误码
func Is(err error, code ErrorCode) bool {
	var se *ServiceError
	return stderrors.As(err, &se) && se.Code == code
}
