package response

// AppError 带业务码的错误，Message 为已本地化的提示
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// IsClientError 4xx 业务码由请求本身引起
func (e *AppError) IsClientError() bool {
	return e != nil && e.Code >= 400 && e.Code < 500
}

// WrapError 包装错误
func WrapError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}
