package client

import (
	"fmt"
)

// RequestError REST 调用失败
// Status 为 0 表示请求未到达服务端，Code/Message 取自响应信封
type RequestError struct {
	Op      string
	Status  int
	Code    int
	Message string
	Err     error
}

func (e *RequestError) Error() string {
	switch {
	case e.Err != nil && e.Status == 0:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: status %d code %d: %s", e.Op, e.Status, e.Code, e.Message)
	default:
		return fmt.Sprintf("%s: status %d code %d", e.Op, e.Status, e.Code)
	}
}

func (e *RequestError) Unwrap() error {
	return e.Err
}
