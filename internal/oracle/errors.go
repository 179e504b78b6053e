package oracle

import "fmt"

// TransientError 表示单次调用失败（传输错误、超时、输出格式不合法），会被重试，
// 重试耗尽后降级为默认值，不向调用方暴露。
type TransientError struct {
	Purpose string
	Attempt int
	Stage   string
	Cause   error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("oracle %s attempt %d %s: %v", e.Purpose, e.Attempt, e.Stage, e.Cause)
}

func (e *TransientError) Unwrap() error { return e.Cause }
