package response

// Failure 网关错误：业务码、对外提示与原始错误
type Failure struct {
	Code    int
	Message string
	Err     error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return f.Message
	}
	return f.Message + ": " + f.Err.Error()
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Internal 是否属于网关或后端故障
func (f *Failure) Internal() bool {
	return f.Code >= CodeInternal
}

// Fail 构造网关错误
func Fail(code int, message string, err error) *Failure {
	return &Failure{Code: code, Message: message, Err: err}
}

// FailFromUpstream 按后端 HTTP 状态构造网关错误
func FailFromUpstream(status int, message string, err error) *Failure {
	return Fail(CodeFromUpstream(status), message, err)
}
