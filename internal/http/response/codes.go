package response

const (
	CodeOK              = 0
	CodeBadRequest      = 400
	CodeUnauthorized    = 401
	CodeNotFound        = 404
	CodeTooManyRequests = 429
	CodeInternal        = 500
	CodeBadGateway      = 502
)

// CodeFromUpstream 将后端 HTTP 状态映射为业务码
func CodeFromUpstream(status int) int {
	switch {
	case status == 0:
		return CodeBadGateway
	case status == CodeUnauthorized, status == CodeNotFound, status == CodeTooManyRequests:
		return status
	case status >= 400 && status < 500:
		return CodeBadRequest
	default:
		return CodeBadGateway
	}
}
