package consts

const (
	SessionTracePrefix   = "chat-"
	UnreadJobTracePrefix = "job-unread-"
)

const (
	DefaultPageSize      = 20
	ConversationPageSize = 50
)

// ResponseCodeOK REST 信封中的成功码
const ResponseCodeOK = 200
