package wsclient

import "github.com/goccy/go-json"

// 帧命令
const (
	CommandConnect     = "CONNECT"
	CommandConnected   = "CONNECTED"
	CommandSubscribe   = "SUBSCRIBE"
	CommandUnsubscribe = "UNSUBSCRIBE"
	CommandSend        = "SEND"
	CommandMessage     = "MESSAGE"
	CommandError       = "ERROR"
	CommandPing        = "PING"
	CommandPong        = "PONG"
	CommandDisconnect  = "DISCONNECT"
)

// Frame 线上帧，按 JSON 文本帧收发
type Frame struct {
	Command string            `json:"command"`
	Topic   string            `json:"topic,omitempty"`
	ID      string            `json:"id,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    json.RawMessage   `json:"body,omitempty"`
}

func encodeFrame(f *Frame) ([]byte, error) {
	return json.Marshal(f)
}

func decodeFrame(data []byte) (*Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if f.Command == "" {
		return nil, errEmptyCommand
	}
	return &f, nil
}
