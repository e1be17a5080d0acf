package logger

import (
	"ChatSync/internal/pkg/util"
	"bytes"
	"io"
	log "log/slog"
	"net/http"
	"time"
)

const bodyLogLimit = 1000

// RESTTransport 记录 REST 请求的耗时、状态与报文
type RESTTransport struct {
	Transport     http.RoundTripper
	SlowThreshold time.Duration
}

// NewRESTTransport 包装 next，next 为空时使用 http.DefaultTransport
func NewRESTTransport(next http.RoundTripper) *RESTTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	return &RESTTransport{Transport: next, SlowThreshold: 500 * time.Millisecond}
}

func (t *RESTTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	var reqBody []byte
	if req.Body != nil {
		reqBody, _ = io.ReadAll(req.Body)
		req.Body = io.NopCloser(bytes.NewBuffer(reqBody))
	}

	resp, err := t.Transport.RoundTrip(req)
	elapsed := time.Since(start)

	fields := []any{
		log.String("method", req.Method),
		log.String("url", req.URL.String()),
		log.Duration("latency", elapsed),
		log.String("req_body", util.Truncate(string(reqBody), bodyLogLimit)),
	}

	if err != nil {
		log.ErrorContext(req.Context(), "REST_REQUEST_ERROR", append(fields, log.Any("err", err))...)
		return nil, err
	}

	var resBody []byte
	if resp.Body != nil {
		resBody, _ = io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		resp.Body = io.NopCloser(bytes.NewBuffer(resBody))
	}
	fields = append(fields,
		log.Int("status", resp.StatusCode),
		log.String("res_body", util.Truncate(string(resBody), bodyLogLimit)),
	)

	switch {
	case resp.StatusCode >= http.StatusBadRequest:
		log.WarnContext(req.Context(), "REST_REQUEST_FAILED", fields...)
	case elapsed > t.SlowThreshold:
		log.WarnContext(req.Context(), "REST_REQUEST_SLOW", fields...)
	default:
		log.DebugContext(req.Context(), "REST_REQUEST", fields...)
	}
	return resp, nil
}
