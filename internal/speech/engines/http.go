package engines

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/charmbracelet/log"
	"github.com/voicepal/voicepal/internal/cache"
	"github.com/voicepal/voicepal/internal/speech"
)

var logger = log.WithPrefix("engines")

// maxResponseSize bounds provider audio responses.
const maxResponseSize = 32 << 20

// AudioCache stores synthesized audio. *cache.Manager implements it.
type AudioCache interface {
	Get(key string) ([]byte, cache.Level, bool)
	Put(key string, value []byte) error
}

// call sends an optional JSON body and returns the response body. Failures
// are *speech.Error values; a cancelled ctx is returned as ctx.Err().
func call(ctx context.Context, client *http.Client, kind speech.Kind, method, url string, headers map[string]string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := sonic.Marshal(body)
		if err != nil {
			return nil, speech.NewError(speech.CodeRequest, kind, "failed to encode request", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, speech.NewError(speech.CodeRequest, kind, "failed to build request", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, speech.NewError(speech.CodeRequest, kind, "request failed", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, speech.NewError(speech.CodeRequest, kind, "failed to read response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		e := speech.NewError(speech.CodeStatus, kind, statusMessage(data), nil)
		e.StatusCode = resp.StatusCode
		return nil, e
	}
	return data, nil
}

func statusMessage(body []byte) string {
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return "unexpected response"
	}
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	return fmt.Sprintf("unexpected response: %s", msg)
}
