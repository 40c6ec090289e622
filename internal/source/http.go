package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// defaultMaxBodySize はレスポンスボディの既定の読み取り上限（5MiB）。
const defaultMaxBodySize int64 = 5 << 20

// StatusError は2xx以外のHTTPステータスを表す。
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected HTTP status %d from %s", e.StatusCode, e.URL)
}

// StatusOf はエラーに含まれるHTTPステータスを返す。なければ0。
func StatusOf(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// GetBody はGETリクエストを送り、2xxの場合のみボディを返す。
func GetBody(ctx context.Context, client HTTPClient, rawURL, userAgent string, maxBody int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("リクエスト作成に失敗: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml, text/html, */*")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエスト失敗: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	return readBody(resp.Body, maxBody)
}

// readBody は上限付きでボディを読み取る。
func readBody(r io.Reader, maxBody int64) ([]byte, error) {
	if maxBody <= 0 {
		maxBody = defaultMaxBodySize
	}
	body, err := io.ReadAll(io.LimitReader(r, maxBody))
	if err != nil {
		return nil, fmt.Errorf("レスポンス読み取り失敗: %w", err)
	}
	return body, nil
}
