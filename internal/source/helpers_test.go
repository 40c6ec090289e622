package source

import (
	"bytes"
	"log/slog"
	"net/http"
	"time"
)

// testNow はテストで使う固定の現在時刻。
var testNow = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func testWindow() Window {
	return Window{Duration: 7 * 24 * time.Hour, Now: func() time.Time { return testNow }}
}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// allowAllValidator はすべてのURLを許可する。httptestサーバー（127.0.0.1）向け。
type allowAllValidator struct{}

func (allowAllValidator) ValidateURL(string) error { return nil }

// mockValidator は関数で検証結果を差し替えるURLValidator。
type mockValidator struct {
	validateFn func(rawURL string) error
}

func (m *mockValidator) ValidateURL(rawURL string) error { return m.validateFn(rawURL) }

// noRedirectClient はリダイレクトを追従しないクライアント。
func noRedirectClient() *http.Client {
	return &http.Client{
		Timeout: 5 * time.Second,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func rfc1123(t time.Time) string {
	return t.UTC().Format(http.TimeFormat)
}
