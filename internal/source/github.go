package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultGitHubAPIURL はGitHub REST APIのベースURL。
	DefaultGitHubAPIURL = "https://api.github.com"
	// releasesPerPage はリリース一覧の取得件数。
	releasesPerPage = 10
	// issuesPerPage はIssue検索の取得件数。
	issuesPerPage = 30
)

// GitHubConfig はGitHubClientの設定。
type GitHubConfig struct {
	BaseURL     string
	Token       string
	UserAgent   string
	MaxBodySize int64
}

// GitHubClient はGitHub REST APIのクライアント。
// 認証が拒否された場合（401/403）は認証ヘッダなしで1回だけ再試行する。
type GitHubClient struct {
	http    HTTPClient
	cfg     GitHubConfig
	logger  *slog.Logger
	baseURL string
}

// NewGitHubClient はGitHubClientを生成する。
func NewGitHubClient(httpClient HTTPClient, cfg GitHubConfig, logger *slog.Logger) *GitHubClient {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultGitHubAPIURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "ethfeed/1.0"
	}
	return &GitHubClient{http: httpClient, cfg: cfg, logger: logger, baseURL: base}
}

// Release はGitHubのリリースを表す。
type Release struct {
	TagName     string `json:"tag_name"`
	Name        string `json:"name"`
	HTMLURL     string `json:"html_url"`
	PublishedAt string `json:"published_at"`
	Body        string `json:"body"`
	Prerelease  bool   `json:"prerelease"`
	Draft       bool   `json:"draft"`
}

// Issue はGitHubのIssue（Pull Requestを含む）を表す。
type Issue struct {
	Number      int    `json:"number"`
	Title       string `json:"title"`
	HTMLURL     string `json:"html_url"`
	CreatedAt   string `json:"created_at"`
	Body        string `json:"body"`
	PullRequest *struct {
		HTMLURL string `json:"html_url"`
	} `json:"pull_request"`
}

// AuthHeader はトークンからAuthorizationヘッダの値を生成する。
// fine-grained token（github_pat_）はBearer、それ以外はtoken形式。
func AuthHeader(token string) string {
	if token == "" {
		return ""
	}
	if strings.HasPrefix(token, "github_pat_") {
		return "Bearer " + token
	}
	return "token " + token
}

// Releases は指定リポジトリの最近のリリースを取得する。
func (c *GitHubClient) Releases(ctx context.Context, owner, repo string) ([]Release, error) {
	q := url.Values{}
	q.Set("per_page", strconv.Itoa(releasesPerPage))

	var releases []Release
	if err := c.getJSON(ctx, fmt.Sprintf("/repos/%s/%s/releases", owner, repo), q, &releases); err != nil {
		return nil, err
	}
	return releases, nil
}

// Issues は指定ラベルが付いたオープンなIssueを作成日の新しい順に取得する。
func (c *GitHubClient) Issues(ctx context.Context, owner, repo, label string) ([]Issue, error) {
	q := url.Values{}
	q.Set("labels", label)
	q.Set("state", "open")
	q.Set("sort", "created")
	q.Set("direction", "desc")
	q.Set("per_page", strconv.Itoa(issuesPerPage))

	var issues []Issue
	if err := c.getJSON(ctx, fmt.Sprintf("/repos/%s/%s/issues", owner, repo), q, &issues); err != nil {
		return nil, err
	}
	return issues, nil
}

func (c *GitHubClient) getJSON(ctx context.Context, path string, query url.Values, v interface{}) error {
	reqURL := c.baseURL + path + "?" + query.Encode()
	auth := AuthHeader(c.cfg.Token)

	resp, err := c.do(ctx, reqURL, auth)
	if err != nil {
		return err
	}

	if (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) && auth != "" {
		resp.Body.Close()
		c.logger.Warn("GitHub APIが認証を拒否したため認証なしで再試行します",
			slog.String("url", reqURL),
			slog.Int("http_status", resp.StatusCode),
		)
		resp, err = c.do(ctx, reqURL, "")
		if err != nil {
			return err
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{URL: reqURL, StatusCode: resp.StatusCode}
	}

	body, err := readBody(resp.Body, c.cfg.MaxBodySize)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("GitHub APIレスポンスのデコードに失敗: %w", err)
	}
	return nil
}

func (c *GitHubClient) do(ctx context.Context, reqURL, auth string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("リクエスト作成に失敗: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエスト失敗: %w", err)
	}
	return resp, nil
}

// parseGitHubTime はGitHub APIのタイムスタンプをパースする。失敗時はゼロ値。
func parseGitHubTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
