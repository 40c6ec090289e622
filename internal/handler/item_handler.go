package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/ethfeed/internal/item"
	"github.com/hitoshi/ethfeed/internal/middleware"
	"github.com/hitoshi/ethfeed/internal/model"
)

// ItemServiceInterface は記事ハンドラーが必要とするサービスインターフェース。
type ItemServiceInterface interface {
	// ListItems は記事一覧を返す。statusが空の場合は全状態を対象にする。
	ListItems(ctx context.Context, status string, includeInIssue bool) ([]*model.NewsItem, error)
	// GetItem は記事詳細を返す。
	GetItem(ctx context.Context, id int64) (*model.NewsItem, error)
	// UpdateItem は記事を部分更新し、更新後の記事を返す。
	UpdateItem(ctx context.Context, id int64, in item.UpdateInput) (*model.NewsItem, error)
	// BulkUpdateStatus は複数記事のstatusを一括更新し、更新件数を返す。
	BulkUpdateStatus(ctx context.Context, ids []int64, status string) (int, error)
}

var _ ItemServiceInterface = (*item.ItemService)(nil)

// ItemHandler は記事キュレーションのHTTPハンドラー。
type ItemHandler struct {
	service ItemServiceInterface
}

// NewItemHandler はItemHandlerを生成する。
func NewItemHandler(service ItemServiceInterface) *ItemHandler {
	return &ItemHandler{service: service}
}

// --- レスポンス型 ---

// itemResponse は記事のレスポンス。
type itemResponse struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Description string    `json:"description"`
	SourceType  string    `json:"source_type"`
	SourceName  string    `json:"source_name"`
	Category    string    `json:"category"`
	PublishedAt time.Time `json:"published_at"`
	FetchedAt   time.Time `json:"fetched_at"`
	Status      string    `json:"status"`
	Version     *string   `json:"version"`
	Prerelease  bool      `json:"prerelease"`
	IssueURL    *string   `json:"issue_url"`
}

// itemListResponse は記事一覧のレスポンス。
type itemListResponse struct {
	Items []itemResponse `json:"items"`
	Count int            `json:"count"`
}

// itemUpdateRequest は記事更新リクエストのボディ。
// issue_urlは「未指定」と「null（解除）」を区別するためRawMessageで受ける。
type itemUpdateRequest struct {
	Status   *string         `json:"status"`
	Category *string         `json:"category"`
	IssueURL json.RawMessage `json:"issue_url"`
}

// bulkStatusRequest は一括status更新リクエストのボディ。
type bulkStatusRequest struct {
	IDs    []int64 `json:"ids"`
	Status string  `json:"status"`
}

// bulkStatusResponse は一括status更新のレスポンス。
type bulkStatusResponse struct {
	Updated int `json:"updated"`
}

func toItemResponse(it *model.NewsItem) itemResponse {
	return itemResponse{
		ID:          it.ID,
		Title:       it.Title,
		URL:         it.URL,
		Description: it.Description,
		SourceType:  string(it.SourceType),
		SourceName:  it.SourceName,
		Category:    string(it.Category),
		PublishedAt: it.PublishedAt,
		FetchedAt:   it.FetchedAt,
		Status:      string(it.Status),
		Version:     it.Version,
		Prerelease:  it.Prerelease,
		IssueURL:    it.IssueURL,
	}
}

// ListItems は記事一覧を取得する。
// GET /api/items?status=pending|included|excluded&include_in_issue=true|false
func (h *ItemHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	includeInIssue := false
	if v := q.Get("include_in_issue"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			middleware.WriteAPIError(w, model.NewInvalidRequestError("include_in_issue には true または false を指定してください"))
			return
		}
		includeInIssue = b
	}

	items, err := h.service.ListItems(r.Context(), q.Get("status"), includeInIssue)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := itemListResponse{Items: make([]itemResponse, 0, len(items)), Count: len(items)}
	for _, it := range items {
		resp.Items = append(resp.Items, toItemResponse(it))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetItem は記事詳細を取得する。
// GET /api/items/:id
func (h *ItemHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, ok := parseItemID(w, r)
	if !ok {
		return
	}

	it, err := h.service.GetItem(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemResponse(it))
}

// UpdateItem は記事のstatus、category、issue_urlを部分更新する。
// PATCH /api/items/:id
func (h *ItemHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := parseItemID(w, r)
	if !ok {
		return
	}

	var req itemUpdateRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	in := item.UpdateInput{Status: req.Status, Category: req.Category}
	if len(req.IssueURL) > 0 {
		in.SetIssueURL = true
		if string(req.IssueURL) != "null" {
			var u string
			if err := json.Unmarshal(req.IssueURL, &u); err != nil {
				middleware.WriteAPIError(w, model.NewInvalidRequestError("issue_url には文字列または null を指定してください"))
				return
			}
			in.IssueURL = &u
		}
	}

	it, err := h.service.UpdateItem(r.Context(), id, in)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemResponse(it))
}

// BulkUpdateStatus は複数記事のstatusを一括更新する。
// PATCH /api/items
func (h *ItemHandler) BulkUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req bulkStatusRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	n, err := h.service.BulkUpdateStatus(r.Context(), req.IDs, req.Status)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bulkStatusResponse{Updated: n})
}

// ListCategories は固定順のカテゴリ一覧を返す。
// GET /api/categories
func ListCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]model.Category{"categories": model.Categories})
}

// parseItemID はURLパラメータの記事IDを解析する。
// 不正な場合はINVALID_REQUESTを書き込みfalseを返す。
func parseItemID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		middleware.WriteAPIError(w, model.NewInvalidRequestError("記事IDは正の整数で指定してください"))
		return 0, false
	}
	return id, true
}
