package item

import (
	"context"
	"errors"
	"testing"

	"github.com/hitoshi/ethfeed/internal/model"
)

func strPtr(s string) *string { return &s }

func assertAPIError(t *testing.T, err error, code string) {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *model.APIError", err)
	}
	if apiErr.Code != code {
		t.Errorf("Code = %q, want %q", apiErr.Code, code)
	}
}

// --- ListItems テスト ---

func TestItemService_ListItems_PassesFilter(t *testing.T) {
	var got model.ItemFilter
	repo := &mockItemRepo{
		listFn: func(_ context.Context, filter model.ItemFilter) ([]*model.NewsItem, error) {
			got = filter
			return []*model.NewsItem{{ID: 1}}, nil
		},
	}
	svc := NewItemService(repo)

	items, err := svc.ListItems(context.Background(), "pending", true)
	if err != nil {
		t.Fatalf("ListItems returned error: %v", err)
	}
	if len(items) != 1 {
		t.Errorf("items count = %d, want 1", len(items))
	}
	if got.Status != model.StatusPending || !got.IncludeInIssue {
		t.Errorf("filter = %+v", got)
	}
}

func TestItemService_ListItems_EmptyStatusMeansAll(t *testing.T) {
	var got model.ItemFilter
	repo := &mockItemRepo{
		listFn: func(_ context.Context, filter model.ItemFilter) ([]*model.NewsItem, error) {
			got = filter
			return nil, nil
		},
	}
	svc := NewItemService(repo)

	if _, err := svc.ListItems(context.Background(), "", false); err != nil {
		t.Fatalf("ListItems returned error: %v", err)
	}
	if got.Status != "" || got.IncludeInIssue {
		t.Errorf("filter = %+v", got)
	}
}

func TestItemService_ListItems_InvalidStatus(t *testing.T) {
	svc := NewItemService(&mockItemRepo{})
	_, err := svc.ListItems(context.Background(), "approved", false)
	assertAPIError(t, err, model.ErrCodeInvalidStatus)
}

// --- GetItem テスト ---

func TestItemService_GetItem_NotFound(t *testing.T) {
	svc := NewItemService(&mockItemRepo{})
	_, err := svc.GetItem(context.Background(), 99)
	assertAPIError(t, err, model.ErrCodeItemNotFound)
}

// --- UpdateItem テスト ---

func TestItemService_UpdateItem_StatusAndCategory(t *testing.T) {
	var got model.ItemUpdate
	repo := &mockItemRepo{
		updateFn: func(_ context.Context, id int64, update model.ItemUpdate) (bool, error) {
			if id != 7 {
				t.Errorf("id = %d, want 7", id)
			}
			got = update
			return true, nil
		},
		findByIDFn: func(_ context.Context, id int64) (*model.NewsItem, error) {
			return &model.NewsItem{ID: id, Status: model.StatusIncluded, Category: model.CategoryResearch}, nil
		},
	}
	svc := NewItemService(repo)

	item, err := svc.UpdateItem(context.Background(), 7, UpdateInput{
		Status:   strPtr("included"),
		Category: strPtr("Research"),
	})
	if err != nil {
		t.Fatalf("UpdateItem returned error: %v", err)
	}
	if item.ID != 7 {
		t.Errorf("更新後の記事が返されるべき: %+v", item)
	}
	if got.Status == nil || *got.Status != model.StatusIncluded {
		t.Errorf("update.Status = %v", got.Status)
	}
	if got.Category == nil || *got.Category != model.CategoryResearch {
		t.Errorf("update.Category = %v", got.Category)
	}
	if got.SetIssueURL {
		t.Error("issue_url未指定の場合は変更しない")
	}
}

func TestItemService_UpdateItem_IssueURL(t *testing.T) {
	tests := []struct {
		name    string
		in      UpdateInput
		wantURL *string
	}{
		{"設定", UpdateInput{SetIssueURL: true, IssueURL: strPtr("https://news/3")}, strPtr("https://news/3")},
		{"nullで解除", UpdateInput{SetIssueURL: true}, nil},
		{"空文字で解除", UpdateInput{SetIssueURL: true, IssueURL: strPtr("")}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got model.ItemUpdate
			repo := &mockItemRepo{
				updateFn: func(_ context.Context, _ int64, update model.ItemUpdate) (bool, error) {
					got = update
					return true, nil
				},
				findByIDFn: func(_ context.Context, id int64) (*model.NewsItem, error) {
					return &model.NewsItem{ID: id}, nil
				},
			}
			svc := NewItemService(repo)

			if _, err := svc.UpdateItem(context.Background(), 1, tt.in); err != nil {
				t.Fatalf("UpdateItem returned error: %v", err)
			}
			if !got.SetIssueURL {
				t.Fatal("SetIssueURL が伝播されるべき")
			}
			switch {
			case tt.wantURL == nil && got.IssueURL != nil:
				t.Errorf("IssueURL = %q, want nil", *got.IssueURL)
			case tt.wantURL != nil && (got.IssueURL == nil || *got.IssueURL != *tt.wantURL):
				t.Errorf("IssueURL = %v, want %q", got.IssueURL, *tt.wantURL)
			}
		})
	}
}

func TestItemService_UpdateItem_Validation(t *testing.T) {
	tests := []struct {
		name string
		in   UpdateInput
		code string
	}{
		{"無効なステータス", UpdateInput{Status: strPtr("approved")}, model.ErrCodeInvalidStatus},
		{"無効なカテゴリ", UpdateInput{Category: strPtr("DeFi")}, model.ErrCodeInvalidCategory},
		{"変更なし", UpdateInput{}, model.ErrCodeNoChanges},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockItemRepo{
				updateFn: func(context.Context, int64, model.ItemUpdate) (bool, error) {
					t.Error("検証エラー時はストアを更新しない")
					return true, nil
				},
			}
			svc := NewItemService(repo)

			_, err := svc.UpdateItem(context.Background(), 1, tt.in)
			assertAPIError(t, err, tt.code)
		})
	}
}

func TestItemService_UpdateItem_NotFound(t *testing.T) {
	repo := &mockItemRepo{
		updateFn: func(context.Context, int64, model.ItemUpdate) (bool, error) { return false, nil },
	}
	svc := NewItemService(repo)

	_, err := svc.UpdateItem(context.Background(), 404, UpdateInput{Status: strPtr("excluded")})
	assertAPIError(t, err, model.ErrCodeItemNotFound)
}

// --- BulkUpdateStatus テスト ---

func TestItemService_BulkUpdateStatus(t *testing.T) {
	repo := &mockItemRepo{
		bulkUpdateStatusFn: func(_ context.Context, ids []int64, status model.Status) (int, error) {
			if len(ids) != 3 || status != model.StatusExcluded {
				t.Errorf("ids = %v, status = %q", ids, status)
			}
			return 2, nil
		},
	}
	svc := NewItemService(repo)

	n, err := svc.BulkUpdateStatus(context.Background(), []int64{1, 2, 3}, "excluded")
	if err != nil {
		t.Fatalf("BulkUpdateStatus returned error: %v", err)
	}
	if n != 2 {
		t.Errorf("updated = %d, want 2", n)
	}
}

func TestItemService_BulkUpdateStatus_Validation(t *testing.T) {
	svc := NewItemService(&mockItemRepo{})

	_, err := svc.BulkUpdateStatus(context.Background(), nil, "included")
	assertAPIError(t, err, model.ErrCodeInvalidRequest)

	_, err = svc.BulkUpdateStatus(context.Background(), []int64{1}, "archived")
	assertAPIError(t, err, model.ErrCodeInvalidStatus)
}
