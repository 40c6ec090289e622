package item

import (
	"context"

	"github.com/hitoshi/ethfeed/internal/model"
	"github.com/hitoshi/ethfeed/internal/repository"
)

// ItemService はキュレーション用の記事参照・更新サービス。
type ItemService struct {
	itemRepo repository.ItemRepository
}

// NewItemService はItemServiceの新しいインスタンスを生成する。
func NewItemService(itemRepo repository.ItemRepository) *ItemService {
	return &ItemService{itemRepo: itemRepo}
}

// UpdateInput は記事の更新リクエスト。
// IssueURL はSetIssueURLがtrueの場合のみ反映し、nilなら割り当てを解除する。
type UpdateInput struct {
	Status      *string
	Category    *string
	IssueURL    *string
	SetIssueURL bool
}

// ListItems は記事一覧を返す。statusが空の場合は全状態を対象にする。
func (s *ItemService) ListItems(ctx context.Context, status string, includeInIssue bool) ([]*model.NewsItem, error) {
	filter := model.ItemFilter{IncludeInIssue: includeInIssue}
	if status != "" {
		st := model.Status(status)
		if !st.Valid() {
			return nil, model.NewInvalidStatusError(status)
		}
		filter.Status = st
	}
	return s.itemRepo.List(ctx, filter)
}

// GetItem は記事詳細を返す。
func (s *ItemService) GetItem(ctx context.Context, id int64) (*model.NewsItem, error) {
	item, err := s.itemRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, model.NewItemNotFoundError(id)
	}
	return item, nil
}

// UpdateItem は記事のstatus、category、issue_urlを部分更新し、更新後の記事を返す。
// issue_urlの明示的な設定・解除はキュレーターによる訂正として扱い、
// 取り込み時の「最初の号を優先する」規則の対象外とする。
func (s *ItemService) UpdateItem(ctx context.Context, id int64, in UpdateInput) (*model.NewsItem, error) {
	var update model.ItemUpdate

	if in.Status != nil {
		st := model.Status(*in.Status)
		if !st.Valid() {
			return nil, model.NewInvalidStatusError(*in.Status)
		}
		update.Status = &st
	}
	if in.Category != nil {
		cat := model.Category(*in.Category)
		if !cat.Valid() {
			return nil, model.NewInvalidCategoryError(*in.Category)
		}
		update.Category = &cat
	}
	if in.SetIssueURL {
		update.SetIssueURL = true
		if in.IssueURL != nil && *in.IssueURL != "" {
			u := *in.IssueURL
			update.IssueURL = &u
		}
	}

	if update.Empty() {
		return nil, model.NewNoChangesError()
	}

	found, err := s.itemRepo.Update(ctx, id, update)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, model.NewItemNotFoundError(id)
	}
	return s.GetItem(ctx, id)
}

// BulkUpdateStatus は複数記事のstatusを一括更新し、更新件数を返す。
func (s *ItemService) BulkUpdateStatus(ctx context.Context, ids []int64, status string) (int, error) {
	if len(ids) == 0 {
		return 0, model.NewInvalidRequestError("ids を1件以上指定してください")
	}
	st := model.Status(status)
	if !st.Valid() {
		return 0, model.NewInvalidStatusError(status)
	}
	return s.itemRepo.BulkUpdateStatus(ctx, ids, st)
}
