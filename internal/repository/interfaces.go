// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/ethfeed/internal/model"
)

// ItemRepository は記事データの永続化インターフェース。
// 取り込みパイプラインとキュレーション操作の両方が利用する。
type ItemRepository interface {
	// InsertMany は記事を1トランザクションでINSERTし、新規に挿入された件数を返す。
	// URLが既存の記事はスキップし、既存行のフィールドは一切変更しない。
	InsertMany(ctx context.Context, items []model.NewItem) (int, error)

	// ListURLs は保存済みの全記事URLを返す。
	ListURLs(ctx context.Context) ([]string, error)

	// MarkInIssue は指定URLの記事のうちissue_urlが未設定のものにissueURLを設定する。
	// 実際に更新された件数を返す。既に設定済みの記事は上書きしない。
	MarkInIssue(ctx context.Context, issueURL string, urls []string) (int, error)

	// HasIssueURL はissue_urlが指定値の記事が存在するかを返す。
	HasIssueURL(ctx context.Context, issueURL string) (bool, error)

	// List は条件に合う記事をカテゴリ順、ソース優先度、ソース名、タイトルの順で返す。
	List(ctx context.Context, filter model.ItemFilter) ([]*model.NewsItem, error)

	// FindByID は指定IDの記事を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.NewsItem, error)

	// Update は記事を部分更新する。対象が存在しない場合はfalseを返す。
	Update(ctx context.Context, id int64, update model.ItemUpdate) (bool, error)

	// BulkUpdateStatus は複数記事のstatusを一括更新し、更新件数を返す。
	BulkUpdateStatus(ctx context.Context, ids []int64, status model.Status) (int, error)

	// Ping はストレージへの疎通を確認する。
	Ping(ctx context.Context) error
}
