// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, item, ingest, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidRequest  = "INVALID_REQUEST"
	ErrCodeInvalidStatus   = "INVALID_STATUS"
	ErrCodeInvalidCategory = "INVALID_CATEGORY"
	ErrCodeItemNotFound    = "ITEM_NOT_FOUND"
	ErrCodeNoChanges       = "NO_CHANGES"
	ErrCodeIngestRunning   = "INGEST_RUNNING"
	ErrCodeInternal        = "INTERNAL_ERROR"
)

// NewInvalidRequestError はリクエスト不正エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストが不正です: %s", reason),
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}

// NewInvalidStatusError は無効なステータスエラーを生成する。
func NewInvalidStatusError(status string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidStatus,
		Message:  fmt.Sprintf("無効なステータスです: %s", status),
		Category: "validation",
		Action:   "ステータスには pending、included、excluded のいずれかを指定してください。",
	}
}

// NewInvalidCategoryError は無効なカテゴリエラーを生成する。
func NewInvalidCategoryError(category string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCategory,
		Message:  fmt.Sprintf("無効なカテゴリです: %s", category),
		Category: "validation",
		Action:   "GET /api/categories で有効なカテゴリを確認してください。",
	}
}

// NewItemNotFoundError は記事未検出エラーを生成する。
func NewItemNotFoundError(itemID int64) *APIError {
	return &APIError{
		Code:     ErrCodeItemNotFound,
		Message:  fmt.Sprintf("指定された記事が見つかりません: %d", itemID),
		Category: "item",
		Action:   "記事IDを確認してください。",
	}
}

// NewNoChangesError は更新内容がない場合のエラーを生成する。
func NewNoChangesError() *APIError {
	return &APIError{
		Code:     ErrCodeNoChanges,
		Message:  "変更はありませんでした。",
		Category: "validation",
		Action:   "status、category、issue_url のいずれかを指定してください。",
	}
}

// NewIngestRunningError は取り込み処理が実行中の場合のエラーを生成する。
func NewIngestRunningError() *APIError {
	return &APIError{
		Code:     ErrCodeIngestRunning,
		Message:  "取り込み処理はすでに実行中です。",
		Category: "ingest",
		Action:   "実行中の処理が完了してから再度お試しください。",
	}
}
