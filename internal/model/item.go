// Package model はドメインモデルを定義する。
package model

import "time"

// SourceType は記事の取得元の種別を表す。
type SourceType string

const (
	// SourceTypeClientRelease はEthereumクライアントのリリース。
	SourceTypeClientRelease SourceType = "client_release"
	// SourceTypeDevToolRelease は開発ツールのリリース。
	SourceTypeDevToolRelease SourceType = "dev_tool_release"
	// SourceTypeBlogPost はブログ記事。
	SourceTypeBlogPost SourceType = "blog_post"
	// SourceTypeProposal はEIP/ERCの新規提案。
	SourceTypeProposal SourceType = "eip"
	// SourceTypeResearch は研究フォーラムのトピック。
	SourceTypeResearch SourceType = "research"
)

// SourceTypes は既知のSourceTypeの一覧。
var SourceTypes = []SourceType{
	SourceTypeClientRelease,
	SourceTypeDevToolRelease,
	SourceTypeBlogPost,
	SourceTypeProposal,
	SourceTypeResearch,
}

// Valid はSourceTypeが既知の値かを返す。
func (s SourceType) Valid() bool {
	for _, st := range SourceTypes {
		if s == st {
			return true
		}
	}
	return false
}

// Status はキュレーション状態を表す。
type Status string

const (
	// StatusPending は未判定。取り込み時の初期値。
	StatusPending Status = "pending"
	// StatusIncluded はニュースレターに掲載する。
	StatusIncluded Status = "included"
	// StatusExcluded はニュースレターに掲載しない。
	StatusExcluded Status = "excluded"
)

// Valid はStatusが既知の値かを返す。
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusIncluded, StatusExcluded:
		return true
	default:
		return false
	}
}

// NewsItem は永続化された記事を表す。
// URLが外部識別子で、ストレージ上で一意である。
type NewsItem struct {
	ID          int64
	Title       string
	URL         string
	Description string
	SourceType  SourceType
	SourceName  string
	Category    Category
	PublishedAt time.Time
	FetchedAt   time.Time
	Status      Status
	Version     *string
	Prerelease  bool
	IssueURL    *string // 掲載済みの号のURL。一度設定されたら取り込み処理では上書きしない
}

// NewItem はフェッチャーが生成する未保存の記事データを表す。
// 取り込み処理でNewsItemとしてINSERTされる。
type NewItem struct {
	Title       string
	URL         string
	Description string
	SourceType  SourceType
	SourceName  string
	Category    Category
	PublishedAt time.Time
	Version     *string
	Prerelease  bool
}

// ItemFilter は記事一覧の絞り込み条件を表す。
type ItemFilter struct {
	// Status が空の場合は全状態を対象にする。
	Status Status
	// IncludeInIssue がfalseの場合、掲載済み（issue_urlあり）の記事を除外する。
	IncludeInIssue bool
}

// ItemUpdate は記事の部分更新内容を表す。nilのフィールドは変更しない。
type ItemUpdate struct {
	Status   *Status
	Category *Category
	// IssueURL はSetIssueURLがtrueの場合のみ反映する。値がnilならクリアする。
	IssueURL    *string
	SetIssueURL bool
}

// Empty は更新内容が空かを返す。
func (u ItemUpdate) Empty() bool {
	return u.Status == nil && u.Category == nil && !u.SetIssueURL
}
