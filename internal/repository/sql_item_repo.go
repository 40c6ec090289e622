package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/hitoshi/ethfeed/internal/database"
	"github.com/hitoshi/ethfeed/internal/model"
)

var itemColumns = []string{
	"id", "title", "url", "description", "source_type", "source_name", "category",
	"published_at", "fetched_at", "status", "version", "prerelease", "issue_url",
}

// SQLItemRepo はPostgreSQLとSQLiteの両方で動作する記事リポジトリ。
// プレースホルダは方言に応じてsquirrelが切り替える。
type SQLItemRepo struct {
	db  *sql.DB
	sb  sq.StatementBuilderType
	now func() time.Time
}

// コンパイル時チェック
var _ ItemRepository = (*SQLItemRepo)(nil)

// NewSQLItemRepo はSQLItemRepoを生成する。
func NewSQLItemRepo(db *database.DB) *SQLItemRepo {
	var format sq.PlaceholderFormat = sq.Question
	if db.Dialect == database.DialectPostgres {
		format = sq.Dollar
	}
	return &SQLItemRepo{
		db:  db.DB,
		sb:  sq.StatementBuilder.PlaceholderFormat(format),
		now: time.Now,
	}
}

// InsertMany は記事を1トランザクションでINSERTする。
// fetched_atはバッチ内で共通の現在時刻（UTC）を使う。
func (r *SQLItemRepo) InsertMany(ctx context.Context, items []model.NewItem) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	fetchedAt := r.now().UTC()
	inserted := 0
	for _, it := range items {
		query, args, err := r.sb.Insert("items").
			Columns("title", "url", "description", "source_type", "source_name", "category",
				"published_at", "fetched_at", "status", "version", "prerelease").
			Values(it.Title, it.URL, it.Description, string(it.SourceType), it.SourceName, string(it.Category),
				it.PublishedAt.UTC(), fetchedAt, string(model.StatusPending), nullStringPtr(it.Version), it.Prerelease).
			Suffix("ON CONFLICT (url) DO NOTHING").
			ToSql()
		if err != nil {
			return 0, fmt.Errorf("INSERT文の生成に失敗しました: %w", err)
		}

		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return 0, fmt.Errorf("記事の保存に失敗しました (url=%s): %w", it.URL, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("挿入件数の取得に失敗しました: %w", err)
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}
	return inserted, nil
}

// ListURLs は保存済みの全記事URLを返す。
func (r *SQLItemRepo) ListURLs(ctx context.Context) ([]string, error) {
	query, args, err := r.sb.Select("url").From("items").ToSql()
	if err != nil {
		return nil, fmt.Errorf("SELECT文の生成に失敗しました: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("記事URL一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("記事URLのスキャンに失敗しました: %w", err)
		}
		urls = append(urls, u)
	}
	return urls, rows.Err()
}

// MarkInIssue はissue_urlが未設定の記事にのみissueURLを設定する。
func (r *SQLItemRepo) MarkInIssue(ctx context.Context, issueURL string, urls []string) (int, error) {
	if len(urls) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	changed := 0
	for _, u := range urls {
		query, args, err := r.sb.Update("items").
			Set("issue_url", issueURL).
			Where(sq.Eq{"url": u, "issue_url": nil}).
			ToSql()
		if err != nil {
			return 0, fmt.Errorf("UPDATE文の生成に失敗しました: %w", err)
		}

		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return 0, fmt.Errorf("issue_urlの設定に失敗しました (url=%s): %w", u, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("更新件数の取得に失敗しました: %w", err)
		}
		changed += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}
	return changed, nil
}

// HasIssueURL はissue_urlが指定値の記事が1件でも存在するかを返す。
func (r *SQLItemRepo) HasIssueURL(ctx context.Context, issueURL string) (bool, error) {
	query, args, err := r.sb.Select("1").From("items").
		Where(sq.Eq{"issue_url": issueURL}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("SELECT文の生成に失敗しました: %w", err)
	}

	var one int
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("issue_urlの検索に失敗しました: %w", err)
	}
	return true, nil
}

// List は条件に合う記事を表示順で返す。
// 並び順: カテゴリの固定順 → eip以外を先 → source_name → title
func (r *SQLItemRepo) List(ctx context.Context, filter model.ItemFilter) ([]*model.NewsItem, error) {
	b := r.sb.Select(itemColumns...).From("items")
	if filter.Status != "" {
		b = b.Where(sq.Eq{"status": string(filter.Status)})
	}
	if !filter.IncludeInIssue {
		b = b.Where(sq.Eq{"issue_url": nil})
	}

	caseSQL, caseArgs := categoryOrder()
	b = b.OrderByClause(caseSQL, caseArgs...).
		OrderByClause("CASE WHEN source_type = ? THEN 1 ELSE 0 END", string(model.SourceTypeProposal)).
		OrderBy("source_name", "title")

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("SELECT文の生成に失敗しました: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("記事一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	items := []*model.NewsItem{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("記事一覧の取得に失敗しました: %w", err)
	}
	return items, nil
}

// FindByID は指定IDの記事を取得する。見つからない場合はnilを返す。
func (r *SQLItemRepo) FindByID(ctx context.Context, id int64) (*model.NewsItem, error) {
	query, args, err := r.sb.Select(itemColumns...).From("items").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("SELECT文の生成に失敗しました: %w", err)
	}

	item, err := scanItem(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

// Update は記事を部分更新する。
// 更新内容が空の場合は存在確認のみ行う。
func (r *SQLItemRepo) Update(ctx context.Context, id int64, update model.ItemUpdate) (bool, error) {
	if update.Empty() {
		item, err := r.FindByID(ctx, id)
		return item != nil, err
	}

	b := r.sb.Update("items").Where(sq.Eq{"id": id})
	if update.Status != nil {
		b = b.Set("status", string(*update.Status))
	}
	if update.Category != nil {
		b = b.Set("category", string(*update.Category))
	}
	if update.SetIssueURL {
		b = b.Set("issue_url", nullStringPtr(update.IssueURL))
	}

	query, args, err := b.ToSql()
	if err != nil {
		return false, fmt.Errorf("UPDATE文の生成に失敗しました: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("記事の更新に失敗しました: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("更新件数の取得に失敗しました: %w", err)
	}
	return n > 0, nil
}

// BulkUpdateStatus は複数記事のstatusを一括更新する。
func (r *SQLItemRepo) BulkUpdateStatus(ctx context.Context, ids []int64, status model.Status) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query, args, err := r.sb.Update("items").
		Set("status", string(status)).
		Where(sq.Eq{"id": ids}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("UPDATE文の生成に失敗しました: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("ステータスの一括更新に失敗しました: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("更新件数の取得に失敗しました: %w", err)
	}
	return int(n), nil
}

// Ping はストレージへの疎通を確認する。
func (r *SQLItemRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// categoryOrder はカテゴリの固定順序で並べるCASE式を生成する。
func categoryOrder() (string, []interface{}) {
	var b strings.Builder
	args := make([]interface{}, 0, len(model.Categories))
	b.WriteString("CASE category")
	for i, c := range model.Categories {
		fmt.Fprintf(&b, " WHEN ? THEN %d", i)
		args = append(args, string(c))
	}
	fmt.Fprintf(&b, " ELSE %d END", len(model.Categories))
	return b.String(), args
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(row rowScanner) (*model.NewsItem, error) {
	item := &model.NewsItem{}
	var sourceType, category, status string
	var version, issueURL sql.NullString

	err := row.Scan(
		&item.ID, &item.Title, &item.URL, &item.Description, &sourceType, &item.SourceName, &category,
		&item.PublishedAt, &item.FetchedAt, &status, &version, &item.Prerelease, &issueURL,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("記事のスキャンに失敗しました: %w", err)
	}

	item.SourceType = model.SourceType(sourceType)
	item.Category = model.Category(category)
	item.Status = model.Status(status)
	item.PublishedAt = item.PublishedAt.UTC()
	item.FetchedAt = item.FetchedAt.UTC()
	item.Version = nullStringToPtr(version)
	item.IssueURL = nullStringToPtr(issueURL)
	return item, nil
}

// nullStringPtr はnilをNULLに変換する。
func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// nullStringToPtr はsql.NullStringを*stringに変換する。NULLはnil。
func nullStringToPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
