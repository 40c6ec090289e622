package database

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect はSQL方言を表す。
type Dialect string

const (
	// DialectPostgres はPostgreSQL（lib/pq）。
	DialectPostgres Dialect = "postgres"
	// DialectSQLite はSQLite（modernc.org/sqlite）。ローカル実行とテスト用。
	DialectSQLite Dialect = "sqlite"
)

// sqlitePragmas はSQLite接続ごとに適用するPRAGMA。
const sqlitePragmas = "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

// DialectOf はDATABASE_URLのスキームから方言とドライバ用DSNを判定する。
// postgres:// / postgresql:// はPostgreSQL、sqlite:// はSQLiteファイルとして扱う。
func DialectOf(databaseURL string) (Dialect, string, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return DialectPostgres, databaseURL, nil
	case strings.HasPrefix(databaseURL, "sqlite://"):
		path := strings.TrimPrefix(databaseURL, "sqlite://")
		if path == "" {
			return "", "", fmt.Errorf("sqlite database path is empty")
		}
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		return DialectSQLite, path + sep + sqlitePragmas, nil
	default:
		return "", "", fmt.Errorf("unsupported database url scheme: %q", Redact(databaseURL))
	}
}

// DB はsql.DBと方言の組を表す。
// 呼び出し側はOpenで取得し、不要になったらCloseで解放する。
type DB struct {
	*sql.DB
	Dialect Dialect
}

// Open はDATABASE_URLに応じたデータベース接続を開く。
// sql.Openは接続を試行しないため、実際の接続確認にはdb.Ping()を使用すること。
func Open(databaseURL string) (*DB, error) {
	dialect, dsn, err := DialectOf(databaseURL)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if dialect == DialectSQLite {
		// SQLiteは単一ライタのため接続を1本に絞る
		db.SetMaxOpenConns(1)
	}

	return &DB{DB: db, Dialect: dialect}, nil
}

// Redact はURLのユーザー情報を伏せてログ・エラー出力用の文字列を返す。
func Redact(databaseURL string) string {
	scheme, rest, ok := strings.Cut(databaseURL, "://")
	if !ok {
		return databaseURL
	}
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		rest = "***@" + rest[at+1:]
	}
	return scheme + "://" + rest
}
