// Package app はサブコマンドごとの起動処理と依存関係のワイヤリングを行う。
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/ethfeed/internal/config"
	"github.com/hitoshi/ethfeed/internal/database"
	"github.com/hitoshi/ethfeed/internal/handler"
	"github.com/hitoshi/ethfeed/internal/ingest"
	"github.com/hitoshi/ethfeed/internal/issue"
	"github.com/hitoshi/ethfeed/internal/item"
	"github.com/hitoshi/ethfeed/internal/logger"
	"github.com/hitoshi/ethfeed/internal/metrics"
	"github.com/hitoshi/ethfeed/internal/middleware"
	"github.com/hitoshi/ethfeed/internal/repository"
	"github.com/hitoshi/ethfeed/internal/security"
	"github.com/hitoshi/ethfeed/internal/worker"
)

// summaryOut は ingest コマンドが実行結果を書き出す先。
var summaryOut io.Writer = os.Stdout

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, "info")

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたログレベルで再設定する
	logger.SetupDefault(w, cfg.LogLevel)

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("database_url", database.Redact(cfg.DatabaseURL)),
	)

	switch cmd {
	case CommandIngest:
		return runIngest(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// components は1つのストレージ接続に紐づく依存関係一式。
type components struct {
	db       *database.DB
	repo     *repository.SQLItemRepo
	pipeline *ingest.Pipeline
	registry *prometheus.Registry
}

// openComponents はDB接続を開き、取り込みパイプラインまでを組み立てる。
// 呼び出し側は使用後にclose()で接続を閉じること。
func openComponents(cfg *config.Config) (*components, error) {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	slog.Info("database connection established", slog.String("dialect", string(db.Dialect)))

	// 2. 取得元カタログ
	catalog, err := config.LoadCatalog(cfg.SourcesFile)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load source catalog: %w", err)
	}

	// 3. リポジトリとサービス
	repo := repository.NewSQLItemRepo(db)
	upsertSvc := item.NewItemUpsertService(repo)

	// 4. メトリクス
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(reg)

	// 5. 取得元フェッチャーと号の照合
	guard := security.NewGuard()
	log := slog.Default()
	fetchers := ingest.BuildFetchers(cfg, catalog, guard, log)
	matcher := issue.NewMatcher(guard.Client(cfg.FetchTimeout), guard, repo, issue.Config{
		FeedURL:     cfg.IssueFeedURL,
		UserAgent:   cfg.UserAgent,
		MaxBodySize: cfg.FetchMaxSize,
	}, log)

	pipeline := ingest.NewPipeline(fetchers, matcher, upsertSvc, collector, log)

	return &components{db: db, repo: repo, pipeline: pipeline, registry: reg}, nil
}

func (c *components) close() {
	if err := c.db.Close(); err != nil {
		slog.Warn("failed to close database", slog.String("error", err.Error()))
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	c, err := openComponents(cfg)
	if err != nil {
		return err
	}
	defer c.close()

	rateLimiter := middleware.NewRateLimiter(middleware.IngestRateLimiterConfig(cfg.RateLimitIngest))
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            slog.Default(),
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		HealthChecker:     c.repo,
		ItemService:       item.NewItemService(c.repo),
		IngestRunner:      c.pipeline,
		MetricsHandler:    metrics.Handler(c.registry),
	})

	server := &http.Server{
		Addr:        ":" + cfg.ServerPort,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// POST /api/fetch は取り込み完了まで応答しない
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-stop:
	case err := <-errCh:
		return fmt.Errorf("server listen error: %w", err)
	}
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runIngest は取り込みを1回実行し、サマリーをJSONで出力する。
func runIngest(cfg *config.Config) error {
	c, err := openComponents(cfg)
	if err != nil {
		return err
	}
	defer c.close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	summary, err := c.pipeline.Run(ctx)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	return writeSummary(summaryOut, summary)
}

// writeSummary はサマリーをインデント付きJSONで書き出す。
func writeSummary(w io.Writer, summary *ingest.Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}

// runWorker はワーカーモードで起動する。
// 起動直後とINGEST_INTERVALごとに取り込みを実行する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	c, err := openComponents(cfg)
	if err != nil {
		return err
	}
	defer c.close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("worker starting", slog.Duration("ingest_interval", cfg.IngestInterval))

	// スケジューラをメインgoroutineで実行（ブロッキング）
	worker.NewScheduler(c.pipeline, slog.Default()).Start(ctx, cfg.IngestInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", database.Redact(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health はストレージへの疎通まで確認するため、200以外は異常とみなす。
func runHealthcheck(port string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://localhost:"+port+"/health", nil)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}
