// Package item は記事の取り込みとキュレーションの機能を提供する。
package item

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hitoshi/ethfeed/internal/model"
	"github.com/hitoshi/ethfeed/internal/repository"
)

// ItemUpsertService は取得した記事を検証してストアに登録する。
// 同一性はURLのみで判定し、既存の記事は更新しない（最初に取得した内容を保持する）。
type ItemUpsertService struct {
	itemRepo repository.ItemRepository
}

// NewItemUpsertService はItemUpsertServiceの新しいインスタンスを生成する。
func NewItemUpsertService(itemRepo repository.ItemRepository) *ItemUpsertService {
	return &ItemUpsertService{itemRepo: itemRepo}
}

// UpsertItems は記事を1トランザクションで登録し、新規に挿入された件数を返す。
// URLが空の記事は登録しない。タイトルが空の記事は空文字のまま登録する。
// カテゴリが未設定または不明な場合はソース種別の既定カテゴリに置き換える。
func (s *ItemUpsertService) UpsertItems(ctx context.Context, items []model.NewItem) (int, error) {
	valid := make([]model.NewItem, 0, len(items))
	for _, it := range items {
		it.URL = strings.TrimSpace(it.URL)
		it.Title = strings.TrimSpace(it.Title)
		if it.URL == "" {
			slog.Debug("URLが空の記事をスキップ",
				"source_name", it.SourceName,
				"url", it.URL,
			)
			continue
		}

		if !it.Category.Valid() {
			if it.Category != "" {
				slog.Warn("不明なカテゴリを既定値に置き換えます",
					"source_name", it.SourceName,
					"category", it.Category,
				)
			}
			it.Category = model.DefaultCategory(it.SourceType)
		}
		valid = append(valid, it)
	}

	if len(valid) == 0 {
		return 0, nil
	}

	inserted, err := s.itemRepo.InsertMany(ctx, valid)
	if err != nil {
		slog.Error("記事の登録でエラー",
			"candidates", len(valid),
			"error", err,
		)
		return 0, fmt.Errorf("記事の登録に失敗: %w", err)
	}

	slog.Info("記事UPSERT完了",
		"candidates", len(valid),
		"inserted", inserted,
		"skipped", len(items)-inserted,
	)
	return inserted, nil
}
