// Package feed はRSS 2.0とAtomのフィードを共通のエントリ形式に変換する。
package feed

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/mmcdole/gofeed/atom"
	"github.com/mmcdole/gofeed/rss"
)

// Entry はフィード形式に依存しない記事エントリを表す。
// PublishedAt はパースできない場合ゼロ値になる。
// Description はHTMLを含む生の本文で、正規化は呼び出し側で行う。
type Entry struct {
	Title       string
	URL         string
	Description string
	PublishedAt time.Time
}

// Parse はフィードのXMLをエントリ列に変換する。
// 形式はトップレベル要素から自動判定し、RSSでもAtomでもない場合は空を返す（エラーではない）。
// XMLとして壊れている場合はエラーを返す。
func Parse(data []byte) ([]Entry, error) {
	switch gofeed.DetectFeedType(bytes.NewReader(data)) {
	case gofeed.FeedTypeRSS:
		return parseRSS(data)
	case gofeed.FeedTypeAtom:
		return parseAtom(data)
	default:
		return nil, nil
	}
}

func parseRSS(data []byte) ([]Entry, error) {
	fp := &rss.Parser{}
	f, err := fp.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("RSSのパースに失敗しました: %w", err)
	}

	entries := make([]Entry, 0, len(f.Items))
	for _, item := range f.Items {
		if item == nil {
			continue
		}

		description := item.Description
		if description == "" {
			description = item.Content
		}

		entries = append(entries, Entry{
			Title:       strings.TrimSpace(item.Title),
			URL:         strings.TrimSpace(item.Link),
			Description: description,
			PublishedAt: rssPublished(item),
		})
	}
	return entries, nil
}

// rssPublished はpubDate、なければdc:dateから公開日時を求める。
func rssPublished(item *rss.Item) time.Time {
	if item.PubDateParsed != nil {
		return item.PubDateParsed.UTC()
	}
	if item.PubDate == "" && item.DublinCoreExt != nil && len(item.DublinCoreExt.Date) > 0 {
		v := strings.TrimSpace(item.DublinCoreExt.Date[0])
		for _, layout := range dcDateLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t.UTC()
			}
		}
	}
	return time.Time{}
}

// dcDateLayouts はdc:date（W3C-DTF）として受け付ける形式。
var dcDateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04Z07:00", "2006-01-02"}

func parseAtom(data []byte) ([]Entry, error) {
	fp := &atom.Parser{}
	f, err := fp.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("Atomのパースに失敗しました: %w", err)
	}

	entries := make([]Entry, 0, len(f.Entries))
	for _, e := range f.Entries {
		if e == nil {
			continue
		}

		description := e.Summary
		if e.Content != nil && e.Content.Value != "" {
			description = e.Content.Value
		}

		var published time.Time
		switch {
		case e.PublishedParsed != nil:
			published = e.PublishedParsed.UTC()
		case e.Published == "" && e.UpdatedParsed != nil:
			published = e.UpdatedParsed.UTC()
		}

		entries = append(entries, Entry{
			Title:       strings.TrimSpace(e.Title),
			URL:         atomLink(e.Links),
			Description: description,
			PublishedAt: published,
		})
	}
	return entries, nil
}

// atomLink はrel="alternate"またはrel未指定のリンクを優先し、なければ先頭のリンクを返す。
func atomLink(links []*atom.Link) string {
	var first string
	for _, l := range links {
		if l == nil {
			continue
		}
		if first == "" {
			first = l.Href
		}
		if l.Rel == "" || l.Rel == "alternate" {
			return strings.TrimSpace(l.Href)
		}
	}
	return strings.TrimSpace(first)
}
