// Package normalizer はHTML/Markdownのマークアップ除去と説明文の切り詰めを提供する。
// すべてのフェッチャーが説明文の生成に利用する。
package normalizer

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// DescriptionMaxLength は説明文の既定の最大文字数。
const DescriptionMaxLength = 200

// Ellipsis は切り詰め時に末尾へ付与する記号。
const Ellipsis = "..."

var (
	strictPolicy = bluemonday.StrictPolicy()

	whitespacePattern = regexp.MustCompile(`\s+`)
	headerPattern     = regexp.MustCompile(`#{1,6}\s*`)
	headingOnly       = regexp.MustCompile(`^#{1,6}\s+[^\n]*$`)
	linkPattern       = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
)

// StripHTML はHTMLタグを除去し、エンティティをデコードして空白を1つに詰める。
func StripHTML(s string) string {
	if s == "" {
		return ""
	}
	text := strictPolicy.Sanitize(s)
	// StrictPolicyはテキストをエスケープして返すため、デコードしてから空白を詰める
	text = html.UnescapeString(text)
	text = strings.ReplaceAll(text, "\u00a0", " ")
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(text, " "))
}

// StripMarkdown は見出し記号、太字記号、リンク構文を除去する。
// リンクはリンクテキストに置き換える。
func StripMarkdown(s string) string {
	s = headerPattern.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "**", "")
	s = linkPattern.ReplaceAllString(s, "$1")
	return strings.TrimSpace(s)
}

// Truncate はsが最大文字数を超える場合に切り詰め、末尾の空白を除いて"..."を付与する。
// 文字数はルーン単位で数える。
func Truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return strings.TrimRight(string(runes[:max]), " \t\r\n") + Ellipsis
}

// Description はリリースノートやPR本文から短い説明文を生成する。
// 見出しだけの段落を飛ばした最初の段落を使い、Markdownを除去して空白を詰め、最大文字数に切り詰める。
func Description(body string, max int) string {
	if body == "" {
		return ""
	}
	body = strings.ReplaceAll(body, "\r\n", "\n")
	text := whitespacePattern.ReplaceAllString(StripMarkdown(firstParagraph(body)), " ")
	return Truncate(strings.TrimSpace(text), max)
}

// firstParagraph は空行区切りで最初の本文段落を返す。
// すべてが見出しの場合は先頭の段落を返す。
func firstParagraph(body string) string {
	paragraphs := strings.Split(body, "\n\n")
	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" || headingOnly.MatchString(p) {
			continue
		}
		return p
	}
	return paragraphs[0]
}

// FeedDescription はフィードのHTML本文から短い説明文を生成する。
func FeedDescription(rawHTML string) string {
	return Truncate(StripHTML(rawHTML), DescriptionMaxLength)
}
