package issue

import (
	"bytes"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// embeddedHref はテキストやコメント内に埋め込まれたhref属性の記述に一致する。
var embeddedHref = regexp.MustCompile(`href="(https?://[^"]+)"`)

// ExtractLinks はHTMLからhttp(s)で始まるhref属性をすべて抽出する。
// 要素の種類は問わず、script/style本文やコメント内の記述も対象とする。
// 重複は除き、出現順を保つ。
func ExtractLinks(body []byte) []string {
	var links []string
	seen := make(map[string]struct{})
	add := func(href string) {
		href = strings.TrimSpace(href)
		if !strings.HasPrefix(href, "http://") && !strings.HasPrefix(href, "https://") {
			return
		}
		if _, ok := seen[href]; ok {
			return
		}
		seen[href] = struct{}{}
		links = append(links, href)
	}
	scan := func(text []byte) {
		for _, m := range embeddedHref.FindAllSubmatch(text, -1) {
			add(string(m[1]))
		}
	}

	tokenizer := html.NewTokenizer(bytes.NewReader(body))
	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return links

		case html.StartTagToken, html.SelfClosingTagToken:
			_, hasAttr := tokenizer.TagName()
			for hasAttr {
				var key, val []byte
				key, val, hasAttr = tokenizer.TagAttr()
				if strings.EqualFold(string(key), "href") {
					add(string(val))
				}
			}

		case html.TextToken, html.CommentToken:
			// 実体参照を展開しない生のバイト列を走査する
			scan(tokenizer.Raw())
		}
	}
}
