// Package issue はニュースレターの最新号を取得し、掲載された記事を保存済みの記事と照合する。
package issue

import (
	"net"
	"net/url"
	"regexp"
	"strings"
)

// repeatedSlash は連続したパス区切りに一致する。
var repeatedSlash = regexp.MustCompile(`/+`)

// NormalizeURL は照合用にURLを正規化する。
//
// ホストは小文字化して先頭の"www."を除き、パスの連続した区切りを1つにまとめ、
// 末尾の区切りを1つだけ取り除く。クエリとフラグメントはそのまま残し、最後にパーセントデコードする。
// 解析やデコードに失敗した場合は入力をそのまま返す。
func NormalizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return rawURL
	}

	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	if port := u.Port(); port != "" && !isDefaultPort(u.Scheme, port) {
		host = net.JoinHostPort(host, port)
	}

	path := repeatedSlash.ReplaceAllString(u.EscapedPath(), "/")
	path = strings.TrimSuffix(path, "/")

	var b strings.Builder
	b.WriteString(strings.ToLower(u.Scheme))
	b.WriteString("://")
	b.WriteString(host)
	b.WriteString(path)
	if u.RawQuery != "" {
		b.WriteString("?")
		b.WriteString(u.RawQuery)
	}
	if u.Fragment != "" {
		b.WriteString("#")
		b.WriteString(u.EscapedFragment())
	}

	decoded, err := url.PathUnescape(b.String())
	if err != nil {
		return rawURL
	}
	return decoded
}

func isDefaultPort(scheme, port string) bool {
	switch strings.ToLower(scheme) {
	case "http":
		return port == "80"
	case "https":
		return port == "443"
	}
	return false
}

// LinkSet は正規化済みのリンク集合。
type LinkSet map[string]struct{}

// NewLinkSet はリンクを正規化して集合を作る。
func NewLinkSet(links []string) LinkSet {
	s := make(LinkSet, len(links))
	for _, l := range links {
		s[NormalizeURL(l)] = struct{}{}
	}
	return s
}

// Contains は記事URLが集合のいずれかのリンクと一致するかを返す。
// 完全一致に加え、一方が他方に"/"を挟んで続くパスの場合も一致とみなす
// （Pull RequestのURLとその/filesページなど）。
func (s LinkSet) Contains(itemURL string) bool {
	normalized := NormalizeURL(itemURL)
	if _, ok := s[normalized]; ok {
		return true
	}
	for link := range s {
		if strings.HasPrefix(link, normalized+"/") || strings.HasPrefix(normalized, link+"/") {
			return true
		}
	}
	return false
}
