package feed

import (
	"testing"
	"time"
)

const rssFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/" xmlns:dc="http://purl.org/dc/elements/1.1/">
<channel>
  <title>Blog</title>
  <item>
    <title>First post</title>
    <link>https://blog.example.com/first</link>
    <description>&lt;p&gt;Hello &lt;b&gt;world&lt;/b&gt;&lt;/p&gt;</description>
    <pubDate>Mon, 12 Oct 2026 10:00:00 GMT</pubDate>
  </item>
  <item>
    <title>Encoded only</title>
    <link>https://blog.example.com/encoded</link>
    <content:encoded><![CDATA[<p>Full content</p>]]></content:encoded>
    <dc:date>2026-10-11T09:30:00Z</dc:date>
  </item>
  <item>
    <title>Bad date</title>
    <link>https://blog.example.com/bad</link>
    <pubDate>yesterday-ish</pubDate>
  </item>
</channel>
</rss>`

const rssSingleItem = `<rss version="2.0"><channel><title>t</title>
<item><title>Only</title><link>https://example.com/only</link><pubDate>Tue, 13 Oct 2026 00:00:00 +0000</pubDate></item>
</channel></rss>`

const atomFeed = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Atom Blog</title>
  <entry>
    <title>Entry one</title>
    <link rel="self" href="https://example.com/self/1"/>
    <link rel="alternate" href="https://example.com/posts/1"/>
    <summary>summary text</summary>
    <content type="html">&lt;p&gt;content text&lt;/p&gt;</content>
    <published>2026-10-10T08:00:00Z</published>
    <updated>2026-10-14T08:00:00Z</updated>
  </entry>
  <entry>
    <title>Entry two</title>
    <link rel="edit" href="https://example.com/edit/2"/>
    <link href="https://example.com/posts/2"/>
    <summary>only summary</summary>
    <updated>2026-10-09T08:00:00Z</updated>
  </entry>
  <entry>
    <title>Entry three</title>
    <link rel="related" href="https://example.com/related/3"/>
    <published>not a date</published>
    <updated>2026-10-09T08:00:00Z</updated>
  </entry>
</feed>`

func TestParse_RSS(t *testing.T) {
	entries, err := Parse([]byte(rssFeed))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("エントリ数 = %d, want 3", len(entries))
	}

	first := entries[0]
	if first.Title != "First post" || first.URL != "https://blog.example.com/first" {
		t.Errorf("first = %+v", first)
	}
	if first.Description != "<p>Hello <b>world</b></p>" {
		t.Errorf("Description = %q", first.Description)
	}
	want := time.Date(2026, 10, 12, 10, 0, 0, 0, time.UTC)
	if !first.PublishedAt.Equal(want) {
		t.Errorf("PublishedAt = %v, want %v", first.PublishedAt, want)
	}

	// descriptionがない場合はcontent:encodedを使い、pubDateがなければdc:dateを使う
	encoded := entries[1]
	if encoded.Description != "<p>Full content</p>" {
		t.Errorf("content:encoded のフォールバックが効いていない: %q", encoded.Description)
	}
	wantDC := time.Date(2026, 10, 11, 9, 30, 0, 0, time.UTC)
	if !encoded.PublishedAt.Equal(wantDC) {
		t.Errorf("dc:date PublishedAt = %v, want %v", encoded.PublishedAt, wantDC)
	}

	if !entries[2].PublishedAt.IsZero() {
		t.Errorf("不正な日付はゼロ値になるべき: %v", entries[2].PublishedAt)
	}
}

func TestParse_RSS_SingleItem(t *testing.T) {
	entries, err := Parse([]byte(rssSingleItem))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(entries) != 1 || entries[0].URL != "https://example.com/only" {
		t.Errorf("単一itemは1要素のリストとして扱うべき: %+v", entries)
	}
}

func TestParse_Atom(t *testing.T) {
	entries, err := Parse([]byte(atomFeed))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("エントリ数 = %d, want 3", len(entries))
	}

	one := entries[0]
	if one.URL != "https://example.com/posts/1" {
		t.Errorf("rel=alternate のリンクを優先すべき: %q", one.URL)
	}
	if one.Description != "<p>content text</p>" {
		t.Errorf("content を summary より優先すべき: %q", one.Description)
	}
	if !one.PublishedAt.Equal(time.Date(2026, 10, 10, 8, 0, 0, 0, time.UTC)) {
		t.Errorf("published を updated より優先すべき: %v", one.PublishedAt)
	}

	two := entries[1]
	if two.URL != "https://example.com/posts/2" {
		t.Errorf("rel未指定のリンクを優先すべき: %q", two.URL)
	}
	if two.Description != "only summary" {
		t.Errorf("content がない場合は summary を使うべき: %q", two.Description)
	}
	if !two.PublishedAt.Equal(time.Date(2026, 10, 9, 8, 0, 0, 0, time.UTC)) {
		t.Errorf("published がない場合は updated を使うべき: %v", two.PublishedAt)
	}

	three := entries[2]
	if three.URL != "https://example.com/related/3" {
		t.Errorf("候補がない場合は先頭のリンクを使うべき: %q", three.URL)
	}
	if !three.PublishedAt.IsZero() {
		t.Errorf("不正な published はゼロ値になるべき: %v", three.PublishedAt)
	}
}

func TestParse_UnknownFormat_ReturnsEmpty(t *testing.T) {
	for _, body := range []string{
		"<html><body>not a feed</body></html>",
		"plain text",
		"",
	} {
		entries, err := Parse([]byte(body))
		if err != nil {
			t.Errorf("未知の形式はエラーにしない: %q: %v", body, err)
		}
		if len(entries) != 0 {
			t.Errorf("未知の形式は空を返すべき: %q: %+v", body, entries)
		}
	}
}

func TestParse_RSS_Empty(t *testing.T) {
	entries, err := Parse([]byte(`<rss version="2.0"><channel><title>empty</title></channel></rss>`))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("itemがないフィードは空を返すべき: %+v", entries)
	}
}
