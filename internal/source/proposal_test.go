package source

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/ethfeed/internal/config"
	"github.com/hitoshi/ethfeed/internal/model"
)

func issueJSON(number int, title string, created time.Time, prURL string) string {
	pr := "null"
	if prURL != "" {
		pr = fmt.Sprintf(`{"html_url":%q}`, prURL)
	}
	return fmt.Sprintf(`{"number":%d,"title":%q,"html_url":"https://github.com/ethereum/EIPs/issues/%d","created_at":%q,"body":"Adds a **new** opcode","pull_request":%s}`,
		number, title, number, created.Format(time.RFC3339), pr)
}

func TestProposalFetcher_OnlyRecentPullRequests(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "[%s,%s,%s,%s]",
			issueJSON(1, "Add EIP: New opcode", testNow.Add(-24*time.Hour), "https://github.com/ethereum/EIPs/pull/1"),
			issueJSON(2, "Discussion only", testNow.Add(-24*time.Hour), ""),
			issueJSON(3, "Old EIP", testNow.Add(-20*24*time.Hour), "https://github.com/ethereum/EIPs/pull/3"),
			`{"number":4,"title":"Empty PR url","created_at":"`+testNow.Format(time.RFC3339)+`","pull_request":{"html_url":""}}`,
		)
	}))
	defer ts.Close()

	var buf bytes.Buffer
	gh := NewGitHubClient(ts.Client(), GitHubConfig{BaseURL: ts.URL}, newTestLogger(&buf))
	f := NewProposalFetcher([]config.ProposalSource{
		{Name: "EIPs", Owner: "ethereum", Repo: "EIPs", Label: "c-new"},
	}, gh, testWindow(), newTestLogger(&buf))

	res := f.Fetch(context.Background())
	if len(res.Failures) != 0 {
		t.Fatalf("unexpected failures: %+v", res.Failures)
	}
	if len(res.Items) != 1 {
		t.Fatalf("記事数 = %d, want 1: %+v", len(res.Items), res.Items)
	}
	it := res.Items[0]
	if it.URL != "https://github.com/ethereum/EIPs/pull/1" {
		t.Errorf("URLはPull RequestのURLであるべき: %q", it.URL)
	}
	if it.SourceType != model.SourceTypeProposal || it.SourceName != "EIPs" {
		t.Errorf("SourceType/SourceName = %q/%q", it.SourceType, it.SourceName)
	}
	if it.Category != model.CategoryLayer1 {
		t.Errorf("Category = %q, want %q", it.Category, model.CategoryLayer1)
	}
	if it.Description != "Adds a new opcode" {
		t.Errorf("Description = %q", it.Description)
	}
}

func TestProposalFetcher_CategoryAndFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/ERCs/") {
			fmt.Fprintf(w, "[%s]", issueJSON(9, "Add ERC: Token", testNow.Add(-time.Hour), "https://github.com/ethereum/ERCs/pull/9"))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	var buf bytes.Buffer
	gh := NewGitHubClient(ts.Client(), GitHubConfig{BaseURL: ts.URL}, newTestLogger(&buf))
	f := NewProposalFetcher([]config.ProposalSource{
		{Name: "EIPs", Owner: "ethereum", Repo: "EIPs", Label: "c-new"},
		{Name: "ERCs", Owner: "ethereum", Repo: "ERCs", Label: "c-new", Category: model.CategoryDevelopers},
	}, gh, testWindow(), newTestLogger(&buf))

	res := f.Fetch(context.Background())
	if len(res.Items) != 1 || res.Items[0].Category != model.CategoryDevelopers {
		t.Errorf("Items = %+v", res.Items)
	}
	if len(res.Failures) != 1 || res.Failures[0].Target != "ethereum/EIPs" {
		t.Errorf("Failures = %+v", res.Failures)
	}
}
