package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hitoshi/ethfeed/internal/model"
)

//go:embed sources.yaml
var defaultCatalog []byte

// Catalog は取り込み対象の取得元一覧を保持する。
type Catalog struct {
	Clients   []RepoSource     `yaml:"clients"`
	DevTools  []RepoSource     `yaml:"dev_tools"`
	Blogs     []FeedSource     `yaml:"blogs"`
	Research  []FeedSource     `yaml:"research"`
	Proposals []ProposalSource `yaml:"proposals"`
}

// RepoSource はリリースを取得するGitHubリポジトリを表す。
// Layer はクライアントのみ設定する（EL または CL）。
type RepoSource struct {
	Name  string `yaml:"name"`
	Owner string `yaml:"owner"`
	Repo  string `yaml:"repo"`
	Layer string `yaml:"layer,omitempty"`
}

// FeedSource はRSS/Atomフィードの取得元を表す。
// Category が空の場合はソース種別の既定カテゴリを使う。
type FeedSource struct {
	Name     string         `yaml:"name"`
	URL      string         `yaml:"url"`
	Category model.Category `yaml:"category,omitempty"`
}

// ProposalSource はEIP/ERCの提案リポジトリを表す。
type ProposalSource struct {
	Name     string         `yaml:"name"`
	Owner    string         `yaml:"owner"`
	Repo     string         `yaml:"repo"`
	Label    string         `yaml:"label"`
	Category model.Category `yaml:"category,omitempty"`
}

// LoadCatalog はカタログを読み込む。pathが空の場合は組み込みの既定カタログを使う。
func LoadCatalog(path string) (*Catalog, error) {
	data := defaultCatalog
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read sources file: %w", err)
		}
		data = b
	}
	return ParseCatalog(data)
}

// ParseCatalog はYAMLをパースし、検証済みのカタログを返す。
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse sources: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate は必須項目の欠落と未知のカテゴリを検出する。
// 問題はすべてまとめて1つのエラーとして返す。
func (c *Catalog) Validate() error {
	var errs []error

	for i, r := range c.Clients {
		if r.Name == "" || r.Owner == "" || r.Repo == "" {
			errs = append(errs, fmt.Errorf("clients[%d]: name, owner and repo are required", i))
		}
		if r.Layer != "EL" && r.Layer != "CL" {
			errs = append(errs, fmt.Errorf("clients[%d]: layer must be EL or CL, got %q", i, r.Layer))
		}
	}
	for i, r := range c.DevTools {
		if r.Name == "" || r.Owner == "" || r.Repo == "" {
			errs = append(errs, fmt.Errorf("dev_tools[%d]: name, owner and repo are required", i))
		}
	}
	errs = append(errs, validateFeeds("blogs", c.Blogs)...)
	errs = append(errs, validateFeeds("research", c.Research)...)
	for i, p := range c.Proposals {
		if p.Name == "" || p.Owner == "" || p.Repo == "" {
			errs = append(errs, fmt.Errorf("proposals[%d]: name, owner and repo are required", i))
		}
		if p.Category != "" && !p.Category.Valid() {
			errs = append(errs, fmt.Errorf("proposals[%d]: unknown category %q", i, p.Category))
		}
	}

	return errors.Join(errs...)
}

func validateFeeds(section string, feeds []FeedSource) []error {
	var errs []error
	for i, f := range feeds {
		if f.Name == "" || f.URL == "" {
			errs = append(errs, fmt.Errorf("%s[%d]: name and url are required", section, i))
		}
		if f.Category != "" && !f.Category.Valid() {
			errs = append(errs, fmt.Errorf("%s[%d]: unknown category %q", section, i, f.Category))
		}
	}
	return errs
}
