package model

// Category はニュースレターの編集カテゴリを表す。
type Category string

// Categories はカテゴリの固定順序リスト。一覧表示もこの順序で並ぶ。
var Categories = []Category{
	"Ecosystem",
	"Enterprise",
	"Applications",
	"Developers",
	"Security",
	"Layer 1",
	"Research",
	"Staking",
	"Layer 2",
	"Regulation",
	"General",
}

const (
	CategoryEcosystem  Category = "Ecosystem"
	CategoryDevelopers Category = "Developers"
	CategoryLayer1     Category = "Layer 1"
	CategoryResearch   Category = "Research"
	CategoryStaking    Category = "Staking"
	CategoryGeneral    Category = "General"
)

// Valid はCategoryが固定リストに含まれるかを返す。
func (c Category) Valid() bool {
	return c.Index() >= 0
}

// Index は固定リスト内の位置を返す。含まれない場合は-1。
func (c Category) Index() int {
	for i, cat := range Categories {
		if c == cat {
			return i
		}
	}
	return -1
}

// DefaultCategory はSourceTypeから作成時の既定カテゴリを導出する。
func DefaultCategory(st SourceType) Category {
	switch st {
	case SourceTypeClientRelease:
		return CategoryStaking
	case SourceTypeDevToolRelease:
		return CategoryDevelopers
	case SourceTypeBlogPost:
		return CategoryEcosystem
	case SourceTypeProposal:
		return CategoryLayer1
	case SourceTypeResearch:
		return CategoryResearch
	default:
		return CategoryGeneral
	}
}
