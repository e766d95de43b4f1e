package match

import (
	"sort"
	"strings"
	"unicode/utf8"

	"nutrient-resolver/internal/core/catalog"
	"nutrient-resolver/internal/core/nutrient"
	"nutrient-resolver/internal/core/synonym"
	"nutrient-resolver/internal/core/textnorm"
)

// Result 比對結果。Custom 不為 nil 時表示命中自訂食品。
type Result struct {
	Entry       catalog.Entry
	Score       int
	Custom      *catalog.CustomItem
	SearchNames []string
}

// Matcher 資料庫比對器。資料庫、同義詞表與評分器都由外部注入且不會被修改。
type Matcher struct {
	catalog  *catalog.Catalog
	expander *synonym.Expander
	scorer   *Scorer
}

// NewMatcher 建立比對器
func NewMatcher(c *catalog.Catalog, expander *synonym.Expander, scorer *Scorer) *Matcher {
	return &Matcher{catalog: c, expander: expander, scorer: scorer}
}

// Expander 回傳同義詞展開器
func (m *Matcher) Expander() *synonym.Expander {
	return m.expander
}

type scored struct {
	entry      catalog.Entry
	score      int
	length     int
	matchIndex int
	custom     bool
}

// Match 先比對主資料庫，沒有結果時才以包含關係比對自訂食品
func (m *Matcher) Match(name, cookingState string, custom []catalog.CustomItem) (Result, bool) {
	names := m.expander.Expand(name, cookingState)
	if entry, score, ok := m.MatchCatalog(names); ok {
		return Result{Entry: entry, Score: score, SearchNames: names}, true
	}
	if item, ok := MatchCustom(names, custom); ok {
		return Result{
			Entry:       catalog.Entry{Category: item.Category, Name: item.Name, Record: item.Record},
			Custom:      &item,
			SearchNames: names,
		}, true
	}
	return Result{SearchNames: names}, false
}

// MatchCatalog 對主資料庫所有項目評分，依（分數高、名稱短）排序取第一名。最高分為 0 時回傳 false。
func (m *Matcher) MatchCatalog(searchNames []string) (catalog.Entry, int, bool) {
	candidates := m.rank(searchNames, func(e catalog.Entry) string { return e.Name }, true)
	if len(candidates) == 0 {
		return catalog.Entry{}, 0, false
	}
	return candidates[0].entry, candidates[0].score, true
}

func (m *Matcher) rank(searchNames []string, key func(catalog.Entry) string, filterEggs bool) []scored {
	var out []scored
	for _, e := range m.catalog.Entries() {
		if filterEggs && excludedEggSize(e.Name, searchNames) {
			continue
		}
		score, idx := m.scorer.Best(key(e), searchNames)
		if score <= 0 {
			continue
		}
		out = append(out, scored{entry: e, score: score, length: utf8.RuneCountInString(e.Name), matchIndex: idx})
	}
	sortScored(out)
	return out
}

func sortScored(out []scored) {
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.length != b.length {
			return a.length < b.length
		}
		if a.matchIndex != b.matchIndex {
			return a.matchIndex < b.matchIndex
		}
		if a.entry.Name != b.entry.Name {
			return a.entry.Name < b.entry.Name
		}
		return a.entry.Category < b.entry.Category
	})
}

// MatchCustom 自訂食品的比對：名稱互相包含即命中，不計分。
// 依搜尋名稱的順序尋找，隱藏項目不列入。
func MatchCustom(searchNames []string, custom []catalog.CustomItem) (catalog.CustomItem, bool) {
	visible := catalog.Visible(custom)
	for _, s := range searchNames {
		if s == "" {
			continue
		}
		for _, item := range visible {
			n := textnorm.Normalize(item.Name)
			if n == "" {
				continue
			}
			if strings.Contains(n, s) || strings.Contains(s, n) {
				return item, true
			}
		}
	}
	return catalog.CustomItem{}, false
}

// Search 手動選擇用的候選搜尋：以搜尋形式（平假名、去除限定詞）評分，
// 包含自訂食品，不排除其他大小的雞蛋。
func (m *Matcher) Search(query string, custom []catalog.CustomItem, limit int) []nutrient.CatalogCandidate {
	var forms []string
	seen := make(map[string]bool)
	for _, n := range m.expander.Expand(query, "") {
		f := textnorm.SearchForm(n)
		if f != "" && !seen[f] {
			seen[f] = true
			forms = append(forms, f)
		}
	}
	if len(forms) == 0 {
		return nil
	}

	ranked := m.rank(forms, func(e catalog.Entry) string { return textnorm.SearchForm(e.Name) }, false)

	for _, item := range catalog.Visible(custom) {
		score, idx := m.scorer.Best(textnorm.SearchForm(item.Name), forms)
		if score <= 0 {
			continue
		}
		name := textnorm.Normalize(item.Name)
		ranked = append(ranked, scored{
			entry:      catalog.Entry{Category: item.Category, Name: name, Record: item.Record},
			score:      score,
			length:     utf8.RuneCountInString(name),
			matchIndex: idx,
			custom:     true,
		})
	}
	sortScored(ranked)

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	out := make([]nutrient.CatalogCandidate, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, nutrient.CatalogCandidate{
			ItemName: r.entry.Name,
			Category: r.entry.Category,
			Score:    r.score,
			IsCustom: r.custom,
			Record:   r.entry.Record,
		})
	}
	return out
}
