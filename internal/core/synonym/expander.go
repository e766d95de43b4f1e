// Package synonym 將辨識出的名稱展開為資料庫偏好名稱的有序清單。
package synonym

import (
	"strings"

	"nutrient-resolver/internal/core/textnorm"
)

// Table 同義詞表，鍵為搜尋形式。建立後不可修改，可在多個 goroutine 間共用。
type Table struct {
	entries  map[string][]string
	eggTerms map[string]bool
	egg      string
}

// NewTable 建立同義詞表
func NewTable(entries map[string][]string, eggTerms []string, canonicalEgg string) *Table {
	t := &Table{
		entries:  make(map[string][]string, len(entries)),
		eggTerms: make(map[string]bool, len(eggTerms)),
		egg:      textnorm.Normalize(canonicalEgg),
	}
	for k, names := range entries {
		key := textnorm.SearchForm(k)
		normalized := make([]string, 0, len(names))
		for _, n := range names {
			normalized = append(normalized, textnorm.Normalize(n))
		}
		t.entries[key] = normalized
	}
	for _, e := range eggTerms {
		t.eggTerms[textnorm.SearchForm(e)] = true
	}
	return t
}

// DefaultTable 內建的日本食品同義詞表
func DefaultTable() *Table {
	return NewTable(defaultEntries, defaultEggTerms, CanonicalEgg)
}

// Lookup 回傳名稱對應的同義詞（拷貝）
func (t *Table) Lookup(name string) []string {
	names := t.entries[textnorm.SearchForm(name)]
	return append([]string(nil), names...)
}

// Expander 同義詞展開器
type Expander struct {
	table *Table
}

// NewExpander 建立展開器
func NewExpander(table *Table) *Expander {
	return &Expander{table: table}
}

// Expand 回傳搜尋名稱清單：同義詞、原名稱，之後才是附加調理狀態的組合。
// 未指定大小的全卵會先改寫成 M 玉。
func (e *Expander) Expand(name, cookingState string) []string {
	n := e.rewriteEgg(textnorm.Normalize(name))

	var out []string
	seen := make(map[string]bool)
	add := func(s string) {
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		out = append(out, s)
	}

	for _, s := range e.table.Lookup(n) {
		add(s)
	}
	add(n)

	state := textnorm.Normalize(cookingState)
	if state == "" {
		return out
	}

	baseCount := len(out)
	for i := 0; i < baseCount; i++ {
		stem, _ := textnorm.SplitQualifier(out[i])
		add(textnorm.WithQualifier(stem, state))
	}
	return out
}

// IsEggTerm 是否為未指定大小的全卵名稱
func (e *Expander) IsEggTerm(name string) bool {
	key := textnorm.SearchForm(name)
	if isYolkOrWhite(key) {
		return false
	}
	return e.table.eggTerms[key]
}

func (e *Expander) rewriteEgg(name string) string {
	if e.table.egg != "" && e.IsEggTerm(name) {
		return e.table.egg
	}
	return name
}

func isYolkOrWhite(key string) bool {
	for _, t := range yolkOrWhiteTerms {
		if strings.Contains(key, textnorm.SearchForm(t)) {
			return true
		}
	}
	return false
}
