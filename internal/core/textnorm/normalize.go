// Package textnorm 提供食品名稱的正規化。
//
// Normalize 產生顯示與比對共用的名稱（括號統一為全形），
// SearchForm 產生僅供相似度計算使用的搜尋形式。
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/width"
)

var parenReplacer = strings.NewReplacer("(", "（", ")", "）")

// Normalize 將半形括號轉為全形並去除前後空白
func Normalize(name string) string {
	return strings.TrimSpace(parenReplacer.Replace(name))
}

// SearchForm 回傳搜尋用的名稱：
// 寬度摺疊、片假名轉平假名、移除空白、小寫化，並去掉結尾的括號限定詞。
func SearchForm(name string) string {
	return stripTrailingQualifiers(Fold(name))
}

// Fold 與 SearchForm 相同的摺疊但保留括號限定詞，
// 「鶏むね肉（生）」與「鶏むね肉（揚げ）」的結果不同。
func Fold(name string) string {
	s := width.Fold.String(Normalize(name))
	s = ToHiragana(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	return strings.ToLower(s)
}

// ToHiragana 將片假名（ァ〜ヶ）轉為對應的平假名
func ToHiragana(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'ァ' && r <= 'ヶ' {
			return r - 0x60
		}
		return r
	}, s)
}

// SplitQualifier 將「名稱（限定詞）」拆成名稱與限定詞，沒有限定詞時 qualifier 為空
func SplitQualifier(name string) (base, qualifier string) {
	n := Normalize(name)
	if !strings.HasSuffix(n, "）") {
		return n, ""
	}
	open := strings.LastIndex(n, "（")
	if open <= 0 {
		return n, ""
	}
	return strings.TrimSpace(n[:open]), n[open+len("（") : len(n)-len("）")]
}

// WithQualifier 產生「名稱（限定詞）」；名稱已帶相同限定詞時原樣返回
func WithQualifier(name, qualifier string) string {
	n := Normalize(name)
	q := Normalize(qualifier)
	if q == "" {
		return n
	}
	if _, existing := SplitQualifier(n); existing == q {
		return n
	}
	return n + "（" + q + "）"
}

// stripTrailingQualifiers 反覆去除結尾的 (...)，整個字串都是括號時保留
func stripTrailingQualifiers(s string) string {
	for strings.HasSuffix(s, ")") {
		open := strings.LastIndex(s, "(")
		if open <= 0 {
			return s
		}
		s = s[:open]
	}
	return s
}
