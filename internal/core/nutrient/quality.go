package nutrient

import (
	"strings"

	"nutrient-resolver/internal/core/textnorm"
)

// qualityRule 關鍵字對應的指標值，依序比對，第一個命中者生效
type qualityRule struct {
	keywords []string
	value    float64
}

// 蛋白質品質分數（DIAAS）
var diaasByName = []qualityRule{
	{[]string{"ホエイ", "プロテイン"}, 1.09},
	{[]string{"牛乳", "ミルク", "ヨーグルト", "チーズ"}, 1.14},
	{[]string{"卵", "たまご", "玉子", "エッグ"}, 1.13},
	{[]string{"豚"}, 1.14},
	{[]string{"牛肉", "ビーフ", "牛"}, 1.11},
	{[]string{"鶏", "チキン", "ささみ"}, 1.08},
	{[]string{"鮭", "サーモン", "まぐろ", "鮪", "ツナ", "鯖", "さば", "魚"}, 1.00},
	{[]string{"大豆", "豆腐", "納豆", "豆乳"}, 0.91},
	{[]string{"玄米", "白米", "ご飯", "ごはん", "米"}, 0.59},
	{[]string{"パン", "小麦", "うどん", "パスタ", "スパゲッティ", "ラーメン"}, 0.40},
}

var diaasByCategory = []qualityRule{
	{[]string{"乳"}, 1.14},
	{[]string{"卵"}, 1.13},
	{[]string{"肉"}, 1.10},
	{[]string{"魚", "貝"}, 1.00},
	{[]string{"豆"}, 0.91},
	{[]string{"穀"}, 0.50},
}

// 升糖指數（GI）
var giByName = []qualityRule{
	{[]string{"玄米"}, 55},
	{[]string{"白米", "ご飯", "ごはん", "ライス"}, 88},
	{[]string{"食パン"}, 95},
	{[]string{"パン"}, 75},
	{[]string{"うどん"}, 85},
	{[]string{"そば"}, 54},
	{[]string{"パスタ", "スパゲッティ"}, 65},
	{[]string{"ラーメン"}, 73},
	{[]string{"じゃがいも", "ポテト"}, 90},
	{[]string{"さつまいも"}, 55},
	{[]string{"バナナ"}, 55},
	{[]string{"りんご"}, 36},
	{[]string{"牛乳", "ヨーグルト"}, 25},
	{[]string{"砂糖"}, 109},
}

var giByCategory = []qualityRule{
	{[]string{"野菜"}, 25},
	{[]string{"果物", "果実"}, 40},
	{[]string{"穀"}, 70},
}

func lookupRule(rules []qualityRule, text string) (float64, bool) {
	if text == "" {
		return 0, false
	}
	for _, r := range rules {
		for _, k := range r.keywords {
			if strings.Contains(text, textnorm.SearchForm(k)) {
				return r.value, true
			}
		}
	}
	return 0, false
}

// DeriveQuality 外部來源未提供的 DIAAS / GI 由關鍵字表推定，已有的值不覆寫。
// 補充品不推定 GI。
func DeriveQuality(name, category string, itemType ItemType, q Quality) Quality {
	n := textnorm.SearchForm(name)
	c := textnorm.SearchForm(category)

	if q.DIAAS == nil {
		if v, ok := lookupRule(diaasByName, n); ok {
			q.DIAAS = Float(v)
		} else if v, ok := lookupRule(diaasByCategory, c); ok {
			q.DIAAS = Float(v)
		}
	}

	if q.GI == nil && itemType != ItemTypeSupplement {
		if v, ok := lookupRule(giByName, n); ok {
			q.GI = Float(v)
		} else if v, ok := lookupRule(giByCategory, c); ok {
			q.GI = Float(v)
		}
	}
	return q
}
