package lookup

import "fmt"

// BuildPrompt 組出營養素查詢用提示詞
func BuildPrompt(name string, limit int) string {
	return fmt.Sprintf(`食品「%s」の栄養素を日本食品標準成分表（八訂）に基づいて回答してください。JSONのみ出力。

{"searchTerm": "検索に使った食品名",
 "candidates": [{"name": "成分表の食品名", "matchScore": 0-100, "matchReason": "一致理由", "calories": 数値, "protein": 数値, "fat": 数値, "carbs": 数値}],
 "bestMatch": {"name": "成分表の食品名", "matchScore": 0-100, "confidence": 0-1, "calories": 数値, "protein": 数値, "fat": 数値, "carbs": 数値,
  "fiber": 数値, "sugar": 数値, "saturatedFat": 数値, "vitaminA": 数値, "vitaminB1": 数値, "vitaminB2": 数値, "vitaminB6": 数値, "vitaminB12": 数値,
  "vitaminC": 数値, "vitaminD": 数値, "vitaminE": 数値, "vitaminK": 数値, "niacin": 数値, "folicAcid": 数値,
  "sodium": 数値, "potassium": 数値, "calcium": 数値, "magnesium": 数値, "phosphorus": 数値, "iron": 数値, "zinc": 数値,
  "diaas": 数値, "gi": 数値}}

- 値はすべて100gあたり
- candidates は一致度の高い順に最大%d件
- 不明な項目は省略する`, name, limit)
}
