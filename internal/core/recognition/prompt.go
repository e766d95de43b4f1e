package recognition

import (
	"strings"
)

const basePrompt = `食事写真から食材を認識し、JSONのみを出力してください。説明文は不要です。

パッケージの栄養成分表示が読める場合:
{"hasPackageInfo": true, "packageWeight": 内容量g, "nutritionPer": 表示の基準量g, "foods": [{"name": "商品名", "amount": 内容量g, "confidence": 1.0, "source": "package", "itemType": "food", "cookingState": "加工済み", "nutritionPer100g": {"calories": 数値, "protein": 数値, "fat": 数値, "carbs": 数値}}]}

料理や生鮮食品の場合は料理名ではなく食材ごとに分解して列挙:
{"hasPackageInfo": false, "foods": [{"name": "食材名", "amount": 推定g, "confidence": 0-1, "source": "visual_estimation", "itemType": "food", "cookingState": "炊飯直後/生/茹で/焼き/炒め/揚げ/加工済み", "nutritionPer100g": {"calories": 数値, "protein": 数値, "fat": 数値, "carbs": 数値}}]}

ルール:
- ご飯・白米は「白米（炊飯直後）」と出力する
- 卵はサイズ不明なら「鶏卵 M（58g）」
- 肉は部位、魚は種類を明記する
- サプリメントは itemType を "supplement" にする
- 同じ食材はまとめて合計量を記載する`

// BuildPrompt 組出辨識用提示詞，hint 為使用者補充說明
func BuildPrompt(hint string) string {
	hint = strings.TrimSpace(hint)
	if hint == "" {
		return basePrompt
	}
	return basePrompt + "\n\n補足: " + hint
}
