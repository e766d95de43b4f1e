package nutrient

import (
	"nutrient-resolver/internal/pkg/jsonrepair"
)

// RecordFromJSON 由模型輸出的物件寬鬆建立紀錄。
// 負數與無法解析的值視為缺少；必填欄位缺少時為 0。第二個回傳值表示是否有熱量。
func RecordFromJSON(raw map[string]any) (Record, bool) {
	var rec Record
	if raw == nil {
		return rec, false
	}

	get := func(key string) (float64, bool) {
		x, ok := jsonrepair.Number(raw[key])
		if !ok || x < 0 {
			return 0, false
		}
		return x, true
	}

	cal, hasCalories := get("calories")
	rec.Calories = cal
	rec.Protein, _ = get("protein")
	rec.Fat, _ = get("fat")
	rec.Carbs, _ = get("carbs")

	for _, f := range Fields {
		if x, ok := get(f.Key); ok {
			f.set(&rec.Values, Float(x))
		}
	}

	if size, ok := get("servingSize"); ok && size > 0 {
		rec.ServingSize = size
	}
	rec.ServingUnit = jsonrepair.String(raw["servingUnit"])
	if x, ok := get("diaas"); ok {
		rec.DIAAS = Float(x)
	}
	if x, ok := get("gi"); ok {
		rec.GI = Float(x)
	}
	return rec, hasCalories
}
