package recognition

import (
	"fmt"

	"go.uber.org/zap"

	"nutrient-resolver/internal/core/nutrient"
	"nutrient-resolver/internal/core/textnorm"
	"nutrient-resolver/internal/pkg/common"
	"nutrient-resolver/internal/pkg/jsonrepair"
)

// Item 辨識出的單一品項。數值欄位已經過檢查：缺少或無效時為 0，營養標示缺少時為 nil。
type Item struct {
	Name             string            `json:"name"`
	Amount           float64           `json:"amount"`
	Confidence       float64           `json:"confidence"`
	Source           nutrient.Source   `json:"source"`
	ItemType         nutrient.ItemType `json:"itemType"`
	CookingState     string            `json:"cookingState,omitempty"`
	NutritionPer100g *nutrient.Record  `json:"nutritionPer100g,omitempty"`
}

// Result 一次辨識的結果。
// NutritionPer 為包裝標示的基準量（g），包裝品項的標示值以此為 ServingSize，未提供時視為 100g。
type Result struct {
	HasPackageInfo bool    `json:"hasPackageInfo"`
	PackageWeight  float64 `json:"packageWeight,omitempty"`
	NutritionPer   float64 `json:"nutritionPer,omitempty"`
	Foods          []Item  `json:"foods"`
}

// Parse 修復並解析模型輸出。修復失敗時回傳包含 jsonrepair.ErrUnrepairable 的錯誤；
// 個別品項的欄位錯誤不會中斷整批解析。
func Parse(text string) (*Result, error) {
	var root any
	if err := jsonrepair.Unmarshal(text, &root); err != nil {
		return nil, fmt.Errorf("parse recognition response: %w", err)
	}

	res := &Result{Foods: []Item{}}
	var foods []any
	switch v := root.(type) {
	case map[string]any:
		res.HasPackageInfo = jsonrepair.Bool(v["hasPackageInfo"])
		res.PackageWeight = nonNegative(v["packageWeight"])
		res.NutritionPer = nonNegative(v["nutritionPer"])
		foods = jsonrepair.Array(v["foods"])
	case []any:
		foods = v
	}

	for i, raw := range foods {
		obj := jsonrepair.Object(raw)
		if obj == nil {
			common.LogWarn("略過無效的辨識品項", zap.Int("index", i))
			continue
		}
		item, ok := parseItem(obj)
		if !ok {
			common.LogWarn("略過沒有名稱的辨識品項", zap.Int("index", i))
			continue
		}
		if item.Source == nutrient.SourcePackage && item.NutritionPer100g != nil && res.NutritionPer > 0 {
			item.NutritionPer100g.ServingSize = res.NutritionPer
		}
		res.Foods = append(res.Foods, item)
	}
	return res, nil
}

func parseItem(obj map[string]any) (Item, bool) {
	name := textnorm.Normalize(jsonrepair.String(obj["name"]))
	if name == "" {
		return Item{}, false
	}

	item := Item{
		Name:         name,
		Amount:       nonNegative(obj["amount"]),
		Confidence:   clamp01(obj["confidence"]),
		Source:       nutrient.SourceVisualEstimation,
		ItemType:     nutrient.ItemTypeFood,
		CookingState: jsonrepair.String(obj["cookingState"]),
	}
	if jsonrepair.String(obj["source"]) == string(nutrient.SourcePackage) {
		item.Source = nutrient.SourcePackage
	}
	if jsonrepair.String(obj["itemType"]) == string(nutrient.ItemTypeSupplement) {
		item.ItemType = nutrient.ItemTypeSupplement
	}
	if per := jsonrepair.Object(obj["nutritionPer100g"]); per != nil {
		if rec, ok := nutrient.RecordFromJSON(per); ok {
			rec.ServingSize = nutrient.DefaultServingSize
			rec.ServingUnit = nutrient.UnitGram
			item.NutritionPer100g = &rec
		}
	}
	return item, true
}

func nonNegative(v any) float64 {
	x, ok := jsonrepair.Number(v)
	if !ok || x < 0 {
		return 0
	}
	return x
}

func clamp01(v any) float64 {
	x := nonNegative(v)
	if x > 1 {
		return 1
	}
	return x
}
