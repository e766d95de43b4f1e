package resolution

import (
	"nutrient-resolver/internal/core/catalog"
	"nutrient-resolver/internal/core/match"
	"nutrient-resolver/internal/core/metrics"
	"nutrient-resolver/internal/core/nutrient"
	"nutrient-resolver/internal/core/recognition"
	"nutrient-resolver/internal/pkg/common"
)

// Pipeline 把辨識結果轉成工作清單：先比對主資料庫，再比對自訂食品，
// 都沒有結果的品項標記為未知，交給解析佇列。
type Pipeline struct {
	matcher *match.Matcher
	newID   func() string
}

// NewPipeline 建立轉換流程
func NewPipeline(m *match.Matcher) *Pipeline {
	return &Pipeline{matcher: m, newID: common.GenerateUUID}
}

// Build 回傳品項清單與需要外部查詢的品項 ID（依清單順序）。
// 第一個未知品項為 NEEDS_FETCH，其餘為 NEEDS_MANUAL_FETCH。
func (p *Pipeline) Build(res *recognition.Result, custom []catalog.CustomItem) ([]nutrient.FoodItem, []string) {
	items := make([]nutrient.FoodItem, 0, len(res.Foods))
	var unknown []string

	for _, food := range res.Foods {
		item := p.buildItem(food, res, custom)
		if item.IsUnknown {
			if len(unknown) == 0 {
				item.State = nutrient.StateNeedsFetch
			} else {
				item.State = nutrient.StateNeedsManualFetch
			}
			unknown = append(unknown, item.ID)
		}
		items = append(items, item)
	}
	return items, unknown
}

func (p *Pipeline) buildItem(food recognition.Item, res *recognition.Result, custom []catalog.CustomItem) nutrient.FoodItem {
	item := nutrient.FoodItem{
		ID:           p.newID(),
		Name:         food.Name,
		ItemType:     food.ItemType,
		Amount:       food.Amount,
		Unit:         nutrient.UnitGram,
		Confidence:   food.Confidence,
		Source:       food.Source,
		CookingState: food.CookingState,
	}

	// 包裝標示：熱量與 PFC 以標示值為準，不比對資料庫，只補微量營養素
	if food.Source == nutrient.SourcePackage && food.NutritionPer100g != nil {
		if item.Amount <= 0 && res.PackageWeight > 0 {
			item.Amount = res.PackageWeight
		}
		item = nutrient.ApplyRecord(item, *food.NutritionPer100g)
		item.UsePackagePFC = true
		item.IsUnknown = true
		item.Quality = nutrient.DeriveQuality(item.Name, item.Category, item.ItemType, item.Quality)
		metrics.CatalogMatchesTotal.WithLabelValues("package").Inc()
		return item
	}

	if result, ok := p.matcher.Match(food.Name, food.CookingState, custom); ok {
		item.Name = result.Entry.Name
		item.Category = result.Entry.Category
		item.IsCustom = result.Custom != nil
		if result.Custom != nil && result.Custom.ItemType != "" {
			item.ItemType = result.Custom.ItemType
		}
		item = nutrient.ApplyRecord(item, result.Entry.Record)
		item.Quality = nutrient.DeriveQuality(item.Name, item.Category, item.ItemType, item.Quality)
		if item.IsCustom {
			metrics.CatalogMatchesTotal.WithLabelValues("custom").Inc()
		} else {
			metrics.CatalogMatchesTotal.WithLabelValues("catalog").Inc()
		}
		return item
	}

	// 模型估計值作為暫定數值，解析完成後會被取代
	if food.NutritionPer100g != nil {
		item = nutrient.ApplyRecord(item, *food.NutritionPer100g)
	}
	item.IsUnknown = true
	metrics.CatalogMatchesTotal.WithLabelValues("none").Inc()
	return item
}
