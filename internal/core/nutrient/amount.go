package nutrient

import (
	"errors"
	"fmt"
	"math"

	"nutrient-resolver/internal/pkg/common"
)

// ErrInvalidAmount 份量不是有限的正數
var ErrInvalidAmount = errors.New("amount must be a positive finite number")

// NewBase 由紀錄建立基準值快照，未指定份量時以 100g 為基準
func NewBase(rec Record) *Base {
	size := rec.ServingSize
	if size <= 0 || math.IsNaN(size) || math.IsInf(size, 0) {
		size = DefaultServingSize
	}
	unit := rec.ServingUnit
	if unit == "" {
		unit = UnitGram
	}
	return &Base{
		Values:      rec.Values.Clone(),
		ServingSize: size,
		ServingUnit: unit,
	}
}

// Clone 深拷貝基準值
func (b *Base) Clone() *Base {
	if b == nil {
		return nil
	}
	out := *b
	out.Values = b.Values.Clone()
	return &out
}

// DisplayUnit 計數單位（1個、本）原樣顯示，其餘一律為 g
func DisplayUnit(servingUnit string) string {
	switch servingUnit {
	case UnitPiece, UnitStick:
		return servingUnit
	default:
		return UnitGram
	}
}

// ValidateAmount 檢查份量
func ValidateAmount(amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return common.WrapValidationError(ErrInvalidAmount, fmt.Sprintf("amount %v", amount))
	}
	return nil
}

// ApplyAmount 以基準值重新計算實際份量的營養素。
// actual = base * (amount / servingSize)，Base 以拷貝形式帶入新品項。
func ApplyAmount(item FoodItem, amount float64) (FoodItem, error) {
	if err := ValidateAmount(amount); err != nil {
		return item, err
	}
	item.Amount = amount
	if item.Base == nil {
		return item, nil
	}
	item.Base = item.Base.Clone()
	item.Nutrients = item.Base.Values.Scale(amount / item.Base.ServingSize)
	return item, nil
}

// ApplyRecord 以新的紀錄取代基準值，並依品項目前的份量換算。
// 標示值品項（UsePackagePFC）保留原本的熱量與 PFC，只補上缺少的微量營養素。
func ApplyRecord(item FoodItem, rec Record) FoodItem {
	base := NewBase(rec)
	if item.UsePackagePFC && item.Base != nil {
		merged := item.Base.Clone()
		merged.Values = MergeMicronutrients(merged.Values, base.Values, base.ServingSize/merged.ServingSize)
		base = merged
	} else {
		item.Unit = DisplayUnit(base.ServingUnit)
	}
	item.Base = base
	if item.Amount <= 0 {
		item.Amount = base.ServingSize
	}
	item.Nutrients = base.Values.Scale(item.Amount / base.ServingSize)
	if rec.DIAAS != nil {
		item.Quality.DIAAS = Float(*rec.DIAAS)
	}
	if rec.GI != nil {
		item.Quality.GI = Float(*rec.GI)
	}
	return item
}

// MergeMicronutrients 保留 dst 的熱量與 PFC，dst 缺少的選填欄位由 fill 補上。
// fillRatio 是 fill 的基準量與 dst 基準量的比值，用來把 fill 換算到 dst 的基準。
func MergeMicronutrients(dst, fill Values, fillRatio float64) Values {
	out := dst.Clone()
	if fillRatio <= 0 || math.IsNaN(fillRatio) || math.IsInf(fillRatio, 0) {
		fillRatio = 1
	}
	for _, f := range Fields {
		if f.Get(&out) != nil {
			continue
		}
		if x := f.Get(&fill); x != nil {
			f.set(&out, Float(*x/fillRatio))
		}
	}
	return out
}
