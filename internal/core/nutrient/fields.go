package nutrient

import (
	"math"

	"nutrient-resolver/internal/pkg/common"
)

// Measure 微量營養素的計量單位，決定四捨五入位數
type Measure int

const (
	Grams Measure = iota
	Milligrams
	Micrograms
)

// Field 選填欄位的描述
type Field struct {
	Key     string
	Measure Measure
	ptr     func(*Values) **float64
}

// Get 讀取欄位值
func (f Field) Get(v *Values) *float64 {
	return *f.ptr(v)
}

func (f Field) set(v *Values, x *float64) {
	*f.ptr(v) = x
}

// Fields 所有選填營養素欄位
var Fields = []Field{
	{"fiber", Grams, func(v *Values) **float64 { return &v.Fiber }},
	{"solubleFiber", Grams, func(v *Values) **float64 { return &v.SolubleFiber }},
	{"insolubleFiber", Grams, func(v *Values) **float64 { return &v.InsolubleFiber }},
	{"sugar", Grams, func(v *Values) **float64 { return &v.Sugar }},
	{"saturatedFat", Grams, func(v *Values) **float64 { return &v.SaturatedFat }},
	{"monounsaturatedFat", Grams, func(v *Values) **float64 { return &v.MonounsaturatedFat }},
	{"polyunsaturatedFat", Grams, func(v *Values) **float64 { return &v.PolyunsaturatedFat }},
	{"mediumChainFat", Grams, func(v *Values) **float64 { return &v.MediumChainFat }},

	{"vitaminA", Micrograms, func(v *Values) **float64 { return &v.VitaminA }},
	{"vitaminB1", Milligrams, func(v *Values) **float64 { return &v.VitaminB1 }},
	{"vitaminB2", Milligrams, func(v *Values) **float64 { return &v.VitaminB2 }},
	{"vitaminB6", Milligrams, func(v *Values) **float64 { return &v.VitaminB6 }},
	{"vitaminB12", Micrograms, func(v *Values) **float64 { return &v.VitaminB12 }},
	{"vitaminC", Milligrams, func(v *Values) **float64 { return &v.VitaminC }},
	{"vitaminD", Micrograms, func(v *Values) **float64 { return &v.VitaminD }},
	{"vitaminE", Milligrams, func(v *Values) **float64 { return &v.VitaminE }},
	{"vitaminK", Micrograms, func(v *Values) **float64 { return &v.VitaminK }},
	{"niacin", Milligrams, func(v *Values) **float64 { return &v.Niacin }},
	{"pantothenicAcid", Milligrams, func(v *Values) **float64 { return &v.PantothenicAcid }},
	{"biotin", Micrograms, func(v *Values) **float64 { return &v.Biotin }},
	{"folicAcid", Micrograms, func(v *Values) **float64 { return &v.FolicAcid }},

	{"sodium", Milligrams, func(v *Values) **float64 { return &v.Sodium }},
	{"potassium", Milligrams, func(v *Values) **float64 { return &v.Potassium }},
	{"calcium", Milligrams, func(v *Values) **float64 { return &v.Calcium }},
	{"magnesium", Milligrams, func(v *Values) **float64 { return &v.Magnesium }},
	{"phosphorus", Milligrams, func(v *Values) **float64 { return &v.Phosphorus }},
	{"iron", Milligrams, func(v *Values) **float64 { return &v.Iron }},
	{"zinc", Milligrams, func(v *Values) **float64 { return &v.Zinc }},
	{"copper", Milligrams, func(v *Values) **float64 { return &v.Copper }},
	{"manganese", Milligrams, func(v *Values) **float64 { return &v.Manganese }},
	{"iodine", Micrograms, func(v *Values) **float64 { return &v.Iodine }},
	{"selenium", Micrograms, func(v *Values) **float64 { return &v.Selenium }},
	{"chromium", Micrograms, func(v *Values) **float64 { return &v.Chromium }},
	{"molybdenum", Micrograms, func(v *Values) **float64 { return &v.Molybdenum }},
}

// Float 回傳指向 x 的指標
func Float(x float64) *float64 {
	return &x
}

// roundFor 依計量單位與數量級決定小數位數
func roundFor(m Measure, x float64) float64 {
	switch m {
	case Micrograms:
		return common.Round(x, 1)
	case Milligrams:
		if math.Abs(x) < 10 {
			return common.Round(x, 2)
		}
		return common.Round(x, 1)
	default:
		return common.Round(x, 1)
	}
}

// Scale 將所有欄位乘上 ratio 並依規則四捨五入，回傳新的 Values
func (v Values) Scale(ratio float64) Values {
	out := Values{
		Calories: math.Round(v.Calories * ratio),
		Protein:  common.Round(v.Protein*ratio, 1),
		Fat:      common.Round(v.Fat*ratio, 1),
		Carbs:    common.Round(v.Carbs*ratio, 1),
	}
	for _, f := range Fields {
		if x := f.Get(&v); x != nil {
			f.set(&out, Float(roundFor(f.Measure, *x*ratio)))
		}
	}
	return out
}

// Clone 深拷貝，選填欄位不共用指標
func (v Values) Clone() Values {
	out := v
	for _, f := range Fields {
		if x := f.Get(&v); x != nil {
			f.set(&out, Float(*x))
		}
	}
	return out
}

// KnownMicronutrients 已知（非 nil）的選填欄位數
func (v Values) KnownMicronutrients() int {
	n := 0
	for _, f := range Fields {
		if f.Get(&v) != nil {
			n++
		}
	}
	return n
}
