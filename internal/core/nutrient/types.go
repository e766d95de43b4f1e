// Package nutrient 定義營養素紀錄、基準值快照與份量換算。
//
// 所有實際份量數值都只從 Base 推導，Base 本身在換算時不會被修改。
package nutrient

// 單位
const (
	UnitGram  = "g"
	UnitPiece = "1個"
	UnitStick = "本"
)

// DefaultServingSize 未指定份量時的基準量（100g）
const DefaultServingSize = 100.0

// ItemType 品項種類
type ItemType string

const (
	ItemTypeFood       ItemType = "food"
	ItemTypeSupplement ItemType = "supplement"
)

// Source 辨識來源
type Source string

const (
	SourcePackage          Source = "package"
	SourceVisualEstimation Source = "visual_estimation"
)

// State 外部查詢的解析狀態
type State string

const (
	StateNone             State = ""
	StateNeedsFetch       State = "NEEDS_FETCH"
	StateNeedsManualFetch State = "NEEDS_MANUAL_FETCH"
	StateFetching         State = "FETCHING"
	StateResolved         State = "RESOLVED"
	StateFailed           State = "FAILED"
)

// Retriable 是否可由使用者或自動流程重新發起查詢
func (s State) Retriable() bool {
	return s == StateNeedsFetch || s == StateNeedsManualFetch || s == StateFailed
}

// Values 營養素數值。熱量與三大營養素為必填，其餘為 nil 表示「無資料」，與 0 不同。
type Values struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Fat      float64 `json:"fat"`
	Carbs    float64 `json:"carbs"`

	Fiber              *float64 `json:"fiber,omitempty"`
	SolubleFiber       *float64 `json:"solubleFiber,omitempty"`
	InsolubleFiber     *float64 `json:"insolubleFiber,omitempty"`
	Sugar              *float64 `json:"sugar,omitempty"`
	SaturatedFat       *float64 `json:"saturatedFat,omitempty"`
	MonounsaturatedFat *float64 `json:"monounsaturatedFat,omitempty"`
	PolyunsaturatedFat *float64 `json:"polyunsaturatedFat,omitempty"`
	MediumChainFat     *float64 `json:"mediumChainFat,omitempty"`

	VitaminA        *float64 `json:"vitaminA,omitempty"`
	VitaminB1       *float64 `json:"vitaminB1,omitempty"`
	VitaminB2       *float64 `json:"vitaminB2,omitempty"`
	VitaminB6       *float64 `json:"vitaminB6,omitempty"`
	VitaminB12      *float64 `json:"vitaminB12,omitempty"`
	VitaminC        *float64 `json:"vitaminC,omitempty"`
	VitaminD        *float64 `json:"vitaminD,omitempty"`
	VitaminE        *float64 `json:"vitaminE,omitempty"`
	VitaminK        *float64 `json:"vitaminK,omitempty"`
	Niacin          *float64 `json:"niacin,omitempty"`
	PantothenicAcid *float64 `json:"pantothenicAcid,omitempty"`
	Biotin          *float64 `json:"biotin,omitempty"`
	FolicAcid       *float64 `json:"folicAcid,omitempty"`

	Sodium     *float64 `json:"sodium,omitempty"`
	Potassium  *float64 `json:"potassium,omitempty"`
	Calcium    *float64 `json:"calcium,omitempty"`
	Magnesium  *float64 `json:"magnesium,omitempty"`
	Phosphorus *float64 `json:"phosphorus,omitempty"`
	Iron       *float64 `json:"iron,omitempty"`
	Zinc       *float64 `json:"zinc,omitempty"`
	Copper     *float64 `json:"copper,omitempty"`
	Manganese  *float64 `json:"manganese,omitempty"`
	Iodine     *float64 `json:"iodine,omitempty"`
	Selenium   *float64 `json:"selenium,omitempty"`
	Chromium   *float64 `json:"chromium,omitempty"`
	Molybdenum *float64 `json:"molybdenum,omitempty"`
}

// Quality 蛋白質品質與升糖指數，與份量無關，不參與換算
type Quality struct {
	DIAAS *float64 `json:"diaas,omitempty"`
	GI    *float64 `json:"gi,omitempty"`
}

// Record 資料庫或外部來源的一筆營養紀錄，數值以 ServingSize 為基準
type Record struct {
	Values
	ServingSize float64  `json:"servingSize,omitempty"`
	ServingUnit string   `json:"servingUnit,omitempty"`
	DIAAS       *float64 `json:"diaas,omitempty"`
	GI          *float64 `json:"gi,omitempty"`
}

// Base 換算用的基準值快照
type Base struct {
	Values
	ServingSize float64 `json:"servingSize"`
	ServingUnit string  `json:"servingUnit"`
}

// ExternalCandidate 外部查詢回傳的候選
type ExternalCandidate struct {
	Name        string  `json:"name"`
	MatchScore  float64 `json:"matchScore"`
	MatchReason string  `json:"matchReason,omitempty"`
	Record      *Record `json:"record,omitempty"`
}

// CatalogCandidate 資料庫（含自訂食品）搜尋的候選，分數僅用於排序
type CatalogCandidate struct {
	ItemName string `json:"itemName"`
	Category string `json:"category"`
	Score    int    `json:"score"`
	IsCustom bool   `json:"isCustom,omitempty"`
	Record   Record `json:"record"`
}

// FoodItem 編輯中的品項，在工作清單中以 ID 識別
type FoodItem struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Category     string   `json:"category"`
	ItemType     ItemType `json:"itemType"`
	Amount       float64  `json:"amount"`
	Unit         string   `json:"unit"`
	Nutrients    Values   `json:"nutrients"`
	Quality      Quality  `json:"quality"`
	Confidence   float64  `json:"confidence"`
	Source       Source   `json:"source,omitempty"`
	CookingState string   `json:"cookingState,omitempty"`
	Base         *Base    `json:"_base,omitempty"`

	UsePackagePFC bool   `json:"usePackagePFC,omitempty"`
	IsUnknown     bool   `json:"isUnknown"`
	IsCustom      bool   `json:"isCustom,omitempty"`
	State         State  `json:"state,omitempty"`
	FailureReason string `json:"failureReason,omitempty"`
	StatusMessage string `json:"statusMessage,omitempty"`

	ExternalCandidates []ExternalCandidate `json:"externalCandidates,omitempty"`
	CatalogCandidates  []CatalogCandidate  `json:"catalogCandidates,omitempty"`
}
