package jsonrepair

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var leadingNumber = regexp.MustCompile(`^[-+]?(?:\d+(?:\.\d*)?|\.\d+)`)

// Number 寬鬆讀取數值：接受 JSON 數字、數字字串與帶單位的字串（"180g"、"1,200kcal"）。
// 無法解析或不是有限數時回傳 false。
func Number(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case json.Number:
		n, err := x.Float64()
		if err != nil {
			return 0, false
		}
		f = n
	case float64:
		f = x
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(x), ",", "")
		m := leadingNumber.FindString(s)
		if m == "" {
			return 0, false
		}
		n, err := strconv.ParseFloat(m, 64)
		if err != nil {
			return 0, false
		}
		f = n
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// String 讀取字串；數字轉為文字，其他型別回傳空字串
func String(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case json.Number:
		return x.String()
	default:
		return ""
	}
}

// Bool 讀取布林值，接受 "true"/"false" 字串
func Bool(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(x))
		return b
	default:
		return false
	}
}

// Object 讀取物件，不是物件時回傳 nil
func Object(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

// Array 讀取陣列，不是陣列時回傳 nil
func Array(v any) []any {
	a, _ := v.([]any)
	return a
}
