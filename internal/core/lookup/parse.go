package lookup

import (
	"errors"
	"fmt"

	"nutrient-resolver/internal/core/nutrient"
	"nutrient-resolver/internal/core/textnorm"
	"nutrient-resolver/internal/pkg/jsonrepair"
)

// ErrNoBestMatch 回應中沒有可用的 bestMatch，即使有候選也不自行挑選
var ErrNoBestMatch = errors.New("lookup response has no bestMatch")

// BestMatch 外部來源的最佳候選
type BestMatch struct {
	Name       string          `json:"name"`
	Record     nutrient.Record `json:"record"`
	MatchScore float64         `json:"matchScore"`
	Confidence float64         `json:"confidence"`
}

// Result 一次查詢的結果
type Result struct {
	SearchTerm string                       `json:"searchTerm"`
	Candidates []nutrient.ExternalCandidate `json:"candidates"`
	BestMatch  BestMatch                    `json:"bestMatch"`
}

// Parse 解析查詢回應。候選最多保留 limit 筆；bestMatch 缺少或沒有熱量時回傳 ErrNoBestMatch。
func Parse(text, queryName string, limit int) (*Result, error) {
	var root map[string]any
	if err := jsonrepair.Unmarshal(text, &root); err != nil {
		return nil, fmt.Errorf("parse lookup response: %w", err)
	}

	res := &Result{
		SearchTerm: jsonrepair.String(root["searchTerm"]),
		Candidates: []nutrient.ExternalCandidate{},
	}
	if res.SearchTerm == "" {
		res.SearchTerm = queryName
	}

	for _, raw := range jsonrepair.Array(root["candidates"]) {
		obj := jsonrepair.Object(raw)
		name := textnorm.Normalize(jsonrepair.String(obj["name"]))
		if name == "" {
			continue
		}
		c := nutrient.ExternalCandidate{
			Name:        name,
			MatchScore:  score(obj["matchScore"]),
			MatchReason: jsonrepair.String(obj["matchReason"]),
		}
		if rec, ok := nutrient.RecordFromJSON(obj); ok {
			c.Record = &rec
		}
		res.Candidates = append(res.Candidates, c)
		if limit > 0 && len(res.Candidates) == limit {
			break
		}
	}

	best := jsonrepair.Object(root["bestMatch"])
	if best == nil {
		return res, fmt.Errorf("%w (%d candidates)", ErrNoBestMatch, len(res.Candidates))
	}
	rec, ok := nutrient.RecordFromJSON(best)
	if !ok {
		return res, fmt.Errorf("%w: calories missing", ErrNoBestMatch)
	}
	res.BestMatch = BestMatch{
		Name:       textnorm.Normalize(jsonrepair.String(best["name"])),
		Record:     rec,
		MatchScore: score(best["matchScore"]),
		Confidence: confidence(best["confidence"]),
	}
	if res.BestMatch.Name == "" {
		res.BestMatch.Name = res.SearchTerm
	}
	return res, nil
}

func score(v any) float64 {
	x, ok := jsonrepair.Number(v)
	if !ok || x < 0 {
		return 0
	}
	return x
}

func confidence(v any) float64 {
	x := score(v)
	if x > 1 {
		return 1
	}
	return x
}
