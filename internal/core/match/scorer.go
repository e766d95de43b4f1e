// Package match 計算搜尋名稱與資料庫名稱的比對分數並選出最佳項目。
package match

import (
	"strings"

	"nutrient-resolver/internal/infrastructure/config"
)

// Scores 各比對類型的分數
type Scores struct {
	Exact           int
	CatalogPrefix   int // 資料庫名稱以搜尋名稱開頭
	SearchPrefix    int // 搜尋名稱以資料庫名稱開頭
	CatalogContains int // 資料庫名稱包含搜尋名稱
	SearchContains  int // 搜尋名稱包含資料庫名稱
}

// DefaultScores 100/80/75/60/40
func DefaultScores() Scores {
	return Scores{Exact: 100, CatalogPrefix: 80, SearchPrefix: 75, CatalogContains: 60, SearchContains: 40}
}

// ScoresFromConfig 由設定建立分數表
func ScoresFromConfig(cfg config.MatchingConfig) Scores {
	return Scores{
		Exact:           cfg.Exact,
		CatalogPrefix:   cfg.CatalogPrefix,
		SearchPrefix:    cfg.SearchPrefix,
		CatalogContains: cfg.CatalogContains,
		SearchContains:  cfg.SearchContains,
	}
}

// Scorer 比對評分器，無狀態
type Scorer struct {
	scores Scores
}

// NewScorer 建立評分器
func NewScorer(scores Scores) *Scorer {
	return &Scorer{scores: scores}
}

// ScoreOne 單一搜尋名稱的分數，空字串一律為 0
func (s *Scorer) ScoreOne(catalogName, searchName string) int {
	if catalogName == "" || searchName == "" {
		return 0
	}
	switch {
	case catalogName == searchName:
		return s.scores.Exact
	case strings.HasPrefix(catalogName, searchName):
		return s.scores.CatalogPrefix
	case strings.HasPrefix(searchName, catalogName):
		return s.scores.SearchPrefix
	case strings.Contains(catalogName, searchName):
		return s.scores.CatalogContains
	case strings.Contains(searchName, catalogName):
		return s.scores.SearchContains
	default:
		return 0
	}
}

// Best 所有搜尋名稱中的最高分，以及最先達到該分數的搜尋名稱索引（無命中時為 -1）
func (s *Scorer) Best(catalogName string, searchNames []string) (score, index int) {
	index = -1
	for i, name := range searchNames {
		if v := s.ScoreOne(catalogName, name); v > score {
			score, index = v, i
		}
	}
	return score, index
}

// Score 所有搜尋名稱中的最高分
func (s *Scorer) Score(catalogName string, searchNames []string) int {
	score, _ := s.Best(catalogName, searchNames)
	return score
}
