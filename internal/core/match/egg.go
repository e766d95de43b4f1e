package match

import (
	"regexp"
	"strings"

	"golang.org/x/text/width"
)

var (
	eggSizePattern = regexp.MustCompile(`(?:^|[^A-Z])(SS|MS|LL|S|M|L)(?:[^A-Z]|$)`)
	eggMarkers     = []string{"卵", "たまご", "タマゴ", "玉子", "エッグ"}
)

// eggSize 回傳名稱中的雞蛋大小標記（SS/S/MS/M/L/LL），沒有時為空字串
func eggSize(name string) string {
	m := eggSizePattern.FindStringSubmatch(strings.ToUpper(width.Fold.String(name)))
	if m == nil {
		return ""
	}
	return m[1]
}

func isEggName(name string) bool {
	for _, m := range eggMarkers {
		if strings.Contains(name, m) {
			return true
		}
	}
	return false
}

// excludedEggSize 帶有 M 以外大小標記的雞蛋項目，除非搜尋本身指定了該大小，否則排除
func excludedEggSize(catalogName string, searchNames []string) bool {
	if !isEggName(catalogName) {
		return false
	}
	size := eggSize(catalogName)
	if size == "" || size == "M" {
		return false
	}
	for _, s := range searchNames {
		if eggSize(s) == size {
			return false
		}
	}
	return true
}
