package synonym

// CanonicalEgg 未指定大小的全卵一律改寫成的名稱
const CanonicalEgg = "鶏卵 M（58g）"

// defaultEntries 口語名稱 → 資料庫名稱（依可能性排序）。
// 米飯不列入生米，辨識來源是拍攝到的餐點。
var defaultEntries = map[string][]string{
	"ご飯":   {"白米（炊飯直後）", "白米（温め直し）", "白米"},
	"ごはん":  {"白米（炊飯直後）", "白米（温め直し）", "白米"},
	"ライス":  {"白米（炊飯直後）", "白米（温め直し）", "白米"},
	"白飯":   {"白米（炊飯直後）", "白米（温め直し）", "白米"},
	"白米":   {"白米（炊飯直後）", "白米（温め直し）"},
	"米":    {"白米（炊飯直後）", "白米（温め直し）", "白米"},
	"玄米":   {"玄米（炊飯直後）", "玄米"},
	"玄米ご飯": {"玄米（炊飯直後）", "玄米"},
	"おにぎり": {"おにぎり（塩）", "白米（炊飯直後）"},

	"食パン": {"食パン", "パン"},
	"パン":  {"食パン", "パン"},
	"うどん": {"うどん（茹で）", "うどん"},
	"そば":  {"そば（茹で）", "そば"},
	"パスタ": {"パスタ（茹で）", "スパゲッティ（茹で）", "パスタ"},

	"ゆで卵":  {"ゆで卵 M（58g）"},
	"茹で卵":  {"ゆで卵 M（58g）"},
	"温泉卵":  {"温泉卵 M（58g）"},
	"目玉焼き": {"目玉焼き M（61g）"},
	"卵焼き":  {"卵焼き", "だし巻き卵"},

	"鶏肉":   {"鶏むね肉（皮なし生）", "鶏もも肉（皮なし生）"},
	"チキン":  {"鶏むね肉（皮なし生）", "鶏もも肉（皮なし生）"},
	"鶏むね肉": {"鶏むね肉（皮なし生）", "鶏むね肉（皮付き生）"},
	"鶏胸肉":  {"鶏むね肉（皮なし生）", "鶏むね肉（皮付き生）"},
	"鶏もも肉": {"鶏もも肉（皮なし生）", "鶏もも肉（皮付き生）"},
	"ささみ":  {"鶏ささみ（生）"},
	"豚肉":   {"豚ロース（生）", "豚もも（生）", "豚バラ（生）"},
	"ポーク":  {"豚ロース（生）", "豚もも（生）"},
	"牛肉":   {"牛もも（生）", "牛ロース（生）", "牛バラ（生）"},
	"ビーフ":  {"牛もも（生）", "牛ロース（生）"},

	"サーモン": {"鮭（生）", "鮭"},
	"鮭":    {"鮭（生）", "鮭"},
	"さけ":   {"鮭（生）", "鮭"},
	"マグロ":  {"まぐろ（赤身生）", "まぐろ"},
	"ツナ":   {"ツナ缶（水煮）", "まぐろ（赤身生）"},
	"サバ":   {"さば（生）", "さば"},

	"豆腐":    {"木綿豆腐", "絹ごし豆腐"},
	"納豆":    {"糸引き納豆", "納豆"},
	"牛乳":    {"普通牛乳", "牛乳"},
	"ミルク":   {"普通牛乳", "牛乳"},
	"ヨーグルト": {"ヨーグルト（全脂無糖）", "ヨーグルト"},

	"トマト":    {"トマト（生）", "トマト"},
	"キャベツ":   {"キャベツ（生）", "キャベツ"},
	"レタス":    {"レタス（生）", "レタス"},
	"きゅうり":   {"きゅうり（生）", "きゅうり"},
	"にんじん":   {"にんじん（生）", "にんじん"},
	"人参":     {"にんじん（生）", "にんじん"},
	"玉ねぎ":    {"玉ねぎ（生）", "玉ねぎ"},
	"ブロッコリー": {"ブロッコリー（茹で）", "ブロッコリー（生）", "ブロッコリー"},
	"ほうれん草":  {"ほうれん草（茹で）", "ほうれん草（生）", "ほうれん草"},
	"じゃがいも":  {"じゃがいも（茹で）", "じゃがいも（生）", "じゃがいも"},

	"バナナ": {"バナナ（生）", "バナナ"},
	"りんご": {"りんご（生）", "りんご"},
	"リンゴ": {"りんご（生）", "りんご"},
}

// 大小未指定時改寫為 CanonicalEgg 的全卵名稱（搜尋形式）
var defaultEggTerms = []string{"卵", "たまご", "玉子", "鶏卵", "全卵", "鶏卵（全卵）", "全卵（生）", "生卵", "エッグ", "egg"}

// 蛋黃／蛋白（不改寫）
var yolkOrWhiteTerms = []string{"卵黄", "黄身", "卵白", "白身"}
