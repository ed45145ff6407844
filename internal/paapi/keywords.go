package paapi

import (
	"strings"

	"github.com/wwnaoya/gadgetpost/internal/model"
)

// MajorBrands は記事化の対象とする大手メーカーの一覧。
// 英語表記とカタカナ表記の両方を含む。判定は部分一致・大文字小文字無視。
var MajorBrands = []string{
	"Logitech", "ロジクール",
	"Microsoft", "マイクロソフト",
	"Samsung", "サムスン",
	"Crucial", "クルーシャル",
	"Anker", "アンカー",
	"BenQ", "ベンキュー",
	"HHKB", "Happy Hacking Keyboard",
	"Corsair", "コルセア",
	"Razer", "レイザー",
	"ASUS", "エイスース",
	"Dell", "デル",
	"HP", "ヒューレット・パッカード",
	"Lenovo", "レノボ",
	"SanDisk", "サンディスク",
	"Western Digital", "WD", "ウエスタンデジタル",
	"Kingston", "キングストン",
	"Intel", "インテル",
	"AMD",
	"NVIDIA", "エヌビディア",
	"Sony", "ソニー",
	"Panasonic", "パナソニック",
	"Canon", "キヤノン",
	"Epson", "エプソン",
	"Buffalo", "バッファロー",
	"Elecom", "エレコム",
	"Seagate", "シーゲート",
	"Transcend", "トランセンド",
	"Philips", "フィリップス",
	"LG",
	"Acer", "エイサー",
	"Apple", "アップル",
	"Creative", "クリエイティブ",
	"Thermaltake", "サーマルテイク",
}

// DefaultKeywordGroups はカタログ更新時に巡回するカテゴリー別の
// 検索キーワードを返す。
func DefaultKeywordGroups() []model.KeywordGroup {
	return []model.KeywordGroup{
		{
			Category: "PC周辺機器",
			Keywords: []string{
				"ワイヤレスマウス",
				"ゲーミングマウス",
				"エルゴノミクスマウス",
				"メカニカルキーボード",
				"ゲーミングキーボード",
				"ワイヤレスキーボード",
				"モニターライト",
				"デスクライト",
				"Webカメラ",
				"マイク",
				"ヘッドセット",
				"スピーカー",
				"モバイルバッテリー",
				"USB充電器",
				"USBハブ",
				"ドッキングステーション",
				"マウスパッド",
				"ゲーミングヘッドセット",
			},
		},
		{
			Category: "PCパーツ",
			Keywords: []string{
				"NVMe SSD",
				"M.2 SSD",
				"内蔵SSD",
				"DDR5 メモリ",
				"DDR4 メモリ",
				"グラフィックボード",
				"外付けSSD",
				"外付けHDD",
				"PCケース",
				"電源ユニット",
				"CPUクーラー",
				"ケースファン",
			},
		},
	}
}

// isMajorBrand は商品が大手メーカーのものかを判定する。
// ブランド名またはタイトルのいずれかに大手メーカー名が含まれればtrue。
func isMajorBrand(title, brand string) bool {
	lowerTitle := strings.ToLower(title)
	lowerBrand := strings.ToLower(brand)
	for _, major := range MajorBrands {
		m := strings.ToLower(major)
		if lowerBrand != "" && strings.Contains(lowerBrand, m) {
			return true
		}
		if strings.Contains(lowerTitle, m) {
			return true
		}
	}
	return false
}
