// Package model はアプリケーション全体で共有されるドメインモデルを定義する。
package model

// Product はカタログに登録される商品。
// products.jsonの1エントリに対応する。省略可能なフィールドはポインタで表現し、
// JSON上はnullまたはフィールド省略として扱う。
type Product struct {
	// ASIN はAmazon商品の一意識別子。カタログ内の重複排除キー。
	ASIN string `json:"asin"`
	// Name は表示用の商品名。
	Name string `json:"name"`
	// FullName はAmazon上の正式な商品名。Nameより長い場合がある。
	FullName *string `json:"full_name,omitempty"`
	// URL はアソシエイトタグ付きの商品ページURL。
	URL string `json:"url"`
	// Price は表示用の価格文字列(例: ¥14,800)。
	Price *string `json:"price,omitempty"`
	// ImageURL は商品画像のURL。アイキャッチ画像の取得元。
	ImageURL *string `json:"image_url,omitempty"`
	// Description は商品の短い説明文。
	Description *string `json:"description,omitempty"`
	// Category は商品のカテゴリー(PC周辺機器 / PCパーツなど)。
	Category string `json:"category"`
	// Features は商品の特徴の箇条書き。最大5件。
	Features []string `json:"features,omitempty"`
	// Rating は星評価。取得できない場合はnil。
	Rating *float64 `json:"rating,omitempty"`
}

// DisplayName は記事に使用する商品名を返す。
// 正式名称があればそちらを優先する。
func (p *Product) DisplayName() string {
	if p.FullName != nil && *p.FullName != "" {
		return *p.FullName
	}
	return p.Name
}

// KeywordGroup はカタログ更新時に巡回する、カテゴリーと
// 検索キーワードの組。
type KeywordGroup struct {
	Category string
	Keywords []string
}
