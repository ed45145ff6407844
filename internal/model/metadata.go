package model

import "time"

// RefreshMetadata はカタログ更新の履歴情報。metadata.jsonに対応する。
// LastRefreshDateのゼロ値は一度も更新されていないことを表す。
type RefreshMetadata struct {
	// LastRefreshDate は最後にカタログを更新した日時。
	// 鮮度判定の基準値として使用される。
	LastRefreshDate time.Time `json:"last_refresh_date"`
	// RefreshCount は成功したカタログ更新の累計回数。
	RefreshCount int `json:"refresh_count"`
	// AutoRefresh は最後の更新が自動更新だったかを表す。
	AutoRefresh bool `json:"auto_refresh"`
	// TotalRequests は最後の更新で送信した検索リクエスト数。
	TotalRequests int `json:"total_requests"`
	// ElapsedSeconds は最後の更新の所要時間(秒)。
	ElapsedSeconds int `json:"elapsed_seconds,omitempty"`
}
