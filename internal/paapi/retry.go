package paapi

import "time"

// RetryPolicy はレート制限エラーに対する再試行の設定。
// PA-APIのスロットリング(1リクエスト/10秒)に引っかかった場合、
// 待機時間を倍々に伸ばしながら再試行する。
type RetryPolicy struct {
	// MaxAttempts は初回を含む総試行回数。
	MaxAttempts int
	// BaseDelay は1回目の再試行前の待機時間。
	BaseDelay time.Duration
	// Multiplier は再試行ごとの待機時間の倍率。
	Multiplier float64
}

// DefaultRetryPolicy はデフォルトの再試行設定を返す。
// 3回試行し、待機時間は15秒から始まり倍々になる。
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   15 * time.Second,
		Multiplier:  2,
	}
}

// Delay はi回目(0始まり)の再試行前の待機時間を返す。
func (p RetryPolicy) Delay(i int) time.Duration {
	d := p.BaseDelay
	for ; i > 0; i-- {
		d = time.Duration(float64(d) * p.Multiplier)
	}
	return d
}
