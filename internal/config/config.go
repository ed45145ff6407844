// Package config は環境変数からのアプリケーション設定読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
// 必須項目はサブコマンドごとに異なるため、Loadでは検証せず
// ValidateForPost / ValidateForRefresh で実行時に検証する。
type Config struct {
	// WordPress
	WPSiteURL     string
	WPUsername    string
	WPAppPassword string
	PostStatus    string // draft または publish
	BlogName      string

	// Amazon PA-API
	AmazonAccessKey      string
	AmazonSecretKey      string
	AmazonAssociateTag   string
	AmazonRegion         string
	PAAPIRequestInterval time.Duration
	RetryMaxAttempts     int
	RetryBaseDelay       time.Duration

	// カタログ
	DataDir                string
	StalenessThresholdDays int
	CatalogTargetCount     int
	MaxResultsPerKeyword   int
	UseCachedOnly          bool // アップストリーム取得を迂回してキャッシュのみ使用する
	CategoryFilter         string

	// 記事生成AI
	AIAPIKey  string
	AIBaseURL string
	AIModel   string

	// Ping通知
	PingEnabled bool
}

// Load は環境変数からConfigを読み込む。
// 未設定の項目にはデフォルト値が適用される。
func Load() *Config {
	return &Config{
		WPSiteURL:     getEnvString("WP_SITE_URL", "https://wwnaoya.com"),
		WPUsername:    os.Getenv("WP_USERNAME"),
		WPAppPassword: os.Getenv("WP_APP_PASSWORD"),
		PostStatus:    getEnvString("POST_STATUS", "draft"),
		BlogName:      getEnvString("BLOG_NAME", "ガジェットレビューブログ"),

		AmazonAccessKey:      os.Getenv("AMAZON_ACCESS_KEY"),
		AmazonSecretKey:      os.Getenv("AMAZON_SECRET_KEY"),
		AmazonAssociateTag:   os.Getenv("AMAZON_ASSOCIATE_TAG"),
		AmazonRegion:         getEnvString("AMAZON_REGION", "jp"),
		PAAPIRequestInterval: getEnvDuration("PAAPI_REQUEST_INTERVAL", 10*time.Second),
		RetryMaxAttempts:     getEnvInt("RETRY_MAX_ATTEMPTS", 3),
		RetryBaseDelay:       getEnvDuration("RETRY_BASE_DELAY", 15*time.Second),

		DataDir:                getEnvString("DATA_DIR", "data"),
		StalenessThresholdDays: getEnvInt("STALENESS_THRESHOLD_DAYS", 50),
		CatalogTargetCount:     getEnvInt("CATALOG_TARGET_COUNT", 100),
		MaxResultsPerKeyword:   getEnvInt("MAX_RESULTS_PER_KEYWORD", 5),
		UseCachedOnly:          getEnvBool("USE_CACHED_ONLY", false),
		CategoryFilter:         os.Getenv("CATEGORY_FILTER"),

		AIAPIKey:  os.Getenv("AI_API_KEY"),
		AIBaseURL: os.Getenv("AI_BASE_URL"),
		AIModel:   getEnvString("AI_MODEL", "gemini-2.0-flash"),

		PingEnabled: getEnvBool("PING_ENABLED", false),
	}
}

// ValidateForPost は記事投稿(postコマンド)に必要な設定を検証する。
func (c *Config) ValidateForPost() error {
	var missing []string
	if c.WPUsername == "" {
		missing = append(missing, "WP_USERNAME")
	}
	if c.WPAppPassword == "" {
		missing = append(missing, "WP_APP_PASSWORD")
	}
	if len(missing) > 0 {
		return fmt.Errorf("required environment variables are not set: %v", missing)
	}
	return nil
}

// ValidateForRefresh はカタログ更新(refreshコマンド)に必要な設定を検証する。
func (c *Config) ValidateForRefresh() error {
	var missing []string
	if c.AmazonAccessKey == "" {
		missing = append(missing, "AMAZON_ACCESS_KEY")
	}
	if c.AmazonSecretKey == "" {
		missing = append(missing, "AMAZON_SECRET_KEY")
	}
	if c.AmazonAssociateTag == "" {
		missing = append(missing, "AMAZON_ASSOCIATE_TAG")
	}
	if len(missing) > 0 {
		return fmt.Errorf("required environment variables are not set: %v", missing)
	}
	return nil
}

// HasPAAPICredentials はPA-API認証情報が揃っているかを返す。
// 揃っていない場合、postコマンドはキャッシュのみで動作する。
func (c *Config) HasPAAPICredentials() bool {
	return c.AmazonAccessKey != "" && c.AmazonSecretKey != "" && c.AmazonAssociateTag != ""
}

// StalenessThreshold は鮮度しきい値をtime.Durationとして返す。
func (c *Config) StalenessThreshold() time.Duration {
	return time.Duration(c.StalenessThresholdDays) * 24 * time.Hour
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}
