// Package paapi はAmazon Product Advertising API 5.0のクライアントを提供する。
//
// PA-APIは低トラフィックのアソシエイトアカウントに対して概ね1リクエスト/10秒の
// レート制限を課すため、クライアントはrate.Limiterで全リクエストのペースを制御し、
// スロットリングエラーに対しては待機時間を倍々に伸ばしながら再試行する。
// 検索の失敗はログに記録した上で空スライスとして返す。呼び出し側の
// カタログ更新処理は1キーワードの失敗で全体を中断しない設計のため、
// エラーはこの層で吸収する。
package paapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/wwnaoya/gadgetpost/internal/model"
)

const searchItemsTarget = "com.amazon.paapi5.v1.ProductAdvertisingAPIv1.SearchItems"

// regionSpec はPA-APIのリージョンごとの接続先定義。
type regionSpec struct {
	host        string
	awsRegion   string
	marketplace string
}

var regions = map[string]regionSpec{
	"jp": {"webservices.amazon.co.jp", "us-west-2", "www.amazon.co.jp"},
	"us": {"webservices.amazon.com", "us-east-1", "www.amazon.com"},
	"uk": {"webservices.amazon.co.uk", "eu-west-1", "www.amazon.co.uk"},
	"de": {"webservices.amazon.de", "eu-west-1", "www.amazon.de"},
	"fr": {"webservices.amazon.fr", "eu-west-1", "www.amazon.fr"},
	"ca": {"webservices.amazon.ca", "us-east-1", "www.amazon.ca"},
	"it": {"webservices.amazon.it", "eu-west-1", "www.amazon.it"},
	"es": {"webservices.amazon.es", "eu-west-1", "www.amazon.es"},
}

// ClientConfig はClientの接続・認証設定。
type ClientConfig struct {
	AccessKey    string
	SecretKey    string
	AssociateTag string
	// Region はリージョンコード(jp / us / uk など)。不明な値はjpにフォールバック。
	Region string
	// RequestInterval はリクエスト間の最小間隔。ゼロの場合は10秒。
	RequestInterval time.Duration
	// Retry はスロットリング時の再試行設定。ゼロ値の場合はデフォルトを使用。
	Retry RetryPolicy
}

// Client はPA-API SearchItemsオペレーションのクライアント。
type Client struct {
	httpClient   *http.Client
	logger       *slog.Logger
	accessKey    string
	secretKey    string
	associateTag string
	region       regionSpec
	endpoint     string
	limiter      *rate.Limiter
	retry        RetryPolicy

	sleep func(time.Duration) // テスト用に差し替え可能
	now   func() time.Time    // テスト用に差し替え可能
}

// NewClient はPA-APIクライアントを生成する。
func NewClient(httpClient *http.Client, logger *slog.Logger, cfg ClientConfig) *Client {
	spec, ok := regions[strings.ToLower(cfg.Region)]
	if !ok {
		spec = regions["jp"]
	}
	interval := cfg.RequestInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	retry := cfg.Retry
	if retry.MaxAttempts <= 0 {
		retry = DefaultRetryPolicy()
	}
	return &Client{
		httpClient:   httpClient,
		logger:       logger,
		accessKey:    cfg.AccessKey,
		secretKey:    cfg.SecretKey,
		associateTag: cfg.AssociateTag,
		region:       spec,
		endpoint:     "https://" + spec.host + "/paapi5/searchitems",
		limiter:      rate.NewLimiter(rate.Every(interval), 1),
		retry:        retry,
		sleep:        time.Sleep,
		now:          time.Now,
	}
}

type searchItemsRequest struct {
	Keywords    string   `json:"Keywords"`
	ItemCount   int      `json:"ItemCount"`
	PartnerTag  string   `json:"PartnerTag"`
	PartnerType string   `json:"PartnerType"`
	Marketplace string   `json:"Marketplace"`
	Resources   []string `json:"Resources"`
}

type searchItemsResponse struct {
	SearchResult *struct {
		Items []apiItem `json:"Items"`
	} `json:"SearchResult"`
	Errors []struct {
		Code    string `json:"Code"`
		Message string `json:"Message"`
	} `json:"Errors"`
}

type apiItem struct {
	ASIN     string `json:"ASIN"`
	ItemInfo *struct {
		Title *struct {
			DisplayValue string `json:"DisplayValue"`
		} `json:"Title"`
		Features *struct {
			DisplayValues []string `json:"DisplayValues"`
		} `json:"Features"`
		ByLineInfo *struct {
			Brand *struct {
				DisplayValue string `json:"DisplayValue"`
			} `json:"Brand"`
		} `json:"ByLineInfo"`
	} `json:"ItemInfo"`
	Offers *struct {
		Listings []struct {
			Price *struct {
				DisplayAmount string `json:"DisplayAmount"`
			} `json:"Price"`
		} `json:"Listings"`
	} `json:"Offers"`
	Images *struct {
		Primary *struct {
			Large *struct {
				URL string `json:"URL"`
			} `json:"Large"`
		} `json:"Primary"`
	} `json:"Images"`
}

// Search はキーワードで商品を検索し、大手メーカーの商品のみを返す。
// スロットリングされた場合は再試行し、それでも失敗した場合や
// その他のエラー時は警告ログを出して空スライスを返す。
func (c *Client) Search(ctx context.Context, keyword, category string, maxResults int) []model.Product {
	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			c.logger.Warn("レート制限の待機が中断されました",
				slog.String("keyword", keyword),
				slog.String("error", err.Error()),
			)
			return nil
		}

		items, retryable, err := c.searchOnce(ctx, keyword, maxResults)
		if err == nil {
			return c.mapItems(items, keyword, category)
		}

		if !retryable {
			c.logger.Warn("商品検索に失敗しました",
				slog.String("keyword", keyword),
				slog.String("error", err.Error()),
			)
			return nil
		}

		c.logger.Warn("レート制限エラーが発生しました",
			slog.String("keyword", keyword),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", c.retry.MaxAttempts),
			slog.String("error", err.Error()),
		)
		if attempt < c.retry.MaxAttempts {
			c.sleep(c.retry.Delay(attempt - 1))
		}
	}

	c.logger.Warn("再試行回数の上限に達したため検索を諦めます",
		slog.String("keyword", keyword),
	)
	return nil
}

// searchOnce はSearchItemsリクエストを1回実行する。
// 2番目の戻り値は再試行すべきエラーかどうかを示す。
func (c *Client) searchOnce(ctx context.Context, keyword string, maxResults int) ([]apiItem, bool, error) {
	payload, err := json.Marshal(searchItemsRequest{
		Keywords:    keyword,
		ItemCount:   maxResults,
		PartnerTag:  c.associateTag,
		PartnerType: "Associates",
		Marketplace: c.region.marketplace,
		Resources: []string{
			"Images.Primary.Large",
			"ItemInfo.Title",
			"ItemInfo.Features",
			"ItemInfo.ByLineInfo",
			"Offers.Listings.Price",
		},
	})
	if err != nil {
		return nil, false, fmt.Errorf("リクエストの生成に失敗しました: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, false, fmt.Errorf("リクエストの生成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Content-Encoding", "amz-1.0")
	req.Header.Set("X-Amz-Target", searchItemsTarget)
	sign(req, payload, c.accessKey, c.secretKey, c.region.awsRegion, c.now())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("リクエストの送信に失敗しました: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, false, fmt.Errorf("レスポンスの読み込みに失敗しました: %w", err)
	}

	// 再試行するのはレート制限エラーのみ。それ以外は即座に諦める
	if resp.StatusCode == http.StatusTooManyRequests ||
		strings.Contains(string(body), "TooManyRequests") {
		return nil, true, fmt.Errorf("レート制限超過 (status %d)", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("予期しないステータスコード %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var result searchItemsResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, false, fmt.Errorf("レスポンスのパースに失敗しました: %w", err)
	}
	if result.SearchResult == nil {
		return nil, false, nil
	}
	return result.SearchResult.Items, false, nil
}

// mapItems はAPIレスポンスの商品を内部モデルに変換する。
// 大手メーカー以外の商品はここで除外される。
func (c *Client) mapItems(items []apiItem, keyword, category string) []model.Product {
	var products []model.Product
	for _, item := range items {
		title := ""
		if item.ItemInfo != nil && item.ItemInfo.Title != nil {
			title = item.ItemInfo.Title.DisplayValue
		}
		brand := ""
		if item.ItemInfo != nil && item.ItemInfo.ByLineInfo != nil && item.ItemInfo.ByLineInfo.Brand != nil {
			brand = item.ItemInfo.ByLineInfo.Brand.DisplayValue
		}

		if !isMajorBrand(title, brand) {
			continue
		}

		p := model.Product{
			ASIN:     item.ASIN,
			Name:     title,
			URL:      fmt.Sprintf("https://%s/dp/%s?tag=%s", c.region.marketplace, item.ASIN, c.associateTag),
			Category: category,
		}

		if item.Offers != nil && len(item.Offers.Listings) > 0 && item.Offers.Listings[0].Price != nil {
			price := item.Offers.Listings[0].Price.DisplayAmount
			p.Price = &price
		}
		if item.Images != nil && item.Images.Primary != nil && item.Images.Primary.Large != nil {
			imageURL := item.Images.Primary.Large.URL
			p.ImageURL = &imageURL
		}
		if item.ItemInfo != nil && item.ItemInfo.Features != nil {
			features := item.ItemInfo.Features.DisplayValues
			if len(features) > 5 {
				features = features[:5]
			}
			p.Features = features
		}

		description := fmt.Sprintf("%sの%sとして高い評価を得ている製品", brand, keyword)
		p.Description = &description

		products = append(products, p)
	}
	return products
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
