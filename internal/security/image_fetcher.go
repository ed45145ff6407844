// Package security はアイキャッチ画像取得時のSSRF防止機能を提供する。
//
// カタログの画像URLは外部API由来のデータであり、そのまま取得すると
// 内部ネットワークへのリクエストに悪用されうる。取得前の静的なURL検証と、
// safeurlによるDNS解決後のIPアドレス検証を組み合わせて防御する。
package security

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/doyensec/safeurl"
)

const (
	fetchTimeout = 15 * time.Second
	// maxImageSize はダウンロードを許可する画像の最大サイズ(10MiB)。
	maxImageSize = 10 << 20
)

var allowedSchemes = []string{"http", "https"}

// blockedNetworks は静的検証でブロックするネットワーク範囲。
// DNS解決後のIPはsafeurlのDialer検証が別途ブロックする。
var blockedNetworks []net.IPNet

func init() {
	cidrs := []string{
		"10.0.0.0/8",     // プライベート (RFC 1918)
		"172.16.0.0/12",  // プライベート (RFC 1918)
		"192.168.0.0/16", // プライベート (RFC 1918)
		"127.0.0.0/8",    // ループバック
		"169.254.0.0/16", // リンクローカル。クラウドメタデータIPを含む
		"0.0.0.0/8",
		"::1/128",
		"fe80::/10",
		"fc00::/7",
	}
	for _, cidr := range cidrs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("invalid CIDR in blockedNetworks: %s: %v", cidr, err))
		}
		blockedNetworks = append(blockedNetworks, *network)
	}
}

// Image はダウンロード済みの画像データ。
type Image struct {
	Data        []byte
	ContentType string
}

// ImageFetcher はSSRF防止機能付きの画像ダウンローダー。
type ImageFetcher struct {
	client *http.Client
}

// NewImageFetcher はImageFetcherを生成する。
// 内部のHTTPクライアントはsafeurlでラップされており、プライベートIP・
// ループバック・リンクローカル・メタデータIPへの接続を拒否する。
func NewImageFetcher() *ImageFetcher {
	config := safeurl.GetConfigBuilder().
		SetTimeout(fetchTimeout).
		SetAllowedSchemes(allowedSchemes...).
		SetAllowedPorts(80, 443).
		Build()
	return &ImageFetcher{client: safeurl.Client(config).Client}
}

// Fetch は画像URLからデータをダウンロードする。
// Content-Typeが画像でない場合やサイズ上限を超える場合はエラーを返す。
func (f *ImageFetcher) Fetch(ctx context.Context, rawURL string) (*Image, error) {
	if err := ValidateURL(rawURL); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("リクエストの生成に失敗しました: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("画像の取得に失敗しました: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("画像の取得に失敗しました: ステータスコード %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("画像ではないContent-Typeが返されました: %s", contentType)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageSize+1))
	if err != nil {
		return nil, fmt.Errorf("画像の読み込みに失敗しました: %w", err)
	}
	if len(data) > maxImageSize {
		return nil, fmt.Errorf("画像サイズが上限(%dバイト)を超えています", maxImageSize)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("画像データが空です")
	}

	return &Image{Data: data, ContentType: contentType}, nil
}

// ValidateURL は画像URLの安全性を静的に検証する。
// DNS解決は行わないため、解決後のIP検証はsafeurl側のDialerが担う。
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("画像URLが空です")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("画像URLが不正です: %w", err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	allowed := false
	for _, s := range allowedSchemes {
		if scheme == s {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("許可されていないスキームです: %s", scheme)
	}

	host := parsed.Hostname()
	if host == "" {
		return fmt.Errorf("画像URLにホストがありません: %s", rawURL)
	}
	if strings.EqualFold(host, "localhost") {
		return fmt.Errorf("ブロック対象のホストです: %s", host)
	}

	if ip := net.ParseIP(host); ip != nil {
		for _, network := range blockedNetworks {
			if network.Contains(ip) {
				return fmt.Errorf("ブロック対象のIPアドレスです: %s", ip)
			}
		}
	}
	return nil
}
