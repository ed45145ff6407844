// Package wordpress はWordPress REST API (wp/v2) のクライアントを提供する。
//
// 認証はApplication PasswordによるBasic認証。投稿作成・メディアアップロード・
// カテゴリーとタグの解決・最新投稿の取得をサポートする。SEOメタフィールドは
// Yoast SEO / Rank Math / All in One SEO の3プラグインのキーを同時に設定し、
// サイト側でどれが有効でも機能するようにする。
package wordpress

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// Client はWordPress REST APIのクライアント。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	apiURL     string
	authHeader string
}

// NewClient はsiteURLのWordPressサイトに接続するクライアントを生成する。
func NewClient(httpClient *http.Client, logger *slog.Logger, siteURL, username, appPassword string) *Client {
	token := base64.StdEncoding.EncodeToString([]byte(username + ":" + appPassword))
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		apiURL:     strings.TrimRight(siteURL, "/") + "/wp-json/wp/v2",
		authHeader: "Basic " + token,
	}
}

// renderedText はWordPressのレンダリング済みテキストフィールド。
type renderedText struct {
	Rendered string `json:"rendered"`
}

// Post は作成・取得した投稿の情報。
type Post struct {
	ID            int          `json:"id"`
	Link          string       `json:"link"`
	Title         renderedText `json:"title"`
	FeaturedMedia int          `json:"featured_media"`
}

// TitleText は投稿タイトルのレンダリング済みテキストを返す。
func (p *Post) TitleText() string { return p.Title.Rendered }

// Media はアップロード済みメディアの情報。
type Media struct {
	ID        int    `json:"id"`
	SourceURL string `json:"source_url"`
}

type term struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// SEO は投稿のSEOメタ情報。
type SEO struct {
	Title       string
	Description string
	Keywords    string
}

func (s SEO) empty() bool {
	return s.Title == "" && s.Description == "" && s.Keywords == ""
}

// metaFields は3種類のSEOプラグインのメタキーに値を展開する。
func (s SEO) metaFields() map[string]string {
	meta := make(map[string]string)
	if s.Title != "" {
		meta["_yoast_wpseo_title"] = s.Title
		meta["rank_math_title"] = s.Title
		meta["_aioseo_title"] = s.Title
	}
	if s.Description != "" {
		meta["_yoast_wpseo_metadesc"] = s.Description
		meta["rank_math_description"] = s.Description
		meta["_aioseo_description"] = s.Description
	}
	if s.Keywords != "" {
		meta["_yoast_wpseo_focuskw"] = s.Keywords
		meta["rank_math_focus_keyword"] = s.Keywords
		meta["_aioseo_keywords"] = s.Keywords
	}
	return meta
}

// CreatePostParams は投稿作成のパラメータ。
type CreatePostParams struct {
	Title   string
	Content string
	// Status はdraft / publish / privateのいずれか。
	Status          string
	CategoryIDs     []int
	TagIDs          []int
	Excerpt         string
	FeaturedMediaID int
	SEO             SEO
}

// CreatePost は新しい投稿を作成する。
// SEOメタフィールドは作成ペイロードに含めた上で、登録が無視される
// サイト構成に備えて作成後にもう一度更新を試みる。メタ更新の失敗は
// 警告ログに留め、エラーにしない。
func (c *Client) CreatePost(ctx context.Context, params CreatePostParams) (*Post, error) {
	payload := map[string]any{
		"title":   params.Title,
		"content": params.Content,
		"status":  params.Status,
	}
	if len(params.CategoryIDs) > 0 {
		payload["categories"] = params.CategoryIDs
	}
	if len(params.TagIDs) > 0 {
		payload["tags"] = params.TagIDs
	}
	if params.Excerpt != "" {
		payload["excerpt"] = params.Excerpt
	}
	if params.FeaturedMediaID > 0 {
		payload["featured_media"] = params.FeaturedMediaID
	}
	if !params.SEO.empty() {
		payload["meta"] = params.SEO.metaFields()
	}

	var post Post
	if err := c.doJSON(ctx, http.MethodPost, "/posts", payload, &post); err != nil {
		return nil, fmt.Errorf("投稿の作成に失敗しました: %w", err)
	}

	if !params.SEO.empty() {
		if err := c.updateSEOMeta(ctx, post.ID, params.SEO); err != nil {
			c.logger.Warn("SEOメタフィールドの更新に失敗しました",
				slog.Int("post_id", post.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	return &post, nil
}

// updateSEOMeta は既存投稿のSEOメタフィールドを更新する。
func (c *Client) updateSEOMeta(ctx context.Context, postID int, seo SEO) error {
	payload := map[string]any{"meta": seo.metaFields()}
	return c.doJSON(ctx, http.MethodPut, fmt.Sprintf("/posts/%d", postID), payload, nil)
}

// UploadMedia は画像データをメディアライブラリにアップロードする。
func (c *Client) UploadMedia(ctx context.Context, data []byte, filename, contentType string) (*Media, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/media", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("リクエストの生成に失敗しました: %w", err)
	}
	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	if contentType == "" {
		contentType = "image/jpeg"
	}
	req.Header.Set("Content-Type", contentType)

	var media Media
	if err := c.send(req, &media); err != nil {
		return nil, fmt.Errorf("メディアのアップロードに失敗しました: %w", err)
	}
	return &media, nil
}

// GetOrCreateCategory はカテゴリー名からIDを解決する。
// 既存カテゴリーと大文字小文字を無視して照合し、見つからなければ新規作成する。
func (c *Client) GetOrCreateCategory(ctx context.Context, name string) (int, error) {
	var categories []term
	if err := c.doJSON(ctx, http.MethodGet, "/categories?per_page=100", nil, &categories); err != nil {
		return 0, fmt.Errorf("カテゴリー一覧の取得に失敗しました: %w", err)
	}
	for _, cat := range categories {
		if strings.EqualFold(cat.Name, name) {
			return cat.ID, nil
		}
	}

	var created term
	if err := c.doJSON(ctx, http.MethodPost, "/categories", map[string]any{"name": name}, &created); err != nil {
		return 0, fmt.Errorf("カテゴリーの作成に失敗しました: %w", err)
	}
	c.logger.Info("カテゴリーを作成しました",
		slog.String("name", name),
		slog.Int("id", created.ID),
	)
	return created.ID, nil
}

// GetOrCreateTags はタグ名の一覧をIDの一覧に解決する。
// 存在しないタグは新規作成する。一覧の取得は1回で済ませる。
func (c *Client) GetOrCreateTags(ctx context.Context, names []string) ([]int, error) {
	var existing []term
	if err := c.doJSON(ctx, http.MethodGet, "/tags?per_page=100", nil, &existing); err != nil {
		return nil, fmt.Errorf("タグ一覧の取得に失敗しました: %w", err)
	}

	ids := make([]int, 0, len(names))
	for _, name := range names {
		found := false
		for _, tag := range existing {
			if strings.EqualFold(tag.Name, name) {
				ids = append(ids, tag.ID)
				found = true
				break
			}
		}
		if found {
			continue
		}

		var created term
		if err := c.doJSON(ctx, http.MethodPost, "/tags", map[string]any{"name": name}, &created); err != nil {
			return nil, fmt.Errorf("タグ %q の作成に失敗しました: %w", name, err)
		}
		ids = append(ids, created.ID)
	}
	return ids, nil
}

// LatestPost は公開済みの最新投稿を1件取得する。投稿がない場合はnilを返す。
func (c *Client) LatestPost(ctx context.Context) (*Post, error) {
	var posts []Post
	path := "/posts?per_page=1&orderby=date&order=desc&status=publish"
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &posts); err != nil {
		return nil, fmt.Errorf("最新投稿の取得に失敗しました: %w", err)
	}
	if len(posts) == 0 {
		return nil, nil
	}
	return &posts[0], nil
}

// doJSON はJSONボディ付きのリクエストを送信し、レスポンスをoutにデコードする。
func (c *Client) doJSON(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("JSONへの変換に失敗しました: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, body)
	if err != nil {
		return fmt.Errorf("リクエストの生成に失敗しました: %w", err)
	}
	req.Header.Set("Authorization", c.authHeader)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.send(req, out)
}

// send はリクエストを送信し、2xx以外をエラーとして扱う。
func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("リクエストの送信に失敗しました: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("レスポンスの読み込みに失敗しました: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ステータスコード %d: %s", resp.StatusCode, apiErrorMessage(data))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("レスポンスのパースに失敗しました: %w", err)
	}
	return nil
}

// apiErrorMessage はエラーレスポンスからメッセージを取り出す。
func apiErrorMessage(data []byte) string {
	var apiErr struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Message != "" {
		return apiErr.Message
	}
	s := string(data)
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
