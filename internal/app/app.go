// Package app はアプリケーションの初期化とサブコマンドの実行を提供する。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/wwnaoya/gadgetpost/internal/catalog"
	"github.com/wwnaoya/gadgetpost/internal/config"
	"github.com/wwnaoya/gadgetpost/internal/logger"
	"github.com/wwnaoya/gadgetpost/internal/model"
	"github.com/wwnaoya/gadgetpost/internal/paapi"
	"github.com/wwnaoya/gadgetpost/internal/ping"
	"github.com/wwnaoya/gadgetpost/internal/post"
	"github.com/wwnaoya/gadgetpost/internal/security"
	"github.com/wwnaoya/gadgetpost/internal/store"
	"github.com/wwnaoya/gadgetpost/internal/wordpress"
)

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップし、環境変数からConfigを読み込む。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) *config.Config {
	logger.SetupDefault(w)
	return config.Load()
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応する処理を実行する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)
	cfg := Init(w)

	slog.Info("処理を開始します",
		slog.String("command", string(cmd)),
		slog.String("site_url", cfg.WPSiteURL),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case CommandRefresh:
		return runRefresh(ctx, cfg)
	case CommandPing:
		return runPing(ctx, cfg)
	default:
		return runPost(ctx, cfg)
	}
}

// newManager はカタログManagerと依存関係をワイヤリングする。
// PA-API認証情報がない場合、フェッチャーなし(キャッシュのみ)で構築する。
func newManager(cfg *config.Config) *catalog.Manager {
	log := slog.Default()

	var fetcher catalog.Fetcher
	if cfg.HasPAAPICredentials() {
		fetcher = paapi.NewClient(
			&http.Client{Timeout: 30 * time.Second},
			log,
			paapi.ClientConfig{
				AccessKey:       cfg.AmazonAccessKey,
				SecretKey:       cfg.AmazonSecretKey,
				AssociateTag:    cfg.AmazonAssociateTag,
				Region:          cfg.AmazonRegion,
				RequestInterval: cfg.PAAPIRequestInterval,
				Retry: paapi.RetryPolicy{
					MaxAttempts: cfg.RetryMaxAttempts,
					BaseDelay:   cfg.RetryBaseDelay,
					Multiplier:  2,
				},
			},
		)
	}

	return catalog.NewManager(
		store.NewFileStore(cfg.DataDir),
		fetcher,
		log,
		catalog.Config{
			StalenessThreshold:   cfg.StalenessThreshold(),
			TargetCount:          cfg.CatalogTargetCount,
			MaxResultsPerKeyword: cfg.MaxResultsPerKeyword,
			KeywordGroups:        paapi.DefaultKeywordGroups(),
		},
	)
}

// runPost は商品を1件選んでレビュー記事を生成し、WordPressに投稿する。
func runPost(ctx context.Context, cfg *config.Config) error {
	if err := cfg.ValidateForPost(); err != nil {
		return err
	}
	log := slog.Default()

	manager := newManager(cfg)
	manager.Load()

	// カタログの鮮度評価。キャッシュのみ指定時と認証情報なしの場合はスキップ
	switch {
	case cfg.UseCachedOnly:
		log.Info("キャッシュのみ使用する設定のため鮮度評価をスキップします")
	case !cfg.HasPAAPICredentials():
		log.Info("PA-API認証情報が未設定のため鮮度評価をスキップします")
	default:
		manager.RefreshIfStale(ctx)
	}

	product, rotationReset := manager.PickNext(cfg.CategoryFilter)
	if product == nil {
		if cfg.CategoryFilter != "" {
			return fmt.Errorf("カテゴリー %q に投稿できる商品がありません", cfg.CategoryFilter)
		}
		return fmt.Errorf("カタログが空のため投稿できません。refreshコマンドでカタログを作成してください")
	}
	if rotationReset {
		log.Info("全商品を一巡したため投稿履歴をリセットして続行します")
	}
	log.Info("投稿する商品を選択しました",
		slog.String("asin", product.ASIN),
		slog.String("name", product.Name),
		slog.String("category", product.Category),
	)

	generator := post.NewGenerator()
	title := generator.Title(product)
	content := buildContent(ctx, cfg, generator, product)

	wp := wordpress.NewClient(
		&http.Client{Timeout: 60 * time.Second},
		log,
		cfg.WPSiteURL, cfg.WPUsername, cfg.WPAppPassword,
	)

	// カテゴリー解決の失敗は警告に留めて投稿を続行する
	var categoryIDs []int
	if id, err := wp.GetOrCreateCategory(ctx, product.Category); err != nil {
		log.Warn("カテゴリーの設定に失敗しました", slog.String("error", err.Error()))
	} else {
		categoryIDs = []int{id}
	}

	var tagIDs []int
	if ids, err := wp.GetOrCreateTags(ctx, generator.Tags(product)); err != nil {
		log.Warn("タグの設定に失敗しました", slog.String("error", err.Error()))
	} else {
		tagIDs = ids
	}

	featuredMediaID := uploadFeaturedImage(ctx, log, wp, product)

	metaDescription := generator.MetaDescription(product)
	created, err := wp.CreatePost(ctx, wordpress.CreatePostParams{
		Title:           title,
		Content:         content,
		Status:          cfg.PostStatus,
		CategoryIDs:     categoryIDs,
		TagIDs:          tagIDs,
		Excerpt:         metaDescription,
		FeaturedMediaID: featuredMediaID,
		SEO: wordpress.SEO{
			Title:       title,
			Description: metaDescription,
			Keywords:    generator.MetaKeywords(product),
		},
	})
	if err != nil {
		// 投稿に失敗した商品は投稿済みにしない。次回実行で再度選ばれる
		return fmt.Errorf("記事の投稿に失敗しました: %w", err)
	}

	if err := manager.MarkSeen(product.ASIN); err != nil {
		log.Warn("投稿済み履歴の保存に失敗しました。次回同じ商品が選ばれる可能性があります",
			slog.String("asin", product.ASIN),
			slog.String("error", err.Error()),
		)
	}

	log.Info("記事を投稿しました",
		slog.Int("post_id", created.ID),
		slog.String("url", created.Link),
		slog.String("status", cfg.PostStatus),
	)

	if cfg.PingEnabled && cfg.PostStatus == "publish" {
		broadcaster := ping.NewBroadcaster(&http.Client{Timeout: 15 * time.Second}, log, nil)
		result := broadcaster.Broadcast(ctx, cfg.BlogName, cfg.WPSiteURL, created.Link)
		log.Info("Ping送信が完了しました",
			slog.Int("succeeded", len(result.Succeeded)),
			slog.Int("failed", len(result.Failed)),
		)
	}
	return nil
}

// buildContent は記事本文を生成する。AIの設定がある場合はAI生成を試み、
// 失敗した場合はテンプレート生成にフォールバックする。
func buildContent(ctx context.Context, cfg *config.Config, generator *post.Generator, product *model.Product) string {
	if cfg.AIAPIKey == "" {
		return generator.Content(product)
	}

	writer := post.NewAIWriter(slog.Default(), cfg.AIAPIKey, cfg.AIBaseURL, cfg.AIModel)
	body, err := writer.WriteBody(ctx, product)
	if err != nil {
		slog.Warn("AI生成に失敗したためテンプレートで本文を生成します",
			slog.String("error", err.Error()),
		)
		return generator.Content(product)
	}
	return body
}

// uploadFeaturedImage はアイキャッチ画像を取得してアップロードする。
// 失敗しても投稿は続行するため、失敗時は警告ログを出して0を返す。
func uploadFeaturedImage(ctx context.Context, log *slog.Logger, wp *wordpress.Client, product *model.Product) int {
	if product.ImageURL == nil || *product.ImageURL == "" {
		return 0
	}

	image, err := security.NewImageFetcher().Fetch(ctx, *product.ImageURL)
	if err != nil {
		log.Warn("アイキャッチ画像の取得に失敗しました",
			slog.String("image_url", *product.ImageURL),
			slog.String("error", err.Error()),
		)
		return 0
	}

	media, err := wp.UploadMedia(ctx, image.Data, mediaFilename(product.Name), image.ContentType)
	if err != nil {
		log.Warn("アイキャッチ画像のアップロードに失敗しました",
			slog.String("error", err.Error()),
		)
		return 0
	}

	log.Info("アイキャッチ画像をアップロードしました",
		slog.Int("media_id", media.ID),
	)
	return media.ID
}

// mediaFilename は商品名から安全なメディアファイル名を生成する。
// 記号を除去した上で空白をハイフンにまとめる。商品名が記号のみで
// 空になった場合はランダムなファイル名にフォールバックする。
func mediaFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '-':
			b.WriteRune(' ')
		}
	}
	slug := strings.Join(strings.Fields(b.String()), "-")
	if slug == "" {
		slug = uuid.NewString()
	}
	return slug + ".jpg"
}

// runRefresh はカタログをアップストリームから強制的に更新する。
func runRefresh(ctx context.Context, cfg *config.Config) error {
	if err := cfg.ValidateForRefresh(); err != nil {
		return err
	}
	log := slog.Default()

	manager := newManager(cfg)
	manager.Load()

	if err := manager.Refresh(ctx); err != nil {
		return fmt.Errorf("カタログの更新に失敗しました: %w", err)
	}

	counts := manager.CategoryCounts()
	attrs := make([]any, 0, len(counts)+1)
	attrs = append(attrs, slog.Int("total", len(manager.Products())))
	for category, count := range counts {
		attrs = append(attrs, slog.Int(category, count))
	}
	log.Info("カタログを更新しました", attrs...)
	return nil
}

// runPing は最新記事をブログ検索エンジンに通知する。
// 最新記事の取得に失敗した場合は記事URLなしで通知する。
// 全サーバーへの送信が失敗した場合のみエラーを返す。
func runPing(ctx context.Context, cfg *config.Config) error {
	log := slog.Default()

	wp := wordpress.NewClient(
		&http.Client{Timeout: 30 * time.Second},
		log,
		cfg.WPSiteURL, cfg.WPUsername, cfg.WPAppPassword,
	)

	postURL := ""
	if latest, err := wp.LatestPost(ctx); err != nil {
		log.Warn("最新記事の取得に失敗したため記事URLなしで通知します",
			slog.String("error", err.Error()),
		)
	} else if latest != nil {
		postURL = latest.Link
		log.Info("最新記事を取得しました",
			slog.String("title", latest.TitleText()),
			slog.String("url", postURL),
		)
	}

	broadcaster := ping.NewBroadcaster(&http.Client{Timeout: 15 * time.Second}, log, nil)
	result := broadcaster.Broadcast(ctx, cfg.BlogName, cfg.WPSiteURL, postURL)

	log.Info("Ping送信が完了しました",
		slog.Int("succeeded", len(result.Succeeded)),
		slog.Int("failed", len(result.Failed)),
	)
	if !result.AnySucceeded() {
		return fmt.Errorf("全てのPingサーバーへの送信に失敗しました")
	}
	return nil
}
