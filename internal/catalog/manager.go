// Package catalog はローカル商品カタログのキャッシュとローテーション管理を提供する。
//
// Managerは永続化された3つのコレクション(カタログ・投稿済み履歴・更新メタデータ)を
// 専有し、「未投稿の商品を1つ選ぶ」「投稿済みとして記録する」「古くなったら
// アップストリームから更新する」の3操作を公開する。全商品が一巡するまで
// 同じ商品を二度選ばないことと、更新失敗時に既存カタログを壊さないことを保証する。
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/wwnaoya/gadgetpost/internal/model"
)

// Store はManagerが使用する永続化レイヤのインターフェース。
type Store interface {
	LoadCatalog() ([]model.Product, error)
	SaveCatalog(products []model.Product) error
	LoadSeen() ([]string, error)
	SaveSeen(asins []string) error
	LoadMetadata() (model.RefreshMetadata, error)
	SaveMetadata(meta model.RefreshMetadata) error
}

// Fetcher はアップストリーム商品検索のインターフェース。
// 失敗はログに記録され空スライスとして返るため、呼び出し側は
// 1キーワードの空結果でリフレッシュ全体を中断しない。
type Fetcher interface {
	Search(ctx context.Context, keyword, category string, maxResults int) []model.Product
}

// Config はManagerの動作パラメータ。
type Config struct {
	// StalenessThreshold はカタログ全体を更新するまでの経過時間のしきい値。
	StalenessThreshold time.Duration
	// TargetCount はリフレッシュで蓄積する商品数の上限。
	TargetCount int
	// MaxResultsPerKeyword は1キーワードあたりの最大取得件数。
	MaxResultsPerKeyword int
	// KeywordGroups はリフレッシュで巡回するカテゴリー別キーワード。
	KeywordGroups []model.KeywordGroup
}

// DefaultConfig はデフォルトのManager設定を返す。
func DefaultConfig() Config {
	return Config{
		StalenessThreshold:   50 * 24 * time.Hour,
		TargetCount:          100,
		MaxResultsPerKeyword: 5,
	}
}

// Manager はカタログキャッシュとローテーション状態を管理する。
// 1回のスケジュール実行につき1インスタンスを生成し、終了時に破棄する。
// 永続化ファイルへの書き込み主体はこのManagerのみ。
type Manager struct {
	store   Store
	fetcher Fetcher
	logger  *slog.Logger
	config  Config

	products []model.Product
	seen     map[string]struct{}
	meta     model.RefreshMetadata

	now func() time.Time // テスト用に差し替え可能
	rng *rand.Rand       // テスト用に差し替え可能
}

// NewManager はManagerの新しいインスタンスを生成する。
// fetcherはnil可(キャッシュのみで動作し、リフレッシュは失敗する)。
func NewManager(store Store, fetcher Fetcher, logger *slog.Logger, config Config) *Manager {
	if config.TargetCount <= 0 {
		config.TargetCount = 100
	}
	if config.MaxResultsPerKeyword <= 0 {
		config.MaxResultsPerKeyword = 5
	}
	return &Manager{
		store:   store,
		fetcher: fetcher,
		logger:  logger,
		config:  config,
		seen:    make(map[string]struct{}),
		now:     time.Now,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Load は3つの永続化コレクションをそれぞれ独立に読み込む。
// いずれかの読み込みに失敗してもその部分だけ空のデフォルトに縮退し、
// エラーは返さない(ログに記録する)。
func (m *Manager) Load() {
	products, err := m.store.LoadCatalog()
	if err != nil {
		m.logger.Warn("カタログの読み込みに失敗したため空のカタログで続行します",
			slog.String("error", err.Error()),
		)
		products = nil
	}
	m.products = products

	seen, err := m.store.LoadSeen()
	if err != nil {
		m.logger.Warn("投稿済み履歴の読み込みに失敗したため空の履歴で続行します",
			slog.String("error", err.Error()),
		)
		seen = nil
	}
	m.seen = make(map[string]struct{}, len(seen))
	for _, asin := range seen {
		m.seen[asin] = struct{}{}
	}

	meta, err := m.store.LoadMetadata()
	if err != nil {
		m.logger.Warn("メタデータの読み込みに失敗したため初期値で続行します",
			slog.String("error", err.Error()),
		)
		meta = model.RefreshMetadata{}
	}
	m.meta = meta

	m.logger.Info("カタログを読み込みました",
		slog.Int("product_count", len(m.products)),
		slog.Int("seen_count", len(m.seen)),
		slog.Int("refresh_count", m.meta.RefreshCount),
	)
}

// RefreshIfStale はカタログの鮮度を評価し、しきい値以上経過していれば
// 全体リフレッシュを同期的に実行する。初回実行(タイムスタンプ未記録)は
// 古くなっていないものとして扱い、現在時刻を基準値として書き込む。
// リフレッシュの失敗は警告ログに留め、呼び出し元には伝播しない。
func (m *Manager) RefreshIfStale(ctx context.Context) {
	now := m.now()

	if m.meta.LastRefreshDate.IsZero() {
		m.meta.LastRefreshDate = now
		if err := m.store.SaveMetadata(m.meta); err != nil {
			m.logger.Warn("基準タイムスタンプの書き込みに失敗しました",
				slog.String("error", err.Error()),
			)
			return
		}
		m.logger.Info("初回実行のため現在時刻を鮮度判定の基準として記録しました",
			slog.Time("baseline", now),
		)
		return
	}

	age := now.Sub(m.meta.LastRefreshDate)
	if age < m.config.StalenessThreshold {
		m.logger.Info("カタログは十分新しいためリフレッシュをスキップします",
			slog.Float64("age_days", age.Hours()/24),
		)
		return
	}

	m.logger.Info("カタログが古くなっているためリフレッシュを実行します",
		slog.Float64("age_days", age.Hours()/24),
	)
	if err := m.Refresh(ctx); err != nil {
		m.logger.Warn("カタログのリフレッシュに失敗したため既存カタログで続行します",
			slog.String("error", err.Error()),
		)
	}
}

// Refresh はアップストリームから商品を取得してカタログを全面置換する。
// カテゴリー別キーワードを順に巡回し、TargetCountに達するか全キーワードを
// 使い切るまで候補を蓄積する。候補はASINで重複排除し(初出を残す)、
// TargetCountに切り詰める。候補が1件も得られなかった場合は何も変更せずに
// エラーを返す(カタログ置換はオール・オア・ナッシング)。
func (m *Manager) Refresh(ctx context.Context) error {
	if m.fetcher == nil {
		return fmt.Errorf("アップストリームフェッチャーが設定されていません")
	}
	if len(m.config.KeywordGroups) == 0 {
		return fmt.Errorf("検索キーワードが設定されていません")
	}

	start := m.now()
	var candidates []model.Product
	seenASIN := make(map[string]struct{})
	requests := 0

accumulate:
	for _, group := range m.config.KeywordGroups {
		for _, keyword := range group.Keywords {
			if len(candidates) >= m.config.TargetCount {
				break accumulate
			}

			results := m.fetcher.Search(ctx, keyword, group.Category, m.config.MaxResultsPerKeyword)
			requests++

			added := 0
			for _, p := range results {
				if _, dup := seenASIN[p.ASIN]; dup {
					continue
				}
				seenASIN[p.ASIN] = struct{}{}
				candidates = append(candidates, p)
				added++
			}

			m.logger.Info("キーワード検索が完了しました",
				slog.String("category", group.Category),
				slog.String("keyword", keyword),
				slog.Int("added", added),
				slog.Int("total", len(candidates)),
			)
		}
	}

	if len(candidates) == 0 {
		return fmt.Errorf("アップストリームから商品を1件も取得できませんでした (リクエスト数: %d)", requests)
	}

	if len(candidates) > m.config.TargetCount {
		candidates = candidates[:m.config.TargetCount]
	}

	// ここから先が置換ステップ。カタログ保存に失敗した場合、
	// アトミック書き込みにより既存ファイルは無傷のまま残る。
	if err := m.store.SaveCatalog(candidates); err != nil {
		return fmt.Errorf("新カタログの保存に失敗しました: %w", err)
	}
	m.products = candidates

	m.seen = make(map[string]struct{})
	if err := m.persistSeen(); err != nil {
		m.logger.Warn("投稿済み履歴のクリアの保存に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	now := m.now()
	m.meta.LastRefreshDate = now
	m.meta.RefreshCount++
	m.meta.AutoRefresh = true
	m.meta.TotalRequests = requests
	m.meta.ElapsedSeconds = int(now.Sub(start) / time.Second)
	if err := m.store.SaveMetadata(m.meta); err != nil {
		m.logger.Warn("メタデータの保存に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	m.logger.Info("カタログのリフレッシュが完了しました",
		slog.Int("product_count", len(candidates)),
		slog.Int("requests", requests),
		slog.Int("refresh_count", m.meta.RefreshCount),
	)
	return nil
}

// PickNext は未投稿の商品を1件一様ランダムに選んで返す。
// 全商品が投稿済みの場合(一巡完了)は履歴をクリアして全商品から選び直し、
// 2番目の戻り値でリセットが発生したことを通知する。
// categoryが空でない場合は選択対象をそのカテゴリーに限定し、
// 該当商品がなければnilを返す(他カテゴリーに未投稿商品があっても)。
// カタログ自体が空の場合は無条件にnilを返す。エラーは返さない。
func (m *Manager) PickNext(category string) (*model.Product, bool) {
	if len(m.products) == 0 {
		return nil, false
	}

	available := m.unseenProducts()
	reset := false

	if len(available) == 0 {
		// 一巡完了。履歴をリセットして全商品を再び選択可能にする。
		m.logger.Warn("全商品が投稿済みのため投稿履歴をリセットします",
			slog.Int("product_count", len(m.products)),
		)
		m.seen = make(map[string]struct{})
		if err := m.persistSeen(); err != nil {
			m.logger.Warn("投稿履歴リセットの保存に失敗しました",
				slog.String("error", err.Error()),
			)
		}
		available = append([]model.Product(nil), m.products...)
		reset = true
	}

	if category != "" {
		filtered := available[:0:0]
		for _, p := range available {
			if p.Category == category {
				filtered = append(filtered, p)
			}
		}
		if len(filtered) == 0 {
			return nil, reset
		}
		available = filtered
	}

	picked := available[m.rng.Intn(len(available))]
	return &picked, reset
}

// MarkSeen はASINを投稿済み履歴に追加し、同期的に永続化する。
// 既に記録済みの場合は何もしない(冪等)。
func (m *Manager) MarkSeen(asin string) error {
	if _, ok := m.seen[asin]; ok {
		return nil
	}
	m.seen[asin] = struct{}{}
	return m.persistSeen()
}

// Add は商品をカタログに追加する。同一ASINの商品が既にあれば上書きする。
// 変更は即座に永続化される。
func (m *Manager) Add(product model.Product) error {
	replaced := false
	for i, p := range m.products {
		if p.ASIN == product.ASIN {
			m.products[i] = product
			replaced = true
			break
		}
	}
	if !replaced {
		m.products = append(m.products, product)
	}
	return m.store.SaveCatalog(m.products)
}

// Products はカタログの全商品を返す。
func (m *Manager) Products() []model.Product {
	return m.products
}

// ProductByASIN は指定ASINの商品を返す。見つからない場合はnil。
func (m *Manager) ProductByASIN(asin string) *model.Product {
	for i := range m.products {
		if m.products[i].ASIN == asin {
			return &m.products[i]
		}
	}
	return nil
}

// ProductsByCategory は指定カテゴリーの商品一覧を返す。
func (m *Manager) ProductsByCategory(category string) []model.Product {
	var result []model.Product
	for _, p := range m.products {
		if p.Category == category {
			result = append(result, p)
		}
	}
	return result
}

// CategoryCounts はカテゴリーごとの商品数を返す。実行サマリの出力用。
func (m *Manager) CategoryCounts() map[string]int {
	counts := make(map[string]int)
	for _, p := range m.products {
		counts[p.Category]++
	}
	return counts
}

// unseenProducts はカタログから投稿済み商品を除いた一覧を返す。
func (m *Manager) unseenProducts() []model.Product {
	var unseen []model.Product
	for _, p := range m.products {
		if _, ok := m.seen[p.ASIN]; !ok {
			unseen = append(unseen, p)
		}
	}
	return unseen
}

// persistSeen は投稿済み履歴の現在の状態を保存する。
func (m *Manager) persistSeen() error {
	asins := make([]string, 0, len(m.seen))
	for asin := range m.seen {
		asins = append(asins, asin)
	}
	return m.store.SaveSeen(asins)
}
