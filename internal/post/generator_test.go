package post

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/wwnaoya/gadgetpost/internal/model"
)

func strPtr(s string) *string { return &s }

func sampleProduct() *model.Product {
	return &model.Product{
		ASIN:        "B0B4DQPH5K",
		Name:        "Logicool MX Master 3S ワイヤレスマウス",
		URL:         "https://www.amazon.co.jp/dp/B0B4DQPH5K?tag=test-22",
		Price:       strPtr("¥14,800"),
		Description: strPtr("Logitechのワイヤレスマウスとして高い評価を得ている製品"),
		Category:    "PC周辺機器",
		Features:    []string{"8,000 DPI高精度センサー", "静音クリック", "MagSpeedホイール"},
	}
}

func newTestGenerator() *Generator {
	g := NewGenerator()
	g.rng = rand.New(rand.NewSource(1))
	return g
}

func TestTitle(t *testing.T) {
	g := newTestGenerator()
	title := g.Title(sampleProduct())

	if !strings.HasPrefix(title, "【") {
		t.Errorf("タイトルはテンプレート名で始まるべき: %q", title)
	}
	if !strings.Contains(title, "Logicool MX Master 3S ワイヤレスマウス") {
		t.Errorf("タイトルに商品名が含まれていない: %q", title)
	}
	if !strings.HasSuffix(title, "PC周辺機器の新定番") {
		t.Errorf("タイトルにカテゴリーが含まれていない: %q", title)
	}
}

func TestTitle_PrefersFullName(t *testing.T) {
	g := newTestGenerator()
	p := sampleProduct()
	p.FullName = strPtr("Logicool MX Master 3S アドバンスド ワイヤレスマウス グラファイト")

	title := g.Title(p)
	if !strings.Contains(title, *p.FullName) {
		t.Errorf("FullNameがある場合はそちらを使うべき: %q", title)
	}
}

func TestContent_ContainsAllSections(t *testing.T) {
	g := newTestGenerator()
	content := g.Content(sampleProduct())

	sections := []string{"主な特徴", "実際に使ってみた感想", "メリット・デメリット", "購入リンク", "まとめ"}
	for _, section := range sections {
		if !strings.Contains(content, "<h2>"+section+"</h2>") {
			t.Errorf("セクション %q が含まれていない", section)
		}
	}

	if !strings.Contains(content, "<!-- wp:paragraph -->") {
		t.Error("Gutenbergのパラグラフブロックコメントが含まれていない")
	}
	if !strings.Contains(content, "<!-- wp:heading -->") {
		t.Error("Gutenbergの見出しブロックコメントが含まれていない")
	}
	if !strings.Contains(content, "<li>8,000 DPI高精度センサー</li>") {
		t.Error("特徴がリストに含まれていない")
	}
}

func TestContent_PurchaseLinkIsNoFollow(t *testing.T) {
	g := newTestGenerator()
	content := g.Content(sampleProduct())

	if !strings.Contains(content, `href="https://www.amazon.co.jp/dp/B0B4DQPH5K?tag=test-22"`) {
		t.Error("アフィリエイトリンクが含まれていない")
	}
	if !strings.Contains(content, `rel="noopener noreferrer nofollow"`) {
		t.Error("購入リンクはnofollowであるべき")
	}
	if !strings.Contains(content, "¥14,800") {
		t.Error("価格が表示されていない")
	}
}

func TestContent_NoFeaturesOmitsSection(t *testing.T) {
	g := newTestGenerator()
	p := sampleProduct()
	p.Features = nil

	content := g.Content(p)
	if strings.Contains(content, "主な特徴") {
		t.Error("特徴がない商品では特徴セクションを省略すべき")
	}
}

func TestContent_UsageSectionMatchesProductKind(t *testing.T) {
	g := newTestGenerator()

	tests := []struct {
		name     string
		contains string
	}{
		{"Logicool ワイヤレスマウス", "手にフィットする形状"},
		{"HHKB メカニカルキーボード", "タイピング感"},
		{"Samsung 990 PRO NVMe SSD", "パフォーマンスが大幅に向上"},
		{"BenQ モニターライト", "期待通りの性能"},
	}
	for _, tt := range tests {
		p := sampleProduct()
		p.Name = tt.name
		content := g.Content(p)
		if !strings.Contains(content, tt.contains) {
			t.Errorf("商品 %q の使用感に %q が含まれていない", tt.name, tt.contains)
		}
	}
}

func TestTags(t *testing.T) {
	g := newTestGenerator()
	tags := g.Tags(sampleProduct())

	want := map[string]bool{
		"PC周辺機器": false, "レビュー": false, "Amazon": false,
		"マウス": false, "ワイヤレス": false,
	}
	for _, tag := range tags {
		if _, ok := want[tag]; ok {
			want[tag] = true
		}
	}
	for tag, found := range want {
		if !found {
			t.Errorf("タグ %q が含まれていない: %v", tag, tags)
		}
	}

	// PC周辺機器はカテゴリーとキーワード展開の両方から来るが重複しない
	count := 0
	for _, tag := range tags {
		if tag == "PC周辺機器" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("タグが重複している: %v", tags)
	}
}

func TestMetaDescription(t *testing.T) {
	g := newTestGenerator()
	desc := g.MetaDescription(sampleProduct())

	if !strings.Contains(desc, "Logicool MX Master 3S") {
		t.Errorf("メタディスクリプションに商品名が含まれていない: %q", desc)
	}
	if got := len([]rune(desc)); got > 120 {
		t.Errorf("メタディスクリプションは120文字以内であるべき: %d文字", got)
	}
}

func TestMetaDescription_TruncatesLongDescription(t *testing.T) {
	g := newTestGenerator()
	p := sampleProduct()
	p.Description = strPtr(strings.Repeat("とても長い説明文。", 50))

	desc := g.MetaDescription(p)
	if got := len([]rune(desc)); got > 120 {
		t.Errorf("len = %d文字, want <= 120", got)
	}
	if !strings.HasSuffix(desc, "…") {
		t.Errorf("切り詰めた場合は省略記号で終わるべき: %q", desc)
	}
}

func TestMetaKeywords(t *testing.T) {
	g := newTestGenerator()
	keywords := g.MetaKeywords(sampleProduct())

	parts := strings.Split(keywords, ",")
	if len(parts) < 3 {
		t.Errorf("メタキーワードが少なすぎる: %q", keywords)
	}
	if parts[0] != "PC周辺機器" {
		t.Errorf("先頭はカテゴリーであるべき: %q", keywords)
	}
}
