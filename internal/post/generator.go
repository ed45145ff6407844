// Package post はブログ記事の生成を提供する。
//
// Generatorはテンプレートベースで記事全体を組み立てる。AIWriterが利用可能な
// 場合は本文のみAI生成に置き換えられるが、タイトル・タグ・SEOメタ情報は
// 常にテンプレートから生成する。本文はWordPressのブロックエディタで
// 編集できるよう、Gutenbergブロックコメント付きのHTMLとして出力する。
package post

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/wwnaoya/gadgetpost/internal/model"
)

var reviewTemplates = []string{
	"徹底レビュー",
	"使ってみた感想",
	"実機レビュー",
	"開封レビュー",
	"使用感レポート",
}

// Generator はテンプレートベースの記事生成器。
type Generator struct {
	rng *rand.Rand // テスト用に差し替え可能
}

// NewGenerator はGeneratorの新しいインスタンスを生成する。
func NewGenerator() *Generator {
	return &Generator{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Title は記事タイトルを生成する。
func (g *Generator) Title(p *model.Product) string {
	template := reviewTemplates[g.rng.Intn(len(reviewTemplates))]
	return fmt.Sprintf("【%s】%s - %sの新定番", template, p.DisplayName(), p.Category)
}

// Content は記事本文全体をGutenbergブロック形式のHTMLで生成する。
func (g *Generator) Content(p *model.Product) string {
	var b strings.Builder
	b.WriteString(g.introduction(p))
	b.WriteString(g.featuresSection(p))
	b.WriteString(g.usageSection(p))
	b.WriteString(g.prosConsSection(p))
	b.WriteString(g.purchaseLinkSection(p))
	b.WriteString(g.conclusion(p))
	return b.String()
}

func (g *Generator) introduction(p *model.Product) string {
	intros := []string{
		fmt.Sprintf("今回は、%sの中でも注目の「%s」をご紹介します。", p.Category, p.DisplayName()),
		fmt.Sprintf("最近話題の%s「%s」を実際に使ってみました。", p.Category, p.DisplayName()),
		fmt.Sprintf("%sをお探しの方に朗報です。今回レビューする「%s」は、多くのユーザーから支持を集めている製品です。", p.Category, p.DisplayName()),
	}
	intro := intros[g.rng.Intn(len(intros))]

	var b strings.Builder
	b.WriteString(paragraph(intro))
	if p.Description != nil && *p.Description != "" {
		b.WriteString(paragraph(*p.Description))
	}
	return b.String()
}

func (g *Generator) featuresSection(p *model.Product) string {
	if len(p.Features) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(heading(2, "主な特徴"))
	b.WriteString(list(p.Features))
	return b.String()
}

// usageSection は商品名のキーワードに応じた使用感の文章を返す。
func (g *Generator) usageSection(p *model.Product) string {
	name := p.Name
	lower := strings.ToLower(name)

	var body string
	switch {
	case strings.Contains(name, "マウス") || strings.Contains(lower, "mouse"):
		body = "手にフィットする形状で、長時間の作業でも疲れにくいのが印象的でした。" +
			"クリック音も静かで、オフィスでの使用にも最適です。"
	case strings.Contains(name, "キーボード") || strings.Contains(lower, "keyboard"):
		body = "タイピング感が非常に心地よく、文字入力が楽しくなります。" +
			"キーの配置も使いやすく、慣れるとタイピング速度が向上しました。"
	case strings.Contains(name, "SSD") || strings.Contains(name, "メモリ"):
		body = "導入後、システム全体のパフォーマンスが大幅に向上しました。" +
			"起動時間やアプリケーションの読み込み速度が劇的に改善されています。"
	default:
		body = "期待通りの性能で、日常使いに最適な製品です。" +
			"ビルドクオリティも高く、長く愛用できそうな印象を受けました。"
	}

	return heading(2, "実際に使ってみた感想") + paragraph(body)
}

func (g *Generator) prosConsSection(p *model.Product) string {
	pros := []string{}
	if len(p.Features) >= 2 {
		pros = append(pros, p.Features[0], p.Features[1])
	}
	pros = append(pros, "品質が高く長期間使用できる", "デザインが洗練されている")
	cons := []string{"価格がやや高め", "カラーバリエーションが少ない"}

	var b strings.Builder
	b.WriteString(heading(2, "メリット・デメリット"))
	b.WriteString(heading(3, "👍 メリット"))
	b.WriteString(list(pros))
	b.WriteString(heading(3, "👎 デメリット"))
	b.WriteString(list(cons))
	return b.String()
}

func (g *Generator) purchaseLinkSection(p *model.Product) string {
	priceText := ""
	if p.Price != nil && *p.Price != "" {
		priceText = " - " + *p.Price
	}
	link := fmt.Sprintf(
		`<a href="%s" target="_blank" rel="noopener noreferrer nofollow">📦 Amazonで「%s」を見る%s</a>`,
		p.URL, p.DisplayName(), priceText,
	)

	var b strings.Builder
	b.WriteString(heading(2, "購入リンク"))
	b.WriteString(paragraph(link))
	b.WriteString(paragraph("※価格は変動する場合があります。最新の価格は商品ページでご確認ください。"))
	return b.String()
}

func (g *Generator) conclusion(p *model.Product) string {
	conclusions := []string{
		fmt.Sprintf("「%s」は、%sを探している方に自信を持っておすすめできる製品です。", p.DisplayName(), p.Category),
		fmt.Sprintf("%sの購入を検討している方には、「%s」が最適な選択肢の一つです。", p.Category, p.DisplayName()),
		fmt.Sprintf("総合的に見て、「%s」は%sとして非常に優れた製品だと感じました。", p.DisplayName(), p.Category),
	}
	body := conclusions[g.rng.Intn(len(conclusions))] +
		"価格に見合った価値があり、長期的な投資としても十分検討に値します。"
	return heading(2, "まとめ") + paragraph(body)
}

// Tags は記事に付与するタグを生成する。重複は初出を残して除去する。
func (g *Generator) Tags(p *model.Product) []string {
	tags := []string{p.Category, "レビュー", "Amazon"}

	switch {
	case strings.Contains(p.Name, "マウス"):
		tags = append(tags, "マウス", "ワイヤレス", "PC周辺機器")
	case strings.Contains(p.Name, "キーボード"):
		tags = append(tags, "キーボード", "タイピング", "PC周辺機器")
	case strings.Contains(p.Name, "SSD"):
		tags = append(tags, "SSD", "ストレージ", "高速化")
	case strings.Contains(p.Name, "メモリ"):
		tags = append(tags, "メモリ", "RAM", "PC性能向上")
	case strings.Contains(p.Name, "モニター") || strings.Contains(p.Name, "ディスプレイ"):
		tags = append(tags, "モニター", "ディスプレイ", "作業環境")
	}

	seen := make(map[string]struct{}, len(tags))
	unique := tags[:0]
	for _, tag := range tags {
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		unique = append(unique, tag)
	}
	return unique
}

// MetaDescription はSEO用のメタディスクリプションを生成する。
// 全角文字基準で120文字に収まるよう切り詰める。
func (g *Generator) MetaDescription(p *model.Product) string {
	desc := fmt.Sprintf("%sのレビュー記事です。", p.DisplayName())
	if p.Description != nil && *p.Description != "" {
		desc += *p.Description
	} else {
		desc += fmt.Sprintf("%sとしての特徴や使用感、メリット・デメリットを詳しく解説します。", p.Category)
	}
	return truncateRunes(desc, 120)
}

// MetaKeywords はSEO用のメタキーワードをカンマ区切りで生成する。
func (g *Generator) MetaKeywords(p *model.Product) string {
	return strings.Join(g.Tags(p), ",")
}

func paragraph(text string) string {
	return "<!-- wp:paragraph -->\n<p>" + text + "</p>\n<!-- /wp:paragraph -->\n\n"
}

func heading(level int, text string) string {
	tag := fmt.Sprintf("h%d", level)
	attr := ""
	if level != 2 {
		attr = fmt.Sprintf(` {"level":%d}`, level)
	}
	return fmt.Sprintf("<!-- wp:heading%s -->\n<%s>%s</%s>\n<!-- /wp:heading -->\n\n", attr, tag, text, tag)
}

func list(items []string) string {
	var b strings.Builder
	b.WriteString("<!-- wp:list -->\n<ul>\n")
	for _, item := range items {
		b.WriteString("<li>" + item + "</li>\n")
	}
	b.WriteString("</ul>\n<!-- /wp:list -->\n\n")
	return b.String()
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
