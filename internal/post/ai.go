package post

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/wwnaoya/gadgetpost/internal/model"
)

// AIWriter はOpenAI互換のChat Completions APIで記事本文を生成する。
// baseURLを差し替えることでGeminiなどのOpenAI互換エンドポイントにも
// 接続できる。生成された本文はホワイトリストでサニタイズされる。
type AIWriter struct {
	client *openai.Client
	logger *slog.Logger
	model  string
}

// NewAIWriter はAIWriterを生成する。baseURLが空の場合はOpenAIの
// デフォルトエンドポイントを使用する。
func NewAIWriter(logger *slog.Logger, apiKey, baseURL, aiModel string) *AIWriter {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &AIWriter{
		client: openai.NewClientWithConfig(cfg),
		logger: logger,
		model:  aiModel,
	}
}

// WriteBody は商品のレビュー記事本文を生成する。
// 生成に失敗した場合はエラーを返し、呼び出し側はテンプレート生成に
// フォールバックする。
func (w *AIWriter) WriteBody(ctx context.Context, p *model.Product) (string, error) {
	resp, err := w.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: w.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildPrompt(p),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("本文の生成に失敗しました: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("生成結果が空です")
	}

	body := strings.TrimSpace(resp.Choices[0].Message.Content)
	if body == "" {
		return "", fmt.Errorf("生成結果が空です")
	}

	w.logger.Info("AIで記事本文を生成しました",
		slog.String("model", w.model),
		slog.Int("length", len(body)),
	)
	return SanitizeContent(body), nil
}

// buildPrompt は商品情報から本文生成のプロンプトを組み立てる。
func buildPrompt(p *model.Product) string {
	var b strings.Builder
	b.WriteString("あなたはガジェットレビューブログのライターです。以下の商品のレビュー記事の本文をHTMLで書いてください。\n\n")
	fmt.Fprintf(&b, "商品名: %s\n", p.DisplayName())
	fmt.Fprintf(&b, "カテゴリー: %s\n", p.Category)
	if p.Price != nil && *p.Price != "" {
		fmt.Fprintf(&b, "価格: %s\n", *p.Price)
	}
	if len(p.Features) > 0 {
		b.WriteString("特徴:\n")
		for _, f := range p.Features {
			fmt.Fprintf(&b, "- %s\n", f)
		}
	}
	fmt.Fprintf(&b, "購入リンク: %s\n\n", p.URL)
	b.WriteString("条件:\n")
	b.WriteString("- 見出しは<h2>と<h3>、本文は<p>、箇条書きは<ul>と<li>を使うこと\n")
	b.WriteString("- 各要素をWordPressのGutenbergブロックコメント(<!-- wp:paragraph -->など)で囲むこと\n")
	b.WriteString("- 導入、主な特徴、使用感、メリット・デメリット、まとめの構成にすること\n")
	b.WriteString("- 購入リンクはrel=\"noopener noreferrer nofollow\"付きの<a>タグで含めること\n")
	b.WriteString("- 記事タイトルやコードブロックは含めず、本文のHTMLだけを出力すること\n")
	return b.String()
}
