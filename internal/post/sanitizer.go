package post

import "github.com/microcosm-cc/bluemonday"

// contentPolicy は記事本文として許可するHTMLのホワイトリスト。
// AI生成の本文をこのポリシーに通してから投稿する。
// Gutenbergのブロックコメント(<!-- wp:paragraph -->)を保持するため
// コメントを許可している。
var contentPolicy = buildContentPolicy()

func buildContentPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("p", "h2", "h3", "h4", "ul", "ol", "li", "strong", "em", "b", "i", "br", "small", "blockquote", "table", "thead", "tbody", "tr", "th", "td")
	p.AllowAttrs("href", "target", "rel").OnElements("a")
	p.AllowStandardURLs()
	p.AllowComments()
	return p
}

// SanitizeContent は本文HTMLから許可されていないタグと属性を除去する。
func SanitizeContent(html string) string {
	return contentPolicy.Sanitize(html)
}
