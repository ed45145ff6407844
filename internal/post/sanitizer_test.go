package post

import (
	"strings"
	"testing"
)

func TestSanitizeContent_KeepsAllowedMarkup(t *testing.T) {
	input := `<!-- wp:heading -->
<h2>主な特徴</h2>
<!-- /wp:heading -->

<!-- wp:paragraph -->
<p>静音クリックで<strong>オフィス向き</strong>です。</p>
<!-- /wp:paragraph -->

<!-- wp:list -->
<ul>
<li>高精度センサー</li>
</ul>
<!-- /wp:list -->`

	got := SanitizeContent(input)

	for _, want := range []string{
		"<!-- wp:heading -->",
		"<!-- /wp:paragraph -->",
		"<h2>主な特徴</h2>",
		"<strong>オフィス向き</strong>",
		"<li>高精度センサー</li>",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("%q が除去された:\n%s", want, got)
		}
	}
}

func TestSanitizeContent_KeepsAffiliateLink(t *testing.T) {
	input := `<p><a href="https://www.amazon.co.jp/dp/B0B4DQPH5K?tag=test-22" target="_blank" rel="noopener noreferrer nofollow">Amazonで見る</a></p>`

	got := SanitizeContent(input)

	if !strings.Contains(got, `href="https://www.amazon.co.jp/dp/B0B4DQPH5K?tag=test-22"`) {
		t.Errorf("リンクが除去された: %s", got)
	}
	if !strings.Contains(got, `rel="noopener noreferrer nofollow"`) {
		t.Errorf("rel属性が除去された: %s", got)
	}
}

func TestSanitizeContent_StripsDangerousMarkup(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		removed string
	}{
		{"scriptタグ", `<p>本文</p><script>alert("xss")</script>`, "<script>"},
		{"イベントハンドラ", `<p onclick="evil()">本文</p>`, "onclick"},
		{"javascriptスキーム", `<a href="javascript:alert(1)">リンク</a>`, "javascript:"},
		{"iframe", `<iframe src="https://evil.example.com"></iframe>`, "<iframe"},
		{"style属性", `<p style="display:none">本文</p>`, "style="},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeContent(tt.input)
			if strings.Contains(got, tt.removed) {
				t.Errorf("%q が除去されていない: %s", tt.removed, got)
			}
		})
	}
}
