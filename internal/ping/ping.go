// Package ping はブログ検索エンジンへのXML-RPC Ping送信を提供する。
//
// weblogUpdates.ping / weblogUpdates.extendedPing メソッドで新着記事を
// 各Pingサーバーに通知する。個々のサーバーの失敗は記録するだけで
// 処理を止めない。
package ping

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// DefaultEndpoints は通知先の主要Pingサーバー一覧。
var DefaultEndpoints = []string{
	"http://blog.goo.ne.jp/XMLRPC",
	"http://blogsearch.google.co.jp/ping/RPC2",
	"http://blogsearch.google.com/ping/RPC2",
	"http://ping.blogranking.net/cgi-bin/xmlrpc",
	"http://ping.fc2.com/",
	"http://ping.feedburner.com",
	"http://ping.rss.drecom.jp/",
	"http://rpc.weblogs.com/RPC2",
	"http://rpc.pingomatic.com/",
	"http://www.blogpeople.net/servlet/weblogUpdates",
	"http://ping.blo.gs/",
	"http://api.my.yahoo.com/RPC2",
}

// Result は全サーバーへの送信結果。
type Result struct {
	Succeeded []string
	Failed    []string
}

// AnySucceeded は1件でも送信に成功したかを返す。
func (r Result) AnySucceeded() bool { return len(r.Succeeded) > 0 }

// Broadcaster は複数のPingサーバーへの一斉通知を行う。
type Broadcaster struct {
	httpClient *http.Client
	logger     *slog.Logger
	endpoints  []string
}

// NewBroadcaster はBroadcasterを生成する。
// endpointsが空の場合はDefaultEndpointsを使用する。
func NewBroadcaster(httpClient *http.Client, logger *slog.Logger, endpoints []string) *Broadcaster {
	if len(endpoints) == 0 {
		endpoints = DefaultEndpoints
	}
	return &Broadcaster{
		httpClient: httpClient,
		logger:     logger,
		endpoints:  endpoints,
	}
}

// Broadcast は全Pingサーバーへ順番に通知を送る。
// postURLが指定されている場合はextendedPing、空の場合はpingを使用する。
func (b *Broadcaster) Broadcast(ctx context.Context, siteName, siteURL, postURL string) Result {
	var payload []byte
	if postURL != "" {
		payload = methodCall("weblogUpdates.extendedPing", siteName, siteURL, postURL, "")
	} else {
		payload = methodCall("weblogUpdates.ping", siteName, siteURL)
	}

	var result Result
	for _, endpoint := range b.endpoints {
		if err := b.send(ctx, endpoint, payload); err != nil {
			b.logger.Warn("Ping送信に失敗しました",
				slog.String("endpoint", endpoint),
				slog.String("error", err.Error()),
			)
			result.Failed = append(result.Failed, endpoint)
			continue
		}
		b.logger.Info("Ping送信に成功しました",
			slog.String("endpoint", endpoint),
		)
		result.Succeeded = append(result.Succeeded, endpoint)
	}
	return result
}

// send は1つのPingサーバーへXML-RPCリクエストを送信する。
// HTTPレベルで成功していてもXML-RPCのfaultやflerrorは失敗として扱う。
func (b *Broadcaster) send(ctx context.Context, endpoint string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("リクエストの生成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("リクエストの送信に失敗しました: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("レスポンスの読み込みに失敗しました: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ステータスコード %d", resp.StatusCode)
	}
	if isFault(string(body)) {
		return fmt.Errorf("XML-RPCエラーが返されました")
	}
	return nil
}

// isFault はXML-RPCレスポンスが失敗を表すかを判定する。
func isFault(body string) bool {
	if strings.Contains(body, "<fault>") {
		return true
	}
	// weblogUpdates系のレスポンスはflerror=trueで失敗を表す
	if i := strings.Index(body, "flerror"); i >= 0 {
		rest := body[i:]
		if j := strings.Index(rest, "</member>"); j >= 0 {
			rest = rest[:j]
		}
		if strings.Contains(rest, "<boolean>1</boolean>") || strings.Contains(rest, "<boolean>true</boolean>") {
			return true
		}
	}
	return false
}

// methodCall はXML-RPCのmethodCallドキュメントを組み立てる。
func methodCall(method string, params ...string) []byte {
	var b bytes.Buffer
	b.WriteString(xml.Header)
	b.WriteString("<methodCall><methodName>")
	b.WriteString(method)
	b.WriteString("</methodName><params>")
	for _, param := range params {
		b.WriteString("<param><value><string>")
		xml.EscapeText(&b, []byte(param))
		b.WriteString("</string></value></param>")
	}
	b.WriteString("</params></methodCall>")
	return b.Bytes()
}
