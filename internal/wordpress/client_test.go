package wordpress

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))
}

func TestCreatePost_SendsPayloadAndAuth(t *testing.T) {
	var captured map[string]any
	var authHeader string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /wp-json/wp/v2/posts", func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&captured)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id": 123, "link": "https://example.com/?p=123", "title": {"rendered": "テスト投稿"}}`))
	})
	mux.HandleFunc("PUT /wp-json/wp/v2/posts/123", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": 123}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := NewClient(http.DefaultClient, testLogger(), server.URL, "oda", "app-password")
	post, err := c.CreatePost(context.Background(), CreatePostParams{
		Title:           "テスト投稿",
		Content:         "<p>本文</p>",
		Status:          "draft",
		CategoryIDs:     []int{7},
		TagIDs:          []int{3, 4},
		Excerpt:         "抜粋",
		FeaturedMediaID: 55,
	})
	if err != nil {
		t.Fatalf("CreatePost がエラーを返した: %v", err)
	}
	if post.ID != 123 {
		t.Errorf("ID = %d, want 123", post.ID)
	}
	if post.TitleText() != "テスト投稿" {
		t.Errorf("TitleText() = %q", post.TitleText())
	}

	wantAuth := "Basic " + base64.StdEncoding.EncodeToString([]byte("oda:app-password"))
	if authHeader != wantAuth {
		t.Errorf("Authorization = %q, want %q", authHeader, wantAuth)
	}
	if captured["title"] != "テスト投稿" {
		t.Errorf("title = %v", captured["title"])
	}
	if captured["status"] != "draft" {
		t.Errorf("status = %v, want draft", captured["status"])
	}
	if captured["excerpt"] != "抜粋" {
		t.Errorf("excerpt = %v", captured["excerpt"])
	}
	if captured["featured_media"] != float64(55) {
		t.Errorf("featured_media = %v, want 55", captured["featured_media"])
	}
	if _, hasMeta := captured["meta"]; hasMeta {
		t.Error("SEO未指定の場合metaを送信してはならない")
	}
}

func TestCreatePost_SetsSEOMetaForAllPlugins(t *testing.T) {
	var createMeta, updateMeta map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("POST /wp-json/wp/v2/posts", func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		json.NewDecoder(r.Body).Decode(&payload)
		createMeta, _ = payload["meta"].(map[string]any)
		w.Write([]byte(`{"id": 9}`))
	})
	mux.HandleFunc("PUT /wp-json/wp/v2/posts/9", func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		json.NewDecoder(r.Body).Decode(&payload)
		updateMeta, _ = payload["meta"].(map[string]any)
		w.Write([]byte(`{"id": 9}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := NewClient(http.DefaultClient, testLogger(), server.URL, "oda", "pw")
	_, err := c.CreatePost(context.Background(), CreatePostParams{
		Title:   "t",
		Content: "c",
		Status:  "draft",
		SEO: SEO{
			Title:       "SEOタイトル",
			Description: "SEO説明",
			Keywords:    "マウス",
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	wantKeys := []string{
		"_yoast_wpseo_title", "_yoast_wpseo_metadesc", "_yoast_wpseo_focuskw",
		"rank_math_title", "rank_math_description", "rank_math_focus_keyword",
		"_aioseo_title", "_aioseo_description", "_aioseo_keywords",
	}
	for _, meta := range []map[string]any{createMeta, updateMeta} {
		if meta == nil {
			t.Fatal("metaフィールドが送信されていない")
		}
		for _, key := range wantKeys {
			if _, ok := meta[key]; !ok {
				t.Errorf("メタキー %q が設定されていない", key)
			}
		}
	}
	if createMeta["rank_math_title"] != "SEOタイトル" {
		t.Errorf("rank_math_title = %v", createMeta["rank_math_title"])
	}
	if createMeta["_yoast_wpseo_focuskw"] != "マウス" {
		t.Errorf("_yoast_wpseo_focuskw = %v", createMeta["_yoast_wpseo_focuskw"])
	}
}

func TestCreatePost_SEOMetaUpdateFailureIsNotFatal(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /wp-json/wp/v2/posts", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": 9}`))
	})
	mux.HandleFunc("PUT /wp-json/wp/v2/posts/9", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"code": "rest_forbidden", "message": "meta update not allowed"}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := NewClient(http.DefaultClient, testLogger(), server.URL, "oda", "pw")
	post, err := c.CreatePost(context.Background(), CreatePostParams{
		Title:  "t",
		Status: "draft",
		SEO:    SEO{Title: "SEOタイトル"},
	})
	if err != nil {
		t.Fatalf("メタ更新の失敗は投稿作成のエラーにしてはならない: %v", err)
	}
	if post.ID != 9 {
		t.Errorf("ID = %d, want 9", post.ID)
	}
}

func TestCreatePost_ErrorIncludesAPIMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"code": "incorrect_password", "message": "パスワードが正しくありません"}`))
	}))
	defer server.Close()

	c := NewClient(http.DefaultClient, testLogger(), server.URL, "oda", "wrong")
	_, err := c.CreatePost(context.Background(), CreatePostParams{Title: "t", Status: "draft"})
	if err == nil {
		t.Fatal("認証エラー時はエラーを返すべき")
	}
	if !strings.Contains(err.Error(), "パスワードが正しくありません") {
		t.Errorf("エラーにAPIメッセージが含まれていない: %v", err)
	}
}

func TestUploadMedia(t *testing.T) {
	var disposition, contentType string
	var body []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/wp-json/wp/v2/media" {
			t.Errorf("Path = %q", r.URL.Path)
		}
		disposition = r.Header.Get("Content-Disposition")
		contentType = r.Header.Get("Content-Type")
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id": 88, "source_url": "https://example.com/wp-content/uploads/mouse.jpg"}`))
	}))
	defer server.Close()

	c := NewClient(http.DefaultClient, testLogger(), server.URL, "oda", "pw")
	media, err := c.UploadMedia(context.Background(), []byte("jpeg-bytes"), "mouse.jpg", "image/jpeg")
	if err != nil {
		t.Fatalf("UploadMedia がエラーを返した: %v", err)
	}
	if media.ID != 88 {
		t.Errorf("ID = %d, want 88", media.ID)
	}
	if media.SourceURL != "https://example.com/wp-content/uploads/mouse.jpg" {
		t.Errorf("SourceURL = %q", media.SourceURL)
	}
	if disposition != `attachment; filename="mouse.jpg"` {
		t.Errorf("Content-Disposition = %q", disposition)
	}
	if contentType != "image/jpeg" {
		t.Errorf("Content-Type = %q", contentType)
	}
	if string(body) != "jpeg-bytes" {
		t.Errorf("body = %q", body)
	}
}

func TestGetOrCreateCategory_MatchesCaseInsensitive(t *testing.T) {
	created := false
	mux := http.NewServeMux()
	mux.HandleFunc("GET /wp-json/wp/v2/categories", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id": 5, "name": "pc周辺機器"}, {"id": 6, "name": "ガジェット"}]`))
	})
	mux.HandleFunc("POST /wp-json/wp/v2/categories", func(w http.ResponseWriter, r *http.Request) {
		created = true
		w.Write([]byte(`{"id": 99, "name": "新カテゴリー"}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := NewClient(http.DefaultClient, testLogger(), server.URL, "oda", "pw")
	id, err := c.GetOrCreateCategory(context.Background(), "PC周辺機器")
	if err != nil {
		t.Fatal(err)
	}
	if id != 5 {
		t.Errorf("id = %d, want 5", id)
	}
	if created {
		t.Error("既存カテゴリーがある場合は作成してはならない")
	}
}

func TestGetOrCreateCategory_CreatesWhenMissing(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /wp-json/wp/v2/categories", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})
	mux.HandleFunc("POST /wp-json/wp/v2/categories", func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		json.NewDecoder(r.Body).Decode(&payload)
		if payload["name"] != "PCパーツ" {
			t.Errorf("name = %v, want PCパーツ", payload["name"])
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id": 42, "name": "PCパーツ"}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := NewClient(http.DefaultClient, testLogger(), server.URL, "oda", "pw")
	id, err := c.GetOrCreateCategory(context.Background(), "PCパーツ")
	if err != nil {
		t.Fatal(err)
	}
	if id != 42 {
		t.Errorf("id = %d, want 42", id)
	}
}

func TestGetOrCreateTags_MixesExistingAndCreated(t *testing.T) {
	nextID := 100
	mux := http.NewServeMux()
	mux.HandleFunc("GET /wp-json/wp/v2/tags", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id": 10, "name": "マウス"}, {"id": 11, "name": "ゲーミング"}]`))
	})
	mux.HandleFunc("POST /wp-json/wp/v2/tags", func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		json.NewDecoder(r.Body).Decode(&payload)
		nextID++
		json.NewEncoder(w).Encode(map[string]any{"id": nextID, "name": payload["name"]})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := NewClient(http.DefaultClient, testLogger(), server.URL, "oda", "pw")
	ids, err := c.GetOrCreateTags(context.Background(), []string{"マウス", "Logicool", "ゲーミング"})
	if err != nil {
		t.Fatal(err)
	}
	want := []int{10, 101, 11}
	if len(ids) != len(want) {
		t.Fatalf("len(ids) = %d, want %d: %v", len(ids), len(want), ids)
	}
	for i, id := range want {
		if ids[i] != id {
			t.Errorf("ids[%d] = %d, want %d", i, ids[i], id)
		}
	}
}

func TestLatestPost(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("per_page") != "1" || q.Get("orderby") != "date" || q.Get("order") != "desc" {
			t.Errorf("予期しないクエリ: %v", q)
		}
		if q.Get("status") != "publish" {
			t.Errorf("status = %q, want publish", q.Get("status"))
		}
		w.Write([]byte(`[{"id": 7, "link": "https://example.com/latest", "title": {"rendered": "最新記事"}}]`))
	}))
	defer server.Close()

	c := NewClient(http.DefaultClient, testLogger(), server.URL, "oda", "pw")
	post, err := c.LatestPost(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if post == nil {
		t.Fatal("投稿があるのにnilが返された")
	}
	if post.TitleText() != "最新記事" {
		t.Errorf("TitleText() = %q", post.TitleText())
	}
	if post.Link != "https://example.com/latest" {
		t.Errorf("Link = %q", post.Link)
	}
}

func TestLatestPost_NoPostsReturnsNil(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	c := NewClient(http.DefaultClient, testLogger(), server.URL, "oda", "pw")
	post, err := c.LatestPost(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if post != nil {
		t.Errorf("投稿がない場合はnilを返すべき: %v", post)
	}
}
