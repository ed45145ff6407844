// Package store はカタログ・投稿済み履歴・更新メタデータの
// ファイル永続化を提供する。
//
// 3つのJSONドキュメント(products.json / posted_asins.json / metadata.json)を
// それぞれ独立に読み書きする。ファイルが存在しない場合は空のデフォルト値を
// 返し、エラーにしない。書き込みは同一ディレクトリ内の一時ファイルへの
// 書き出しとリネームによるアトミック置換で行う。
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/wwnaoya/gadgetpost/internal/model"
)

const (
	catalogFile  = "products.json"
	seenFile     = "posted_asins.json"
	metadataFile = "metadata.json"
)

// FileStore は3つの永続化ファイルのパスを保持する。
// 1回のスケジュール実行内で単一の書き込み主体として使用される前提で、
// ファイルロックは行わない。
type FileStore struct {
	catalogPath  string
	seenPath     string
	metadataPath string
}

// NewFileStore はdataDir配下のファイルを使用するFileStoreを生成する。
func NewFileStore(dataDir string) *FileStore {
	return &FileStore{
		catalogPath:  filepath.Join(dataDir, catalogFile),
		seenPath:     filepath.Join(dataDir, seenFile),
		metadataPath: filepath.Join(dataDir, metadataFile),
	}
}

// CatalogPath はカタログファイルのパスを返す。
func (s *FileStore) CatalogPath() string { return s.catalogPath }

// LoadCatalog はカタログファイルから全商品を読み込む。
// ファイルが存在しない場合は空スライスを返す。
func (s *FileStore) LoadCatalog() ([]model.Product, error) {
	data, err := os.ReadFile(s.catalogPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("カタログファイルの読み込みに失敗しました: %w", err)
	}

	var products []model.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("カタログファイルのパースに失敗しました: %w", err)
	}
	return products, nil
}

// SaveCatalog はカタログ全体をスナップショットとして保存する。
// 挿入順は保持されるが、正しさの要件ではない。
func (s *FileStore) SaveCatalog(products []model.Product) error {
	if products == nil {
		products = []model.Product{}
	}
	return s.writeJSON(s.catalogPath, products)
}

// LoadSeen は投稿済みASINの一覧を読み込む。
// ファイルが存在しない場合は空スライスを返す。
func (s *FileStore) LoadSeen() ([]string, error) {
	data, err := os.ReadFile(s.seenPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("投稿済み履歴ファイルの読み込みに失敗しました: %w", err)
	}

	var asins []string
	if err := json.Unmarshal(data, &asins); err != nil {
		return nil, fmt.Errorf("投稿済み履歴ファイルのパースに失敗しました: %w", err)
	}
	return asins, nil
}

// SaveSeen は投稿済みASINの一覧を保存する。
// 重複を除去しソートした上で書き込むため、ファイルは常に集合を表す。
func (s *FileStore) SaveSeen(asins []string) error {
	set := make(map[string]struct{}, len(asins))
	for _, a := range asins {
		set[a] = struct{}{}
	}
	unique := make([]string, 0, len(set))
	for a := range set {
		unique = append(unique, a)
	}
	sort.Strings(unique)
	return s.writeJSON(s.seenPath, unique)
}

// LoadMetadata は更新メタデータを読み込む。
// ファイルが存在しない場合はゼロ値を返す。
func (s *FileStore) LoadMetadata() (model.RefreshMetadata, error) {
	var meta model.RefreshMetadata

	data, err := os.ReadFile(s.metadataPath)
	if err != nil {
		if os.IsNotExist(err) {
			return meta, nil
		}
		return meta, fmt.Errorf("メタデータファイルの読み込みに失敗しました: %w", err)
	}

	if err := json.Unmarshal(data, &meta); err != nil {
		return meta, fmt.Errorf("メタデータファイルのパースに失敗しました: %w", err)
	}
	return meta, nil
}

// SaveMetadata は更新メタデータを保存する。
func (s *FileStore) SaveMetadata(meta model.RefreshMetadata) error {
	return s.writeJSON(s.metadataPath, meta)
}

// writeJSON はvをインデント付きJSONとしてpathにアトミックに書き込む。
// 一時ファイルへ書き出した後にリネームすることで、書き込み途中の
// クラッシュで既存ファイルが壊れることを防ぐ。
func (s *FileStore) writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("JSONへの変換に失敗しました: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("データディレクトリの作成に失敗しました: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("一時ファイルの作成に失敗しました: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("一時ファイルへの書き込みに失敗しました: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("一時ファイルのクローズに失敗しました: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ファイルの置換に失敗しました: %w", err)
	}
	return nil
}
