package app

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandPost はレビュー記事を1件生成してWordPressに投稿する。
	CommandPost Command = "post"
	// CommandRefresh は商品カタログをアップストリームから強制的に更新する。
	CommandRefresh Command = "refresh"
	// CommandPing は最新記事をブログ検索エンジンに通知する。
	CommandPing Command = "ping"
)

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空またはサポート外のコマンドの場合はCommandPostを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandPost
	}

	switch args[0] {
	case "post":
		return CommandPost
	case "refresh":
		return CommandRefresh
	case "ping":
		return CommandPing
	default:
		return CommandPost
	}
}
