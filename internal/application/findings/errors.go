package findings

import "errors"

var (
	// ErrIndexDisabled 表示主记录索引未配置（Milvus 或 Embedder 不可用）
	ErrIndexDisabled = errors.New("findings index is disabled")
)
