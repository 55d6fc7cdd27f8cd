package postgres

import (
	"context"

	"gorm.io/gorm"

	"agent-smith-api/internal/domain/repository"
)

// TxManager 通过 context 传递 gorm 事务句柄
type TxManager struct {
	db *gorm.DB
}

func NewTxManager(client *Client) *TxManager {
	return &TxManager{db: client.db}
}

var _ repository.Transactor = (*TxManager)(nil)

// WithTransaction fn 返回错误时回滚；ctx 已在事务中时直接加入外层事务
func (m *TxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, inTx := txFrom(ctx); inTx {
		return fn(ctx)
	}
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, repository.TxKey{}, tx))
	})
}

func txFrom(ctx context.Context) (*gorm.DB, bool) {
	tx, ok := ctx.Value(repository.TxKey{}).(*gorm.DB)
	return tx, ok && tx != nil
}

// getDB 优先使用 ctx 中的事务
func getDB(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := txFrom(ctx); ok {
		db = tx
	}
	return db.WithContext(ctx)
}
