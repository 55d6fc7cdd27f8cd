package repository

import (
	"context"

	"agent-smith-api/internal/domain/entity"
)

// InvestigationFilter 调查过滤条件
type InvestigationFilter struct {
	Status entity.InvestigationStatus
	Query  string
}

// InvestigationRepository 调查仓储接口
type InvestigationRepository interface {
	// Create 创建调查
	Create(ctx context.Context, inv *entity.Investigation) error

	// GetByID 根据 ID 获取调查，不存在时返回 nil, nil
	GetByID(ctx context.Context, id string) (*entity.Investigation, error)

	// GetByIDForUpdate 在事务中加行锁读取
	GetByIDForUpdate(ctx context.Context, id string) (*entity.Investigation, error)

	// Update 更新调查
	Update(ctx context.Context, inv *entity.Investigation) error

	// List 分页列出调查，按创建时间倒序
	List(ctx context.Context, filter *InvestigationFilter, pagination Pagination) (*PagedResult[*entity.Investigation], error)

	// CountByStatus 按状态统计
	CountByStatus(ctx context.Context) (map[entity.InvestigationStatus]int64, error)
}
