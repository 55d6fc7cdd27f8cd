package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"agent-smith-api/internal/domain/entity"
	"agent-smith-api/internal/domain/repository"
)

// investigationModel investigations 表映射，profile/result 以 jsonb 存储
type investigationModel struct {
	ID           string                       `gorm:"type:uuid;primaryKey"`
	Status       string                       `gorm:"type:varchar(16);index;not null"`
	Query        string                       `gorm:"type:varchar(2048);not null"`
	Profile      entity.InvestigationProfile  `gorm:"type:jsonb;serializer:json;not null"`
	Result       *entity.InvestigationResult  `gorm:"type:jsonb;serializer:json"`
	ErrorMessage string                       `gorm:"type:text"`
	RetryCount   int                          `gorm:"not null;default:0"`
	DurationMs   int64                        `gorm:"not null;default:0"`
	CreatedAt    time.Time                    `gorm:"index"`
	UpdatedAt    time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
}

func (investigationModel) TableName() string {
	return "investigations"
}

func toInvestigationModel(inv *entity.Investigation) *investigationModel {
	return &investigationModel{
		ID:           inv.ID,
		Status:       string(inv.Status),
		Query:        inv.Profile.Query,
		Profile:      inv.Profile,
		Result:       inv.Result,
		ErrorMessage: inv.ErrorMessage,
		RetryCount:   inv.RetryCount,
		DurationMs:   inv.DurationMs,
		CreatedAt:    inv.CreatedAt,
		UpdatedAt:    inv.UpdatedAt,
		StartedAt:    inv.StartedAt,
		CompletedAt:  inv.CompletedAt,
	}
}

func (m *investigationModel) toEntity() *entity.Investigation {
	return &entity.Investigation{
		ID:           m.ID,
		Status:       entity.InvestigationStatus(m.Status),
		Profile:      m.Profile,
		Result:       m.Result,
		ErrorMessage: m.ErrorMessage,
		RetryCount:   m.RetryCount,
		DurationMs:   m.DurationMs,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
		StartedAt:    m.StartedAt,
		CompletedAt:  m.CompletedAt,
	}
}

// InvestigationRepository 调查仓储实现
type InvestigationRepository struct {
	client *Client
}

// NewInvestigationRepository 创建调查仓储
func NewInvestigationRepository(client *Client) *InvestigationRepository {
	return &InvestigationRepository{client: client}
}

var _ repository.InvestigationRepository = (*InvestigationRepository)(nil)

// Create 创建调查
func (r *InvestigationRepository) Create(ctx context.Context, inv *entity.Investigation) error {
	ctx, span := tracer.Start(ctx, "postgres.InvestigationRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(toInvestigationModel(inv)).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create investigation: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取调查
func (r *InvestigationRepository) GetByID(ctx context.Context, id string) (*entity.Investigation, error) {
	ctx, span := tracer.Start(ctx, "postgres.InvestigationRepository.GetByID")
	defer span.End()

	inv, err := r.first(getDB(ctx, r.client.db), id)
	if err != nil {
		span.RecordError(err)
	}
	return inv, err
}

// GetByIDForUpdate 加行锁读取，需在事务中调用
func (r *InvestigationRepository) GetByIDForUpdate(ctx context.Context, id string) (*entity.Investigation, error) {
	ctx, span := tracer.Start(ctx, "postgres.InvestigationRepository.GetByIDForUpdate")
	defer span.End()

	db := getDB(ctx, r.client.db).Clauses(clause.Locking{Strength: "UPDATE"})
	inv, err := r.first(db, id)
	if err != nil {
		span.RecordError(err)
	}
	return inv, err
}

func (r *InvestigationRepository) first(db *gorm.DB, id string) (*entity.Investigation, error) {
	var m investigationModel
	if err := db.First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get investigation: %w", err)
	}
	return m.toEntity(), nil
}

// Update 更新调查
func (r *InvestigationRepository) Update(ctx context.Context, inv *entity.Investigation) error {
	ctx, span := tracer.Start(ctx, "postgres.InvestigationRepository.Update")
	defer span.End()

	inv.UpdatedAt = time.Now()
	db := getDB(ctx, r.client.db)
	if err := db.Save(toInvestigationModel(inv)).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update investigation: %w", err)
	}
	return nil
}

// List 分页列出调查
func (r *InvestigationRepository) List(ctx context.Context, filter *repository.InvestigationFilter, pagination repository.Pagination) (*repository.PagedResult[*entity.Investigation], error) {
	ctx, span := tracer.Start(ctx, "postgres.InvestigationRepository.List")
	defer span.End()

	query := getDB(ctx, r.client.db).Model(&investigationModel{})
	if filter != nil {
		if filter.Status != "" {
			query = query.Where("status = ?", string(filter.Status))
		}
		if q := strings.TrimSpace(filter.Query); q != "" {
			query = query.Where("query ILIKE ?", "%"+escapeLike(q)+"%")
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count investigations: %w", err)
	}

	// 列表不加载 result，避免拉取大报告
	var rows []*investigationModel
	if err := query.Omit("result").
		Order("created_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&rows).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list investigations: %w", err)
	}

	items := make([]*entity.Investigation, 0, len(rows))
	for _, m := range rows {
		items = append(items, m.toEntity())
	}
	return repository.NewPagedResult(items, total, pagination), nil
}

// CountByStatus 按状态统计
func (r *InvestigationRepository) CountByStatus(ctx context.Context) (map[entity.InvestigationStatus]int64, error) {
	ctx, span := tracer.Start(ctx, "postgres.InvestigationRepository.CountByStatus")
	defer span.End()

	var rows []struct {
		Status string
		Count  int64
	}
	if err := getDB(ctx, r.client.db).Model(&investigationModel{}).
		Select("status, count(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count investigations by status: %w", err)
	}

	out := make(map[entity.InvestigationStatus]int64, len(rows))
	for _, row := range rows {
		out[entity.InvestigationStatus(row.Status)] = row.Count
	}
	return out, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
