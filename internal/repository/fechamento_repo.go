package repository

import (
	"context"
	"time"

	"caixadiario/internal/model"

	"gorm.io/gorm"
)

// FechamentoFilter narrows a closing query. Zero values mean "no restriction".
// DataInicio is inclusive, DataFim is exclusive.
type FechamentoFilter struct {
	UnidadeID     string
	ResponsavelID string
	DataInicio    *time.Time
	DataFim       *time.Time
}

// FechamentoRepository is the record store for closings. It is append-only:
// there is deliberately no Update or Delete.
type FechamentoRepository interface {
	// FindLatestByUnidade returns the most recent closing of the unit by
	// closing date, or (nil, nil) when the unit has none.
	FindLatestByUnidade(ctx context.Context, unidadeID string) (*model.Fechamento, error)
	Create(ctx context.Context, f *model.Fechamento) error
	FindByID(ctx context.Context, id string) (*model.Fechamento, error)
	FindMany(ctx context.Context, filter FechamentoFilter) ([]model.Fechamento, error)
	List(ctx context.Context, filter FechamentoFilter, page, limit int) ([]model.Fechamento, int64, error)
}

type fechamentoRepo struct{ db *gorm.DB }

func NewFechamentoRepository(db *gorm.DB) FechamentoRepository { return &fechamentoRepo{db: db} }

func (r *fechamentoRepo) FindLatestByUnidade(ctx context.Context, unidadeID string) (*model.Fechamento, error) {
	var rows []model.Fechamento
	err := r.db.WithContext(ctx).
		Where("unidade_id = ?", unidadeID).
		Order("data DESC").Order("created_at DESC").
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// Create inserts the closing and reloads it with its associations in one
// transaction: if any step fails, nothing is persisted.
func (r *fechamentoRepo) Create(ctx context.Context, f *model.Fechamento) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Omit associations: Unidade/Responsavel are references, never upserted here.
		if err := tx.Omit("Unidade", "Responsavel").Create(f).Error; err != nil {
			return err
		}
		return tx.Preload("Unidade").Preload("Responsavel").
			First(f, "id = ?", f.ID).Error
	})
}

func (r *fechamentoRepo) FindByID(ctx context.Context, id string) (*model.Fechamento, error) {
	var f model.Fechamento
	err := r.db.WithContext(ctx).
		Preload("Unidade").Preload("Responsavel").
		First(&f, "id = ?", id).Error
	return &f, err
}

func (r *fechamentoRepo) FindMany(ctx context.Context, filter FechamentoFilter) ([]model.Fechamento, error) {
	var rows []model.Fechamento
	err := r.filtered(ctx, filter).
		Preload("Unidade").Preload("Responsavel").
		Order("data DESC").Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

func (r *fechamentoRepo) List(ctx context.Context, filter FechamentoFilter, page, limit int) ([]model.Fechamento, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	var total int64
	if err := r.filtered(ctx, filter).Model(&model.Fechamento{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []model.Fechamento
	err := r.filtered(ctx, filter).
		Preload("Unidade").Preload("Responsavel").
		Order("data DESC").Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&rows).Error
	return rows, total, err
}

func (r *fechamentoRepo) filtered(ctx context.Context, filter FechamentoFilter) *gorm.DB {
	q := r.db.WithContext(ctx)
	if filter.UnidadeID != "" {
		q = q.Where("unidade_id = ?", filter.UnidadeID)
	}
	if filter.ResponsavelID != "" {
		q = q.Where("responsavel_id = ?", filter.ResponsavelID)
	}
	if filter.DataInicio != nil {
		q = q.Where("data >= ?", *filter.DataInicio)
	}
	if filter.DataFim != nil {
		q = q.Where("data < ?", *filter.DataFim)
	}
	return q
}
