package repository

import (
	"context"

	"caixadiario/internal/model"

	"gorm.io/gorm"
)

type UnidadeRepository interface {
	FindByID(ctx context.Context, id string) (*model.Unidade, error)
	ListAtivas(ctx context.Context) ([]model.Unidade, error)
	// Upsert creates the unit by name if it does not exist yet (seeding).
	Upsert(ctx context.Context, u *model.Unidade) error
}

type unidadeRepo struct{ db *gorm.DB }

func NewUnidadeRepository(db *gorm.DB) UnidadeRepository { return &unidadeRepo{db: db} }

func (r *unidadeRepo) FindByID(ctx context.Context, id string) (*model.Unidade, error) {
	var u model.Unidade
	err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error
	return &u, err
}

func (r *unidadeRepo) ListAtivas(ctx context.Context) ([]model.Unidade, error) {
	var unidades []model.Unidade
	err := r.db.WithContext(ctx).Where("ativa = ?", true).Order("nome ASC").Find(&unidades).Error
	return unidades, err
}

func (r *unidadeRepo) Upsert(ctx context.Context, u *model.Unidade) error {
	return r.db.WithContext(ctx).Where(model.Unidade{Nome: u.Nome}).FirstOrCreate(u).Error
}
