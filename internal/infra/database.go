package infra

import (
	"fmt"

	"caixadiario/internal/model"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase opens the PostgreSQL pool, installs the tracing plugin and
// brings the schema up to date.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := db.Use(otelgorm.NewPlugin()); err != nil {
		log.Warn().Err(err).Msg("otelgorm plugin not installed")
	}

	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

// RunMigrations creates / updates all tables, then applies the idempotent
// PostgreSQL patches AutoMigrate cannot express. Non-postgres dialects (the
// sqlite repository tests) only get AutoMigrate.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Unidade{},
		&model.Usuario{},
		&model.Fechamento{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	if db.Dialector.Name() != "postgres" {
		return nil
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs idempotent DDL. Each statement uses IF NOT EXISTS
// semantics so re-running on an already-patched DB is safe.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		// Balance lookup: latest closing of a unit by date, then insertion order.
		{"idx_fechamentos_unidade_ultimo", `
CREATE INDEX IF NOT EXISTS idx_fechamentos_unidade_ultimo
    ON fechamentos (unidade_id, data DESC, created_at DESC)`},
		// Money columns are never negative for rows written by the service.
		{"chk_fechamentos_pagamentos", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_fechamentos_pagamentos') THEN
    ALTER TABLE fechamentos ADD CONSTRAINT chk_fechamentos_pagamentos
      CHECK (debito >= 0 AND credito >= 0 AND pix >= 0 AND dinheiro >= 0) NOT VALID;
  END IF;
END $$`},
		{"idx_unidades_ativa_nome", `
CREATE INDEX IF NOT EXISTS idx_unidades_ativa_nome ON unidades (ativa, nome)`},
	}
	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}
