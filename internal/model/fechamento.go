package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Fechamento is one immutable end-of-day snapshot of a unit's cash position.
// Rows are only ever inserted — there is no update or delete path.
//
// The four derived fields (TotalEntradas, TotalSaidas, SaldoAnterior,
// SaldoFinal) are stored next to the itemized inputs they were computed from;
// the reconciliation report recomputes them and flags any disagreement.
type Fechamento struct {
	ID                string    `gorm:"type:varchar(36);primaryKey"`
	Data              time.Time `gorm:"not null;index:idx_fechamentos_unidade_data,priority:2"`
	HorarioFechamento string    `gorm:"type:varchar(20);not null"`
	UnidadeID         string    `gorm:"type:varchar(36);not null;index:idx_fechamentos_unidade_data,priority:1"`
	ResponsavelID     string    `gorm:"type:varchar(36);not null;index"`

	// Service counters
	Clientes      int `gorm:"not null;default:0"`
	Cortes        int `gorm:"not null;default:0"`
	CorteInfantil int `gorm:"not null;default:0"`
	CorteFeminino int `gorm:"not null;default:0"`
	Barbas        int `gorm:"not null;default:0"`
	BarbaTerapia  int `gorm:"not null;default:0"`
	Sobrancelha   int `gorm:"not null;default:0"`
	Desenho       int `gorm:"not null;default:0"`
	Pezinho       int `gorm:"not null;default:0"`
	Freestyle     int `gorm:"not null;default:0"`
	Esfoliacao    int `gorm:"not null;default:0"`
	LimpezaPele   int `gorm:"not null;default:0"`

	VendaProdutos *string
	VendasBebidas ListaJSON[VendaBebida] `gorm:"type:jsonb"`

	EstoqueAgua    int `gorm:"not null;default:0"`
	EstoqueRefri   int `gorm:"not null;default:0"`
	EstoqueCerveja int `gorm:"not null;default:0"`

	// Payment methods
	Debito   decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Credito  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Pix      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Dinheiro decimal.Decimal `gorm:"type:decimal(12,2);not null"`

	Saidas ListaJSON[Saida] `gorm:"type:jsonb"`

	// Derived
	TotalEntradas decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	TotalSaidas   decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	SaldoAnterior decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	SaldoFinal    decimal.Decimal `gorm:"type:decimal(12,2);not null"`

	CreatedAt time.Time

	Unidade     *Unidade `gorm:"foreignKey:UnidadeID"`
	Responsavel *Usuario `gorm:"foreignKey:ResponsavelID"`
}

// VendaBebida is one drink-sale line.
type VendaBebida struct {
	Item       string          `json:"item"`
	Quantidade int             `json:"quantidade"`
	Valor      decimal.Decimal `json:"valor"`
}

// Saida is one expense paid out of the till.
type Saida struct {
	Descricao string          `json:"descricao"`
	Valor     decimal.Decimal `json:"valor"`
}

func (f *Fechamento) BeforeCreate(_ *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return nil
}

// NomeUnidade returns the preloaded unit name, or "" when not loaded.
func (f *Fechamento) NomeUnidade() string {
	if f.Unidade == nil {
		return ""
	}
	return f.Unidade.Nome
}
