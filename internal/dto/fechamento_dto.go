package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type VendaBebidaRequest struct {
	Item       string          `json:"item"       validate:"required,max=100"`
	Quantidade int             `json:"quantidade" validate:"min=0"`
	Valor      decimal.Decimal `json:"valor"      validate:"min=0"`
}

type SaidaRequest struct {
	Descricao string          `json:"descricao" validate:"required,max=255"`
	Valor     decimal.Decimal `json:"valor"     validate:"min=0"`
}

// CriarFechamentoRequest carries only the raw inputs of a closing. Totals and
// balances are always derived server-side.
type CriarFechamentoRequest struct {
	UnidadeID         string `json:"unidade_id"         validate:"required"`
	HorarioFechamento string `json:"horario_fechamento" validate:"max=20"`

	Clientes      int `json:"clientes"       validate:"min=0"`
	Cortes        int `json:"cortes"         validate:"min=0"`
	CorteInfantil int `json:"corte_infantil" validate:"min=0"`
	CorteFeminino int `json:"corte_feminino" validate:"min=0"`
	Barbas        int `json:"barbas"         validate:"min=0"`
	BarbaTerapia  int `json:"barba_terapia"  validate:"min=0"`
	Sobrancelha   int `json:"sobrancelha"    validate:"min=0"`
	Desenho       int `json:"desenho"        validate:"min=0"`
	Pezinho       int `json:"pezinho"        validate:"min=0"`
	Freestyle     int `json:"freestyle"      validate:"min=0"`
	Esfoliacao    int `json:"esfoliacao"     validate:"min=0"`
	LimpezaPele   int `json:"limpeza_pele"   validate:"min=0"`

	VendaProdutos *string              `json:"venda_produtos" validate:"omitempty,max=2000"`
	VendasBebidas []VendaBebidaRequest `json:"vendas_bebidas" validate:"dive"`

	EstoqueAgua    int `json:"estoque_agua"    validate:"min=0"`
	EstoqueRefri   int `json:"estoque_refri"   validate:"min=0"`
	EstoqueCerveja int `json:"estoque_cerveja" validate:"min=0"`

	Debito   decimal.Decimal `json:"debito"   validate:"min=0"`
	Credito  decimal.Decimal `json:"credito"  validate:"min=0"`
	Pix      decimal.Decimal `json:"pix"      validate:"min=0"`
	Dinheiro decimal.Decimal `json:"dinheiro" validate:"min=0"`

	Saidas []SaidaRequest `json:"saidas" validate:"dive"`
}

// FechamentoFilter is shared by GET /v1/fechamentos and GET /v1/relatorios.
// Dates are YYYY-MM-DD; DataFim is inclusive.
type FechamentoFilter struct {
	UnidadeID  string `form:"unidade_id"`
	DataInicio string `form:"data_inicio"`
	DataFim    string `form:"data_fim"`
	Page       int    `form:"page,default=1"   validate:"min=1"`
	Limit      int    `form:"limit,default=20" validate:"min=1,max=100"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type VendaBebidaResponse struct {
	Item       string          `json:"item"`
	Quantidade int             `json:"quantidade"`
	Valor      decimal.Decimal `json:"valor"`
}

type SaidaResponse struct {
	Descricao string          `json:"descricao"`
	Valor     decimal.Decimal `json:"valor"`
}

type FechamentoResponse struct {
	ID                string    `json:"id"`
	Data              time.Time `json:"data"`
	HorarioFechamento string    `json:"horario_fechamento"`
	UnidadeID         string    `json:"unidade_id"`
	UnidadeNome       string    `json:"unidade_nome"`
	ResponsavelID     string    `json:"responsavel_id"`
	ResponsavelNome   string    `json:"responsavel_nome"`

	Clientes      int `json:"clientes"`
	Cortes        int `json:"cortes"`
	CorteInfantil int `json:"corte_infantil"`
	CorteFeminino int `json:"corte_feminino"`
	Barbas        int `json:"barbas"`
	BarbaTerapia  int `json:"barba_terapia"`
	Sobrancelha   int `json:"sobrancelha"`
	Desenho       int `json:"desenho"`
	Pezinho       int `json:"pezinho"`
	Freestyle     int `json:"freestyle"`
	Esfoliacao    int `json:"esfoliacao"`
	LimpezaPele   int `json:"limpeza_pele"`

	VendaProdutos *string               `json:"venda_produtos"`
	VendasBebidas []VendaBebidaResponse `json:"vendas_bebidas"`

	EstoqueAgua    int `json:"estoque_agua"`
	EstoqueRefri   int `json:"estoque_refri"`
	EstoqueCerveja int `json:"estoque_cerveja"`

	Debito   decimal.Decimal `json:"debito"`
	Credito  decimal.Decimal `json:"credito"`
	Pix      decimal.Decimal `json:"pix"`
	Dinheiro decimal.Decimal `json:"dinheiro"`

	Saidas []SaidaResponse `json:"saidas"`

	TotalEntradas decimal.Decimal `json:"total_entradas"`
	TotalSaidas   decimal.Decimal `json:"total_saidas"`
	SaldoAnterior decimal.Decimal `json:"saldo_anterior"`
	SaldoFinal    decimal.Decimal `json:"saldo_final"`

	CreatedAt time.Time `json:"created_at"`
}

type FechamentoListResponse struct {
	Data       []FechamentoResponse `json:"data"`
	Total      int64                `json:"total"`
	Page       int                  `json:"page"`
	Limit      int                  `json:"limit"`
	TotalPages int                  `json:"total_pages"`
}
