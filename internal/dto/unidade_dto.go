package dto

import "github.com/shopspring/decimal"

type UnidadeResponse struct {
	ID       string  `json:"id"`
	Nome     string  `json:"nome"`
	Endereco *string `json:"endereco"`
	Ativa    bool    `json:"ativa"`
}

// SaldoAnteriorResponse is returned by GET /v1/unidades/:id/saldo-anterior.
type SaldoAnteriorResponse struct {
	UnidadeID     string          `json:"unidade_id"`
	SaldoAnterior decimal.Decimal `json:"saldo_anterior"`
}
