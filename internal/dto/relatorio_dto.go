package dto

import "caixadiario/internal/conciliacao"

// RelatorioResponse is returned by GET /v1/relatorios.
type RelatorioResponse struct {
	UnidadeID  string `json:"unidade_id,omitempty"`
	DataInicio string `json:"data_inicio,omitempty"`
	DataFim    string `json:"data_fim,omitempty"`

	conciliacao.Analise
}
