package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"caixadiario/internal/conciliacao"
	"caixadiario/internal/dto"
	"caixadiario/internal/model"
	"caixadiario/internal/repository"

	"github.com/xuri/excelize/v2"
)

const (
	SheetUnidades        = "Unidades"
	SheetInconsistencias = "Inconsistências"
	SheetFechamentos     = "Fechamentos"
	SheetResumo          = "Resumo"
)

type RelatorioService interface {
	Gerar(ctx context.Context, filtro dto.FechamentoFilter) (*dto.RelatorioResponse, error)
	ExportarXLSX(ctx context.Context, filtro dto.FechamentoFilter, w io.Writer) error
	// AnalisarPeriodo analyzes closings with Data in [inicio, fim).
	AnalisarPeriodo(ctx context.Context, inicio, fim time.Time) (conciliacao.Analise, error)
}

type relatorioService struct {
	repo repository.FechamentoRepository
}

func NewRelatorioService(repo repository.FechamentoRepository) RelatorioService {
	return &relatorioService{repo: repo}
}

func (s *relatorioService) Gerar(ctx context.Context, filtro dto.FechamentoFilter) (*dto.RelatorioResponse, error) {
	_, analise, err := s.carregar(ctx, filtro)
	if err != nil {
		return nil, err
	}
	return &dto.RelatorioResponse{
		UnidadeID:  filtro.UnidadeID,
		DataInicio: filtro.DataInicio,
		DataFim:    filtro.DataFim,
		Analise:    analise,
	}, nil
}

func (s *relatorioService) AnalisarPeriodo(ctx context.Context, inicio, fim time.Time) (conciliacao.Analise, error) {
	registros, err := s.repo.FindMany(ctx, repository.FechamentoFilter{DataInicio: &inicio, DataFim: &fim})
	if err != nil {
		return conciliacao.Analise{}, indisponivel("buscar fechamentos", err)
	}
	return conciliacao.Analisar(registros), nil
}

func (s *relatorioService) carregar(ctx context.Context, filtro dto.FechamentoFilter) ([]model.Fechamento, conciliacao.Analise, error) {
	rf, err := parseFiltro(filtro.UnidadeID, filtro.DataInicio, filtro.DataFim)
	if err != nil {
		return nil, conciliacao.Analise{}, err
	}
	registros, err := s.repo.FindMany(ctx, rf)
	if err != nil {
		return nil, conciliacao.Analise{}, indisponivel("buscar fechamentos", err)
	}
	return registros, conciliacao.Analisar(registros), nil
}

// ── XLSX ──────────────────────────────────────────────────────────────────────

func (s *relatorioService) ExportarXLSX(ctx context.Context, filtro dto.FechamentoFilter, w io.Writer) error {
	registros, analise, err := s.carregar(ctx, filtro)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetUnidades); err != nil {
		return err
	}
	if _, err := f.NewSheet(SheetInconsistencias); err != nil {
		return err
	}
	if _, err := f.NewSheet(SheetFechamentos); err != nil {
		return err
	}
	if _, err := f.NewSheet(SheetResumo); err != nil {
		return err
	}

	if err := escreverLinhas(f, SheetUnidades, linhasUnidades(analise.Unidades)); err != nil {
		return err
	}
	if err := escreverLinhas(f, SheetInconsistencias, linhasInconsistencias(analise.Inconsistencias)); err != nil {
		return err
	}
	if err := escreverLinhas(f, SheetFechamentos, linhasFechamentos(registros)); err != nil {
		return err
	}
	if err := escreverLinhas(f, SheetResumo, linhasResumo(analise.Estatisticas)); err != nil {
		return err
	}

	for _, w := range []struct {
		sheet, col string
		width      float64
	}{
		{SheetUnidades, "A", 28},
		{SheetInconsistencias, "E", 70},
		{SheetFechamentos, "B", 28},
		{SheetResumo, "A", 24},
	} {
		if err := f.SetColWidth(w.sheet, w.col, w.col, w.width); err != nil {
			return fmt.Errorf("xlsx %s largura: %w", w.sheet, err)
		}
	}

	return f.Write(w)
}

func escreverLinhas(f *excelize.File, sheet string, linhas [][]interface{}) error {
	for i, linha := range linhas {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &linha); err != nil {
			return fmt.Errorf("xlsx %s linha %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func linhasUnidades(unidades []conciliacao.ResumoUnidade) [][]interface{} {
	linhas := [][]interface{}{{"Unidade", "Registros", "Clientes", "Entradas", "Saídas", "Saldo Total", "Último Fechamento"}}
	for _, u := range unidades {
		linhas = append(linhas, []interface{}{
			u.Nome, u.TotalRegistros, u.TotalClientes,
			u.TotalEntradas.InexactFloat64(), u.TotalSaidas.InexactFloat64(), u.SaldoTotal.InexactFloat64(),
			u.UltimoFechamento.Format("02/01/2006 15:04"),
		})
	}
	return linhas
}

func linhasInconsistencias(incs []conciliacao.Inconsistencia) [][]interface{} {
	linhas := [][]interface{}{{"Severidade", "Tipo", "Unidade", "Data", "Descrição", "Fechamento"}}
	for _, inc := range incs {
		linhas = append(linhas, []interface{}{
			inc.Severidade.String(), inc.Tipo.String(), inc.Unidade,
			inc.Data.Format("02/01/2006 15:04"), inc.Descricao, inc.FechamentoID,
		})
	}
	return linhas
}

func linhasResumo(est conciliacao.Estatisticas) [][]interface{} {
	return [][]interface{}{
		{"Indicador", "Valor"},
		{"Registros", est.TotalRegistros},
		{"Clientes", est.TotalClientes},
		{"Total Entradas", est.TotalEntradas.InexactFloat64()},
		{"Total Saídas", est.TotalSaidas.InexactFloat64()},
		{"Saldo Total", est.SaldoTotal.InexactFloat64()},
		{"Faturamento/dia", est.MediaEntradas.InexactFloat64()},
		{"Ticket Médio", est.TicketMedio.InexactFloat64()},
		{"Média Clientes", est.MediaClientes.InexactFloat64()},
		{"Inconsistências Alta", est.InconsistenciasAlta},
		{"Inconsistências Média", est.InconsistenciasMedia},
		{"Inconsistências Baixa", est.InconsistenciasBaixa},
	}
}

func linhasFechamentos(registros []model.Fechamento) [][]interface{} {
	linhas := [][]interface{}{{
		"Data", "Unidade", "Responsável", "Clientes",
		"Débito", "Crédito", "Pix", "Dinheiro",
		"Total Entradas", "Total Saídas", "Saldo Anterior", "Saldo Final", "ID",
	}}
	for i := range registros {
		r := &registros[i]
		responsavel := ""
		if r.Responsavel != nil {
			responsavel = r.Responsavel.Nome
		}
		linhas = append(linhas, []interface{}{
			r.Data.Format("02/01/2006 15:04"), r.NomeUnidade(), responsavel, r.Clientes,
			r.Debito.InexactFloat64(), r.Credito.InexactFloat64(), r.Pix.InexactFloat64(), r.Dinheiro.InexactFloat64(),
			r.TotalEntradas.InexactFloat64(), r.TotalSaidas.InexactFloat64(),
			r.SaldoAnterior.InexactFloat64(), r.SaldoFinal.InexactFloat64(), r.ID,
		})
	}
	return linhas
}
