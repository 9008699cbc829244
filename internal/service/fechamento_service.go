package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"caixadiario/internal/conciliacao"
	"caixadiario/internal/dto"
	"caixadiario/internal/infra"
	"caixadiario/internal/model"
	"caixadiario/internal/repository"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ResumoEnqueuer schedules the post-closing summary job. Satisfied by
// *worker.Dispatcher.
type ResumoEnqueuer interface {
	EnqueueResumo(ctx context.Context, fechamentoID string) error
}

type FechamentoService interface {
	// SaldoAnterior is the closing balance of the unit's most recent closing,
	// or zero when the unit has none.
	SaldoAnterior(ctx context.Context, unidadeID string) (decimal.Decimal, error)
	Criar(ctx context.Context, responsavelID string, req dto.CriarFechamentoRequest) (*dto.FechamentoResponse, error)
	Obter(ctx context.Context, id string) (*dto.FechamentoResponse, error)
	Listar(ctx context.Context, filtro dto.FechamentoFilter) (*dto.FechamentoListResponse, error)
	ResumoPDF(ctx context.Context, id string) ([]byte, *dto.FechamentoResponse, error)
}

type fechamentoService struct {
	repo     repository.FechamentoRepository
	unidades repository.UnidadeRepository
	locker   infra.Locker
	jobs     ResumoEnqueuer
	lockTTL  time.Duration
	agora    func() time.Time
}

// NewFechamentoService wires the closing builder. locker and jobs may be nil:
// without a locker closings of the same unit are not serialized across
// instances, without jobs no summary is scheduled.
func NewFechamentoService(
	repo repository.FechamentoRepository,
	unidades repository.UnidadeRepository,
	locker infra.Locker,
	jobs ResumoEnqueuer,
	lockTTL time.Duration,
) FechamentoService {
	if lockTTL <= 0 {
		lockTTL = 15 * time.Second
	}
	return &fechamentoService{
		repo:     repo,
		unidades: unidades,
		locker:   locker,
		jobs:     jobs,
		lockTTL:  lockTTL,
		agora:    time.Now,
	}
}

func chaveLock(unidadeID string) string { return "lock:fechamento:" + unidadeID }

// ── SaldoAnterior ─────────────────────────────────────────────────────────────

func (s *fechamentoService) SaldoAnterior(ctx context.Context, unidadeID string) (decimal.Decimal, error) {
	if strings.TrimSpace(unidadeID) == "" {
		return decimal.Zero, &ValidationError{Fields: map[string]string{"unidade_id": "obrigatorio"}}
	}
	ultimo, err := s.repo.FindLatestByUnidade(ctx, unidadeID)
	if err != nil {
		return decimal.Zero, indisponivel("buscar ultimo fechamento", err)
	}
	if ultimo == nil {
		return decimal.Zero, nil
	}
	return ultimo.SaldoFinal, nil
}

// ── Criar ─────────────────────────────────────────────────────────────────────
// lock → saldo anterior → totais → insert → unlock → resumo job.

func (s *fechamentoService) Criar(ctx context.Context, responsavelID string, req dto.CriarFechamentoRequest) (*dto.FechamentoResponse, error) {
	if err := validarFechamento(responsavelID, req); err != nil {
		return nil, err
	}

	unidade, err := s.unidades.FindByID(ctx, req.UnidadeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("unidade %s: %w", req.UnidadeID, ErrNaoEncontrado)
		}
		return nil, indisponivel("carregar unidade", err)
	}
	if !unidade.Ativa {
		return nil, &ValidationError{Fields: map[string]string{"unidade_id": "unidade inativa"}}
	}

	f, err := s.registrar(ctx, responsavelID, req)
	if err != nil {
		return nil, err
	}
	if f.Unidade == nil {
		f.Unidade = unidade
	}

	log.Info().
		Str("fechamento_id", f.ID).
		Str("unidade", unidade.Nome).
		Str("saldo_anterior", f.SaldoAnterior.StringFixed(2)).
		Str("saldo_final", f.SaldoFinal.StringFixed(2)).
		Msg("fechamento registrado")

	if s.jobs != nil {
		if err := s.jobs.EnqueueResumo(ctx, f.ID); err != nil {
			log.Warn().Err(err).Str("fechamento_id", f.ID).Msg("falha ao enfileirar resumo")
		}
	}

	resp := toFechamentoResponse(f)
	return &resp, nil
}

// registrar holds the unit lock across the balance read and the insert.
func (s *fechamentoService) registrar(ctx context.Context, responsavelID string, req dto.CriarFechamentoRequest) (*model.Fechamento, error) {
	if s.locker != nil {
		lock, err := s.locker.Obtain(ctx, chaveLock(req.UnidadeID), s.lockTTL)
		if errors.Is(err, infra.ErrLockNotObtained) {
			return nil, ErrFechamentoEmAndamento
		}
		if err != nil {
			return nil, indisponivel("obter lock", err)
		}
		defer func() {
			if err := lock.Release(ctx); err != nil {
				log.Warn().Err(err).Str("unidade_id", req.UnidadeID).Msg("falha ao liberar lock de fechamento")
			}
		}()
	}

	saldoAnterior, err := s.SaldoAnterior(ctx, req.UnidadeID)
	if err != nil {
		return nil, err
	}

	f := novoFechamento(responsavelID, req)
	f.Data = s.agora()
	tot := conciliacao.Calcular(saldoAnterior, conciliacao.PagamentosDe(f), f.Saidas.Itens)
	f.TotalEntradas = tot.TotalEntradas
	f.TotalSaidas = tot.TotalSaidas
	f.SaldoAnterior = tot.SaldoAnterior
	f.SaldoFinal = tot.SaldoFinal

	if err := s.repo.Create(ctx, f); err != nil {
		return nil, indisponivel("gravar fechamento", err)
	}
	return f, nil
}

func novoFechamento(responsavelID string, req dto.CriarFechamentoRequest) *model.Fechamento {
	bebidas := make([]model.VendaBebida, len(req.VendasBebidas))
	for i, b := range req.VendasBebidas {
		bebidas[i] = model.VendaBebida{Item: strings.TrimSpace(b.Item), Quantidade: b.Quantidade, Valor: b.Valor}
	}
	saidas := make([]model.Saida, len(req.Saidas))
	for i, sd := range req.Saidas {
		saidas[i] = model.Saida{Descricao: strings.TrimSpace(sd.Descricao), Valor: sd.Valor}
	}

	return &model.Fechamento{
		HorarioFechamento: strings.TrimSpace(req.HorarioFechamento),
		UnidadeID:         req.UnidadeID,
		ResponsavelID:     responsavelID,

		Clientes:      req.Clientes,
		Cortes:        req.Cortes,
		CorteInfantil: req.CorteInfantil,
		CorteFeminino: req.CorteFeminino,
		Barbas:        req.Barbas,
		BarbaTerapia:  req.BarbaTerapia,
		Sobrancelha:   req.Sobrancelha,
		Desenho:       req.Desenho,
		Pezinho:       req.Pezinho,
		Freestyle:     req.Freestyle,
		Esfoliacao:    req.Esfoliacao,
		LimpezaPele:   req.LimpezaPele,

		VendaProdutos: req.VendaProdutos,
		VendasBebidas: model.NovaLista(bebidas...),

		EstoqueAgua:    req.EstoqueAgua,
		EstoqueRefri:   req.EstoqueRefri,
		EstoqueCerveja: req.EstoqueCerveja,

		Debito:   req.Debito,
		Credito:  req.Credito,
		Pix:      req.Pix,
		Dinheiro: req.Dinheiro,

		Saidas: model.NovaLista(saidas...),
	}
}

// validarFechamento runs before any store access.
func validarFechamento(responsavelID string, req dto.CriarFechamentoRequest) error {
	c := campos{}
	if strings.TrimSpace(responsavelID) == "" {
		c.add("responsavel_id", "obrigatorio")
	}
	if strings.TrimSpace(req.UnidadeID) == "" {
		c.add("unidade_id", "obrigatorio")
	}

	for campo, v := range map[string]int{
		"clientes": req.Clientes, "cortes": req.Cortes, "corte_infantil": req.CorteInfantil,
		"corte_feminino": req.CorteFeminino, "barbas": req.Barbas, "barba_terapia": req.BarbaTerapia,
		"sobrancelha": req.Sobrancelha, "desenho": req.Desenho, "pezinho": req.Pezinho,
		"freestyle": req.Freestyle, "esfoliacao": req.Esfoliacao, "limpeza_pele": req.LimpezaPele,
		"estoque_agua": req.EstoqueAgua, "estoque_refri": req.EstoqueRefri, "estoque_cerveja": req.EstoqueCerveja,
	} {
		if v < 0 {
			c.add(campo, "min=0")
		}
	}
	for campo, v := range map[string]decimal.Decimal{
		"debito": req.Debito, "credito": req.Credito, "pix": req.Pix, "dinheiro": req.Dinheiro,
	} {
		if v.IsNegative() {
			c.add(campo, "min=0")
		}
	}
	for i, b := range req.VendasBebidas {
		if strings.TrimSpace(b.Item) == "" {
			c.add(fmt.Sprintf("vendas_bebidas[%d].item", i), "obrigatorio")
		}
		if b.Quantidade < 0 {
			c.add(fmt.Sprintf("vendas_bebidas[%d].quantidade", i), "min=0")
		}
		if b.Valor.IsNegative() {
			c.add(fmt.Sprintf("vendas_bebidas[%d].valor", i), "min=0")
		}
	}
	for i, sd := range req.Saidas {
		if strings.TrimSpace(sd.Descricao) == "" {
			c.add(fmt.Sprintf("saidas[%d].descricao", i), "obrigatorio")
		}
		if sd.Valor.IsNegative() {
			c.add(fmt.Sprintf("saidas[%d].valor", i), "min=0")
		}
	}
	return c.err()
}

// ── Consultas ─────────────────────────────────────────────────────────────────

func (s *fechamentoService) Obter(ctx context.Context, id string) (*dto.FechamentoResponse, error) {
	f, err := s.buscar(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toFechamentoResponse(f)
	return &resp, nil
}

func (s *fechamentoService) Listar(ctx context.Context, filtro dto.FechamentoFilter) (*dto.FechamentoListResponse, error) {
	rf, err := parseFiltro(filtro.UnidadeID, filtro.DataInicio, filtro.DataFim)
	if err != nil {
		return nil, err
	}
	page, limit := filtro.Page, filtro.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	rows, total, err := s.repo.List(ctx, rf, page, limit)
	if err != nil {
		return nil, indisponivel("listar fechamentos", err)
	}

	data := make([]dto.FechamentoResponse, len(rows))
	for i := range rows {
		data[i] = toFechamentoResponse(&rows[i])
	}
	totalPages := int(total) / limit
	if int(total)%limit != 0 {
		totalPages++
	}
	return &dto.FechamentoListResponse{
		Data:       data,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}, nil
}

func (s *fechamentoService) ResumoPDF(ctx context.Context, id string) ([]byte, *dto.FechamentoResponse, error) {
	f, err := s.buscar(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	var buf bytes.Buffer
	if err := infra.EscreverResumoPDF(f, &buf); err != nil {
		return nil, nil, fmt.Errorf("gerar pdf: %w", err)
	}
	resp := toFechamentoResponse(f)
	return buf.Bytes(), &resp, nil
}

func (s *fechamentoService) buscar(ctx context.Context, id string) (*model.Fechamento, error) {
	f, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("fechamento %s: %w", id, ErrNaoEncontrado)
		}
		return nil, indisponivel("buscar fechamento", err)
	}
	return f, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func indisponivel(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreIndisponivel, err)
}

const layoutData = "2006-01-02"

// parseFiltro turns YYYY-MM-DD bounds into a half-open [inicio, fim+1d) range.
func parseFiltro(unidadeID, inicio, fim string) (repository.FechamentoFilter, error) {
	rf := repository.FechamentoFilter{UnidadeID: strings.TrimSpace(unidadeID)}
	c := campos{}
	if inicio != "" {
		t, err := time.ParseInLocation(layoutData, inicio, time.Local)
		if err != nil {
			c.add("data_inicio", "formato YYYY-MM-DD")
		} else {
			rf.DataInicio = &t
		}
	}
	if fim != "" {
		t, err := time.ParseInLocation(layoutData, fim, time.Local)
		if err != nil {
			c.add("data_fim", "formato YYYY-MM-DD")
		} else {
			t = t.AddDate(0, 0, 1)
			rf.DataFim = &t
		}
	}
	if rf.DataInicio != nil && rf.DataFim != nil && !rf.DataInicio.Before(*rf.DataFim) {
		c.add("data_fim", "anterior a data_inicio")
	}
	return rf, c.err()
}

func toFechamentoResponse(f *model.Fechamento) dto.FechamentoResponse {
	bebidas := make([]dto.VendaBebidaResponse, len(f.VendasBebidas.Itens))
	for i, b := range f.VendasBebidas.Itens {
		bebidas[i] = dto.VendaBebidaResponse{Item: b.Item, Quantidade: b.Quantidade, Valor: b.Valor}
	}
	saidas := make([]dto.SaidaResponse, len(f.Saidas.Itens))
	for i, sd := range f.Saidas.Itens {
		saidas[i] = dto.SaidaResponse{Descricao: sd.Descricao, Valor: sd.Valor}
	}
	resp := dto.FechamentoResponse{
		ID:                f.ID,
		Data:              f.Data,
		HorarioFechamento: f.HorarioFechamento,
		UnidadeID:         f.UnidadeID,
		UnidadeNome:       f.NomeUnidade(),
		ResponsavelID:     f.ResponsavelID,

		Clientes:      f.Clientes,
		Cortes:        f.Cortes,
		CorteInfantil: f.CorteInfantil,
		CorteFeminino: f.CorteFeminino,
		Barbas:        f.Barbas,
		BarbaTerapia:  f.BarbaTerapia,
		Sobrancelha:   f.Sobrancelha,
		Desenho:       f.Desenho,
		Pezinho:       f.Pezinho,
		Freestyle:     f.Freestyle,
		Esfoliacao:    f.Esfoliacao,
		LimpezaPele:   f.LimpezaPele,

		VendaProdutos: f.VendaProdutos,
		VendasBebidas: bebidas,

		EstoqueAgua:    f.EstoqueAgua,
		EstoqueRefri:   f.EstoqueRefri,
		EstoqueCerveja: f.EstoqueCerveja,

		Debito:   f.Debito,
		Credito:  f.Credito,
		Pix:      f.Pix,
		Dinheiro: f.Dinheiro,

		Saidas: saidas,

		TotalEntradas: f.TotalEntradas,
		TotalSaidas:   f.TotalSaidas,
		SaldoAnterior: f.SaldoAnterior,
		SaldoFinal:    f.SaldoFinal,

		CreatedAt: f.CreatedAt,
	}
	if f.Responsavel != nil {
		resp.ResponsavelNome = f.Responsavel.Nome
	}
	return resp
}
