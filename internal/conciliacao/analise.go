package conciliacao

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"caixadiario/internal/model"

	"github.com/shopspring/decimal"
)

// UnidadeDesconhecida groups closings whose unit was not loaded.
const UnidadeDesconhecida = "Desconhecida"

// ── Tipo / Severidade ─────────────────────────────────────────────────────────

// Tipo is the closed set of inconsistency kinds. Each kind has a fixed severity.
type Tipo int

const (
	TipoRegistroMalformado Tipo = iota + 1
	TipoSaldoIncorreto
	TipoEntradasIncorretas
	TipoSaidasIncorretas
	TipoFaturamentoSemClientes
	TipoValorNegativo
)

// Severidade orders findings: Alta > Media > Baixa.
type Severidade int

const (
	SeveridadeBaixa Severidade = iota + 1
	SeveridadeMedia
	SeveridadeAlta
)

var tipos = map[Tipo]struct {
	codigo     string
	titulo     string
	severidade Severidade
}{
	TipoRegistroMalformado:     {"registro_malformado", "Registro Malformado", SeveridadeAlta},
	TipoSaldoIncorreto:         {"saldo_incorreto", "Saldo Incorreto", SeveridadeAlta},
	TipoEntradasIncorretas:     {"entradas_incorretas", "Total Entradas Incorreto", SeveridadeMedia},
	TipoSaidasIncorretas:       {"saidas_incorretas", "Total Saídas Incorreto", SeveridadeMedia},
	TipoFaturamentoSemClientes: {"faturamento_sem_clientes", "Clientes vs Faturamento", SeveridadeBaixa},
	TipoValorNegativo:          {"valor_negativo", "Valor Negativo", SeveridadeAlta},
}

// Codigo is the stable machine identifier used in JSON.
func (t Tipo) Codigo() string {
	if d, ok := tipos[t]; ok {
		return d.codigo
	}
	return "desconhecido"
}

// String returns the human-readable title.
func (t Tipo) String() string {
	if d, ok := tipos[t]; ok {
		return d.titulo
	}
	return "Desconhecido"
}

func (t Tipo) Severidade() Severidade { return tipos[t].severidade }

func (t Tipo) MarshalJSON() ([]byte, error) { return json.Marshal(t.Codigo()) }

func (s Severidade) String() string {
	switch s {
	case SeveridadeAlta:
		return "alta"
	case SeveridadeMedia:
		return "media"
	case SeveridadeBaixa:
		return "baixa"
	default:
		return "desconhecida"
	}
}

func (s Severidade) MarshalJSON() ([]byte, error) { return json.Marshal(s.String()) }

// ── Result types ──────────────────────────────────────────────────────────────

// Inconsistencia is one finding about one closing.
type Inconsistencia struct {
	Tipo         Tipo       `json:"tipo"`
	Severidade   Severidade `json:"severidade"`
	FechamentoID string     `json:"fechamento_id"`
	Unidade      string     `json:"unidade"`
	Data         time.Time  `json:"data"`
	Descricao    string     `json:"descricao"`
}

// ResumoUnidade accumulates all closings of one unit.
type ResumoUnidade struct {
	Nome             string          `json:"nome"`
	TotalRegistros   int             `json:"total_registros"`
	TotalClientes    int             `json:"total_clientes"`
	TotalEntradas    decimal.Decimal `json:"total_entradas"`
	TotalSaidas      decimal.Decimal `json:"total_saidas"`
	SaldoTotal       decimal.Decimal `json:"saldo_total"`
	UltimoFechamento time.Time       `json:"ultimo_fechamento"`
}

// Estatisticas are the batch-wide figures. Means are zero for an empty batch;
// TicketMedio is zero when no customers were recorded.
type Estatisticas struct {
	TotalRegistros int             `json:"total_registros"`
	TotalClientes  int             `json:"total_clientes"`
	TotalEntradas  decimal.Decimal `json:"total_entradas"`
	TotalSaidas    decimal.Decimal `json:"total_saidas"`
	SaldoTotal     decimal.Decimal `json:"saldo_total"`
	MediaClientes  decimal.Decimal `json:"media_clientes"`
	MediaSaldo     decimal.Decimal `json:"media_saldo"`
	MediaEntradas  decimal.Decimal `json:"media_entradas"` // faturamento por fechamento
	TicketMedio    decimal.Decimal `json:"ticket_medio"`   // entradas por cliente

	InconsistenciasAlta  int `json:"inconsistencias_alta"`
	InconsistenciasMedia int `json:"inconsistencias_media"`
	InconsistenciasBaixa int `json:"inconsistencias_baixa"`
}

// Analise is the full output of Analisar.
type Analise struct {
	Unidades        []ResumoUnidade  `json:"unidades"`
	Inconsistencias []Inconsistencia `json:"inconsistencias"`
	Estatisticas    Estatisticas     `json:"estatisticas"`
}

// ── Analisar ──────────────────────────────────────────────────────────────────

// Analisar recomputes the derived fields of every closing from its own
// itemized inputs and stored opening balance, reports disagreements, and
// aggregates per-unit and batch-wide figures.
//
// Findings are emitted per closing in input order, and per closing in check
// order: malformed, valor negativo, saldo, entradas, saídas, clientes. Only an
// unreadable expense list skips the arithmetic checks. The input is never
// mutated.
func Analisar(registros []model.Fechamento) Analise {
	out := Analise{
		Unidades:        []ResumoUnidade{},
		Inconsistencias: []Inconsistencia{},
		Estatisticas: Estatisticas{
			TotalEntradas: decimal.Zero,
			TotalSaidas:   decimal.Zero,
			SaldoTotal:    decimal.Zero,
			MediaClientes: decimal.Zero,
			MediaSaldo:    decimal.Zero,
			MediaEntradas: decimal.Zero,
			TicketMedio:   decimal.Zero,
		},
	}

	porUnidade := make(map[string]*ResumoUnidade)
	var ordem []string

	for i := range registros {
		r := &registros[i]

		out.Inconsistencias = append(out.Inconsistencias, verificar(r)...)

		nome := nomeUnidade(r)
		acc, ok := porUnidade[nome]
		if !ok {
			acc = &ResumoUnidade{
				Nome:          nome,
				TotalEntradas: decimal.Zero,
				TotalSaidas:   decimal.Zero,
				SaldoTotal:    decimal.Zero,
			}
			porUnidade[nome] = acc
			ordem = append(ordem, nome)
		}
		acc.TotalRegistros++
		acc.TotalClientes += r.Clientes
		acc.TotalEntradas = acc.TotalEntradas.Add(r.TotalEntradas)
		acc.TotalSaidas = acc.TotalSaidas.Add(r.TotalSaidas)
		acc.SaldoTotal = acc.SaldoTotal.Add(r.SaldoFinal)
		if r.Data.After(acc.UltimoFechamento) {
			acc.UltimoFechamento = r.Data
		}

		est := &out.Estatisticas
		est.TotalRegistros++
		est.TotalClientes += r.Clientes
		est.TotalEntradas = est.TotalEntradas.Add(r.TotalEntradas)
		est.TotalSaidas = est.TotalSaidas.Add(r.TotalSaidas)
		est.SaldoTotal = est.SaldoTotal.Add(r.SaldoFinal)
	}

	for _, nome := range ordem {
		out.Unidades = append(out.Unidades, *porUnidade[nome])
	}
	sort.SliceStable(out.Unidades, func(i, j int) bool {
		return out.Unidades[i].TotalEntradas.GreaterThan(out.Unidades[j].TotalEntradas)
	})

	est := &out.Estatisticas
	if est.TotalRegistros > 0 {
		n := decimal.NewFromInt(int64(est.TotalRegistros))
		est.MediaClientes = decimal.NewFromInt(int64(est.TotalClientes)).DivRound(n, 2)
		est.MediaSaldo = est.SaldoTotal.DivRound(n, 2)
		est.MediaEntradas = est.TotalEntradas.DivRound(n, 2)
	}
	if est.TotalClientes > 0 {
		est.TicketMedio = est.TotalEntradas.DivRound(decimal.NewFromInt(int64(est.TotalClientes)), 2)
	}
	for _, inc := range out.Inconsistencias {
		switch inc.Severidade {
		case SeveridadeAlta:
			est.InconsistenciasAlta++
		case SeveridadeMedia:
			est.InconsistenciasMedia++
		case SeveridadeBaixa:
			est.InconsistenciasBaixa++
		}
	}

	return out
}

func verificar(r *model.Fechamento) []Inconsistencia {
	var found []Inconsistencia
	emit := func(t Tipo, descricao string) {
		found = append(found, Inconsistencia{
			Tipo:         t,
			Severidade:   t.Severidade(),
			FechamentoID: r.ID,
			Unidade:      nomeUnidade(r),
			Data:         r.Data,
			Descricao:    descricao,
		})
	}

	if problemas := ilegiveis(r); len(problemas) > 0 {
		emit(TipoRegistroMalformado, "Registro com dados inválidos: "+strings.Join(problemas, "; "))
	}
	if negativos := valoresNegativos(r); len(negativos) > 0 {
		emit(TipoValorNegativo, "Registro com valores negativos: "+strings.Join(negativos, "; "))
	}
	if r.Saidas.Malformada() {
		// Expenses are part of every recomputed total.
		return found
	}

	esperado := Calcular(r.SaldoAnterior, PagamentosDe(r), r.Saidas.Itens)

	if Diverge(r.SaldoFinal, esperado.SaldoFinal) {
		emit(TipoSaldoIncorreto, fmt.Sprintf("Saldo final deveria ser %s, mas está registrado como %s",
			FormatarMoeda(esperado.SaldoFinal), FormatarMoeda(r.SaldoFinal)))
	}
	if Diverge(r.TotalEntradas, esperado.TotalEntradas) {
		emit(TipoEntradasIncorretas, fmt.Sprintf("Total de entradas deveria ser %s, mas está registrado como %s",
			FormatarMoeda(esperado.TotalEntradas), FormatarMoeda(r.TotalEntradas)))
	}
	if Diverge(r.TotalSaidas, esperado.TotalSaidas) {
		emit(TipoSaidasIncorretas, fmt.Sprintf("Total de saídas deveria ser %s, mas está registrado como %s",
			FormatarMoeda(esperado.TotalSaidas), FormatarMoeda(r.TotalSaidas)))
	}
	if r.Clientes == 0 && r.TotalEntradas.IsPositive() {
		emit(TipoFaturamentoSemClientes, "Registro com faturamento mas sem clientes registrados")
	}
	return found
}

func nomeUnidade(r *model.Fechamento) string {
	if nome := r.NomeUnidade(); nome != "" {
		return nome
	}
	return UnidadeDesconhecida
}

// ilegiveis lists the item payloads that could not be decoded.
func ilegiveis(r *model.Fechamento) []string {
	var p []string
	if r.Saidas.Malformada() {
		p = append(p, "lista de saídas ilegível")
	}
	if r.VendasBebidas.Malformada() {
		p = append(p, "lista de bebidas ilegível")
	}
	return p
}

// valoresNegativos lists stored amounts and counters below zero. They are
// still computable, so the arithmetic checks run as well.
func valoresNegativos(r *model.Fechamento) []string {
	var p []string
	for campo, v := range map[string]decimal.Decimal{
		"debito": r.Debito, "credito": r.Credito, "pix": r.Pix, "dinheiro": r.Dinheiro,
	} {
		if v.IsNegative() {
			p = append(p, campo+" negativo")
		}
	}
	for i, s := range r.Saidas.Itens {
		if s.Valor.IsNegative() {
			p = append(p, fmt.Sprintf("saída #%d com valor negativo", i+1))
		}
	}
	if r.Clientes < 0 {
		p = append(p, "clientes negativo")
	}
	sort.Strings(p)
	return p
}

// FormatarMoeda renders an amount as "R$ 1234,56".
func FormatarMoeda(v decimal.Decimal) string {
	return "R$ " + strings.Replace(v.StringFixed(2), ".", ",", 1)
}
