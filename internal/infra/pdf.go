package infra

// pdf.go renders the A4 closing summary ("resumo") with go-pdf/fpdf:
// unit header, services, drink sales, payment methods, expenses and the
// balance block. Served on demand by the API and written to disk by the
// resumo worker.

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"caixadiario/internal/model"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

// ResumoFileName is the on-disk name of a closing summary.
func ResumoFileName(f *model.Fechamento) string {
	return fmt.Sprintf("fechamento_%s_%s.pdf", f.Data.Format("20060102"), f.ID)
}

// SalvarResumoPDF writes the summary into storagePath (created if needed) and
// returns the file path.
func SalvarResumoPDF(f *model.Fechamento, storagePath string) (string, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}
	path := filepath.Join(storagePath, ResumoFileName(f))

	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("pdf: create file: %w", err)
	}
	if err := EscreverResumoPDF(f, out); err != nil {
		out.Close()
		return "", err
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("pdf: close file: %w", err)
	}
	return path, nil
}

func moeda(v decimal.Decimal) string {
	return "R$ " + strings.Replace(v.StringFixed(2), ".", ",", 1)
}

// EscreverResumoPDF renders the summary of f into w.
func EscreverResumoPDF(f *model.Fechamento, w io.Writer) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 30
	labelW := contentW * 0.65
	valueW := contentW - labelW

	secao := func(titulo string) {
		pdf.Ln(3)
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(contentW, 7, tr(titulo), "B", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
	}
	linha := func(label, valor string) {
		pdf.CellFormat(labelW, 6, tr(label), "", 0, "L", false, 0, "")
		pdf.CellFormat(valueW, 6, tr(valor), "", 1, "R", false, 0, "")
	}

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 15)
	pdf.CellFormat(contentW, 9, tr("Fechamento de Caixa"), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	unidade := f.NomeUnidade()
	if unidade == "" {
		unidade = f.UnidadeID
	}
	pdf.CellFormat(contentW, 6, tr(unidade), "", 1, "C", false, 0, "")
	horario := f.Data.Format("02/01/2006 15:04")
	if f.HorarioFechamento != "" {
		horario += " (" + f.HorarioFechamento + ")"
	}
	pdf.CellFormat(contentW, 6, tr(horario), "", 1, "C", false, 0, "")
	if f.Responsavel != nil {
		pdf.CellFormat(contentW, 6, tr("Responsável: "+f.Responsavel.Nome), "", 1, "C", false, 0, "")
	}

	// ── Serviços ─────────────────────────────────────────────────────────────
	secao("Serviços")
	for _, s := range []struct {
		label string
		n     int
	}{
		{"Clientes", f.Clientes}, {"Cortes", f.Cortes}, {"Corte infantil", f.CorteInfantil},
		{"Corte feminino", f.CorteFeminino}, {"Barbas", f.Barbas}, {"Barba terapia", f.BarbaTerapia},
		{"Sobrancelha", f.Sobrancelha}, {"Desenho", f.Desenho}, {"Pezinho", f.Pezinho},
		{"Freestyle", f.Freestyle}, {"Esfoliação", f.Esfoliacao}, {"Limpeza de pele", f.LimpezaPele},
	} {
		if s.n > 0 || s.label == "Clientes" {
			linha(s.label, fmt.Sprintf("%d", s.n))
		}
	}

	// ── Bebidas / produtos ───────────────────────────────────────────────────
	if len(f.VendasBebidas.Itens) > 0 || f.VendaProdutos != nil {
		secao("Vendas")
		for _, b := range f.VendasBebidas.Itens {
			linha(fmt.Sprintf("%s x%d", b.Item, b.Quantidade), moeda(b.Valor))
		}
		if f.VendaProdutos != nil && *f.VendaProdutos != "" {
			pdf.MultiCell(contentW, 5, tr("Produtos: "+*f.VendaProdutos), "", "L", false)
		}
	}
	secao("Estoque")
	linha("Água", fmt.Sprintf("%d", f.EstoqueAgua))
	linha("Refrigerante", fmt.Sprintf("%d", f.EstoqueRefri))
	linha("Cerveja", fmt.Sprintf("%d", f.EstoqueCerveja))

	// ── Pagamentos ───────────────────────────────────────────────────────────
	secao("Entradas")
	linha("Débito", moeda(f.Debito))
	linha("Crédito", moeda(f.Credito))
	linha("Pix", moeda(f.Pix))
	linha("Dinheiro", moeda(f.Dinheiro))
	pdf.SetFont("Helvetica", "B", 10)
	linha("Total de entradas", moeda(f.TotalEntradas))

	secao("Saídas")
	for _, s := range f.Saidas.Itens {
		linha(s.Descricao, moeda(s.Valor))
	}
	pdf.SetFont("Helvetica", "B", 10)
	linha("Total de saídas", moeda(f.TotalSaidas))

	// ── Saldo ────────────────────────────────────────────────────────────────
	secao("Caixa")
	linha("Saldo anterior", moeda(f.SaldoAnterior))
	linha("+ Dinheiro", moeda(f.Dinheiro))
	linha("- Saídas", moeda(f.TotalSaidas))
	pdf.SetFont("Helvetica", "B", 12)
	linha("Saldo final", moeda(f.SaldoFinal))

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.CellFormat(contentW, 4, tr("Fechamento "+f.ID), "", 1, "C", false, 0, "")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("pdf: render: %w", err)
	}
	return nil
}
