// Package conciliacao holds the single arithmetic definition of a correct
// closing (totais.go) and the reconciliation pass that checks stored closings
// against it (analise.go). Everything here is pure: no I/O, no clock.
package conciliacao

import (
	"caixadiario/internal/model"

	"github.com/shopspring/decimal"
)

// Tolerancia is the absolute difference (one cent) above which a stored
// derived value is considered to disagree with its recomputed value.
var Tolerancia = decimal.New(1, -2)

// Pagamentos groups the four payment-method amounts of a closing.
type Pagamentos struct {
	Debito   decimal.Decimal
	Credito  decimal.Decimal
	Pix      decimal.Decimal
	Dinheiro decimal.Decimal
}

// Totais are the derived fields of a closing.
type Totais struct {
	TotalEntradas decimal.Decimal
	TotalSaidas   decimal.Decimal
	SaldoAnterior decimal.Decimal
	SaldoFinal    decimal.Decimal
}

// TotalEntradas = debito + credito + pix + dinheiro.
func TotalEntradas(debito, credito, pix, dinheiro decimal.Decimal) decimal.Decimal {
	return debito.Add(credito).Add(pix).Add(dinheiro)
}

// TotalSaidas sums the expense line amounts.
func TotalSaidas(saidas []model.Saida) decimal.Decimal {
	total := decimal.Zero
	for _, s := range saidas {
		total = total.Add(s.Valor)
	}
	return total
}

// SaldoFinal = saldoAnterior + dinheiro - totalSaidas.
// Only cash stays in the till; card and pix amounts never touch the balance.
func SaldoFinal(saldoAnterior, dinheiro, totalSaidas decimal.Decimal) decimal.Decimal {
	return saldoAnterior.Add(dinheiro).Sub(totalSaidas)
}

// Calcular derives all totals of a closing from its itemized inputs.
func Calcular(saldoAnterior decimal.Decimal, p Pagamentos, saidas []model.Saida) Totais {
	totalSaidas := TotalSaidas(saidas)
	return Totais{
		TotalEntradas: TotalEntradas(p.Debito, p.Credito, p.Pix, p.Dinheiro),
		TotalSaidas:   totalSaidas,
		SaldoAnterior: saldoAnterior,
		SaldoFinal:    SaldoFinal(saldoAnterior, p.Dinheiro, totalSaidas),
	}
}

// Diverge reports whether registrado and esperado differ by more than Tolerancia.
func Diverge(registrado, esperado decimal.Decimal) bool {
	return registrado.Sub(esperado).Abs().GreaterThan(Tolerancia)
}

// PagamentosDe extracts the payment amounts stored on a closing.
func PagamentosDe(f *model.Fechamento) Pagamentos {
	return Pagamentos{Debito: f.Debito, Credito: f.Credito, Pix: f.Pix, Dinheiro: f.Dinheiro}
}
