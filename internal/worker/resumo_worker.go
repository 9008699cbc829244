package worker

// resumo_worker.go
// Renders the closing summary PDF after each closing and, when a recipient
// is configured, queues it for e-mail.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"caixadiario/internal/conciliacao"
	"caixadiario/internal/infra"
	"caixadiario/internal/repository"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type ResumoJobPayload struct {
	FechamentoID string `json:"fechamento_id"`
}

// EmailEnqueuer is satisfied by *Dispatcher.
type EmailEnqueuer interface {
	EnqueueEmail(ctx context.Context, payload EmailJobPayload) error
}

type ResumoWorker struct {
	repo        repository.FechamentoRepository
	storagePath string
	emails      EmailEnqueuer
	emailTo     string
}

// NewResumoWorker creates the worker. emails may be nil or emailTo empty to
// disable delivery.
func NewResumoWorker(repo repository.FechamentoRepository, storagePath string, emails EmailEnqueuer, emailTo string) *ResumoWorker {
	return &ResumoWorker{repo: repo, storagePath: storagePath, emails: emails, emailTo: emailTo}
}

func (w *ResumoWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload ResumoJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.FechamentoID == "" {
		return fmt.Errorf("resumo_worker: invalid payload: %w", ErrPermanent)
	}

	f, err := w.repo.FindByID(ctx, payload.FechamentoID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("resumo_worker: fechamento %s: %w", payload.FechamentoID, ErrPermanent)
	}
	if err != nil {
		return fmt.Errorf("resumo_worker: load fechamento: %w", err)
	}

	path, err := infra.SalvarResumoPDF(f, w.storagePath)
	if err != nil {
		return err
	}
	log.Info().Str("fechamento_id", f.ID).Str("pdf", path).Msg("resumo_worker: pdf generated")

	if w.emails == nil || w.emailTo == "" {
		return nil
	}
	return w.emails.EnqueueEmail(ctx, EmailJobPayload{
		ToEmail: w.emailTo,
		Subject: fmt.Sprintf("Fechamento %s - %s", f.NomeUnidade(), f.Data.Format("02/01/2006")),
		Body: fmt.Sprintf("Fechamento de caixa registrado.\n\nUnidade: %s\nEntradas: %s\nSaídas: %s\nSaldo final: %s\n",
			f.NomeUnidade(),
			conciliacao.FormatarMoeda(f.TotalEntradas),
			conciliacao.FormatarMoeda(f.TotalSaidas),
			conciliacao.FormatarMoeda(f.SaldoFinal)),
		Anexo: path,
	})
}
