package worker

// auditoria.go
// Daily reconciliation of the previous day's closings (gocron).

import (
	"context"
	"fmt"
	"strings"
	"time"

	"caixadiario/internal/conciliacao"
	"caixadiario/internal/service"

	"github.com/jasonlvhit/gocron"
	"github.com/rs/zerolog/log"
)

type AuditoriaConfig struct {
	Relatorios service.RelatorioService
	Emails     EmailEnqueuer // nil disables the e-mail summary
	EmailTo    string
	Horario    string // hh:mm:ss, local time
}

// StartAuditoria schedules RunAuditoria once a day and stops the scheduler
// when ctx is cancelled.
func StartAuditoria(ctx context.Context, cfg AuditoriaConfig) error {
	if _, err := time.Parse("15:04:05", cfg.Horario); err != nil {
		return fmt.Errorf("auditoria: horario %q invalido (hh:mm:ss): %w", cfg.Horario, err)
	}

	s := gocron.NewScheduler()
	s.Every(1).Day().At(cfg.Horario).Do(func() {
		if _, err := RunAuditoria(ctx, cfg, time.Now()); err != nil {
			log.Error().Err(err).Msg("auditoria: run failed")
		}
	})
	stop := s.Start()
	log.Info().Str("horario", cfg.Horario).Msg("auditoria: scheduled")

	go func() {
		<-ctx.Done()
		s.Clear()
		close(stop)
		log.Info().Msg("auditoria: shutting down")
	}()
	return nil
}

// RunAuditoria analyzes the calendar day before agora and reports findings.
func RunAuditoria(ctx context.Context, cfg AuditoriaConfig, agora time.Time) (conciliacao.Analise, error) {
	fim := time.Date(agora.Year(), agora.Month(), agora.Day(), 0, 0, 0, 0, agora.Location())
	inicio := fim.AddDate(0, 0, -1)

	analise, err := cfg.Relatorios.AnalisarPeriodo(ctx, inicio, fim)
	if err != nil {
		return analise, err
	}

	est := analise.Estatisticas
	log.Info().
		Str("dia", inicio.Format("2006-01-02")).
		Int("registros", est.TotalRegistros).
		Int("alta", est.InconsistenciasAlta).
		Int("media", est.InconsistenciasMedia).
		Int("baixa", est.InconsistenciasBaixa).
		Msg("auditoria: concluida")
	for _, inc := range analise.Inconsistencias {
		log.Warn().
			Str("tipo", inc.Tipo.Codigo()).
			Str("severidade", inc.Severidade.String()).
			Str("unidade", inc.Unidade).
			Str("fechamento_id", inc.FechamentoID).
			Msg(inc.Descricao)
	}

	if est.InconsistenciasAlta == 0 || cfg.Emails == nil || cfg.EmailTo == "" {
		return analise, nil
	}
	err = cfg.Emails.EnqueueEmail(ctx, EmailJobPayload{
		ToEmail: cfg.EmailTo,
		Subject: fmt.Sprintf("Auditoria de caixa %s: %d inconsistência(s) grave(s)", inicio.Format("02/01/2006"), est.InconsistenciasAlta),
		Body:    resumoAuditoria(inicio, analise),
	})
	return analise, err
}

func resumoAuditoria(dia time.Time, a conciliacao.Analise) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Auditoria dos fechamentos de %s\n\n", dia.Format("02/01/2006"))
	est := a.Estatisticas
	fmt.Fprintf(&b, "Registros: %d\nEntradas: %s\nFaturamento/dia: %s\nTicket médio: %s\nSaldo total: %s\n\n",
		est.TotalRegistros,
		conciliacao.FormatarMoeda(est.TotalEntradas),
		conciliacao.FormatarMoeda(est.MediaEntradas),
		conciliacao.FormatarMoeda(est.TicketMedio),
		conciliacao.FormatarMoeda(est.SaldoTotal))
	for _, inc := range a.Inconsistencias {
		fmt.Fprintf(&b, "[%s] %s - %s: %s\n", strings.ToUpper(inc.Severidade.String()), inc.Unidade, inc.Tipo, inc.Descricao)
	}
	return b.String()
}
