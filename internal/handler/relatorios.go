package handler

import (
	"bytes"
	"net/http"
	"time"

	"caixadiario/internal/dto"
	"caixadiario/internal/service"

	"github.com/gin-gonic/gin"
)

type RelatoriosHandler struct{ svc service.RelatorioService }

func NewRelatoriosHandler(svc service.RelatorioService) *RelatoriosHandler {
	return &RelatoriosHandler{svc: svc}
}

// Gerar godoc
// @Summary Relatorio de conciliacao
// @Description Recalcula os totais de cada fechamento e lista as inconsistencias.
// @Tags relatorios
// @Produce json
// @Security BearerAuth
// @Param unidade_id query string false "Unidade"
// @Param data_inicio query string false "YYYY-MM-DD"
// @Param data_fim query string false "YYYY-MM-DD (inclusivo)"
// @Success 200 {object} dto.RelatorioResponse
// @Failure 422 {object} apierror.ValidationError
// @Router /v1/relatorios [get]
func (h *RelatoriosHandler) Gerar(c *gin.Context) {
	var filtro dto.FechamentoFilter
	if !bindQuery(c, &filtro) {
		return
	}
	resp, err := h.svc.Gerar(c.Request.Context(), filtro)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ExportarXLSX godoc
// @Summary Relatorio de conciliacao em planilha
// @Tags relatorios
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Success 200 {file} binary
// @Router /v1/relatorios/xlsx [get]
func (h *RelatoriosHandler) ExportarXLSX(c *gin.Context) {
	var filtro dto.FechamentoFilter
	if !bindQuery(c, &filtro) {
		return
	}
	var buf bytes.Buffer
	if err := h.svc.ExportarXLSX(c.Request.Context(), filtro, &buf); err != nil {
		respondError(c, err)
		return
	}
	nome := "relatorio_" + time.Now().Format("20060102") + ".xlsx"
	c.Header("Content-Disposition", `attachment; filename="`+nome+`"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}
