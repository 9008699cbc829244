package handler

import (
	"net/http"

	"caixadiario/internal/dto"
	"caixadiario/internal/service"

	"github.com/gin-gonic/gin"
)

type UnidadesHandler struct {
	unidades    service.UnidadeService
	fechamentos service.FechamentoService
}

func NewUnidadesHandler(unidades service.UnidadeService, fechamentos service.FechamentoService) *UnidadesHandler {
	return &UnidadesHandler{unidades: unidades, fechamentos: fechamentos}
}

// Listar godoc
// @Summary Lista as unidades ativas
// @Tags unidades
// @Produce json
// @Security BearerAuth
// @Success 200 {array} dto.UnidadeResponse
// @Router /v1/unidades [get]
func (h *UnidadesHandler) Listar(c *gin.Context) {
	resp, err := h.unidades.ListarAtivas(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// SaldoAnterior godoc
// @Summary Saldo final do ultimo fechamento da unidade (0 se nenhum)
// @Tags unidades
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID da unidade"
// @Success 200 {object} dto.SaldoAnteriorResponse
// @Failure 503 {object} apierror.APIError
// @Router /v1/unidades/{id}/saldo-anterior [get]
func (h *UnidadesHandler) SaldoAnterior(c *gin.Context) {
	id := c.Param("id")
	saldo, err := h.fechamentos.SaldoAnterior(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.SaldoAnteriorResponse{UnidadeID: id, SaldoAnterior: saldo})
}
