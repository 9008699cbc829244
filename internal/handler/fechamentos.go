package handler

import (
	"net/http"

	"caixadiario/internal/dto"
	"caixadiario/internal/middleware"
	"caixadiario/internal/model"
	"caixadiario/internal/service"

	"github.com/gin-gonic/gin"
)

type FechamentosHandler struct{ svc service.FechamentoService }

func NewFechamentosHandler(svc service.FechamentoService) *FechamentosHandler {
	return &FechamentosHandler{svc: svc}
}

// Criar godoc
// @Summary Registra o fechamento de caixa do dia
// @Description Totais e saldo anterior sao calculados no servidor.
// @Tags fechamentos
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CriarFechamentoRequest true "Dados do fechamento"
// @Success 201 {object} dto.FechamentoResponse
// @Failure 404 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError
// @Failure 422 {object} apierror.ValidationError
// @Router /v1/fechamentos [post]
func (h *FechamentosHandler) Criar(c *gin.Context) {
	var req dto.CriarFechamentoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	claims := middleware.GetClaims(c)

	resp, err := h.svc.Criar(c.Request.Context(), claims.UserID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Listar godoc
// @Summary Historico de fechamentos
// @Tags fechamentos
// @Produce json
// @Security BearerAuth
// @Param unidade_id query string false "Unidade"
// @Param data_inicio query string false "YYYY-MM-DD"
// @Param data_fim query string false "YYYY-MM-DD (inclusivo)"
// @Param page query int false "Pagina"
// @Param limit query int false "Itens por pagina"
// @Success 200 {object} dto.FechamentoListResponse
// @Router /v1/fechamentos [get]
func (h *FechamentosHandler) Listar(c *gin.Context) {
	var filtro dto.FechamentoFilter
	if !bindQuery(c, &filtro) {
		return
	}
	resp, err := h.svc.Listar(c.Request.Context(), filtro)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Obter godoc
// @Summary Resumo de um fechamento
// @Tags fechamentos
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID do fechamento"
// @Success 200 {object} dto.FechamentoResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/fechamentos/{id} [get]
func (h *FechamentosHandler) Obter(c *gin.Context) {
	resp, err := h.svc.Obter(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if !podeVer(c, resp) {
		respondError(c, service.ErrNaoEncontrado)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// PDF godoc
// @Summary Resumo do fechamento em PDF
// @Tags fechamentos
// @Produce application/pdf
// @Security BearerAuth
// @Param id path string true "ID do fechamento"
// @Success 200 {file} binary
// @Router /v1/fechamentos/{id}/pdf [get]
func (h *FechamentosHandler) PDF(c *gin.Context) {
	pdf, meta, err := h.svc.ResumoPDF(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if !podeVer(c, meta) {
		respondError(c, service.ErrNaoEncontrado)
		return
	}
	c.Header("Content-Disposition", `inline; filename="fechamento_`+meta.ID+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// podeVer: admins see everything, users only closings they prepared.
func podeVer(c *gin.Context, f *dto.FechamentoResponse) bool {
	claims := middleware.GetClaims(c)
	if claims == nil {
		return false
	}
	return claims.Role == model.RoleAdmin || claims.UserID == f.ResponsavelID
}
