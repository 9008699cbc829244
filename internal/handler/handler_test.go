package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"caixadiario/internal/conciliacao"
	"caixadiario/internal/dto"
	"caixadiario/internal/middleware"
	"caixadiario/internal/model"
	"caixadiario/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

// ── Stubs ─────────────────────────────────────────────────────────────────────

type stubFechamentos struct {
	criarErr   error
	criado     *dto.CriarFechamentoRequest
	quem       string
	registro   *dto.FechamentoResponse
	saldo      decimal.Decimal
	saldoErr   error
	listarErr  error
	ultimoFilt dto.FechamentoFilter
}

func (s *stubFechamentos) SaldoAnterior(_ context.Context, _ string) (decimal.Decimal, error) {
	return s.saldo, s.saldoErr
}

func (s *stubFechamentos) Criar(_ context.Context, responsavelID string, req dto.CriarFechamentoRequest) (*dto.FechamentoResponse, error) {
	if s.criarErr != nil {
		return nil, s.criarErr
	}
	s.criado = &req
	s.quem = responsavelID
	return &dto.FechamentoResponse{ID: "f-1", UnidadeID: req.UnidadeID, ResponsavelID: responsavelID}, nil
}

func (s *stubFechamentos) Obter(_ context.Context, id string) (*dto.FechamentoResponse, error) {
	if s.registro == nil || s.registro.ID != id {
		return nil, fmt.Errorf("fechamento %s: %w", id, service.ErrNaoEncontrado)
	}
	return s.registro, nil
}

func (s *stubFechamentos) Listar(_ context.Context, filtro dto.FechamentoFilter) (*dto.FechamentoListResponse, error) {
	s.ultimoFilt = filtro
	if s.listarErr != nil {
		return nil, s.listarErr
	}
	return &dto.FechamentoListResponse{Data: []dto.FechamentoResponse{}, Page: filtro.Page, Limit: filtro.Limit}, nil
}

func (s *stubFechamentos) ResumoPDF(ctx context.Context, id string) ([]byte, *dto.FechamentoResponse, error) {
	r, err := s.Obter(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return []byte("%PDF-1.3 stub"), r, nil
}

type stubRelatorios struct{ err error }

func (s *stubRelatorios) Gerar(_ context.Context, filtro dto.FechamentoFilter) (*dto.RelatorioResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &dto.RelatorioResponse{UnidadeID: filtro.UnidadeID, Analise: conciliacao.Analisar(nil)}, nil
}

func (s *stubRelatorios) ExportarXLSX(_ context.Context, _ dto.FechamentoFilter, w io.Writer) error {
	if s.err != nil {
		return s.err
	}
	_, err := w.Write([]byte("PK"))
	return err
}

func (s *stubRelatorios) AnalisarPeriodo(context.Context, time.Time, time.Time) (conciliacao.Analise, error) {
	return conciliacao.Analisar(nil), nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// as injects claims the way JWTAuth would.
func as(userID, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ClaimsKey, &middleware.JWTClaims{UserID: userID, Role: role})
		c.Next()
	}
}

func engine(fech *stubFechamentos, rel *stubRelatorios, userID, role string) *gin.Engine {
	r := gin.New()
	g := r.Group("/v1", as(userID, role))
	fh := NewFechamentosHandler(fech)
	g.POST("/fechamentos", fh.Criar)
	g.GET("/fechamentos", fh.Listar)
	g.GET("/fechamentos/:id", fh.Obter)
	g.GET("/fechamentos/:id/pdf", fh.PDF)
	uh := NewUnidadesHandler(nil, fech)
	g.GET("/unidades/:id/saldo-anterior", uh.SaldoAnterior)
	rh := NewRelatoriosHandler(rel)
	g.GET("/relatorios", rh.Gerar)
	g.GET("/relatorios/xlsx", rh.ExportarXLSX)
	return r
}

func send(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

// ── Fechamentos ───────────────────────────────────────────────────────────────

func TestCriar_Created(t *testing.T) {
	fech := &stubFechamentos{}
	r := engine(fech, nil, "user-1", model.RoleUser)

	w := send(r, http.MethodPost, "/v1/fechamentos",
		`{"unidade_id":"u-1","clientes":5,"debito":"10","dinheiro":"50","saidas":[{"descricao":"Limpeza","valor":"20"}]}`)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.NotNil(t, fech.criado)
	assert.Equal(t, "user-1", fech.quem)
	assert.True(t, fech.criado.Dinheiro.Equal(decimal.NewFromInt(50)))
	require.Len(t, fech.criado.Saidas, 1)

	var resp dto.FechamentoResponse
	decode(t, w, &resp)
	assert.Equal(t, "f-1", resp.ID)
}

func TestCriar_NegativeAmountIs422WithWireNames(t *testing.T) {
	fech := &stubFechamentos{}
	r := engine(fech, nil, "user-1", model.RoleUser)

	w := send(r, http.MethodPost, "/v1/fechamentos",
		`{"unidade_id":"u-1","cortes":-1,"pix":"-3","saidas":[{"descricao":"x","valor":"-1"}]}`)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var body struct {
		Fields map[string]string `json:"fields"`
	}
	decode(t, w, &body)
	assert.Equal(t, "min", body.Fields["cortes"])
	assert.Equal(t, "min", body.Fields["pix"])
	assert.Equal(t, "min", body.Fields["saidas[0].valor"])
	assert.Nil(t, fech.criado)
}

func TestCriar_MalformedJSONIs400(t *testing.T) {
	r := engine(&stubFechamentos{}, nil, "user-1", model.RoleUser)
	w := send(r, http.MethodPost, "/v1/fechamentos", `{"unidade_id":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCriar_ServiceErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{&service.ValidationError{Fields: map[string]string{"unidade_id": "unidade inativa"}}, http.StatusUnprocessableEntity},
		{fmt.Errorf("unidade x: %w", service.ErrNaoEncontrado), http.StatusNotFound},
		{service.ErrFechamentoEmAndamento, http.StatusConflict},
		{fmt.Errorf("gravar: %w: %w", service.ErrStoreIndisponivel, errors.New("dial tcp")), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		r := engine(&stubFechamentos{criarErr: tc.err}, nil, "user-1", model.RoleUser)
		w := send(r, http.MethodPost, "/v1/fechamentos", `{"unidade_id":"u-1"}`)
		assert.Equal(t, tc.code, w.Code, tc.err.Error())
		assert.NotContains(t, w.Body.String(), "dial tcp")
	}
}

func TestObter_OwnershipForUsers(t *testing.T) {
	fech := &stubFechamentos{registro: &dto.FechamentoResponse{ID: "f-9", ResponsavelID: "owner"}}

	w := send(engine(fech, nil, "owner", model.RoleUser), http.MethodGet, "/v1/fechamentos/f-9", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = send(engine(fech, nil, "other", model.RoleUser), http.MethodGet, "/v1/fechamentos/f-9", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = send(engine(fech, nil, "admin", model.RoleAdmin), http.MethodGet, "/v1/fechamentos/f-9", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = send(engine(fech, nil, "admin", model.RoleAdmin), http.MethodGet, "/v1/fechamentos/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPDF_ServesDocument(t *testing.T) {
	fech := &stubFechamentos{registro: &dto.FechamentoResponse{ID: "f-9", ResponsavelID: "owner"}}

	w := send(engine(fech, nil, "owner", model.RoleUser), http.MethodGet, "/v1/fechamentos/f-9/pdf", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "fechamento_f-9.pdf")
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))

	w = send(engine(fech, nil, "other", model.RoleUser), http.MethodGet, "/v1/fechamentos/f-9/pdf", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListar_DefaultsAndBounds(t *testing.T) {
	fech := &stubFechamentos{}
	r := engine(fech, nil, "admin", model.RoleAdmin)

	w := send(r, http.MethodGet, "/v1/fechamentos?unidade_id=u-1&data_inicio=2026-03-01", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, fech.ultimoFilt.Page)
	assert.Equal(t, 20, fech.ultimoFilt.Limit)
	assert.Equal(t, "u-1", fech.ultimoFilt.UnidadeID)
	assert.Equal(t, "2026-03-01", fech.ultimoFilt.DataInicio)

	w = send(r, http.MethodGet, "/v1/fechamentos?limit=500", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), `"limit"`)
}

// ── Unidades ──────────────────────────────────────────────────────────────────

func TestSaldoAnterior(t *testing.T) {
	fech := &stubFechamentos{saldo: decimal.RequireFromString("70.50")}
	w := send(engine(fech, nil, "u", model.RoleUser), http.MethodGet, "/v1/unidades/u-1/saldo-anterior", "")

	require.Equal(t, http.StatusOK, w.Code)
	var resp dto.SaldoAnteriorResponse
	decode(t, w, &resp)
	assert.Equal(t, "u-1", resp.UnidadeID)
	assert.True(t, resp.SaldoAnterior.Equal(decimal.RequireFromString("70.5")))

	fech.saldoErr = fmt.Errorf("x: %w", service.ErrStoreIndisponivel)
	w = send(engine(fech, nil, "u", model.RoleUser), http.MethodGet, "/v1/unidades/u-1/saldo-anterior", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

// ── Relatorios ────────────────────────────────────────────────────────────────

func TestRelatorios(t *testing.T) {
	r := engine(&stubFechamentos{}, &stubRelatorios{}, "admin", model.RoleAdmin)

	w := send(r, http.MethodGet, "/v1/relatorios?unidade_id=u-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"inconsistencias":[]`)

	w = send(r, http.MethodGet, "/v1/relatorios/xlsx", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "spreadsheetml")
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")

	bad := engine(&stubFechamentos{}, &stubRelatorios{err: &service.ValidationError{Fields: map[string]string{"data_inicio": "data invalida"}}}, "admin", model.RoleAdmin)
	w = send(bad, http.MethodGet, "/v1/relatorios?data_inicio=ontem", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

// ── Auth ──────────────────────────────────────────────────────────────────────

type stubAuth struct{}

func (stubAuth) Login(_ context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	if req.Password != "certa" {
		return nil, service.ErrCredenciais
	}
	return &dto.LoginResponse{AccessToken: "tok"}, nil
}

func (stubAuth) Refresh(context.Context, string) (*dto.LoginResponse, error) {
	return nil, service.ErrCredenciais
}

func (stubAuth) Signup(_ context.Context, req dto.SignupRequest) (*dto.UsuarioResponse, error) {
	if req.Email == "dup@x.com" {
		return nil, service.ErrEmailEmUso
	}
	return &dto.UsuarioResponse{ID: "n", Email: req.Email, Role: model.RoleUser}, nil
}

func TestAuthHandler(t *testing.T) {
	h := NewAuthHandler(stubAuth{})
	r := gin.New()
	r.POST("/login", h.Login)
	r.POST("/refresh", h.Refresh)
	r.POST("/signup", h.Signup)

	w := send(r, http.MethodPost, "/login", `{"email":"a@x.com","password":"certa"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = send(r, http.MethodPost, "/login", `{"email":"a@x.com","password":"errada"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = send(r, http.MethodPost, "/refresh", `{"refresh_token":"x"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = send(r, http.MethodPost, "/signup", `{"email":"novo@x.com","nome":"Novo","password":"123456"}`)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = send(r, http.MethodPost, "/signup", `{"email":"dup@x.com","nome":"Dup","password":"123456"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = send(r, http.MethodPost, "/signup", `{"email":"curta@x.com","nome":"C","password":"123"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}
