//go:build integration

package router

// End-to-end checks against real Postgres + Redis via testcontainers.
// Run with: go test -tags integration ./internal/router/... -v

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"caixadiario/internal/config"
	"caixadiario/internal/dto"
	"caixadiario/internal/infra"
	"caixadiario/internal/model"
	"caixadiario/internal/repository"
	"caixadiario/internal/worker"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
	"golang.org/x/crypto/bcrypt"
)

type testEnv struct {
	server  *httptest.Server
	rdb     *redis.Client
	unidade model.Unidade
	admin   string // JWT
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	pgC, err := tcPostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcPostgres.WithDatabase("caixadiario_test"),
		tcPostgres.WithUsername("caixa"),
		tcPostgres.WithPassword("caixa"),
		testcontainers.WithWaitStrategy(tcPostgres.BasicWaitStrategies()...),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	rdC, err := tcRedis.RunContainer(ctx, testcontainers.WithImage("redis:7-alpine"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(ctx) })

	rdURL, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)

	cfg := &config.Config{
		Env:                      "test",
		JWTSecret:                "test-secret-key",
		JWTExpirationHours:       8,
		JWTRefreshHours:          24,
		DatabaseURL:              pgURL,
		RedisURL:                 rdURL,
		PDFStoragePath:           t.TempDir(),
		FechamentoLockTTLSeconds: 10,
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	require.NoError(t, err)
	rdb, err := infra.NewRedis(cfg.RedisURL)
	require.NoError(t, err)

	env := &testEnv{rdb: rdb, unidade: model.Unidade{Nome: "THE BARBER Shopping Barra", Ativa: true}}
	require.NoError(t, repository.NewUnidadeRepository(db).Upsert(ctx, &env.unidade))

	hash, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, repository.NewUsuarioRepository(db).Create(ctx, &model.Usuario{
		Email: "admin@thebarber.com", Nome: "Administrador", PasswordHash: string(hash),
		Role: model.RoleAdmin, Ativo: true,
	}))

	env.server = httptest.NewServer(New(cfg, db, rdb))
	t.Cleanup(env.server.Close)

	env.admin = env.login(t, "admin@thebarber.com", "admin123")
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any, token string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.server.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

func (e *testEnv) login(t *testing.T, email, password string) string {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/v1/auth/login", dto.LoginRequest{Email: email, Password: password}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out dto.LoginResponse
	decodeJSON(t, resp, &out)
	return out.AccessToken
}

func fechamentoBody(unidadeID, debito, dinheiro string, saidas ...string) map[string]any {
	var itens []map[string]any
	for _, v := range saidas {
		itens = append(itens, map[string]any{"descricao": "despesa", "valor": v})
	}
	return map[string]any{
		"unidade_id": unidadeID, "clientes": 5, "cortes": 4,
		"debito": debito, "credito": "0", "pix": "0", "dinheiro": dinheiro,
		"saidas": itens,
	}
}

func TestFechamentoFlow(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	resp := env.do(t, http.MethodPost, "/v1/auth/signup",
		dto.SignupRequest{Email: "ana@thebarber.com", Nome: "Ana", Password: "segredo1"}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()
	user := env.login(t, "ana@thebarber.com", "segredo1")

	var unidades []dto.UnidadeResponse
	resp = env.do(t, http.MethodGet, "/v1/unidades", nil, user)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeJSON(t, resp, &unidades)
	require.Len(t, unidades, 1)
	assert.Equal(t, env.unidade.ID, unidades[0].ID)
	cached, err := env.rdb.Exists(ctx, "unidades:ativas").Result()
	require.NoError(t, err)
	assert.EqualValues(t, 1, cached)

	path := "/v1/unidades/" + env.unidade.ID + "/saldo-anterior"
	var saldo dto.SaldoAnteriorResponse
	resp = env.do(t, http.MethodGet, path, nil, user)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeJSON(t, resp, &saldo)
	assert.True(t, saldo.SaldoAnterior.IsZero())

	var primeiro dto.FechamentoResponse
	resp = env.do(t, http.MethodPost, "/v1/fechamentos", fechamentoBody(env.unidade.ID, "10", "50", "20"), user)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	decodeJSON(t, resp, &primeiro)
	assert.True(t, primeiro.TotalEntradas.Equal(decimal.NewFromInt(60)))
	assert.True(t, primeiro.SaldoFinal.Equal(decimal.NewFromInt(30)))
	assert.Equal(t, env.unidade.Nome, primeiro.UnidadeNome)

	var segundo dto.FechamentoResponse
	resp = env.do(t, http.MethodPost, "/v1/fechamentos", fechamentoBody(env.unidade.ID, "0", "40"), user)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	decodeJSON(t, resp, &segundo)
	assert.True(t, segundo.SaldoAnterior.Equal(decimal.NewFromInt(30)))
	assert.True(t, segundo.SaldoFinal.Equal(decimal.NewFromInt(70)))

	// A resumo job is queued per closing; no workers run in this test.
	n, err := env.rdb.LLen(ctx, worker.QueueResumo).Result()
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	// USER reads its own record, not the history.
	resp = env.do(t, http.MethodGet, "/v1/fechamentos/"+primeiro.ID, nil, user)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	resp = env.do(t, http.MethodGet, "/v1/fechamentos", nil, user)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodGet, "/v1/fechamentos/"+primeiro.ID+"/pdf", nil, user)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	resp.Body.Close()

	var lista dto.FechamentoListResponse
	resp = env.do(t, http.MethodGet, "/v1/fechamentos?unidade_id="+env.unidade.ID, nil, env.admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeJSON(t, resp, &lista)
	require.EqualValues(t, 2, lista.Total)
	assert.Equal(t, segundo.ID, lista.Data[0].ID)

	var rel dto.RelatorioResponse
	resp = env.do(t, http.MethodGet, "/v1/relatorios", nil, env.admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeJSON(t, resp, &rel)
	assert.Empty(t, rel.Inconsistencias)
	require.Len(t, rel.Unidades, 1)
	assert.Equal(t, 2, rel.Unidades[0].TotalRegistros)

	resp = env.do(t, http.MethodGet, "/v1/relatorios/xlsx", nil, env.admin)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestConcurrentClosingsChainBalances(t *testing.T) {
	env := setupTestEnv(t)
	const n = 5

	var wg sync.WaitGroup
	codes := make([]int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp := env.do(t, http.MethodPost, "/v1/fechamentos", fechamentoBody(env.unidade.ID, "0", "10"), env.admin)
			codes[i] = resp.StatusCode
			resp.Body.Close()
		}(i)
	}
	wg.Wait()

	for _, c := range codes {
		assert.Equal(t, http.StatusCreated, c)
	}

	// Serialized by the per-unit lock: each closing sees the previous balance.
	var saldo dto.SaldoAnteriorResponse
	resp := env.do(t, http.MethodGet, "/v1/unidades/"+env.unidade.ID+"/saldo-anterior", nil, env.admin)
	decodeJSON(t, resp, &saldo)
	assert.True(t, saldo.SaldoAnterior.Equal(decimal.NewFromInt(10*n)), saldo.SaldoAnterior.String())

	var rel dto.RelatorioResponse
	resp = env.do(t, http.MethodGet, "/v1/relatorios", nil, env.admin)
	decodeJSON(t, resp, &rel)
	assert.Empty(t, rel.Inconsistencias)
}
