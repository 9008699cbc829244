package service

import (
	"context"
	"encoding/json"
	"time"

	"caixadiario/internal/dto"
	"caixadiario/internal/repository"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	unidadesCacheKey = "unidades:ativas"
	unidadesCacheTTL = 10 * time.Minute
)

type UnidadeService interface {
	ListarAtivas(ctx context.Context) ([]dto.UnidadeResponse, error)
}

type unidadeService struct {
	repo repository.UnidadeRepository
	rdb  *redis.Client
}

// NewUnidadeService caches the active-unit list in Redis when rdb is set.
// Units only change through seeding, which clears the key.
func NewUnidadeService(repo repository.UnidadeRepository, rdb *redis.Client) UnidadeService {
	return &unidadeService{repo: repo, rdb: rdb}
}

func (s *unidadeService) ListarAtivas(ctx context.Context) ([]dto.UnidadeResponse, error) {
	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, unidadesCacheKey).Bytes(); err == nil {
			var resp []dto.UnidadeResponse
			if json.Unmarshal(cached, &resp) == nil {
				return resp, nil
			}
		}
	}

	unidades, err := s.repo.ListAtivas(ctx)
	if err != nil {
		return nil, indisponivel("listar unidades", err)
	}
	resp := make([]dto.UnidadeResponse, len(unidades))
	for i, u := range unidades {
		resp[i] = dto.UnidadeResponse{ID: u.ID, Nome: u.Nome, Endereco: u.Endereco, Ativa: u.Ativa}
	}

	// Populate cache — best effort
	if s.rdb != nil {
		if b, err := json.Marshal(resp); err == nil {
			if err := s.rdb.Set(ctx, unidadesCacheKey, b, unidadesCacheTTL).Err(); err != nil {
				log.Warn().Err(err).Msg("unidades: cache write failed")
			}
		}
	}
	return resp, nil
}

// InvalidarCacheUnidades drops the cached active-unit list.
func InvalidarCacheUnidades(ctx context.Context, rdb *redis.Client) error {
	return rdb.Del(ctx, unidadesCacheKey).Err()
}
