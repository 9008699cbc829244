package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"caixadiario/internal/infra"
	"caixadiario/internal/model"
	"caixadiario/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ── FechamentoRepository stub ─────────────────────────────────────────────────

type memFechamentoRepo struct {
	mu        sync.Mutex
	rows      []model.Fechamento
	unidades  *memUnidadeRepo
	latestErr error
	createErr error
	findErr   error
	calls     int
}

func (r *memFechamentoRepo) FindLatestByUnidade(_ context.Context, unidadeID string) (*model.Fechamento, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.latestErr != nil {
		return nil, r.latestErr
	}
	var latest *model.Fechamento
	for i := range r.rows {
		f := &r.rows[i]
		if f.UnidadeID != unidadeID {
			continue
		}
		if latest == nil || f.Data.After(latest.Data) ||
			(f.Data.Equal(latest.Data) && f.CreatedAt.After(latest.CreatedAt)) {
			latest = f
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (r *memFechamentoRepo) Create(_ context.Context, f *model.Fechamento) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.createErr != nil {
		return r.createErr
	}
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	f.CreatedAt = time.Now()
	if r.unidades != nil {
		if u, ok := r.unidades.byID[f.UnidadeID]; ok {
			cp := u
			f.Unidade = &cp
		}
	}
	r.rows = append(r.rows, *f)
	return nil
}

func (r *memFechamentoRepo) FindByID(_ context.Context, id string) (*model.Fechamento, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	for i := range r.rows {
		if r.rows[i].ID == id {
			cp := r.rows[i]
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memFechamentoRepo) FindMany(_ context.Context, filter repository.FechamentoFilter) ([]model.Fechamento, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.findErr != nil {
		return nil, r.findErr
	}
	var out []model.Fechamento
	for _, f := range r.rows {
		if filter.UnidadeID != "" && f.UnidadeID != filter.UnidadeID {
			continue
		}
		if filter.DataInicio != nil && f.Data.Before(*filter.DataInicio) {
			continue
		}
		if filter.DataFim != nil && !f.Data.Before(*filter.DataFim) {
			continue
		}
		out = append(out, f)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Data.After(out[j].Data) })
	return out, nil
}

func (r *memFechamentoRepo) List(ctx context.Context, filter repository.FechamentoFilter, page, limit int) ([]model.Fechamento, int64, error) {
	all, err := r.FindMany(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	start := (page - 1) * limit
	if start > len(all) {
		start = len(all)
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], int64(len(all)), nil
}

// ── UnidadeRepository stub ────────────────────────────────────────────────────

type memUnidadeRepo struct {
	byID  map[string]model.Unidade
	err   error
	calls int
}

func newMemUnidades(unidades ...model.Unidade) *memUnidadeRepo {
	r := &memUnidadeRepo{byID: map[string]model.Unidade{}}
	for _, u := range unidades {
		r.byID[u.ID] = u
	}
	return r
}

func (r *memUnidadeRepo) FindByID(_ context.Context, id string) (*model.Unidade, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	u, ok := r.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

func (r *memUnidadeRepo) ListAtivas(_ context.Context) ([]model.Unidade, error) {
	var out []model.Unidade
	for _, u := range r.byID {
		if u.Ativa {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Nome < out[j].Nome })
	return out, nil
}

func (r *memUnidadeRepo) Upsert(_ context.Context, u *model.Unidade) error {
	r.byID[u.ID] = *u
	return nil
}

// ── UsuarioRepository stub ────────────────────────────────────────────────────

type memUsuarioRepo struct {
	byID map[string]model.Usuario
}

func newMemUsuarios() *memUsuarioRepo { return &memUsuarioRepo{byID: map[string]model.Usuario{}} }

func (r *memUsuarioRepo) Create(_ context.Context, u *model.Usuario) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	r.byID[u.ID] = *u
	return nil
}

func (r *memUsuarioRepo) FindByEmail(_ context.Context, email string) (*model.Usuario, error) {
	for _, u := range r.byID {
		if u.Email == email && u.Ativo {
			cp := u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memUsuarioRepo) FindByID(_ context.Context, id string) (*model.Usuario, error) {
	u, ok := r.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

// ── Locker / enqueuer fakes ───────────────────────────────────────────────────

type fakeLock struct{ l *fakeLocker }

func (k fakeLock) Release(context.Context) error {
	k.l.mu.Lock()
	defer k.l.mu.Unlock()
	k.l.released++
	return nil
}

type fakeLocker struct {
	mu       sync.Mutex
	keys     []string
	released int
	err      error
}

func (l *fakeLocker) Obtain(_ context.Context, key string, _ time.Duration) (infra.Lock, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.keys = append(l.keys, key)
	if l.err != nil {
		return nil, l.err
	}
	return fakeLock{l: l}, nil
}

type fakeJobs struct {
	ids []string
	err error
}

func (j *fakeJobs) EnqueueResumo(_ context.Context, id string) error {
	j.ids = append(j.ids, id)
	return j.err
}

var errBanco = errors.New("connection refused")
