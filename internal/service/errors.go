package service

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrValidacao             = errors.New("dados invalidos")
	ErrNaoEncontrado         = errors.New("registro nao encontrado")
	ErrStoreIndisponivel     = errors.New("armazenamento indisponivel")
	ErrFechamentoEmAndamento = errors.New("ja existe um fechamento em andamento para esta unidade")
	ErrCredenciais           = errors.New("credenciais invalidas")
	ErrEmailEmUso            = errors.New("email ja cadastrado")
)

// ValidationError carries the offending fields. errors.Is(err, ErrValidacao)
// holds for every *ValidationError.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return ErrValidacao.Error() + ": " + strings.Join(parts, ", ")
}

func (e *ValidationError) Unwrap() error { return ErrValidacao }

// campos accumulates field errors; err() returns nil when none were added.
type campos map[string]string

func (c campos) add(campo, motivo string) {
	if _, ok := c[campo]; !ok {
		c[campo] = motivo
	}
}

func (c campos) err() error {
	if len(c) == 0 {
		return nil
	}
	return &ValidationError{Fields: c}
}
