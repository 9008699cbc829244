package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// ListaJSON stores an ordered list of line items in a single JSON column.
//
// Decoding from the database never fails: a payload that cannot be decoded is
// kept in Bruto and Itens is left empty, so one corrupt row does not abort a
// whole query. Callers check Malformada().
type ListaJSON[T any] struct {
	Itens []T
	Bruto []byte
}

func NovaLista[T any](itens ...T) ListaJSON[T] {
	return ListaJSON[T]{Itens: itens}
}

// Malformada reports whether the stored payload could not be decoded.
func (l ListaJSON[T]) Malformada() bool { return l.Bruto != nil }

func (l ListaJSON[T]) Value() (driver.Value, error) {
	if len(l.Itens) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(l.Itens)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *ListaJSON[T]) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		l.Itens, l.Bruto = nil, nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		l.Itens = nil
		l.Bruto = []byte(fmt.Sprint(v))
		return nil
	}

	var itens []T
	if err := json.Unmarshal(raw, &itens); err != nil {
		l.Itens = nil
		l.Bruto = append([]byte(nil), raw...)
		return nil
	}
	l.Itens, l.Bruto = itens, nil
	return nil
}

// MarshalJSON renders the list as a plain JSON array (never null).
func (l ListaJSON[T]) MarshalJSON() ([]byte, error) {
	if l.Itens == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l.Itens)
}

func (l *ListaJSON[T]) UnmarshalJSON(b []byte) error {
	l.Bruto = nil
	return json.Unmarshal(b, &l.Itens)
}
