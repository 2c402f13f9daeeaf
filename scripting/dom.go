package scripting

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Engine runs document scripts.
type Engine interface {
	Execute(ctx context.Context, script string) (interface{}, error)
	RegisterDOM(dom PDFDOM) error
}

// PDFDOM is the part of a viewer's document API the bound scripts touch.
type PDFDOM interface {
	GetField(name string) (FormFieldProxy, error)
	GetPage(index int) (PageProxy, error)
	Alert(message string)
}

// FormFieldProxy is a form field as seen by a script.
type FormFieldProxy interface {
	GetValue() interface{}
	SetValue(value interface{})
}

// PageProxy is a page as seen by a script.
type PageProxy interface {
	GetIndex() int
}

// FieldStore is an in-memory PDFDOM holding one page and a fixed set of
// fields. It records alerts and interval registrations so a dry run can be
// inspected afterwards.
type FieldStore struct {
	mu        sync.Mutex
	values    map[string]interface{}
	alerts    []string
	intervals []string
}

// NewFieldStore returns a store with the given field names and initial values.
func NewFieldStore(initial map[string]string) *FieldStore {
	s := &FieldStore{values: make(map[string]interface{}, len(initial))}
	for k, v := range initial {
		s.values[k] = v
	}
	return s
}

func (s *FieldStore) GetField(name string) (FormFieldProxy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[name]; !ok {
		return nil, fmt.Errorf("no field %q", name)
	}
	return storeField{s: s, name: name}, nil
}

func (s *FieldStore) GetPage(index int) (PageProxy, error) {
	if index != 0 {
		return nil, fmt.Errorf("page %d out of range", index)
	}
	return storePage{}, nil
}

func (s *FieldStore) Alert(message string) {
	s.mu.Lock()
	s.alerts = append(s.alerts, message)
	s.mu.Unlock()
}

// Alerts returns the messages passed to app.alert so far.
func (s *FieldStore) Alerts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.alerts...)
}

// Value returns the current value of a field.
func (s *FieldStore) Value(name string) (interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[name]
	return v, ok
}

// Names returns the field names in sorted order.
func (s *FieldStore) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.values))
	for k := range s.values {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (s *FieldStore) addInterval(expr string) {
	s.mu.Lock()
	s.intervals = append(s.intervals, expr)
	s.mu.Unlock()
}

// Intervals returns the expressions registered with app.setInterval.
func (s *FieldStore) Intervals() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.intervals...)
}

type storeField struct {
	s    *FieldStore
	name string
}

func (f storeField) GetValue() interface{} {
	v, _ := f.s.Value(f.name)
	return v
}

func (f storeField) SetValue(value interface{}) {
	f.s.mu.Lock()
	f.s.values[f.name] = value
	f.s.mu.Unlock()
}

type storePage struct{}

func (storePage) GetIndex() int { return 0 }
