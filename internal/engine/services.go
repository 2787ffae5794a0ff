package engine

import (
	"fmt"
	"sort"
	"sync"

	apperrors "eventflow/pkg/errors"
)

var ErrServiceNotFound = apperrors.NewError("SERVICE_NOT_FOUND", "required service not registered", 500)

// Services is a registry of named collaborators (connections, clients,
// sinks, the aging queue) shared by the components of a stream.
type Services struct {
	mu      sync.RWMutex
	objects map[string]interface{}
}

func NewServices() *Services {
	return &Services{objects: make(map[string]interface{})}
}

func (s *Services) Register(name string, obj interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[name] = obj
}

func (s *Services) Get(name string) (interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[name]
	return obj, ok
}

func (s *Services) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.objects))
	for name := range s.objects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the service registered under name if it has type T.
func Lookup[T any](s *Services, name string) (T, bool) {
	var zero T
	obj, ok := s.Get(name)
	if !ok {
		return zero, false
	}
	typed, ok := obj.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

func Require[T any](s *Services, name string) (T, error) {
	var zero T
	obj, ok := s.Get(name)
	if !ok {
		return zero, ErrServiceNotFound.WithDetail("service", name)
	}
	typed, ok := obj.(T)
	if !ok {
		return zero, ErrServiceNotFound.
			WithDetail("service", name).
			WithCause(fmt.Errorf("service %q has type %T, want %T", name, obj, zero))
	}
	return typed, nil
}

// RequireService looks up a required collaborator for the current message.
// A missing service makes the stream configuration unsatisfiable, so the
// stream is failed and ok is false.
func RequireService[T any](mc *MessageContext, name string) (T, bool) {
	svc, err := Require[T](mc.Services(), name)
	if err != nil {
		mc.Fail(err)
		return svc, false
	}
	return svc, true
}
