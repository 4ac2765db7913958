package model

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
)

var (
	// ErrUnknownArchitecture is returned by New for unregistered names.
	ErrUnknownArchitecture = errors.New("unknown architecture")

	// ErrNeedsAuxiliary is returned when a model wants auxiliary features
	// which nothing can provide.
	ErrNeedsAuxiliary = errors.New("model needs auxiliary features")
)

// Options configure a constructor.
type Options struct {
	NumClasses int
	Hidden     int
	Bands      int // mel bands of the auxiliary or sequence input
	Seed       int64
}

// Constructor builds a freshly initialised model.
type Constructor func(Options) (Trainable, error)

var (
	mut      sync.RWMutex
	registry = map[string]Constructor{}
)

// Register makes an architecture available by name. It panics if the name
// is taken.
func Register(name string, c Constructor) {
	mut.Lock()
	defer mut.Unlock()
	if _, dup := registry[name]; dup {
		panic("model: Register called twice for " + name)
	}
	registry[name] = c
}

// New constructs the named architecture.
func New(name string, o Options) (Trainable, error) {
	mut.RLock()
	c, ok := registry[name]
	mut.RUnlock()
	if !ok {
		return nil, errors.Wrap(ErrUnknownArchitecture, name)
	}
	if o.NumClasses < 2 {
		return nil, errors.Errorf("%s: need at least 2 classes, got %d", name, o.NumClasses)
	}
	if o.Hidden <= 0 {
		o.Hidden = 256
	}
	return c(o)
}

// Names lists the registered architectures.
func Names() (out []string) {
	mut.RLock()
	defer mut.RUnlock()
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return
}
