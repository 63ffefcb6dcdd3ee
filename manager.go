package memarena

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/hupe1980/memarena/internal/arena"
	"github.com/hupe1980/memarena/internal/resource"
)

// Manager owns a set of arenas. The registry of arenas is safe for
// concurrent use; the contents of a single arena are not, so an arena must
// only be used by one goroutine at a time.
type Manager struct {
	opts options

	mu     sync.RWMutex
	arenas map[uint32]*arena.Arena
	nextID uint32

	rc      *resource.Controller
	leakLog rate.Sometimes
}

// New creates a Manager.
func New(optFns ...Option) *Manager {
	opts := applyOptions(optFns...)

	m := &Manager{
		opts:    opts,
		arenas:  make(map[uint32]*arena.Arena),
		leakLog: rate.Sometimes{First: 8, Interval: time.Second},
	}
	if opts.memoryLimit > 0 {
		m.rc = resource.NewController(resource.Config{MemoryLimitBytes: opts.memoryLimit})
	}
	return m
}

// NewArena creates an empty arena and returns its handle.
func (m *Manager) NewArena() Arena {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	id := m.nextID

	var aopts []arena.Option
	if m.rc != nil {
		aopts = append(aopts, arena.WithMemoryAcquirer(m.rc))
	}
	m.arenas[id] = arena.New(id, aopts...)

	return Arena{id: id}
}

// Destroy releases every allocation of *a and the arena itself, then sets
// *a to the zero handle. Heap chunks go back to the garbage collector and
// mapped chunks are unmapped with the extent they were mapped with.
func (m *Manager) Destroy(a *Arena) error {
	site := callerSite(1)
	if a == nil {
		return m.fail("destroy", site, invalidHandle("nil arena"))
	}
	if err := m.release(*a); err != nil {
		return m.fail("destroy", site, err)
	}
	*a = Arena{}
	return nil
}

// FreeAll releases the arena named by ctx together with all of its
// allocations. ctx may be the arena itself or any live Ptr inside it.
func (m *Manager) FreeAll(ctx Context) error {
	site := callerSite(1)
	a, err := m.resolve(ctx)
	if err != nil {
		return m.fail("free all", site, err)
	}
	if err := m.release(Arena{id: a.ID()}); err != nil {
		return m.fail("free all", site, err)
	}
	return nil
}

// Owner returns the arena ctx resolves to.
func (m *Manager) Owner(ctx Context) (Arena, error) {
	a, err := m.resolve(ctx)
	if err != nil {
		return Arena{}, m.fail("owner", callerSite(1), err)
	}
	return Arena{id: a.ID()}, nil
}

// Arenas returns the handles of all live arenas in creation order.
func (m *Manager) Arenas() []Arena {
	m.mu.RLock()
	ids := make([]uint32, 0, len(m.arenas))
	for id := range m.arenas {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	slices.Sort(ids)
	out := make([]Arena, len(ids))
	for i, id := range ids {
		out[i] = Arena{id: id}
	}
	return out
}

// Close releases every arena that is still alive. Each one is reported as
// leaked. The Manager stays usable afterwards.
func (m *Manager) Close() error {
	var errs []error
	for _, h := range m.Arenas() {
		m.mu.RLock()
		a := m.arenas[h.id]
		m.mu.RUnlock()
		if a == nil {
			continue
		}

		chunks, bytes := a.Len(), a.Total()
		m.leakLog.Do(func() {
			m.opts.logger.LogLeak(h, chunks, bytes)
		})
		if err := m.release(h); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) release(h Arena) error {
	if h.IsZero() {
		return invalidHandle("zero arena")
	}

	m.mu.Lock()
	a, ok := m.arenas[h.id]
	delete(m.arenas, h.id)
	m.mu.Unlock()
	if !ok {
		return invalidHandle("%s is not live", h)
	}

	chunks, bytes := a.Len(), a.Total()
	err := a.Release()
	if err != nil {
		err = fmt.Errorf("release %s: %w", h, err)
	}
	m.opts.logger.LogDestroy(h, chunks, bytes, err)
	m.opts.metricsCollector.RecordDestroy(chunks, bytes, err)
	return err
}

func (m *Manager) lookupArena(id uint32) (*arena.Arena, error) {
	if id == 0 {
		return nil, invalidHandle("zero arena")
	}

	m.mu.RLock()
	a, ok := m.arenas[id]
	m.mu.RUnlock()
	if !ok {
		return nil, invalidHandle("arena#%d is not live", id)
	}
	return a, nil
}

// resolve turns either kind of Context into the arena it names.
func (m *Manager) resolve(ctx Context) (*arena.Arena, error) {
	switch v := ctx.(type) {
	case Arena:
		return m.lookupArena(v.id)
	case Ptr:
		c, err := m.chunk(v)
		if err != nil {
			return nil, err
		}
		return c.Owner(), nil
	case nil:
		return nil, invalidHandle("nil context")
	default:
		return nil, invalidHandle("unknown context %T", ctx)
	}
}

// chunk validates p and returns the chunk it names.
func (m *Manager) chunk(p Ptr) (*arena.Chunk, error) {
	if p.IsZero() {
		return nil, invalidHandle("zero ptr")
	}
	a, err := m.lookupArena(p.arena)
	if err != nil {
		return nil, err
	}
	c, err := a.Lookup(p.slot, p.gen)
	if err != nil {
		return nil, translateError(fmt.Errorf("%s: %w", p, err))
	}
	return c, nil
}

// fail wraps err with the operation and call site. In strict mode the
// fatal handler sees it first.
func (m *Manager) fail(op string, site Site, err error) error {
	opErr := &OpError{Op: op, Site: site, Err: translateError(err)}
	if m.opts.strict {
		m.opts.fatal(pkgerrors.WithStack(opErr))
	}
	return opErr
}
