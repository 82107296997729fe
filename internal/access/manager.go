package access

import (
	"context"
	"log/slog"
	"net/netip"
	"sort"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/pixil98/go-kaillera/internal/relay"
	"github.com/pixil98/go-kaillera/internal/storage"
)

// RuleStore is the persistent set of access rules.
type RuleStore interface {
	storage.Storer[*Rule]
	Reload() error
}

// Manager answers access questions by longest-prefix match over the stored
// rules. Temporary silences live only in memory.
type Manager struct {
	store        RuleStore
	defaultLevel relay.AccessLevel
	silences     *cache.Cache

	mu    sync.RWMutex
	rules []compiled
}

type ManagerOpt func(*Manager)

// WithDefaultLevel sets the level for addresses no rule matches
func WithDefaultLevel(l relay.AccessLevel) ManagerOpt {
	return func(m *Manager) {
		m.defaultLevel = l
	}
}

func NewManager(store RuleStore, opts ...ManagerOpt) *Manager {
	m := &Manager{
		store:        store,
		defaultLevel: relay.AccessNormal,
		silences:     cache.New(cache.NoExpiration, time.Minute),
	}

	for _, opt := range opts {
		opt(m)
	}

	m.rebuild()
	return m
}

// rebuild recompiles the rule table from the store, most specific first.
func (m *Manager) rebuild() {
	var rules []compiled
	for id, r := range m.store.GetAll() {
		c, err := compile(id, r)
		if err != nil {
			slog.Warn("skipping access rule", "rule", id, "error", err)
			continue
		}
		rules = append(rules, c)
	}
	sort.Slice(rules, func(i, j int) bool {
		if rules[i].prefix.Bits() != rules[j].prefix.Bits() {
			return rules[i].prefix.Bits() > rules[j].prefix.Bits()
		}
		return rules[i].id < rules[j].id
	})

	m.mu.Lock()
	m.rules = rules
	m.mu.Unlock()
}

func (m *Manager) match(addr netip.Addr) (compiled, bool) {
	addr = addr.Unmap()

	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.rules {
		if r.prefix.Contains(addr) {
			return r, true
		}
	}
	return compiled{}, false
}

func (m *Manager) AccessLevel(addr netip.Addr) relay.AccessLevel {
	if r, ok := m.match(addr); ok {
		return r.level
	}
	return m.defaultLevel
}

func (m *Manager) IsSilenced(addr netip.Addr) bool {
	if _, ok := m.silences.Get(addr.Unmap().String()); ok {
		return true
	}
	r, ok := m.match(addr)
	return ok && r.silenced
}

// Silence mutes addr for d without touching the stored rules.
func (m *Manager) Silence(addr netip.Addr, d time.Duration) {
	m.silences.Set(addr.Unmap().String(), true, d)
}

func (m *Manager) Unsilence(addr netip.Addr) {
	m.silences.Delete(addr.Unmap().String())
}

// AddRule stores r under id, replacing any rule with that id.
func (m *Manager) AddRule(id string, r *Rule) error {
	if err := m.store.Save(id, r); err != nil {
		return err
	}
	m.rebuild()
	return nil
}

func (m *Manager) RemoveRule(id string) error {
	if err := m.store.Delete(id); err != nil {
		return err
	}
	m.rebuild()
	return nil
}

// Tick reloads the rules from disk so edits take effect without a restart.
// A failed reload keeps the current rules.
func (m *Manager) Tick(ctx context.Context) error {
	if err := m.store.Reload(); err != nil {
		slog.WarnContext(ctx, "reloading access rules", "error", err)
		return nil
	}
	m.rebuild()
	return nil
}
