// Package watchlist keeps per-user lists of followed symbols.
package watchlist

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"StockSense/internal/analysis"
	"StockSense/internal/model"
)

// MaxSymbols caps the size of one user's watchlist.
const MaxSymbols = 50

var (
	ErrInvalidUser   = errors.New("invalid user id")
	ErrWatchlistFull = fmt.Errorf("watchlist is limited to %d symbols", MaxSymbols)
)

// Manager handles watchlist operations with concurrency safety. Every
// mutation is persisted before it returns.
type Manager struct {
	mu       sync.Mutex
	state    *model.WatchlistState
	filePath string
}

// NewManager creates a Manager, loading state from disk if present.
func NewManager(filePath string) (*Manager, error) {
	state, err := LoadState(filePath)
	if err != nil {
		return nil, err
	}
	return &Manager{state: state, filePath: filePath}, nil
}

func normalizeUser(user string) (string, error) {
	u := strings.TrimSpace(user)
	if u == "" || len(u) > 64 {
		return "", ErrInvalidUser
	}
	return u, nil
}

// List returns a copy of user's symbols in the order they were added.
func (m *Manager) List(user string) ([]string, error) {
	u, err := normalizeUser(user)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.state.Users[u]...), nil
}

// Add appends symbol to user's watchlist. Adding a symbol twice is a no-op.
func (m *Manager) Add(user, symbol string) ([]string, error) {
	u, err := normalizeUser(user)
	if err != nil {
		return nil, err
	}
	sym, err := analysis.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	list := m.state.Users[u]
	if slices.Contains(list, sym) {
		return append([]string{}, list...), nil
	}
	if len(list) >= MaxSymbols {
		return nil, ErrWatchlistFull
	}
	m.state.Users[u] = append(list, sym)
	if err := m.save(); err != nil {
		m.state.Users[u] = list
		return nil, fmt.Errorf("save watchlist: %w", err)
	}
	log.Info().Str("user", u).Str("symbol", sym).Msg("watchlist symbol added")
	return append([]string{}, m.state.Users[u]...), nil
}

// Remove deletes symbol from user's watchlist. Removing an absent symbol is
// a no-op.
func (m *Manager) Remove(user, symbol string) ([]string, error) {
	u, err := normalizeUser(user)
	if err != nil {
		return nil, err
	}
	sym, err := analysis.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	list := m.state.Users[u]
	idx := slices.Index(list, sym)
	if idx < 0 {
		return append([]string{}, list...), nil
	}
	updated := slices.Delete(slices.Clone(list), idx, idx+1)
	if len(updated) == 0 {
		delete(m.state.Users, u)
	} else {
		m.state.Users[u] = updated
	}
	if err := m.save(); err != nil {
		m.state.Users[u] = list
		return nil, fmt.Errorf("save watchlist: %w", err)
	}
	log.Info().Str("user", u).Str("symbol", sym).Msg("watchlist symbol removed")
	return append([]string{}, updated...), nil
}

// Symbols returns every watched symbol across all users, sorted and unique.
func (m *Manager) Symbols() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[string]struct{})
	for _, list := range m.state.Users {
		for _, s := range list {
			seen[s] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func (m *Manager) save() error {
	return SaveState(m.filePath, m.state)
}
