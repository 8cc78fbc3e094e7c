package watchlist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockSense/internal/analysis"
)

func newTestManager(t *testing.T) (*Manager, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state", "watchlist.json")
	m, err := NewManager(path)
	require.NoError(t, err)
	return m, path
}

func TestAddIsIdempotent(t *testing.T) {
	m, _ := newTestManager(t)

	list, err := m.Add("alice", "aapl")
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL"}, list)

	list, err = m.Add("alice", " AAPL ")
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL"}, list)

	list, err = m.Add("alice", "msft")
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, list)
}

func TestRemove(t *testing.T) {
	m, _ := newTestManager(t)
	_, _ = m.Add("alice", "AAPL")
	_, _ = m.Add("alice", "MSFT")

	list, err := m.Remove("alice", "aapl")
	require.NoError(t, err)
	assert.Equal(t, []string{"MSFT"}, list)

	list, err = m.Remove("alice", "TSLA")
	require.NoError(t, err)
	assert.Equal(t, []string{"MSFT"}, list)

	list, err = m.Remove("alice", "MSFT")
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = m.List("alice")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestPersistsAcrossReloads(t *testing.T) {
	m, path := newTestManager(t)
	_, err := m.Add("alice", "NVDA")
	require.NoError(t, err)
	_, err = m.Add("bob", "AMD")
	require.NoError(t, err)
	_, err = m.Add("bob", "NVDA")
	require.NoError(t, err)

	reloaded, err := NewManager(path)
	require.NoError(t, err)

	list, err := reloaded.List("bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"AMD", "NVDA"}, list)
	assert.Equal(t, []string{"AMD", "NVDA"}, reloaded.Symbols())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestValidation(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.Add("", "AAPL")
	assert.ErrorIs(t, err, ErrInvalidUser)
	_, err = m.List("   ")
	assert.ErrorIs(t, err, ErrInvalidUser)
	_, err = m.Add("alice", "not a symbol")
	assert.ErrorIs(t, err, analysis.ErrInvalidSymbol)
	_, err = m.Remove("alice", "")
	assert.ErrorIs(t, err, analysis.ErrInvalidSymbol)
}

func TestWatchlistLimit(t *testing.T) {
	m, _ := newTestManager(t)
	for i := 0; i < MaxSymbols; i++ {
		_, err := m.Add("alice", "S"+string(rune('A'+i/26))+string(rune('A'+i%26)))
		require.NoError(t, err)
	}
	_, err := m.Add("alice", "ONEMORE")
	assert.ErrorIs(t, err, ErrWatchlistFull)
}

func TestLoadStateRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watchlist.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, err := NewManager(path)
	assert.Error(t, err)
}
