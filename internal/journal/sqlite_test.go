package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scalp-terminal/internal/types"
)

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "journal.db")
	ctx := context.Background()

	j, err := OpenSQLite(path)
	require.NoError(t, err)

	fill := types.Fill{
		InstrumentID: "NFO:NIFTY24AUGFUT",
		Side:         types.Buy,
		Quantity:     2,
		Price:        decimal.RequireFromString("100.05"),
		Time:         time.Now(),
		Source:       types.SourcePaper,
		OrderID:      "PAPER000001",
	}
	require.NoError(t, j.RecordFill(ctx, fill))
	require.NoError(t, j.RecordTrade(ctx, sampleTrade()))
	require.NoError(t, j.Close())

	// Reopen and append again: the journal is strictly cumulative.
	j, err = OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, j.RecordFill(ctx, fill))
	defer j.Close()

	var fills, trades int
	require.NoError(t, j.db.QueryRow(`SELECT COUNT(*) FROM fills`).Scan(&fills))
	require.NoError(t, j.db.QueryRow(`SELECT COUNT(*) FROM trades`).Scan(&trades))
	assert.Equal(t, 2, fills)
	assert.Equal(t, 1, trades)

	var price string
	require.NoError(t, j.db.QueryRow(`SELECT price FROM fills LIMIT 1`).Scan(&price))
	assert.Equal(t, "100.05", price, "prices must round trip as exact strings")

	var pnl string
	require.NoError(t, j.db.QueryRow(`SELECT pnl FROM trades`).Scan(&pnl))
	assert.Equal(t, "500.00", pnl)
}

func TestOpenSelectsDriver(t *testing.T) {
	t.Parallel()

	j, err := Open("none", "")
	require.NoError(t, err)
	assert.IsType(t, Noop{}, j)

	j, err = Open("sqlite", filepath.Join(t.TempDir(), "j.db"))
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, j)
	require.NoError(t, j.Close())

	_, err = Open("postgres", "")
	assert.Error(t, err)
}

func TestNoopAcceptsEverything(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	var j Journal = Noop{}
	assert.NoError(t, j.RecordFill(ctx, types.Fill{}))
	assert.NoError(t, j.RecordTrade(ctx, types.Trade{}))
	assert.NoError(t, j.Close())
}
