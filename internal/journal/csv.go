package journal

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"scalp-terminal/internal/types"
)

var ist = time.FixedZone("IST", 19800)

var csvHeader = []string{
	"entry_time", "entry_price", "entry_qty",
	"exit_time", "exit_price", "exit_qty",
	"qty", "pnl", "pnl_percent", "duration_seconds", "turnover",
}

// WriteTrades writes the round-trip history in spreadsheet-friendly form.
// Times are IST, money columns are fixed to two decimals, and the entry and
// exit quantity columns both carry the matched quantity.
func WriteTrades(w io.Writer, trades []types.Trade) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, t := range trades {
		qty := strconv.Itoa(t.Qty)
		rec := []string{
			t.EntryTime.In(ist).Format("2006-01-02 15:04:05"),
			t.EntryPrice.StringFixed(2),
			qty,
			t.ExitTime.In(ist).Format("2006-01-02 15:04:05"),
			t.ExitPrice.StringFixed(2),
			qty,
			qty,
			t.PnL.StringFixed(2),
			t.PnLPercent.StringFixed(2),
			strconv.FormatInt(t.DurationSeconds, 10),
			t.Turnover.StringFixed(2),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Export writes the history to a timestamped CSV under dir and returns the
// path. Paper sessions get a paper_trades_ prefix, real sessions live_trades_.
func Export(dir string, source types.Source, trades []types.Trade) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	prefix := "paper"
	if source == types.SourceReal {
		prefix = "live"
	}
	name := fmt.Sprintf("%s_trades_%s.csv", prefix, time.Now().In(ist).Format("20060102_150405"))
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := WriteTrades(f, trades); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path, nil
}
