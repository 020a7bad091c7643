package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"scalp-terminal/internal/types"
)

var dashInst = types.Instrument{Symbol: "NIFTY24AUGFUT", Exchange: "NFO", LotSize: 25, Product: "NRML"}

type fakeState struct {
	exportErr error
}

func (f *fakeState) Mode() types.Source                 { return types.SourcePaper }
func (f *fakeState) ActiveInstrument() types.Instrument { return dashInst }

func (f *fakeState) Positions() []types.PositionSnapshot {
	return []types.PositionSnapshot{{
		Instrument:   dashInst,
		NetQuantity:  2,
		AveragePrice: decimal.RequireFromString("100.50"),
		Lots: []types.LotView{
			{Quantity: 2, Remaining: 2, Price: decimal.RequireFromString("100.50"), Time: time.Now()},
		},
	}}
}

func (f *fakeState) Stats() types.SessionStats {
	return types.SessionStats{
		NetPnL:        decimal.RequireFromString("1250.00"),
		TotalTrades:   2,
		WinningTrades: 2,
		TotalTurnover: decimal.RequireFromString("16750.00"),
	}
}

func (f *fakeState) Marks() []types.Mark {
	return []types.Mark{{
		InstrumentID:  dashInst.ID(),
		LastPrice:     decimal.RequireFromString("101.00"),
		UnrealizedPnL: decimal.RequireFromString("25.00"),
		Time:          time.Now(),
	}}
}

func (f *fakeState) Orders() []types.OrderRecord { return nil }

func (f *fakeState) Trades() []types.Trade {
	entry := time.Date(2025, 3, 10, 4, 0, 0, 0, time.UTC)
	return []types.Trade{{
		ID:              "01J0000000000000000000TEST",
		InstrumentID:    dashInst.ID(),
		EntryTime:       entry,
		EntryPrice:      decimal.RequireFromString("100.00"),
		EntryQty:        2,
		ExitTime:        entry.Add(time.Minute),
		ExitPrice:       decimal.RequireFromString("110.00"),
		Qty:             2,
		PnL:             decimal.RequireFromString("500.00"),
		PnLPercent:      decimal.RequireFromString("10"),
		DurationSeconds: 60,
		Turnover:        decimal.RequireFromString("10500.00"),
		Source:          types.SourcePaper,
	}}
}

func (f *fakeState) ExportTrades(ctx context.Context) (string, int, error) {
	if f.exportErr != nil {
		return "", 0, f.exportErr
	}
	return "trades/paper_trades_20250310_154500.csv", 1, nil
}

func newTestServer(state StateSource) *httptest.Server {
	s := New("127.0.0.1:0", state)
	return httptest.NewServer(s.http.Handler)
}

func TestStateEndpoint(t *testing.T) {
	ts := newTestServer(&fakeState{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/state")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	var state StateResponse
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		t.Fatalf("Expected valid JSON, got %v", err)
	}
	if state.Mode != "PAPER" {
		t.Errorf("Expected mode PAPER, got %s", state.Mode)
	}
	if state.ActiveInstrument != "NFO:NIFTY24AUGFUT" {
		t.Errorf("Expected active instrument NFO:NIFTY24AUGFUT, got %s", state.ActiveInstrument)
	}
	if len(state.Positions) != 1 {
		t.Fatalf("Expected 1 position, got %d", len(state.Positions))
	}
	if state.Positions[0].NetQty != 2 {
		t.Errorf("Expected net qty 2, got %d", state.Positions[0].NetQty)
	}
	if state.Stats.NetPnL != 1250.00 {
		t.Errorf("Expected net pnl 1250.00, got %.2f", state.Stats.NetPnL)
	}
	if state.Stats.WinRate != 100 {
		t.Errorf("Expected win rate 100, got %.1f", state.Stats.WinRate)
	}
	if len(state.Marks) != 1 || state.Marks[0].LastPrice != 101.00 {
		t.Errorf("Expected one mark at 101.00, got %+v", state.Marks)
	}
}

func TestTradesEndpoint(t *testing.T) {
	ts := newTestServer(&fakeState{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/trades")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	var trades []map[string]any
	if err := json.Unmarshal(body, &trades); err != nil {
		t.Fatalf("Expected valid JSON, got %v", err)
	}
	if len(trades) != 1 {
		t.Fatalf("Expected 1 trade, got %d", len(trades))
	}

	for _, key := range []string{"entryTime", "entryPrice", "exitPrice", "pnl", "pnlPercent", "durationSeconds", "turnover"} {
		if _, ok := trades[0][key]; !ok {
			t.Errorf("Expected camelCase key %q in trade payload", key)
		}
	}
	if got := trades[0]["pnl"].(float64); got != 500.00 {
		t.Errorf("Expected pnl 500.00, got %.2f", got)
	}
	// 04:00 UTC renders as 09:30 IST.
	if got := trades[0]["entryTime"].(string); got != "2025-03-10 09:30:00" {
		t.Errorf("Expected IST entry time 2025-03-10 09:30:00, got %s", got)
	}
}

func TestExportEndpoint(t *testing.T) {
	ts := newTestServer(&fakeState{})
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/export-trades", "application/json", nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	var out ExportResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("Expected valid JSON, got %v", err)
	}
	if out.Rows != 1 || !strings.HasPrefix(out.Path, "trades/paper_trades_") {
		t.Errorf("Expected export response with path and rows, got %+v", out)
	}

	// The export route is POST-only.
	getResp, err := http.Get(ts.URL + "/api/export-trades")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	getResp.Body.Close()
	if getResp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405 for GET, got %d", getResp.StatusCode)
	}
}

func TestExportEndpointFailure(t *testing.T) {
	ts := newTestServer(&fakeState{exportErr: errors.New("disk full")})
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/export-trades", "application/json", nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("Expected status 500, got %d", resp.StatusCode)
	}

	var out ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("Expected valid JSON, got %v", err)
	}
	if out.Message != "disk full" {
		t.Errorf("Expected error message 'disk full', got %q", out.Message)
	}
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(&fakeState{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	defer resp.Body.Close()

	var out map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("Expected valid JSON, got %v", err)
	}
	if out["status"] != "ok" {
		t.Errorf("Expected status ok, got %q", out["status"])
	}
}

func TestIndexServed(t *testing.T) {
	ts := newTestServer(&fakeState{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Expected HTML content type, got %s", ct)
	}

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "<title>scalp terminal</title>") {
		t.Error("Expected embedded dashboard page in response")
	}
}
