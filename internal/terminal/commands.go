package terminal

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"scalp-terminal/internal/logger"
	"scalp-terminal/internal/types"
)

type commandKind int

const (
	cmdNoop commandKind = iota
	cmdBuy
	cmdSell
	cmdCloseAll
	cmdCycle
	cmdInstrument
	cmdExport
	cmdStatus
	cmdHelp
	cmdQuit
)

type command struct {
	kind commandKind
	lots int
	arg  string
}

// parseCommand turns one input line into a command. Bare numbers are order
// sizes in lots, positive to buy and negative to sell, capped at 9 so a fat
// finger cannot size up an order by an order of magnitude.
func parseCommand(line string) (command, error) {
	trim := strings.TrimSpace(line)
	if trim == "" {
		return command{kind: cmdNoop}, nil
	}

	switch strings.ToLower(trim) {
	case "--":
		return command{kind: cmdCloseAll}, nil
	case "c":
		return command{kind: cmdCycle}, nil
	case "e":
		return command{kind: cmdExport}, nil
	case "s":
		return command{kind: cmdStatus}, nil
	case "h", "?":
		return command{kind: cmdHelp}, nil
	case "q", "quit", "exit":
		return command{kind: cmdQuit}, nil
	}

	if len(trim) > 2 && strings.EqualFold(trim[:2], "c ") {
		return command{kind: cmdInstrument, arg: strings.TrimSpace(trim[2:])}, nil
	}

	n, err := strconv.Atoi(trim)
	if err != nil {
		return command{}, fmt.Errorf("unknown command %q, h for help", trim)
	}
	switch {
	case n >= 1 && n <= 9:
		return command{kind: cmdBuy, lots: n}, nil
	case n <= -1 && n >= -9:
		return command{kind: cmdSell, lots: -n}, nil
	}
	return command{}, fmt.Errorf("order size must be between 1 and 9 lots, got %d", n)
}

// Run reads commands line by line until quit, EOF or context cancellation.
func (s *Session) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	s.printBanner(out)
	logger.Session(ctx, "session_started",
		"session_id", s.id,
		"mode", string(s.opts.Mode),
		"active", s.ActiveInstrument().ID(),
	)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			logger.ErrorWithErr(ctx, "Command input failed", err)
		}
	}()

	for {
		fmt.Fprintf(out, "[%s %s] > ", s.opts.Mode, s.ActiveInstrument().Symbol)
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			quit := s.execute(ctx, line, out)
			if quit {
				return nil
			}
		}
	}
}

func (s *Session) execute(ctx context.Context, line string, out io.Writer) bool {
	cmd, err := parseCommand(line)
	if err != nil {
		fmt.Fprintln(out, "error:", err)
		return false
	}

	switch cmd.kind {
	case cmdNoop:

	case cmdBuy:
		s.executeTrade(ctx, types.Buy, cmd.lots, out)

	case cmdSell:
		s.executeTrade(ctx, types.Sell, cmd.lots, out)

	case cmdCloseAll:
		fill, closed, err := s.CloseAll(ctx)
		if err != nil {
			fmt.Fprintln(out, "error:", err)
			return false
		}
		s.printFill(out, fill, closed)

	case cmdCycle:
		if err := s.NextInstrument(ctx); err != nil {
			fmt.Fprintln(out, "error:", err)
			return false
		}
		fmt.Fprintf(out, "active instrument: %s\n", s.ActiveInstrument().ID())

	case cmdInstrument:
		if err := s.ChangeInstrument(ctx, cmd.arg); err != nil {
			fmt.Fprintln(out, "error:", err)
			return false
		}
		fmt.Fprintf(out, "active instrument: %s\n", s.ActiveInstrument().ID())

	case cmdExport:
		path, rows, err := s.ExportTrades(ctx)
		if err != nil {
			fmt.Fprintln(out, "error:", err)
			return false
		}
		fmt.Fprintf(out, "wrote %d trades -> %s\n", rows, path)

	case cmdStatus:
		s.printStatus(out)

	case cmdHelp:
		printHelp(out)

	case cmdQuit:
		return true
	}
	return false
}

func (s *Session) executeTrade(ctx context.Context, side types.Side, lots int, out io.Writer) {
	fill, closed, err := s.Trade(ctx, side, lots)
	if err != nil {
		fmt.Fprintln(out, "error:", err)
		return
	}
	s.printFill(out, fill, closed)
}

func (s *Session) printFill(out io.Writer, fill types.Fill, closed []types.Trade) {
	fmt.Fprintf(out, "%s %d lot(s) %s @ %s (%s)\n",
		fill.Side, fill.Quantity, fill.InstrumentID, fill.Price.StringFixed(2), fill.OrderID)
	for _, tr := range closed {
		fmt.Fprintf(out, "  closed %d @ %s: pnl %s (%s%%) in %ds\n",
			tr.Qty, tr.ExitPrice.StringFixed(2), tr.PnL.StringFixed(2), tr.PnLPercent.StringFixed(2), tr.DurationSeconds)
	}
}

func (s *Session) printStatus(out io.Writer) {
	stats := s.Stats()
	fmt.Fprintf(out, "session: pnl %s | trades %d | wins %d | losses %d | win rate %.1f%% | turnover %s\n",
		stats.NetPnL.StringFixed(2), stats.TotalTrades, stats.WinningTrades, stats.LosingTrades,
		stats.WinRate(), stats.TotalTurnover.StringFixed(2))

	active := s.ActiveInstrument()
	marks := make(map[string]types.Mark)
	for _, m := range s.Marks() {
		marks[m.InstrumentID] = m
	}

	for _, p := range s.Positions() {
		marker := " "
		if p.Instrument.ID() == active.ID() {
			marker = "*"
		}
		if p.Flat() {
			fmt.Fprintf(out, "%s %-28s flat\n", marker, p.Instrument.ID())
			continue
		}
		line := fmt.Sprintf("%s %-28s net %+d lot(s) avg %s realized %s",
			marker, p.Instrument.ID(), p.NetQuantity, p.AveragePrice.StringFixed(2), p.RealizedPnL.StringFixed(2))
		if m, ok := marks[p.Instrument.ID()]; ok {
			line += fmt.Sprintf(" ltp %s unrealized %s", m.LastPrice.StringFixed(2), m.UnrealizedPnL.StringFixed(2))
		}
		fmt.Fprintln(out, line)
	}
}

func (s *Session) printBanner(out io.Writer) {
	fmt.Fprintf(out, "scalp terminal | %s mode | %d instrument(s) | active %s\n",
		s.opts.Mode, len(s.opts.Instruments), s.ActiveInstrument().ID())
	fmt.Fprintln(out, "type h for commands")
}

func printHelp(out io.Writer) {
	fmt.Fprint(out, `commands:
  1..9      buy N lots of the active instrument
  -1..-9    sell N lots of the active instrument
  --        close the entire active position
  c         cycle to the next configured instrument (must be flat)
  c NAME    switch to instrument NAME (must be flat)
  s         print positions and session stats
  e         export completed trades to CSV
  h         this help
  q         quit (exports trades on the way out)
`)
}
