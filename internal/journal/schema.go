package journal

// Schema creates the journal tables. Money columns are TEXT holding exact
// decimal strings, never floats.
const Schema = `
CREATE TABLE IF NOT EXISTS fills (
	id         TEXT PRIMARY KEY,
	instrument TEXT NOT NULL,
	side       TEXT NOT NULL,
	qty        INTEGER NOT NULL,
	price      TEXT NOT NULL,
	source     TEXT NOT NULL,
	order_id   TEXT,
	at         TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS trades (
	id               TEXT PRIMARY KEY,
	instrument       TEXT NOT NULL,
	entry_time       TIMESTAMP NOT NULL,
	entry_price      TEXT NOT NULL,
	entry_qty        INTEGER NOT NULL,
	exit_time        TIMESTAMP NOT NULL,
	exit_price       TEXT NOT NULL,
	qty              INTEGER NOT NULL,
	pnl              TEXT NOT NULL,
	pnl_percent      TEXT NOT NULL,
	duration_seconds INTEGER NOT NULL,
	turnover         TEXT NOT NULL,
	source           TEXT NOT NULL
);
`
