package journal

const Schema = `
CREATE TABLE IF NOT EXISTS transactions (
	txn_id TEXT PRIMARY KEY,
	roundtrip_id TEXT NOT NULL,
	ticker TEXT NOT NULL,
	date DATETIME NOT NULL,
	kind TEXT NOT NULL,
	shares REAL NOT NULL,
	price REAL NOT NULL,
	net_amount REAL NOT NULL,
	reason TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transactions_roundtrip ON transactions(roundtrip_id);
CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions(date);

CREATE TABLE IF NOT EXISTS equity (
	date DATETIME NOT NULL,
	value REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_equity_date ON equity(date);
`
