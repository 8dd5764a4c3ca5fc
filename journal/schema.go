package journal

const Schema = `
CREATE TABLE IF NOT EXISTS executions (
	id TEXT PRIMARY KEY,
	token TEXT NOT NULL,
	user TEXT NOT NULL,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	shares INTEGER NOT NULL,
	price REAL NOT NULL,
	time DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_executions_user ON executions(user);
CREATE INDEX IF NOT EXISTS idx_executions_time ON executions(time);
`
