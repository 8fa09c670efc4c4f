package db

func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS local_state (
		scope TEXT NOT NULL,
		key TEXT NOT NULL,
		value BLOB NOT NULL,
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (scope, key)
	);

	CREATE INDEX IF NOT EXISTS idx_local_state_updated_at ON local_state(updated_at);
	`

	_, err := db.conn.Exec(schema)
	return err
}
