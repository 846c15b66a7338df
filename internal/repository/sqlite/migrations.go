package sqlite

type migration struct {
	version int
	sql     string
}

// migrations must be numbered sequentially from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS documents (
	path       TEXT NOT NULL,
	id         TEXT NOT NULL,
	data       TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (path, id)
);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
