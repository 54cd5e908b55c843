package serverstore

// SchemaVersion is the current server database schema version.
const SchemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id        TEXT PRIMARY KEY,
    name      TEXT NOT NULL,
    token_salt TEXT NOT NULL,
    token_hash TEXT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS todos (
    id          TEXT PRIMARY KEY,
    title       TEXT NOT NULL,
    notes       TEXT NOT NULL DEFAULT '',
    due_date    TEXT,
    tags        TEXT NOT NULL DEFAULT '[]',
    status      TEXT NOT NULL CHECK(status IN ('open','completed','canceled')),
    position    INTEGER NOT NULL DEFAULT 0,
    edited_at   DATETIME NOT NULL,
    updated_at  DATETIME NOT NULL,
    created_by  TEXT NOT NULL,
    updated_by  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS tombstones (
    server_id   TEXT PRIMARY KEY,
    deleted_at  DATETIME NOT NULL,
    recorded_at DATETIME NOT NULL,
    deleted_by  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS schema_info (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_todos_updated_at ON todos(updated_at);
CREATE INDEX IF NOT EXISTS idx_tombstones_recorded_at ON tombstones(recorded_at);
`
