// Package sqlite provides the SQLite implementation of the storage
// interfaces. Similarity search ranks chunk embeddings in Go (brute-force L2
// over deserialized vectors); good enough for local development and small
// datasets, but production deployments should use the PostgreSQL backend.
package sqlite

// Schema contains the SQL statements to create the database schema for
// SQLite. All statements are idempotent.
const Schema = `
-- Teams table: the closed set of valid routing destinations
CREATE TABLE IF NOT EXISTS teams (
    team_id   TEXT PRIMARY KEY,
    team_name TEXT NOT NULL UNIQUE,

    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Tickets table: helpdesk tickets with advisory suggestion columns
CREATE TABLE IF NOT EXISTS tickets (
    ticket_id    INTEGER PRIMARY KEY AUTOINCREMENT,
    requester_id INTEGER,
    subject      TEXT NOT NULL DEFAULT '',
    body         TEXT NOT NULL DEFAULT '',

    answer           TEXT,
    assigned_team_id TEXT REFERENCES teams(team_id),

    suggested_answer           TEXT,
    suggested_assigned_team_id TEXT REFERENCES teams(team_id),

    type     TEXT,
    priority TEXT,
    status   TEXT,

    tags TEXT, -- JSON array

    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_tickets_assigned_team ON tickets(assigned_team_id);
CREATE INDEX IF NOT EXISTS idx_tickets_status ON tickets(status);

-- Chunk embeddings: one row per chunk of a ticket's body text.
-- The embedding is serialized as little-endian float32 BLOB.
CREATE TABLE IF NOT EXISTS ticket_embeddings (
    chunk_id   INTEGER PRIMARY KEY AUTOINCREMENT,
    ticket_id  INTEGER NOT NULL REFERENCES tickets(ticket_id) ON DELETE CASCADE,
    chunk_text TEXT NOT NULL,
    embedding  BLOB NOT NULL,
    dimension  INTEGER NOT NULL,

    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_ticket_embeddings_ticket ON ticket_embeddings(ticket_id);
`
