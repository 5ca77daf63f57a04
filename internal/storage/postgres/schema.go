// Package postgres provides the PostgreSQL implementation of the storage
// interfaces, with pgvector-accelerated similarity search.
package postgres

// Schema contains the SQL statements to create the database schema for
// PostgreSQL. All statements are idempotent (IF NOT EXISTS) so applying the
// schema on startup is safe.
const Schema = `
-- Teams table: the closed set of valid routing destinations
CREATE TABLE IF NOT EXISTS teams (
    team_id   TEXT PRIMARY KEY,
    team_name TEXT NOT NULL UNIQUE,

    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Tickets table: helpdesk tickets with advisory suggestion columns
CREATE TABLE IF NOT EXISTS tickets (
    ticket_id    BIGSERIAL PRIMARY KEY,
    requester_id BIGINT,
    subject      TEXT NOT NULL DEFAULT '',
    body         TEXT NOT NULL DEFAULT '',

    -- Human-authored resolution and routing (ground truth)
    answer           TEXT,
    assigned_team_id TEXT REFERENCES teams(team_id),

    -- Advisory output written by the decision engines
    suggested_answer           TEXT,
    suggested_assigned_team_id TEXT REFERENCES teams(team_id),

    type     TEXT,
    priority TEXT,
    status   TEXT,

    -- Tags (JSON array)
    tags JSONB,

    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_tickets_assigned_team ON tickets(assigned_team_id);
CREATE INDEX IF NOT EXISTS idx_tickets_status ON tickets(status);
CREATE INDEX IF NOT EXISTS idx_tickets_created_at ON tickets(created_at);
`

// MigrationPgvector contains SQL to create the chunk-embedding table and its
// approximate nearest-neighbor index. Applied only when the vector extension
// is available. Safe to run multiple times.
const MigrationPgvector = `
-- Chunk embeddings: one row per chunk of a ticket's body text
CREATE TABLE IF NOT EXISTS ticket_embeddings (
    chunk_id   BIGSERIAL PRIMARY KEY,
    ticket_id  BIGINT NOT NULL REFERENCES tickets(ticket_id) ON DELETE CASCADE,
    chunk_text TEXT NOT NULL,
    embedding  vector(384) NOT NULL,

    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_ticket_embeddings_ticket ON ticket_embeddings(ticket_id);

-- ivfflat index for approximate nearest-neighbor search by L2 distance.
-- ivfflat needs at least one row to build a useful index; guard with a DO block.
DO $$
BEGIN
  IF NOT EXISTS (
    SELECT 1 FROM pg_indexes WHERE indexname = 'idx_ticket_embeddings_l2'
  ) THEN
    IF EXISTS (SELECT 1 FROM ticket_embeddings LIMIT 1) THEN
      EXECUTE 'CREATE INDEX idx_ticket_embeddings_l2 ON ticket_embeddings USING ivfflat (embedding vector_l2_ops) WITH (lists = 100)';
    END IF;
  END IF;
END$$;
`
