package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema contains the SQL statements to create the credential database schema.
const Schema = `
-- Credential cores: public, private and realm components
CREATE TABLE IF NOT EXISTS cores (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL UNIQUE,
    workspace TEXT NOT NULL,

    -- Public component
    public_id TEXT,
    username TEXT,

    -- Private component
    private_id TEXT,
    private_type TEXT,
    private_data TEXT,

    -- Realm component
    realm_key TEXT,
    realm_value TEXT,

    created_at TIMESTAMP NOT NULL
);

-- Logins: a core used against a network service
CREATE TABLE IF NOT EXISTS logins (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL UNIQUE,
    core_id TEXT NOT NULL REFERENCES cores(id),
    workspace TEXT NOT NULL,

    -- Service context
    host_address TEXT,
    port INTEGER,
    service_name TEXT,
    protocol TEXT,

    created_at TIMESTAMP NOT NULL
);

-- Schema version table
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cores_workspace ON cores(workspace);
CREATE INDEX IF NOT EXISTS idx_logins_workspace ON logins(workspace);
CREATE INDEX IF NOT EXISTS idx_logins_core_id ON logins(core_id);
`

// InsertSchemaVersion inserts the schema version into the schema_version table.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion retrieves the current schema version from the database.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`

const insertCore = `
INSERT INTO cores (
    id, workspace,
    public_id, username,
    private_id, private_type, private_data,
    realm_key, realm_value,
    created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO NOTHING;
`

const insertLogin = `
INSERT INTO logins (
    id, core_id, workspace,
    host_address, port, service_name, protocol,
    created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?);
`

const selectCores = `
SELECT
    id, id, workspace,
    public_id, username,
    private_id, private_type, private_data,
    realm_key, realm_value,
    NULL, NULL, NULL, NULL
FROM cores
WHERE (? = '' OR workspace = ?)
ORDER BY seq;
`

const selectLogins = `
SELECT
    l.id, c.id, l.workspace,
    c.public_id, c.username,
    c.private_id, c.private_type, c.private_data,
    c.realm_key, c.realm_value,
    l.host_address, l.port, l.service_name, l.protocol
FROM logins l
JOIN cores c ON c.id = l.core_id
WHERE (? = '' OR l.workspace = ?)
ORDER BY l.seq;
`

const countCores = `SELECT COUNT(*) FROM cores WHERE (? = '' OR workspace = ?);`

const countLogins = `SELECT COUNT(*) FROM logins WHERE (? = '' OR workspace = ?);`
