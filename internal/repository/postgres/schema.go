package postgres

const schema = `
CREATE TABLE IF NOT EXISTS user_roles (
	user_id    UUID PRIMARY KEY,
	role       TEXT NOT NULL,
	unit_id    TEXT NOT NULL DEFAULT '',
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS authz_audit_events (
	id         UUID PRIMARY KEY,
	user_id    UUID NULL,
	role       TEXT NOT NULL,
	resource   TEXT NOT NULL,
	action     TEXT NOT NULL,
	decision   TEXT NOT NULL,
	allowed    BOOLEAN NOT NULL,
	reason     TEXT NOT NULL,
	route      TEXT NOT NULL DEFAULT '',
	request_id TEXT NOT NULL DEFAULT '',
	ip_address TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_authz_audit_events_user_created
	ON authz_audit_events (user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_authz_audit_events_created
	ON authz_audit_events (created_at DESC);
`
