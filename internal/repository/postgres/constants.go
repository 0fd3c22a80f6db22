package postgres

import (
	"fmt"
	"time"
)

const (
	poolHealthCheckPeriod = time.Minute
	poolMaxConnLifetime   = time.Hour
	poolMaxConnIdleTime   = 30 * time.Minute
	dbPingTimeout         = 5 * time.Second

	defaultAuditQueryLimit = 100
	auditInsertColumns     = 12
	maxBindParameters      = 65535
	maxAuditRowsPerInsert  = maxBindParameters / auditInsertColumns

	errFailedParseDatabaseConfigFmt  = "failed to parse database config: %w"
	errFailedCreateConnectionPoolFmt = "failed to create connection pool: %w"
	errFailedPingDatabaseFmt         = "failed to ping database: %w"
	errFailedMigrateFmt              = "failed to apply schema: %w"

	errFailedGetPrincipalFmt = "failed to get principal: %w"

	errFailedInsertAuditEventsFmt = "failed to insert audit events: %w"
	errFailedQueryAuditEventsFmt  = "failed to query audit events: %w"
	errFailedScanAuditEventFmt    = "failed to scan audit event: %w"
	errIterateAuditEventsFmt      = "error iterating audit events: %w"
)

var (
	errFailedCreateConnectionPool = func(err error) error { return fmt.Errorf(errFailedCreateConnectionPoolFmt, err) }
	errFailedGetPrincipal         = func(err error) error { return fmt.Errorf(errFailedGetPrincipalFmt, err) }
	errFailedInsertAuditEvents    = func(err error) error { return fmt.Errorf(errFailedInsertAuditEventsFmt, err) }
	errFailedMigrate              = func(err error) error { return fmt.Errorf(errFailedMigrateFmt, err) }
	errFailedParseDatabaseConfig  = func(err error) error { return fmt.Errorf(errFailedParseDatabaseConfigFmt, err) }
	errFailedPingDatabase         = func(err error) error { return fmt.Errorf(errFailedPingDatabaseFmt, err) }
	errFailedQueryAuditEvents     = func(err error) error { return fmt.Errorf(errFailedQueryAuditEventsFmt, err) }
	errFailedScanAuditEvent       = func(err error) error { return fmt.Errorf(errFailedScanAuditEventFmt, err) }
	errIterateAuditEvents         = func(err error) error { return fmt.Errorf(errIterateAuditEventsFmt, err) }
)
