package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/archon-systems/archon-core/pkg/archerr"
	"github.com/archon-systems/archon-core/pkg/span"
)

// SQLStore is a relational Timeline Ledger backend: one relation per
// deployment, insert-only, with per-tenant logical partitioning via
// the tenant_id column. It runs against any database/sql driver; the
// node wires it to lib/pq for Postgres or modernc.org/sqlite for an
// embedded/dev deployment, selecting placeholder syntax accordingly.
type SQLStore struct {
	db         *sql.DB
	positional bool // true for $1,$2 (Postgres), false for ? (SQLite)
}

// NewPostgresStore builds a SQLStore against an already-open Postgres
// connection (driver "postgres" registered by github.com/lib/pq's
// blank import) and runs its migration.
func NewPostgresStore(ctx context.Context, db *sql.DB) (*SQLStore, error) {
	s := &SQLStore{db: db, positional: true}
	if err := s.migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// NewSQLiteStore builds a SQLStore against an already-open SQLite
// connection (driver "sqlite" registered by modernc.org/sqlite's
// blank import) and runs its migration.
func NewSQLiteStore(ctx context.Context, db *sql.DB) (*SQLStore, error) {
	s := &SQLStore{db: db, positional: false}
	if err := s.migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS spans (
	tenant_id      TEXT NOT NULL,
	id             TEXT NOT NULL,
	timestamp      TEXT NOT NULL,
	author_id      TEXT NOT NULL,
	title          TEXT NOT NULL,
	payload        TEXT NOT NULL,
	contract_id    TEXT,
	workflow_id    TEXT,
	flow_id        TEXT,
	caused_by      TEXT,
	replay_from    TEXT,
	replay_count   INTEGER NOT NULL DEFAULT 0,
	status         TEXT NOT NULL,
	verification_status TEXT NOT NULL,
	signature      TEXT NOT NULL,
	prev_hash      TEXT NOT NULL,
	entry_hash     TEXT NOT NULL,
	PRIMARY KEY (tenant_id, id)
);
CREATE INDEX IF NOT EXISTS idx_spans_tenant_ts ON spans (tenant_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_spans_tenant_author ON spans (tenant_id, author_id);
CREATE INDEX IF NOT EXISTS idx_spans_tenant_contract ON spans (tenant_id, contract_id);
CREATE INDEX IF NOT EXISTS idx_spans_tenant_caused_by ON spans (tenant_id, caused_by);

CREATE TABLE IF NOT EXISTS tenant_genesis (
	tenant_id TEXT PRIMARY KEY,
	sentinel  TEXT NOT NULL
);
`

func (s *SQLStore) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schemaDDL)
	if err != nil {
		return archerr.Wrap(archerr.Backend, "ledger.migration_failed", "failed to apply ledger schema", err)
	}
	return nil
}

// ph renders the n-th placeholder (1-based) for the configured driver.
func (s *SQLStore) ph(n int) string {
	if s.positional {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// headTx reads the current head entry_hash for a tenant within tx,
// defaulting to the genesis sentinel when no spans exist yet. Callers
// must hold tx for the whole read-compute-append sequence to keep the
// per-tenant write path serialized at the database level.
func (s *SQLStore) headTx(ctx context.Context, tx *sql.Tx, tenantID string) (string, error) {
	query := fmt.Sprintf(`SELECT entry_hash FROM spans WHERE tenant_id = %s ORDER BY timestamp DESC, id DESC LIMIT 1`, s.ph(1))
	var head string
	err := tx.QueryRowContext(ctx, query, tenantID).Scan(&head)
	if err == sql.ErrNoRows {
		return span.GenesisSentinel(tenantID), nil
	}
	if err != nil {
		return "", archerr.Wrap(archerr.Backend, "ledger.head_query_failed", "failed to read tenant head", err)
	}
	return head, nil
}

// Head reads a tenant's current chain head outside of any write
// transaction. A caller racing a concurrent Append may observe a
// stale head; that race is resolved by Append's own prev_hash check,
// not by this read.
func (s *SQLStore) Head(ctx context.Context, tenantID string) (string, error) {
	query := fmt.Sprintf(`SELECT entry_hash FROM spans WHERE tenant_id = %s ORDER BY timestamp DESC, id DESC LIMIT 1`, s.ph(1))
	var head string
	err := s.db.QueryRowContext(ctx, query, tenantID).Scan(&head)
	if err == sql.ErrNoRows {
		return span.GenesisSentinel(tenantID), nil
	}
	if err != nil {
		return "", archerr.Wrap(archerr.Backend, "ledger.head_query_failed", "failed to read tenant head", err)
	}
	return head, nil
}

// Append commits a span transactionally: the head read and the insert
// happen inside one transaction so a concurrent writer either commits
// first (and this call sees the divergence) or waits.
func (s *SQLStore) Append(ctx context.Context, requesterTenantID string, sp span.Span) (Receipt, error) {
	if requesterTenantID != sp.TenantID {
		return Receipt{}, archerr.New(archerr.NotAuthorized, "ledger.tenant_mismatch", "caller token does not name this span's tenant")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Receipt{}, archerr.Wrap(archerr.Backend, "ledger.tx_begin_failed", "failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	head, err := s.headTx(ctx, tx, sp.TenantID)
	if err != nil {
		return Receipt{}, err
	}
	if sp.PrevHash != head {
		return Receipt{}, archerr.New(archerr.Conflict, "ledger.chain_divergence", "prev_hash does not match current tenant head")
	}

	payloadJSON, err := json.Marshal(sp.Payload)
	if err != nil {
		return Receipt{}, archerr.Wrap(archerr.Internal, "ledger.payload_encode_failed", "failed to encode payload", err)
	}

	insert := fmt.Sprintf(`INSERT INTO spans (
		tenant_id, id, timestamp, author_id, title, payload, contract_id, workflow_id, flow_id,
		caused_by, replay_from, replay_count, status, verification_status, signature, prev_hash, entry_hash
	) VALUES (%s,%s,%s,%s,%s,%s,%s,%s,%s,%s,%s,%s,%s,%s,%s,%s,%s)`,
		s.ph(1), s.ph(2), s.ph(3), s.ph(4), s.ph(5), s.ph(6), s.ph(7), s.ph(8), s.ph(9),
		s.ph(10), s.ph(11), s.ph(12), s.ph(13), s.ph(14), s.ph(15), s.ph(16), s.ph(17))

	_, err = tx.ExecContext(ctx, insert,
		sp.TenantID, sp.ID, sp.Timestamp.UTC().Format(time.RFC3339Nano), sp.AuthorID, sp.Title, string(payloadJSON),
		sp.ContractID, sp.WorkflowID, sp.FlowID, sp.CausedBy, sp.ReplayFrom, sp.ReplayCount,
		string(sp.Status), string(sp.VerificationStatus), sp.Signature, sp.PrevHash, sp.EntryHash,
	)
	if err != nil {
		return Receipt{}, archerr.Wrap(archerr.Backend, "ledger.insert_failed", "failed to insert span", err)
	}

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM spans WHERE tenant_id = %s`, s.ph(1))
	var position uint64
	if err := tx.QueryRowContext(ctx, countQuery, sp.TenantID).Scan(&position); err != nil {
		return Receipt{}, archerr.Wrap(archerr.Backend, "ledger.position_query_failed", "failed to compute position", err)
	}

	if err := tx.Commit(); err != nil {
		return Receipt{}, archerr.Wrap(archerr.Backend, "ledger.tx_commit_failed", "failed to commit transaction", err)
	}

	return Receipt{EntryHash: sp.EntryHash, Position: position}, nil
}

// Get returns a single span by ID, scoped to the requester's tenant.
func (s *SQLStore) Get(ctx context.Context, requesterTenantID, id string) (span.Span, error) {
	query := fmt.Sprintf(`SELECT %s FROM spans WHERE tenant_id = %s AND id = %s`, spanColumns, s.ph(1), s.ph(2))
	row := s.db.QueryRowContext(ctx, query, requesterTenantID, id)
	sp, err := scanSpan(row)
	if err == sql.ErrNoRows {
		return span.Span{}, archerr.New(archerr.NotFound, "ledger.not_found", fmt.Sprintf("span %q not found", id))
	}
	if err != nil {
		return span.Span{}, archerr.Wrap(archerr.Backend, "ledger.scan_failed", "failed to scan span row", err)
	}
	return sp, nil
}

// selectTenant loads every span committed under tenantID, ordered by
// timestamp (and id as a tiebreaker) in the requested direction. It is
// the shared scan path Query, Replay, and Integrity build on; none of
// them push their real work down into SQL beyond this single scan.
func (s *SQLStore) selectTenant(ctx context.Context, tenantID, direction string) ([]span.Span, error) {
	query := fmt.Sprintf(`SELECT %s FROM spans WHERE tenant_id = %s ORDER BY timestamp %s, id %s`,
		spanColumns, s.ph(1), direction, direction)
	rows, err := s.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, archerr.Wrap(archerr.Backend, "ledger.scan_query_failed", "failed to query tenant spans", err)
	}
	defer rows.Close()

	var out []span.Span
	for rows.Next() {
		sp, err := scanSpan(rows)
		if err != nil {
			return nil, archerr.Wrap(archerr.Backend, "ledger.scan_failed", "failed to scan span row", err)
		}
		out = append(out, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, archerr.Wrap(archerr.Backend, "ledger.scan_failed", "failed to iterate span rows", err)
	}
	return out, nil
}

// Query returns spans matching filter, ordered by timestamp descending,
// with a stable opaque cursor, mirroring Memory.Query's contract.
func (s *SQLStore) Query(ctx context.Context, requesterTenantID string, f Filter, cursor string, limit int) (Page, error) {
	all, err := s.selectTenant(ctx, requesterTenantID, "DESC")
	if err != nil {
		return Page{}, err
	}

	matched := make([]span.Span, 0, len(all))
	for _, sp := range all {
		if f.matches(sp) {
			matched = append(matched, sp)
		}
	}

	offset, err := decodeCursor(cursor)
	if err != nil {
		return Page{}, archerr.Wrap(archerr.Validation, "ledger.bad_cursor", "cursor is not valid", err)
	}
	if limit <= 0 {
		limit = 50
	}
	if offset >= len(matched) {
		return Page{}, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	page := Page{Spans: matched[offset:end]}
	if end < len(matched) {
		page.NextCursor = encodeCursor(end)
	}
	return page, nil
}

// Replay yields spans in commit order starting at fromID, inclusive,
// mirroring Memory.Replay's contract.
func (s *SQLStore) Replay(ctx context.Context, requesterTenantID, fromID string) ([]span.Span, error) {
	all, err := s.selectTenant(ctx, requesterTenantID, "ASC")
	if err != nil {
		return nil, err
	}
	if fromID == "" {
		return all, nil
	}
	for i, sp := range all {
		if sp.ID == fromID {
			return all[i:], nil
		}
	}
	return nil, archerr.New(archerr.NotFound, "ledger.not_found", fmt.Sprintf("span %q not found", fromID))
}

// Integrity recomputes the tenant's tail digest from scratch, walking
// the whole chain independent of any stored head value, mirroring
// Memory.Integrity's contract.
func (s *SQLStore) Integrity(ctx context.Context, tenantID string) (string, error) {
	all, err := s.selectTenant(ctx, tenantID, "ASC")
	if err != nil {
		return "", err
	}

	prevHash := span.GenesisSentinel(tenantID)
	for _, sp := range all {
		if sp.PrevHash != prevHash {
			return "", archerr.New(archerr.Internal, "ledger.chain_broken", fmt.Sprintf("span %q does not chain from the expected predecessor", sp.ID))
		}
		recomputed, err := span.Recompute(sp)
		if err != nil {
			return "", archerr.Wrap(archerr.Internal, "ledger.recompute_failed", "failed to recompute entry hash", err)
		}
		if recomputed != sp.EntryHash {
			return "", archerr.New(archerr.Internal, "ledger.tamper_detected", fmt.Sprintf("span %q entry_hash does not match recomputed value", sp.ID))
		}
		prevHash = sp.EntryHash
	}
	return prevHash, nil
}

// IncrementReplayCount advances a committed span's replay_count by
// one, mirroring Memory.IncrementReplayCount's contract. replay_count
// sits outside the signed payload, so this is a plain column update
// with no interaction with signature or entry_hash.
func (s *SQLStore) IncrementReplayCount(ctx context.Context, tenantID, id string) error {
	query := fmt.Sprintf(`UPDATE spans SET replay_count = replay_count + 1 WHERE tenant_id = %s AND id = %s`, s.ph(1), s.ph(2))
	res, err := s.db.ExecContext(ctx, query, tenantID, id)
	if err != nil {
		return archerr.Wrap(archerr.Backend, "ledger.increment_replay_count_failed", "failed to advance replay_count", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return archerr.Wrap(archerr.Backend, "ledger.increment_replay_count_failed", "failed to confirm replay_count update", err)
	}
	if n == 0 {
		return archerr.New(archerr.NotFound, "ledger.not_found", fmt.Sprintf("span %q not found", id))
	}
	return nil
}

const spanColumns = `tenant_id, id, timestamp, author_id, title, payload, contract_id, workflow_id, flow_id,
	caused_by, replay_from, replay_count, status, verification_status, signature, prev_hash, entry_hash`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSpan(row rowScanner) (span.Span, error) {
	var (
		tenantID, id, timestampStr, authorID, title, payloadJSON string
		contractID, workflowID, flowID, causedBy, replayFrom     sql.NullString
		replayCount                                              int
		status, verificationStatus, signature, prevHash, entryHash string
	)
	if err := row.Scan(
		&tenantID, &id, &timestampStr, &authorID, &title, &payloadJSON,
		&contractID, &workflowID, &flowID, &causedBy, &replayFrom, &replayCount,
		&status, &verificationStatus, &signature, &prevHash, &entryHash,
	); err != nil {
		return span.Span{}, err
	}

	ts, err := time.Parse(time.RFC3339Nano, timestampStr)
	if err != nil {
		return span.Span{}, fmt.Errorf("ledger: corrupt timestamp %q: %w", timestampStr, err)
	}
	var payload map[string]interface{}
	if payloadJSON != "" {
		if err := json.Unmarshal([]byte(payloadJSON), &payload); err != nil {
			return span.Span{}, fmt.Errorf("ledger: corrupt payload for span %s/%s: %w", tenantID, id, err)
		}
	}

	return span.Span{
		ID: id, Timestamp: ts, TenantID: tenantID, AuthorID: authorID, Title: title, Payload: payload,
		ContractID: contractID.String, WorkflowID: workflowID.String, FlowID: flowID.String,
		CausedBy: causedBy.String, ReplayFrom: replayFrom.String, ReplayCount: replayCount,
		Status: span.Status(status), VerificationStatus: span.VerificationStatus(verificationStatus),
		Signature: signature, PrevHash: prevHash, EntryHash: entryHash,
	}, nil
}
