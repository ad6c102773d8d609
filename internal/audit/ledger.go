// Package audit keeps an append-only, hash-chained ledger of mutating
// operations, one chain per department. Department 0 holds global events.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	db "github.com/Armour007/wellness-backend/internal"
)

// GlobalScope is the chain for events without a department.
const GlobalScope int64 = 0

// advisory lock class for chain appends
const lockClass = 7301

// Row caps for List and Verify. Larger requests are clamped.
const (
	MaxListLimit   = 500
	MaxVerifyLimit = 10000
)

// ErrChainBroken marks a ledger whose hashes no longer link up.
var ErrChainBroken = errors.New("audit chain broken")

type Entry struct {
	Seq          int64     `db:"seq" json:"seq"`
	DepartmentID int64     `db:"department_id" json:"department_id"`
	ActorUserID  *int64    `db:"actor_user_id" json:"actor_user_id,omitempty"`
	EventType    string    `db:"event_type" json:"event_type"`
	Payload      db.JSON   `db:"payload" json:"payload"`
	PrevHash     string    `db:"prev_hash" json:"prev_hash"`
	ThisHash     string    `db:"this_hash" json:"this_hash"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Scope maps an optional department to its chain.
func Scope(departmentID *int64) int64 {
	if departmentID == nil {
		return GlobalScope
	}
	return *departmentID
}

// Append writes a new audit event to the department's chain.
// this_hash = SHA256(prev_hash_bytes || canonical_json)
func Append(ctx context.Context, departmentID int64, eventType string, payload any, actorUserID *int64) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	b, err := canonical(raw)
	if err != nil {
		return err
	}
	tx, err := db.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1, $2)`, lockClass, departmentID); err != nil {
		return fmt.Errorf("lock audit chain: %w", err)
	}
	var prev string
	if err := tx.GetContext(ctx, &prev, `SELECT this_hash FROM audit_ledger WHERE department_id=$1 ORDER BY seq DESC LIMIT 1`, departmentID); err != nil && !db.IsNoRows(err) {
		return err
	}
	hs := chain(prev, b)
	if _, err := tx.ExecContext(ctx, `INSERT INTO audit_ledger(department_id, actor_user_id, event_type, payload, prev_hash, this_hash) VALUES ($1,$2,$3,$4,$5,$6)`, departmentID, actorUserID, eventType, b, prev, hs); err != nil {
		return err
	}
	return tx.Commit()
}

// List returns the newest entries of a chain first.
func List(ctx context.Context, departmentID int64, limit int) ([]Entry, error) {
	switch {
	case limit <= 0:
		limit = 100
	case limit > MaxListLimit:
		limit = MaxListLimit
	}
	out := []Entry{}
	err := db.DB.SelectContext(ctx, &out, `SELECT seq, department_id, actor_user_id, event_type, payload, prev_hash, this_hash, created_at FROM audit_ledger WHERE department_id=$1 ORDER BY seq DESC LIMIT $2`, departmentID, limit)
	return out, err
}

// Verify walks the chain for a department and returns the first broken seq or 0 when OK.
// A broken chain yields an error wrapping ErrChainBroken; any other error is a read failure.
func Verify(ctx context.Context, departmentID int64, limit int) (int64, error) {
	type row struct {
		Seq     int64  `db:"seq"`
		Prev    string `db:"prev_hash"`
		This    string `db:"this_hash"`
		Payload []byte `db:"payload"`
	}
	rows := []row{}
	if limit <= 0 || limit > MaxVerifyLimit {
		limit = MaxVerifyLimit
	}
	if err := db.DB.SelectContext(ctx, &rows, `SELECT seq, prev_hash, this_hash, payload FROM audit_ledger WHERE department_id=$1 ORDER BY seq ASC LIMIT $2`, departmentID, limit); err != nil {
		return 0, err
	}
	var last string
	for _, r := range rows {
		if r.Prev != last {
			return r.Seq, fmt.Errorf("%w: prev hash mismatch at seq %d", ErrChainBroken, r.Seq)
		}
		b, err := canonical(r.Payload)
		if err != nil {
			return r.Seq, fmt.Errorf("%w: payload at seq %d: %v", ErrChainBroken, r.Seq, err)
		}
		if chain(last, b) != r.This {
			return r.Seq, fmt.Errorf("%w: hash mismatch at seq %d", ErrChainBroken, r.Seq)
		}
		last = r.This
	}
	return 0, nil
}

func chain(prev string, payload []byte) string {
	h := sha256.New()
	if prev != "" {
		pb, _ := hex.DecodeString(prev)
		h.Write(pb)
	}
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

// canonical re-encodes JSON with sorted keys so JSONB round trips hash the same.
func canonical(b []byte) ([]byte, error) {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, err
	}
	return json.Marshal(v)
}
