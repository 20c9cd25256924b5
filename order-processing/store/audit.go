package store

import "kalpanik-operations/order-processing/types"

// auditLog is a fixed-size ring; once full the oldest entry is overwritten.
type auditLog struct {
	entries []types.AuditEntry
	next    int
	full    bool
	seq     int64
}

func newAuditLog(capacity int) *auditLog {
	if capacity <= 0 {
		capacity = DefaultAuditCapacity
	}
	return &auditLog{entries: make([]types.AuditEntry, capacity)}
}

func (l *auditLog) Append(e types.AuditEntry) {
	l.seq++
	e.Seq = l.seq
	l.entries[l.next] = e
	l.next = (l.next + 1) % len(l.entries)
	if l.next == 0 {
		l.full = true
	}
}

func (l *auditLog) Entries() []types.AuditEntry {
	if !l.full {
		return append([]types.AuditEntry(nil), l.entries[:l.next]...)
	}
	out := make([]types.AuditEntry, 0, len(l.entries))
	out = append(out, l.entries[l.next:]...)
	return append(out, l.entries[:l.next]...)
}
