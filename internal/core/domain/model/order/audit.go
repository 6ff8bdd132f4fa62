package order

import "time"

// AuditEntry is the immutable record of one committed transition.
type AuditEntry struct {
	seq         int
	action      Action
	actor       Actor
	from        State
	to          State
	at          time.Time
	evidenceRef string
}

// RestoreAuditEntry rebuilds an entry from persistence.
func RestoreAuditEntry(seq int, action Action, actor Actor, from, to State, at time.Time, evidenceRef string) AuditEntry {
	return AuditEntry{seq: seq, action: action, actor: actor, from: from, to: to, at: at, evidenceRef: evidenceRef}
}

func (e AuditEntry) Seq() int            { return e.seq }
func (e AuditEntry) Action() Action      { return e.action }
func (e AuditEntry) Actor() Actor        { return e.actor }
func (e AuditEntry) From() State         { return e.from }
func (e AuditEntry) To() State           { return e.to }
func (e AuditEntry) At() time.Time       { return e.at }
func (e AuditEntry) EvidenceRef() string { return e.evidenceRef }
