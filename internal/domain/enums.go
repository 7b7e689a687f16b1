package domain

// SubmissionStatus represents the lifecycle state of an active submission.
type SubmissionStatus string

const (
	SubmissionStatusOpen      SubmissionStatus = "OPEN"
	SubmissionStatusValid     SubmissionStatus = "VALID"
	SubmissionStatusInvalid   SubmissionStatus = "INVALID"
	SubmissionStatusClosed    SubmissionStatus = "CLOSED"
	SubmissionStatusCommitted SubmissionStatus = "COMMITTED"
)

// ActiveSubmissionStatuses lists every non-terminal status.
var ActiveSubmissionStatuses = []SubmissionStatus{
	SubmissionStatusOpen,
	SubmissionStatusValid,
	SubmissionStatusInvalid,
}

func (s SubmissionStatus) String() string { return string(s) }

func (s SubmissionStatus) IsValid() bool {
	switch s {
	case SubmissionStatusOpen, SubmissionStatusValid, SubmissionStatusInvalid,
		SubmissionStatusClosed, SubmissionStatusCommitted:
		return true
	}
	return false
}

// IsTerminal reports whether no further mutation is allowed in this status.
func (s SubmissionStatus) IsTerminal() bool {
	return s == SubmissionStatusClosed || s == SubmissionStatusCommitted
}

// SubmissionActionType selects which pending changes a delete-entity call removes.
type SubmissionActionType string

const (
	SubmissionActionInserts SubmissionActionType = "INSERTS"
	SubmissionActionUpdates SubmissionActionType = "UPDATES"
	SubmissionActionDeletes SubmissionActionType = "DELETES"
	SubmissionActionAll     SubmissionActionType = "ALL"
)

func (a SubmissionActionType) String() string { return string(a) }

func (a SubmissionActionType) IsValid() bool {
	switch a {
	case SubmissionActionInserts, SubmissionActionUpdates, SubmissionActionDeletes, SubmissionActionAll:
		return true
	}
	return false
}

// AuditAction represents the kind of mutation recorded in the audit log.
type AuditAction string

const (
	AuditActionUpdate AuditAction = "UPDATE"
	AuditActionDelete AuditAction = "DELETE"
)

func (a AuditAction) String() string { return string(a) }

func (a AuditAction) IsValid() bool {
	switch a {
	case AuditActionUpdate, AuditActionDelete:
		return true
	}
	return false
}

// ValueType is the declared type of a schema field.
type ValueType string

const (
	ValueTypeString  ValueType = "string"
	ValueTypeInteger ValueType = "integer"
	ValueTypeNumber  ValueType = "number"
	ValueTypeBoolean ValueType = "boolean"
)

func (v ValueType) String() string { return string(v) }

func (v ValueType) IsValid() bool {
	switch v {
	case ValueTypeString, ValueTypeInteger, ValueTypeNumber, ValueTypeBoolean:
		return true
	}
	return false
}

// IsNumeric reports whether values of this type compare as numbers.
func (v ValueType) IsNumeric() bool {
	return v == ValueTypeInteger || v == ValueTypeNumber
}

// UserRole is carried in access tokens. Admins manage dictionaries and
// categories; every authenticated user may submit data.
type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

func (r UserRole) String() string { return string(r) }

func (r UserRole) IsValid() bool {
	return r == UserRoleUser || r == UserRoleAdmin
}
