package order

import (
	"crypto/subtle"
	"fmt"
	"time"

	"fulfillment/internal/pkg/errs"
)

// HandoverCodeLength is the number of digits in a handover code.
const HandoverCodeLength = 6

// CodeStatus tracks a handover code through its single use.
type CodeStatus int

const (
	CodeActive CodeStatus = iota + 1
	CodeConsumed
	CodeExpired
	// CodeRevoked marks a code discarded because the order left ReadyForPickup
	// without a handover.
	CodeRevoked
)

func (s CodeStatus) String() string {
	switch s {
	case CodeActive:
		return "Active"
	case CodeConsumed:
		return "Consumed"
	case CodeExpired:
		return "Expired"
	case CodeRevoked:
		return "Revoked"
	default:
		return "Unknown"
	}
}

// HandoverCode is the one-time code that gates ReadyForPickup -> Completed.
// Once the code is no longer active its value is wiped; only the status is kept.
type HandoverCode struct {
	value    string
	issuedAt time.Time
	status   CodeStatus
	closedAt *time.Time
}

// CodeGenerator produces fresh handover codes.
type CodeGenerator interface {
	Generate() (string, error)
}

// NewHandoverCode validates a freshly generated code.
func NewHandoverCode(value string, issuedAt time.Time) (*HandoverCode, error) {
	if err := validateCodeFormat(value); err != nil {
		return nil, err
	}
	return &HandoverCode{value: value, issuedAt: issuedAt, status: CodeActive}, nil
}

// RestoreHandoverCode rebuilds a code from persistence.
func RestoreHandoverCode(value string, issuedAt time.Time, status CodeStatus, closedAt *time.Time) (*HandoverCode, error) {
	switch status {
	case CodeActive:
		if err := validateCodeFormat(value); err != nil {
			return nil, err
		}
	case CodeConsumed, CodeExpired, CodeRevoked:
		value = ""
	default:
		return nil, errs.NewValueIsInvalidErrorWithCause("handover code status is invalid", fmt.Errorf("%d", status))
	}
	return &HandoverCode{value: value, issuedAt: issuedAt, status: status, closedAt: closedAt}, nil
}

func validateCodeFormat(value string) error {
	if len(value) != HandoverCodeLength {
		return errs.NewValueIsOutOfRangeError("handover code length", len(value), HandoverCodeLength, HandoverCodeLength)
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return errs.NewValueIsInvalidErrorWithCause("handover code", fmt.Errorf("%q is not numeric", value))
		}
	}
	return nil
}

// Value is the plain code while active, otherwise empty.
func (c *HandoverCode) Value() string {
	if c == nil || c.status != CodeActive {
		return ""
	}
	return c.value
}

func (c *HandoverCode) IssuedAt() time.Time  { return c.issuedAt }
func (c *HandoverCode) Status() CodeStatus   { return c.status }
func (c *HandoverCode) ClosedAt() *time.Time { return c.closedAt }
func (c *HandoverCode) IsActive() bool       { return c != nil && c.status == CodeActive }

// Matches compares in constant time. Inactive codes never match.
func (c *HandoverCode) Matches(supplied string) bool {
	if !c.IsActive() {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(c.value), []byte(supplied)) == 1
}

// IsStale reports whether an active code was issued more than ttl before now.
func (c *HandoverCode) IsStale(now time.Time, ttl time.Duration) bool {
	return c.IsActive() && ttl > 0 && !c.issuedAt.Add(ttl).After(now)
}

func (c *HandoverCode) clone() *HandoverCode {
	if c == nil {
		return nil
	}
	cp := *c
	if c.closedAt != nil {
		at := *c.closedAt
		cp.closedAt = &at
	}
	return &cp
}

func (c *HandoverCode) close(status CodeStatus, at time.Time) {
	c.status = status
	c.value = ""
	c.closedAt = &at
}
