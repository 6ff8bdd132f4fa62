package commands

import (
	"errors"
	"fmt"
	"time"

	"fulfillment/internal/pkg/errs"
	"fulfillment/internal/pkg/guard"
)

var ErrExpireHandoverCodesCommandIsNotConstructed = errors.New(
	"ExpireHandoverCodesCommand must be created via NewExpireHandoverCodesCommand constructor",
)

// ExpireHandoverCodesCommand discards handover codes older than TTL.
type ExpireHandoverCodesCommand struct {
	ttl time.Duration

	guard guard.ConstructorGuard
}

// NewExpireHandoverCodesCommand requires a positive TTL; a zero TTL means
// expiry is switched off and the job should not be scheduled at all.
func NewExpireHandoverCodesCommand(ttl time.Duration) (ExpireHandoverCodesCommand, error) {
	if ttl <= 0 {
		return ExpireHandoverCodesCommand{}, errs.NewValueIsInvalidErrorWithCause("ttl", fmt.Errorf("%s is not positive", ttl))
	}
	return ExpireHandoverCodesCommand{ttl: ttl, guard: guard.NewConstructorGuard()}, nil
}

func (c ExpireHandoverCodesCommand) Validate() error {
	return c.guard.Validate(ErrExpireHandoverCodesCommandIsNotConstructed)
}

func (c ExpireHandoverCodesCommand) TTL() time.Duration {
	return c.ttl
}
