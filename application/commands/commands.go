// Package commands defines the state-changing operations a reader can perform
// against the narrative contract.
package commands

import (
	"errors"

	pkgerrors "optio-backend/pkg/errors"
	"optio-backend/pkg/utils"
)

// ContributeNexusCommand writes a new nexus, paying the contribution fee.
// SessionID is optional; when set, progress is reported to that session.
type ContributeNexusCommand struct {
	SessionID string `json:"sessionId" validate:"omitempty,uuid4"`
	Content   string `json:"content" validate:"required"`
}

// Validate checks the command's fields
func (c ContributeNexusCommand) Validate() error {
	return validate(c)
}

// BindOptioCommand links an origin nexus to a destination with an optio. The
// destination is either an existing nexus or a new one written first from
// NewNexusContent. The origin is the session's current nexus unless OriginID
// is given.
type BindOptioCommand struct {
	SessionID       string  `json:"sessionId" validate:"omitempty,uuid4"`
	OriginID        *uint64 `json:"originId,omitempty"`
	Content         string  `json:"content" validate:"required"`
	DestinationID   *uint64 `json:"destinationId,omitempty" validate:"required_without=NewNexusContent"`
	NewNexusContent string  `json:"newNexusContent,omitempty" validate:"excluded_with=DestinationID"`
}

// Validate checks the command's fields
func (c BindOptioCommand) Validate() error {
	if err := validate(c); err != nil {
		return err
	}
	if c.SessionID == "" && c.OriginID == nil {
		return pkgerrors.NewValidationError("sessionid is required when originid is not set")
	}
	return nil
}

// CreatesNexus reports whether the destination must be written first
func (c BindOptioCommand) CreatesNexus() bool {
	return c.DestinationID == nil
}

// RegisterNameCommand registers a display name for the wallet account
type RegisterNameCommand struct {
	SessionID string `json:"sessionId" validate:"omitempty,uuid4"`
	Name      string `json:"name" validate:"required"`
}

// Validate checks the command's fields
func (c RegisterNameCommand) Validate() error {
	return validate(c)
}

// SacrificeCommand bids the contract's current bid
type SacrificeCommand struct {
	SessionID string `json:"sessionId" validate:"omitempty,uuid4"`
}

// Validate checks the command's fields
func (c SacrificeCommand) Validate() error {
	return validate(c)
}

// WithdrawCommand withdraws the account's claimable balance
type WithdrawCommand struct {
	SessionID string `json:"sessionId" validate:"omitempty,uuid4"`
}

// Validate checks the command's fields
func (c WithdrawCommand) Validate() error {
	return validate(c)
}

func validate(cmd interface{}) error {
	err := utils.ValidateStruct(cmd)
	if err == nil {
		return nil
	}
	appErr := pkgerrors.NewValidationError(err.Error())
	var fields utils.FieldErrors
	if errors.As(err, &fields) {
		appErr = appErr.WithDetails(map[string]interface{}{"fields": fields})
	}
	return appErr
}
