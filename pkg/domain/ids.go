// Package domain holds the typed identifiers shared across ANIMA packages.
//
// Each identifier wraps a UUID so the compiler rejects passing a SiteID where
// an EmployeeID is expected. Parse* functions are the trust boundary: they
// reject empty, malformed and nil UUIDs with CodeInvalidInput.
package domain

import (
	"github.com/google/uuid"

	dErrors "anima/pkg/domain-errors"
)

type (
	UserID     uuid.UUID
	EmployeeID uuid.UUID
	SiteID     uuid.UUID
	LogID      uuid.UUID
)

func parseUUID(s, field string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" is required")
	}
	if len(s) > 64 {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" is too long")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, field+" must be a valid uuid")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" must not be nil")
	}
	return u, nil
}

func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user_id")
	return UserID(u), err
}

func ParseEmployeeID(s string) (EmployeeID, error) {
	u, err := parseUUID(s, "employee_id")
	return EmployeeID(u), err
}

func ParseSiteID(s string) (SiteID, error) {
	u, err := parseUUID(s, "site_id")
	return SiteID(u), err
}

func ParseLogID(s string) (LogID, error) {
	u, err := parseUUID(s, "log_id")
	return LogID(u), err
}

func (id UserID) String() string { return uuid.UUID(id).String() }
func (id UserID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id UserID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id *UserID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

func (id EmployeeID) String() string { return uuid.UUID(id).String() }
func (id EmployeeID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id EmployeeID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id *EmployeeID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

func (id SiteID) String() string { return uuid.UUID(id).String() }
func (id SiteID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id SiteID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id *SiteID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

func (id LogID) String() string { return uuid.UUID(id).String() }
func (id LogID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id LogID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id *LogID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}
