package models

import "time"

// RequestStatus is the lifecycle state of a FlatRequest.
type RequestStatus string

const (
	RequestPending  RequestStatus = "PENDING"
	RequestApproved RequestStatus = "APPROVED"
	RequestRejected RequestStatus = "REJECTED"
)

// FlatStatus is the lifecycle state of a Flat row.
type FlatStatus string

const (
	FlatActive   FlatStatus = "ACTIVE"
	FlatDisabled FlatStatus = "DISABLED"
)

// FlatRequest is a request for access submitted by a prospective flat.
type FlatRequest struct {
	ID        int64
	FlatID    string
	Name      string
	Note      string
	Status    RequestStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Flat is an approved unit that may log in once PIN setup is complete.
type Flat struct {
	FlatID              string
	Status              FlatStatus
	PinHash             *string
	PasswordHash        *string
	StrikeCount         int
	BanUntil            *time.Time
	RequiresAdminRevoke bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
	LastLoginAt         *time.Time
}

// SetupCode is a one-shot secret binding a PIN (and optional password) to a flat.
type SetupCode struct {
	ID        int64
	FlatID    string
	CodeHash  string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

// Session is a server-side record behind the audix_user_sid cookie.
type Session struct {
	SID       string
	FlatID    string
	ExpiresAt time.Time
}
