// Package identity implements the flat lifecycle state machine: access
// requests, setup-code redemption, and login gating.
package identity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"audix/internal/constants"
	"audix/internal/db"
	"audix/internal/flatid"
	"audix/internal/hashpool"
	"audix/internal/models"
)

var pin4Pattern = regexp.MustCompile(`^\d{4}$`)

// CodedError carries one of the constants.ErrCode* strings so HTTP handlers
// can map it to a status code without string-matching error text.
type CodedError struct {
	Code string
	// BanUntil is populated only for ErrCodeBanned.
	BanUntil *time.Time
}

func (e *CodedError) Error() string { return e.Code }

func coded(code string) error { return &CodedError{Code: code} }

// CodeOf extracts the error code from err, returning "" if err is not a
// *CodedError (or is nil).
func CodeOf(err error) string {
	var ce *CodedError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// BanUntilOf extracts the ban expiry from a BANNED error, if present.
func BanUntilOf(err error) *time.Time {
	var ce *CodedError
	if errors.As(err, &ce) {
		return ce.BanUntil
	}
	return nil
}

const setupCodeLookback = 5

type Service struct {
	requests   *db.FlatRequestRepository
	flats      *db.FlatRepository
	setupCodes *db.SetupCodeRepository
	hashes     *hashpool.Pool
}

func NewService(requests *db.FlatRequestRepository, flats *db.FlatRepository, setupCodes *db.SetupCodeRepository, hashes *hashpool.Pool) *Service {
	return &Service{requests: requests, flats: flats, setupCodes: setupCodes, hashes: hashes}
}

// AccessRequestResult is the response shape for CreateAccessRequest.
type AccessRequestResult struct {
	ID     int64
	Status models.RequestStatus
	Reused bool
}

func (s *Service) CreateAccessRequest(ctx context.Context, flatIDRaw, name string) (*AccessRequestResult, error) {
	flatID := flatid.Canonicalize(flatIDRaw)
	if flatID == "" || name == "" {
		return nil, coded(constants.ErrCodeMissingFields)
	}

	existing, err := s.requests.FindPendingByFlatID(flatID)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("finding pending request: %w", err)
	}
	if existing != nil {
		return &AccessRequestResult{ID: existing.ID, Status: existing.Status, Reused: true}, nil
	}

	created, err := s.requests.Create(flatID, name)
	if err != nil {
		if db.IsUniqueConstraintError(err) {
			// Lost the race: another request for this flat_id landed first.
			existing, findErr := s.requests.FindPendingByFlatID(flatID)
			if findErr != nil {
				return nil, fmt.Errorf("finding pending request after race: %w", findErr)
			}
			return &AccessRequestResult{ID: existing.ID, Status: existing.Status, Reused: true}, nil
		}
		return nil, fmt.Errorf("creating request: %w", err)
	}
	return &AccessRequestResult{ID: created.ID, Status: created.Status, Reused: false}, nil
}

// SetupStatus is the response shape for GetSetupStatus.
type SetupStatus struct {
	Request *models.FlatRequest
	Flat    *FlatSummary
}

type FlatSummary struct {
	Status              models.FlatStatus
	PinSet              bool
	Banned              bool
	RequiresAdminRevoke bool
}

func (s *Service) GetSetupStatus(ctx context.Context, flatIDRaw string) (*SetupStatus, error) {
	flatID := flatid.Canonicalize(flatIDRaw)
	if flatID == "" {
		return nil, coded(constants.ErrCodeMissingFlatID)
	}

	out := &SetupStatus{}

	req, err := s.requests.FindLatestByFlatID(flatID)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("finding latest request: %w", err)
	}
	if err == nil {
		out.Request = req
	}

	flat, err := s.flats.FindByID(flatID)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("finding flat: %w", err)
	}
	if err == nil {
		out.Flat = &FlatSummary{
			Status:              flat.Status,
			PinSet:              flat.PinHash != nil,
			Banned:              flat.BanUntil != nil && flat.BanUntil.After(time.Now()),
			RequiresAdminRevoke: flat.RequiresAdminRevoke,
		}
	}

	return out, nil
}

func (s *Service) SetupPinWithCode(ctx context.Context, flatIDRaw, code, pin4 string, password *string) error {
	flatID := flatid.Canonicalize(flatIDRaw)
	if flatID == "" || code == "" || pin4 == "" {
		return coded(constants.ErrCodeMissingFields)
	}
	if !pin4Pattern.MatchString(pin4) {
		return coded(constants.ErrCodePinMustBe4Digits)
	}

	flat, err := s.flats.FindByID(flatID)
	if errors.Is(err, db.ErrNotFound) {
		return coded(constants.ErrCodeFlatNotFound)
	}
	if err != nil {
		return fmt.Errorf("finding flat: %w", err)
	}
	if flat.Status != models.FlatActive {
		return coded(constants.ErrCodeFlatDisabled)
	}

	candidates, err := s.setupCodes.RecentByFlatID(flatID, setupCodeLookback)
	if err != nil {
		return fmt.Errorf("loading setup codes: %w", err)
	}
	if len(candidates) == 0 {
		return coded(constants.ErrCodeNoValidCode)
	}

	now := time.Now()
	var valid *models.SetupCode
	for _, c := range candidates {
		if c.UsedAt == nil && c.ExpiresAt.After(now) {
			valid = c
			break
		}
	}
	if valid == nil {
		// No unused, unexpired code exists, but a recent one might still
		// match what was supplied — that's a reuse/expiry attempt against a
		// recognized code, not "no code at all".
		for _, c := range candidates {
			if s.hashes.Compare(ctx, c.CodeHash, code) == nil {
				return coded(constants.ErrCodeInvalidCode)
			}
		}
		return coded(constants.ErrCodeNoValidCode)
	}

	if err := s.hashes.Compare(ctx, valid.CodeHash, code); err != nil {
		return coded(constants.ErrCodeInvalidCode)
	}

	pinHash, err := s.hashes.Hash(ctx, pin4)
	if err != nil {
		return fmt.Errorf("hashing pin: %w", err)
	}

	var passwordHash *string
	if password != nil && *password != "" {
		hashed, err := s.hashes.Hash(ctx, *password)
		if err != nil {
			return fmt.Errorf("hashing password: %w", err)
		}
		passwordHash = &hashed
	}

	if err := s.flats.SetCredentialsConsumingCode(flatID, valid.ID, pinHash, passwordHash); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			// Lost the race to mark the code used — treat as already consumed.
			return coded(constants.ErrCodeInvalidCode)
		}
		return fmt.Errorf("setting credentials: %w", err)
	}

	return nil
}

func (s *Service) LoginFlat(ctx context.Context, flatIDRaw, pin4 string, password *string) (string, error) {
	flatID := flatid.Canonicalize(flatIDRaw)
	if flatID == "" || pin4 == "" {
		return "", coded(constants.ErrCodeMissingFields)
	}

	flat, err := s.flats.FindByID(flatID)
	if errors.Is(err, db.ErrNotFound) {
		return "", coded(constants.ErrCodeFlatNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("finding flat: %w", err)
	}

	if flat.Status != models.FlatActive {
		return "", coded(constants.ErrCodeFlatDisabled)
	}
	if flat.BanUntil != nil && flat.BanUntil.After(time.Now()) {
		until := *flat.BanUntil
		return "", &CodedError{Code: constants.ErrCodeBanned, BanUntil: &until}
	}
	if flat.RequiresAdminRevoke {
		return "", coded(constants.ErrCodeAdminRevokeRequired)
	}
	if flat.PinHash == nil {
		return "", coded(constants.ErrCodePinNotSet)
	}
	if !pin4Pattern.MatchString(pin4) {
		return "", coded(constants.ErrCodeInvalidPin)
	}
	if flat.PasswordHash != nil && (password == nil || *password == "") {
		return "", coded(constants.ErrCodePasswordRequired)
	}

	if err := s.hashes.Compare(ctx, *flat.PinHash, pin4); err != nil {
		return "", coded(constants.ErrCodeInvalidCredentials)
	}
	if flat.PasswordHash != nil {
		if err := s.hashes.Compare(ctx, *flat.PasswordHash, *password); err != nil {
			return "", coded(constants.ErrCodeInvalidCredentials)
		}
	}

	if err := s.flats.UpdateLastLogin(flatID); err != nil {
		return "", fmt.Errorf("updating last login: %w", err)
	}

	return flatID, nil
}
