package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	id "remitpool/pkg/domain"
	dErrors "remitpool/pkg/domain-errors"
	"remitpool/pkg/platform/sentinel"
)

// Named failures.
var (
	// ErrNotRegistered is returned when a hash has no registration.
	ErrNotRegistered = dErrors.New(dErrors.CodeNotFound, "identifier is not registered")

	// ErrAlreadyRegistered is returned when registering a hash that is
	// already bound.
	ErrAlreadyRegistered = dErrors.New(dErrors.CodeConflict, "identifier is already registered")

	// ErrWalletAlreadyBound is returned when an account already owns a
	// different hash registration.
	ErrWalletAlreadyBound = dErrors.New(dErrors.CodeConflict, "wallet already owns a registration")

	// ErrWalletRequired is returned for empty wallet inputs.
	ErrWalletRequired = dErrors.New(dErrors.CodeBadRequest, "wallet is required")

	// ErrHashRequired is returned for empty hash inputs.
	ErrHashRequired = dErrors.New(dErrors.CodeBadRequest, "identifier hash is required")

	// ErrLengthMismatch is returned when batch slices disagree in length.
	ErrLengthMismatch = dErrors.New(dErrors.CodeBadRequest, "hashes and wallets must have equal length")
)

// Service maintains the privacy-preserving alias registry. All reads are pure;
// mutations keep the hash↔account bijection intact or fail without effect.
type Service struct {
	store  Store
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("resolver store is required")
	}
	svc := &Service{store: store}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Register binds a hash to a wallet. Fails if the hash is already registered,
// the wallet is empty, or the wallet already owns a different hash.
func (s *Service) Register(ctx context.Context, hash id.IdentifierHash, wallet id.AccountID) error {
	if hash.IsNil() {
		return ErrHashRequired
	}
	if wallet.IsNil() {
		return ErrWalletRequired
	}

	if err := s.store.Register(ctx, hash, wallet); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			// Disambiguate for the caller without weakening the store's
			// atomic check.
			if _, rerr := s.store.Resolve(ctx, hash); rerr == nil {
				return ErrAlreadyRegistered
			}
			return ErrWalletAlreadyBound
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to register identifier")
	}
	return nil
}

// BatchRegister registers several pairs in one call. Slice lengths must match;
// entries with an empty wallet, an already-registered hash, or a wallet that
// already owns a different hash are silently skipped rather than failing the
// batch. Returns the number of registrations installed.
func (s *Service) BatchRegister(ctx context.Context, hashes []id.IdentifierHash, wallets []id.AccountID) (int, error) {
	if len(hashes) != len(wallets) {
		return 0, ErrLengthMismatch
	}

	registered := 0
	for i, hash := range hashes {
		if hash.IsNil() || wallets[i].IsNil() {
			continue
		}
		err := s.store.Register(ctx, hash, wallets[i])
		if errors.Is(err, sentinel.ErrConflict) {
			continue
		}
		if err != nil {
			return registered, dErrors.Wrap(err, dErrors.CodeInternal, "failed to register identifier")
		}
		registered++
	}
	return registered, nil
}

// Unregister clears both the forward and reverse mapping for a hash.
func (s *Service) Unregister(ctx context.Context, hash id.IdentifierHash) error {
	if err := s.store.Unregister(ctx, hash); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return ErrNotRegistered
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to unregister identifier")
	}
	return nil
}

// UpdateWallet repoints a hash at a new wallet, releasing the old wallet's
// reverse mapping in the same step.
func (s *Service) UpdateWallet(ctx context.Context, hash id.IdentifierHash, wallet id.AccountID) error {
	if wallet.IsNil() {
		return ErrWalletRequired
	}

	if err := s.store.Repoint(ctx, hash, wallet); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return ErrNotRegistered
		case errors.Is(err, sentinel.ErrConflict):
			return ErrWalletAlreadyBound
		default:
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update wallet")
		}
	}
	return nil
}

// Resolve returns the wallet a hash points to.
func (s *Service) Resolve(ctx context.Context, hash id.IdentifierHash) (id.AccountID, error) {
	wallet, err := s.store.Resolve(ctx, hash)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", ErrNotRegistered
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve identifier")
	}
	return wallet, nil
}

// ReverseLookup returns the hash a wallet owns.
func (s *Service) ReverseLookup(ctx context.Context, wallet id.AccountID) (id.IdentifierHash, error) {
	hash, err := s.store.ReverseLookup(ctx, wallet)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", ErrNotRegistered
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to reverse lookup wallet")
	}
	return hash, nil
}

// IsRegistered reports whether a hash has a registration.
func (s *Service) IsRegistered(ctx context.Context, hash id.IdentifierHash) (bool, error) {
	_, err := s.store.Resolve(ctx, hash)
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check registration")
	}
	return true, nil
}

// HasRegistration reports whether a wallet owns a hash.
func (s *Service) HasRegistration(ctx context.Context, wallet id.AccountID) (bool, error) {
	_, err := s.store.ReverseLookup(ctx, wallet)
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check registration")
	}
	return true, nil
}
