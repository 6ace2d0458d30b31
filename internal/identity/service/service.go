package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"pledger/internal/audit"
	"pledger/internal/identity"
	id "pledger/pkg/domain"
	dErrors "pledger/pkg/domain-errors"
	"pledger/pkg/requestcontext"
)

// Store persists verification records keyed by identity. Stores report a
// missing record with identity.ErrNotFound.
type Store interface {
	Get(ctx context.Context, subject id.Identity) (*identity.VerificationRecord, error)
	Put(ctx context.Context, record *identity.VerificationRecord) error
	Update(ctx context.Context, subject id.Identity, fn func(*identity.VerificationRecord) error) error
}

// Publisher emits action events after completed mutations.
type Publisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service is the identity gate consulted before every privileged action.
type Service struct {
	store     Store
	publisher Publisher
	logger    *slog.Logger
}

type Option func(*Service)

func WithPublisher(publisher Publisher) Option {
	return func(s *Service) {
		s.publisher = publisher
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("verification store is required")
	}
	svc := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// SubmitVerification (re)creates a Pending record for the identity. Fails
// when the identity is already Verified; a Rejected identity may resubmit.
func (s *Service) SubmitVerification(ctx context.Context, caller id.Identity, nameHash, documentHash string) error {
	if caller.IsNil() {
		return dErrors.New(dErrors.CodeBadRequest, "identity is required")
	}
	if nameHash == "" || documentHash == "" {
		return dErrors.New(dErrors.CodeBadRequest, "name and document hashes are required")
	}

	existing, err := s.store.Get(ctx, caller)
	if err != nil && !errors.Is(err, identity.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load verification record")
	}
	if existing != nil && existing.Status == identity.StatusVerified {
		return dErrors.New(dErrors.CodeConflict, "identity already verified")
	}

	record := &identity.VerificationRecord{
		Identity:     caller,
		NameHash:     nameHash,
		DocumentHash: documentHash,
		Status:       identity.StatusPending,
		SubmittedAt:  requestcontext.Now(ctx),
	}
	if err := s.store.Put(ctx, record); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save verification record")
	}
	return nil
}

// Decide rules on a Pending record. Repeated approval of a Verified identity
// is a no-op, not an error; deciding with no record pending fails.
func (s *Service) Decide(ctx context.Context, subject id.Identity, approve bool) error {
	err := s.store.Update(ctx, subject, func(record *identity.VerificationRecord) error {
		if approve && record.Status == identity.StatusVerified {
			return nil
		}
		if record.Status != identity.StatusPending {
			return dErrors.New(dErrors.CodeNotFound, "no pending verification for identity")
		}
		now := requestcontext.Now(ctx)
		record.DecidedAt = &now
		if approve {
			record.Status = identity.StatusVerified
		} else {
			record.Status = identity.StatusRejected
		}
		return nil
	})
	if errors.Is(err, identity.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "no pending verification for identity")
	}
	if err != nil {
		return err
	}

	if s.publisher != nil {
		detail := "rejected"
		if approve {
			detail = "verified"
		}
		event := audit.Event{
			Actor:  subject,
			Action: audit.ActionVerificationRuled,
			Entity: "verification",
			Detail: detail,
		}
		if emitErr := s.publisher.Emit(ctx, event); emitErr != nil {
			s.logger.WarnContext(ctx, "failed to emit action event",
				"action", audit.ActionVerificationRuled, "error", emitErr)
		}
	}
	return nil
}

// IsVerified reports whether the identity passed verification. Missing
// records read as unverified.
func (s *Service) IsVerified(ctx context.Context, subject id.Identity) (bool, error) {
	record, err := s.store.Get(ctx, subject)
	if errors.Is(err, identity.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load verification record")
	}
	return record.Status == identity.StatusVerified, nil
}

// Get returns the verification record for an identity.
func (s *Service) Get(ctx context.Context, subject id.Identity) (*identity.VerificationRecord, error) {
	record, err := s.store.Get(ctx, subject)
	if errors.Is(err, identity.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "verification record not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load verification record")
	}
	return record, nil
}
