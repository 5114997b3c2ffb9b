package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"contactkar/internal/apperror"
	"contactkar/internal/logger"
	"contactkar/internal/models"
	"contactkar/internal/notify"
	"contactkar/internal/repositories"
	"contactkar/internal/telephony"
)

// Messages shown to finders. Unregistered and opted-out plates are worded
// differently on purpose so finders know whether to keep looking.
const (
	MessagePlateNotRegistered  = "Vehicle not registered with ContactKar."
	MessageOwnerNotContactable = "Owner has turned off calls."
	MessageCallInitiated       = "Call is being connected. Please answer your phone."
)

// PlateSearchResult is what a finder learns about a plate. It never carries
// phone numbers or tag ids.
type PlateSearchResult struct {
	Found       bool   `json:"found"`
	Contactable bool   `json:"contactable"`
	TagCode     string `json:"tagCode,omitempty"`
	Message     string `json:"message,omitempty"`
}

// BridgeResult is returned to the finder after a call was bridged.
type BridgeResult struct {
	Message string `json:"message"`
}

// ContactService mediates contact between finders and tag owners.
type ContactService struct {
	tags     *TagService
	users    repositories.UserRepository
	events   repositories.ContactLogRepository
	bridger  telephony.Bridger
	notifier notify.Notifier
	log      *zap.Logger
	now      func() time.Time
}

// NewContactService creates a new ContactService.
func NewContactService(
	tags *TagService,
	users repositories.UserRepository,
	events repositories.ContactLogRepository,
	bridger telephony.Bridger,
	notifier notify.Notifier,
	log *zap.Logger,
) *ContactService {
	return &ContactService{
		tags:     tags,
		users:    users,
		events:   events,
		bridger:  bridger,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

// SearchPlate reports whether a plate is registered and contactable. An
// unregistered plate is a NOT_FOUND error carrying a result for the body.
func (s *ContactService) SearchPlate(ctx context.Context, plate string) (*PlateSearchResult, error) {
	tag, err := s.tags.FindByPlate(ctx, plate)
	if errors.Is(err, apperror.ErrNotFound) {
		return &PlateSearchResult{Found: false, Message: MessagePlateNotRegistered}, err
	}
	if err != nil {
		return nil, err
	}
	if !tag.IsContactable {
		return &PlateSearchResult{Found: true, Contactable: false, Message: MessageOwnerNotContactable}, nil
	}
	return &PlateSearchResult{Found: true, Contactable: true, TagCode: tag.TagCode}, nil
}

// Bridge connects callerNumber to the owner of tagCode through the
// telephony provider. The owner's number never leaves this method.
func (s *ContactService) Bridge(ctx context.Context, tagCode, callerNumber string) (*BridgeResult, error) {
	tag, err := s.tags.FindByCode(ctx, tagCode)
	if err != nil {
		return nil, err
	}

	event := &models.ContactEvent{
		TagID:        tag.ID,
		TagCode:      tag.TagCode,
		CallerNumber: callerNumber,
		ContactType:  models.ContactTypeCallBridge,
	}

	if !tag.IsContactable {
		event.Outcome = models.OutcomeRefused
		s.record(ctx, event)
		return nil, apperror.ErrRefused
	}

	owner, err := s.users.GetByID(ctx, tag.UserID)
	if errors.Is(err, apperror.ErrNotFound) || (err == nil && owner.Phone == "") {
		s.log.Warn("tag owner cannot be reached", zap.String("tag_code", tag.TagCode), zap.String("owner_id", tag.UserID))
		return nil, apperror.New(apperror.CodeNotFound, "owner not reachable")
	}
	if err != nil {
		return nil, err
	}

	call, err := s.bridger.Bridge(ctx, callerNumber, owner.Phone)
	if err != nil {
		event.Outcome = models.OutcomeBridgeFailed
		s.record(ctx, event)
		return nil, apperror.Wrap(apperror.CodeUpstreamFailure, "could not connect the call, please try again", err)
	}

	event.Outcome = models.OutcomeCompleted
	event.ProviderRef = call.ProviderRef
	s.record(ctx, event)

	if err := s.notifier.ContactAttempted(ctx, owner.ID, event); err != nil {
		s.log.Error("failed to notify owner of contact", zap.String("tag_code", tag.TagCode), zap.Error(err))
	}
	return &BridgeResult{Message: MessageCallInitiated}, nil
}

// record appends event to the contact log. Failures are reported to
// operators and never change the finder's result.
func (s *ContactService) record(ctx context.Context, event *models.ContactEvent) {
	event.CreatedAt = s.now().UTC()
	if err := s.events.Append(ctx, event); err != nil {
		s.log.Error("failed to log contact event",
			zap.String("tag_code", event.TagCode),
			zap.String("caller", logger.MaskPhone(event.CallerNumber)),
			zap.String("outcome", string(event.Outcome)),
			zap.Error(err))
	}
}
