package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"contactkar/internal/apperror"
	"contactkar/internal/models"
	"contactkar/internal/qr"
	"contactkar/internal/repositories"
)

// MaxTagsPerRequest bounds a single createTags call.
const MaxTagsPerRequest = 50

const (
	tagCodeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	tagCodeLength   = 6
)

var (
	tagCodePattern = regexp.MustCompile(`^[A-Z]{2,3}-[A-Z0-9]{6}$`)
	plateStripper  = strings.NewReplacer(" ", "", "-", "", "\t", "")
)

// tagPrefixes maps each tag kind to its code prefix. CK is the legacy
// prefix and is still accepted on lookup.
var tagPrefixes = map[models.TagKind]string{
	models.TagKindVehicle: "CAR",
	models.TagKindPet:     "PET",
}

// NormalizePlate upper-cases a number plate and strips spaces and hyphens.
func NormalizePlate(plate string) string {
	return strings.ToUpper(plateStripper.Replace(strings.TrimSpace(plate)))
}

// NormalizeTagCode upper-cases and trims a tag code typed by a finder.
func NormalizeTagCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidTagCode reports whether code has the PREFIX-XXXXXX shape.
func ValidTagCode(code string) bool {
	return tagCodePattern.MatchString(code)
}

func generateTagCode(prefix string) (string, error) {
	var sb strings.Builder
	sb.WriteString(prefix)
	sb.WriteByte('-')
	base := big.NewInt(int64(len(tagCodeAlphabet)))
	for i := 0; i < tagCodeLength; i++ {
		n, err := rand.Int(rand.Reader, base)
		if err != nil {
			return "", fmt.Errorf("failed to generate tag code: %w", err)
		}
		sb.WriteByte(tagCodeAlphabet[n.Int64()])
	}
	return sb.String(), nil
}

// TagService handles the tag registry: issuing codes, ownership-checked
// mutations and public lookups.
type TagService struct {
	tags         repositories.TagRepository
	renderer     *qr.Renderer
	codeAttempts int
	newCode      func(prefix string) (string, error)
	log          *zap.Logger
}

// NewTagService creates a new TagService. codeAttempts bounds the inserts
// tried per tag when generated codes collide.
func NewTagService(tags repositories.TagRepository, renderer *qr.Renderer, codeAttempts int, log *zap.Logger) *TagService {
	if codeAttempts < 1 {
		codeAttempts = 1
	}
	return &TagService{
		tags:         tags,
		renderer:     renderer,
		codeAttempts: codeAttempts,
		newCode:      generateTagCode,
		log:          log,
	}
}

// CreateTags issues count new contactable tags of kind for ownerID. Called
// with a transaction context it takes part in that transaction.
func (s *TagService) CreateTags(ctx context.Context, ownerID string, kind models.TagKind, count int, attrs models.TagAttributes) ([]models.Tag, error) {
	return s.createTags(ctx, ownerID, kind, count, attrs, nil)
}

// createTags issues tags, marking them pending delivery when they belong to
// an order.
func (s *TagService) createTags(ctx context.Context, ownerID string, kind models.TagKind, count int, attrs models.TagAttributes, orderID *string) ([]models.Tag, error) {
	prefix, ok := tagPrefixes[kind]
	if !ok {
		return nil, apperror.Validation(fmt.Sprintf("unsupported tag kind %q", kind))
	}
	if count < 1 || count > MaxTagsPerRequest {
		return nil, apperror.Validation(fmt.Sprintf("count must be between 1 and %d", MaxTagsPerRequest))
	}
	attrs = attrsForKind(kind, attrs)

	created := make([]models.Tag, 0, count)
	for i := 0; i < count; i++ {
		tag := &models.Tag{
			UserID:           ownerID,
			Kind:             kind,
			PlateNumber:      attrs.PlateNumber,
			PetName:          attrs.PetName,
			PetBreed:         attrs.PetBreed,
			OwnerName:        attrs.OwnerName,
			EmergencyContact: attrs.EmergencyContact,
			IsContactable:    true,
		}
		if orderID != nil {
			tag.OrderID = orderID
			tag.DeliveryStatus = models.DeliveryPending
		}
		if err := s.insertWithFreshCode(ctx, tag, prefix); err != nil {
			return nil, err
		}
		created = append(created, *tag)
	}
	return created, nil
}

// insertWithFreshCode retries the insert with a new code whenever the
// previous one collided with an existing tag.
func (s *TagService) insertWithFreshCode(ctx context.Context, tag *models.Tag, prefix string) error {
	for attempt := 1; attempt <= s.codeAttempts; attempt++ {
		code, err := s.newCode(prefix)
		if err != nil {
			return err
		}
		tag.TagCode = code
		err = s.tags.Create(ctx, tag)
		if err == nil {
			return nil
		}
		if !errors.Is(err, apperror.ErrConflict) {
			return err
		}
		s.log.Warn("tag code collision, retrying", zap.String("tag_code", code), zap.Int("attempt", attempt))
	}
	return apperror.New(apperror.CodeConflict, "could not allocate a unique tag code, please retry")
}

// attrsForKind drops the attributes that do not apply to kind.
func attrsForKind(kind models.TagKind, attrs models.TagAttributes) models.TagAttributes {
	attrs.OwnerName = strings.TrimSpace(attrs.OwnerName)
	attrs.EmergencyContact = strings.TrimSpace(attrs.EmergencyContact)
	switch kind {
	case models.TagKindVehicle:
		attrs.PlateNumber = NormalizePlate(attrs.PlateNumber)
		attrs.PetName, attrs.PetBreed = "", ""
	case models.TagKindPet:
		attrs.PlateNumber = ""
		attrs.PetName = strings.TrimSpace(attrs.PetName)
		attrs.PetBreed = strings.TrimSpace(attrs.PetBreed)
	}
	return attrs
}

// ListTags returns the owner's tags, newest first.
func (s *TagService) ListTags(ctx context.Context, ownerID string) ([]models.Tag, error) {
	return s.tags.ListByOwner(ctx, ownerID)
}

// SetContactable sets the contact flag. Repeating the same value is a no-op
// that still returns the tag.
func (s *TagService) SetContactable(ctx context.Context, ownerID, tagID string, contactable bool) (*models.Tag, error) {
	return s.tags.SetContactable(ctx, ownerID, tagID, contactable)
}

// UpdateTagDetails overwrites the editable attributes of an owned tag.
func (s *TagService) UpdateTagDetails(ctx context.Context, ownerID, tagID string, attrs models.TagAttributes) (*models.Tag, error) {
	tag, err := s.tags.GetOwned(ctx, ownerID, tagID)
	if err != nil {
		return nil, err
	}
	return s.tags.UpdateAttributes(ctx, ownerID, tagID, attrsForKind(tag.Kind, attrs))
}

// DeleteTag permanently removes an owned tag.
func (s *TagService) DeleteTag(ctx context.Context, ownerID, tagID string) error {
	return s.tags.Delete(ctx, ownerID, tagID)
}

// FindByCode looks up any tag by its code.
func (s *TagService) FindByCode(ctx context.Context, code string) (*models.Tag, error) {
	code = NormalizeTagCode(code)
	if !ValidTagCode(code) {
		return nil, apperror.New(apperror.CodeNotFound, "tag not found")
	}
	return s.tags.FindByCode(ctx, code)
}

// FindByPlate returns the newest vehicle tag registered for plate.
func (s *TagService) FindByPlate(ctx context.Context, plate string) (*models.Tag, error) {
	plate = NormalizePlate(plate)
	if plate == "" {
		return nil, apperror.Validation("plate number is required")
	}
	return s.tags.FindByPlate(ctx, plate)
}

// Resolve returns what a finder scanning the tag may see.
func (s *TagService) Resolve(ctx context.Context, code string) (*models.PublicTag, error) {
	tag, err := s.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	public := tag.Public()
	return &public, nil
}

// RenderQR returns the PNG QR code of an owned tag and its code.
func (s *TagService) RenderQR(ctx context.Context, ownerID, tagID string) ([]byte, string, error) {
	tag, err := s.tags.GetOwned(ctx, ownerID, tagID)
	if err != nil {
		return nil, "", err
	}
	png, err := s.renderer.PNG(tag.TagCode)
	if err != nil {
		return nil, "", err
	}
	return png, tag.TagCode, nil
}
