package journey

import (
	"errors"
	"fmt"

	"github.com/vincentbai/journeytrace/internal/models"
)

const (
	categoryFeature = "Feature"
	categoryContent = "Content"
)

// ErrMissingField reports that a duplicate check needed a field the
// events do not carry.
var ErrMissingField = errors.New("journey: missing field")

// MissingFieldError names the field that was missing.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("journey: cannot compare milestones without %q", e.Field)
}

func (e *MissingFieldError) Is(target error) bool {
	return target == ErrMissingField
}

// IsDuplicate reports whether candidate repeats tail closely enough to be
// folded into tail's count. Only consecutive events are ever compared.
//
// Both events must share category and action, and tail must carry every
// key candidate carries. Then:
//   - Feature: same name.
//   - Content: the most specific of type, identifier, details present on
//     both decides; a field absent on either side matches.
//   - anything else: same name and same details.
//
// A generic milestone whose names match but which lacks details returns a
// *MissingFieldError.
func IsDuplicate(tail, candidate *models.Event) (bool, error) {
	if tail == nil || candidate == nil {
		return false, nil
	}
	if !tail.HasAllKeys(candidate) {
		return false, nil
	}
	if !tail.SameValue(candidate, models.KeyCategory) {
		return false, nil
	}
	if !tail.SameValue(candidate, models.KeyAction) {
		return false, nil
	}

	category, _ := tail.Get(models.KeyCategory)
	switch category {
	case categoryFeature:
		return tail.SameValue(candidate, models.KeyName), nil
	case categoryContent:
		return duplicateContent(tail, candidate), nil
	default:
		return duplicateMilestone(tail, candidate)
	}
}

func duplicateContent(tail, candidate *models.Event) bool {
	for _, key := range []string{models.KeyType, models.KeyIdentifier, models.KeyDetails} {
		if !tail.Has(key) || !candidate.Has(key) {
			return true
		}
		if !tail.SameValue(candidate, key) {
			return false
		}
	}
	return true
}

func duplicateMilestone(tail, candidate *models.Event) (bool, error) {
	if !tail.SameValue(candidate, models.KeyName) {
		return false, nil
	}
	if !tail.Has(models.KeyDetails) || !candidate.Has(models.KeyDetails) {
		return false, &MissingFieldError{Field: models.KeyDetails}
	}
	return tail.SameValue(candidate, models.KeyDetails), nil
}
