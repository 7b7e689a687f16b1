package submission

import (
	"strconv"

	"github.com/google/uuid"

	"github.com/heartmarshall/submission-backend/internal/domain"
)

// SubmitInput stages new records for an organization.
type SubmitInput struct {
	CategoryID   uuid.UUID
	Organization string
	Inserts      map[string]domain.InsertBatch
}

// Validate checks all fields and collects all errors.
func (i *SubmitInput) Validate() error {
	var errs []domain.FieldError

	errs = appendScopeErrors(errs, i.CategoryID, i.Organization)
	if len(i.Inserts) == 0 {
		errs = append(errs, domain.FieldError{Field: "inserts", Message: "required"})
	}
	for entity := range i.Inserts {
		if entity == "" {
			errs = append(errs, domain.FieldError{Field: "inserts", Message: "entity name must not be empty"})
			break
		}
	}

	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}

// EditRecord carries the complete new data of a committed record.
type EditRecord struct {
	SystemID string
	Data     domain.DataRecord
}

// EditInput stages changes to committed records.
type EditInput struct {
	CategoryID   uuid.UUID
	Organization string
	Records      []EditRecord
}

// Validate checks all fields and collects all errors.
func (i *EditInput) Validate() error {
	var errs []domain.FieldError

	errs = appendScopeErrors(errs, i.CategoryID, i.Organization)
	if len(i.Records) == 0 {
		errs = append(errs, domain.FieldError{Field: "records", Message: "required"})
	}
	seen := make(map[string]struct{}, len(i.Records))
	for idx, rec := range i.Records {
		field := "records[" + strconv.Itoa(idx) + "]"
		switch {
		case rec.SystemID == "":
			errs = append(errs, domain.FieldError{Field: field + ".system_id", Message: "required"})
		case rec.Data == nil:
			errs = append(errs, domain.FieldError{Field: field + ".data", Message: "required"})
		default:
			if _, dup := seen[rec.SystemID]; dup {
				errs = append(errs, domain.FieldError{Field: field + ".system_id", Message: "duplicate"})
			}
			seen[rec.SystemID] = struct{}{}
		}
	}

	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}

// DeleteDataInput stages the deletion of a committed record and everything
// that depends on it. EntityName is optional; when set it must match.
type DeleteDataInput struct {
	CategoryID   uuid.UUID
	Organization string
	SystemID     string
	EntityName   string
}

// Validate checks all fields and collects all errors.
func (i *DeleteDataInput) Validate() error {
	var errs []domain.FieldError

	errs = appendScopeErrors(errs, i.CategoryID, i.Organization)
	if i.SystemID == "" {
		errs = append(errs, domain.FieldError{Field: "system_id", Message: "required"})
	}

	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}

// DeleteEntityInput removes pending changes of one entity from a submission.
// A nil Index removes every pending change of ActionType.
type DeleteEntityInput struct {
	SubmissionID uuid.UUID
	EntityName   string
	ActionType   domain.SubmissionActionType
	Index        *int
}

// Validate checks all fields and collects all errors.
func (i *DeleteEntityInput) Validate() error {
	var errs []domain.FieldError

	if i.SubmissionID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "submission_id", Message: "required"})
	}
	if i.EntityName == "" {
		errs = append(errs, domain.FieldError{Field: "entity_name", Message: "required"})
	}
	if !i.ActionType.IsValid() {
		errs = append(errs, domain.FieldError{Field: "action_type", Message: "must be one of INSERTS, UPDATES, DELETES, ALL"})
	}
	if i.Index != nil {
		if *i.Index < 0 {
			errs = append(errs, domain.FieldError{Field: "index", Message: "must be non-negative"})
		}
		if i.ActionType == domain.SubmissionActionAll {
			errs = append(errs, domain.FieldError{Field: "index", Message: "not allowed with action type ALL"})
		}
	}

	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}

// CommitInput requests the commit of a VALID submission.
type CommitInput struct {
	CategoryID   uuid.UUID
	SubmissionID uuid.UUID
}

// Validate checks all fields and collects all errors.
func (i *CommitInput) Validate() error {
	var errs []domain.FieldError

	if i.CategoryID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "category_id", Message: "required"})
	}
	if i.SubmissionID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "submission_id", Message: "required"})
	}

	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}

// ListInput narrows a submission listing. Organization is optional.
type ListInput struct {
	CategoryID   uuid.UUID
	Organization string
	OnlyActive   bool
	Limit        int
	Offset       int
}

// Validate checks all fields and collects all errors.
func (i *ListInput) Validate() error {
	var errs []domain.FieldError

	if i.CategoryID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "category_id", Message: "required"})
	}
	if i.Limit < 0 || i.Limit > MaxPageSize {
		errs = append(errs, domain.FieldError{Field: "limit", Message: "must be between 0 and " + strconv.Itoa(MaxPageSize)})
	}
	if i.Offset < 0 {
		errs = append(errs, domain.FieldError{Field: "offset", Message: "must be non-negative"})
	}

	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}

func appendScopeErrors(errs []domain.FieldError, categoryID uuid.UUID, organization string) []domain.FieldError {
	if categoryID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "category_id", Message: "required"})
	}
	if organization == "" {
		errs = append(errs, domain.FieldError{Field: "organization", Message: "required"})
	}
	return errs
}
