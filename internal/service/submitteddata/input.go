package submitteddata

import (
	"strconv"

	"github.com/google/uuid"

	"github.com/heartmarshall/submission-backend/internal/domain"
)

// ListInput selects committed records of a category and organization.
// Filter is an expression in the filter package syntax.
type ListInput struct {
	CategoryID   uuid.UUID
	Organization string
	EntityNames  []string
	Filter       string
	OnlyValid    bool
	Limit        int
	Offset       int
}

// Validate checks all fields and collects all errors.
func (i *ListInput) Validate() error {
	var errs []domain.FieldError

	errs = appendScopeErrors(errs, i.CategoryID, i.Organization)
	errs = appendPageErrors(errs, i.Limit, i.Offset)

	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}

// HistoryInput selects audit records of a category and organization.
type HistoryInput struct {
	CategoryID   uuid.UUID
	Organization string
	SystemID     string
	EntityName   string
	Action       domain.AuditAction
	Limit        int
	Offset       int
}

// Validate checks all fields and collects all errors.
func (i *HistoryInput) Validate() error {
	var errs []domain.FieldError

	errs = appendScopeErrors(errs, i.CategoryID, i.Organization)
	if i.Action != "" && !i.Action.IsValid() {
		errs = append(errs, domain.FieldError{Field: "action", Message: "must be UPDATE or DELETE"})
	}
	errs = appendPageErrors(errs, i.Limit, i.Offset)

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

func appendPageErrors(errs []domain.FieldError, limit, offset int) []domain.FieldError {
	if limit < 0 || limit > MaxPageSize {
		errs = append(errs, domain.FieldError{Field: "limit", Message: "must be between 0 and " + strconv.Itoa(MaxPageSize)})
	}
	if offset < 0 {
		errs = append(errs, domain.FieldError{Field: "offset", Message: "must be non-negative"})
	}
	return errs
}

func pageSize(limit int) int {
	if limit == 0 {
		return DefaultPageSize
	}
	return limit
}
