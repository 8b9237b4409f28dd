package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"tripdesk/pkg/model"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	return fmt.Sprintf("validation failed: %d error(s)", len(v))
}

// Fields flattens the errors into the field->message map used by the
// structured error response.
func (v ValidationErrors) Fields() map[string]string {
	fields := make(map[string]string, len(v))
	for _, e := range v {
		fields[e.Field] = e.Message
	}
	return fields
}

type LeadValidator struct {
	validate *validator.Validate
}

func NewLeadValidator() *LeadValidator {
	v := validator.New()

	return &LeadValidator{
		validate: v,
	}
}

func (v *LeadValidator) Validate(lead *model.Lead) error {
	if err := v.validate.Struct(lead); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return translateValidationErrors(validationErrs)
		}
		return err
	}

	return v.validateBusinessRules(lead)
}

func (v *LeadValidator) ValidateTraveler(traveler *model.Traveler) error {
	if err := v.validate.Struct(traveler); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *LeadValidator) validateBusinessRules(lead *model.Lead) error {
	var errs ValidationErrors

	if len(lead.Travelers) > lead.Guests {
		errs = append(errs, ValidationError{
			Field:   "travelers",
			Message: fmt.Sprintf("traveler count (%d) exceeds guest count (%d)", len(lead.Travelers), lead.Guests),
		})
	}

	if lead.Source != "" && !validSource(lead.Source) {
		errs = append(errs, ValidationError{
			Field:   "source",
			Message: fmt.Sprintf("unknown source %q", lead.Source),
		})
	}

	seenDays := make(map[int]bool)
	for _, item := range lead.Itinerary {
		if seenDays[item.Day] {
			errs = append(errs, ValidationError{
				Field:   "itinerary",
				Message: fmt.Sprintf("duplicate itinerary entry for day %d", item.Day),
			})
			break
		}
		seenDays[item.Day] = true
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validSource(source string) bool {
	switch source {
	case model.SourceWebsite, model.SourceReferral, model.SourceSocialMedia,
		model.SourcePhone, model.SourceEmail, model.SourceWalkIn,
		model.SourceManual, model.SourceOther:
		return true
	}
	return false
}

func translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		validationErrors = append(validationErrors, ValidationError{
			Field:   fieldName(err),
			Message: friendlyMessage(err),
		})
	}

	return validationErrors
}

// fieldName lowercases the struct path into the snake_case form clients
// see in JSON, e.g. "Travelers[0].Name" -> "travelers[0].name". A run of
// capitals is one word, so "MemberID" becomes "member_id".
func fieldName(err validator.FieldError) string {
	ns := err.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}

	var b strings.Builder
	for i, r := range ns {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && ns[i-1] >= 'a' && ns[i-1] <= 'z' {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func friendlyMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", err.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", err.Param())
	case "email":
		return "must be a valid email address"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(err.Param(), " ", ", "))
	case "mongodb":
		return "must be a valid object ID"
	default:
		return fmt.Sprintf("failed %s validation", err.Tag())
	}
}
