package appeal

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

const (
	DescriptionMinLength = 20
	DescriptionMaxLength = 500

	// MinResolutionLead is how far past entry time a deadline has to be.
	MinResolutionLead = 30 * time.Minute

	// DeadlineLayout is the display and form-input format for deadlines.
	DeadlineLayout = "15:04 02.01.2006"
)

const (
	FieldDescription        = "description"
	FieldResolutionDeadline = "resolutionDeadline"
)

var displayNames = map[string]string{
	FieldDescription:        "Description",
	FieldResolutionDeadline: "Resolution deadline",
}

// ValidationError carries the rejected draft and per-field messages so the
// caller can re-display the form.
type ValidationError struct {
	Draft  Draft
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("appeal: invalid fields: %s", strings.Join(names, ", "))
}

// Has reports whether field failed validation.
func (e *ValidationError) Has(field string) bool {
	return len(e.Fields[field]) > 0
}

type entryTimeKey struct{}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return fld.Tag.Get("field")
	})
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	if err := v.RegisterValidationCtx("deadline_window", deadlineWindow); err != nil {
		panic(err)
	}
	return v
}

// deadlineWindow requires the deadline to fall strictly after the entry time
// (carried in ctx) plus MinResolutionLead.
func deadlineWindow(ctx context.Context, fl validator.FieldLevel) bool {
	deadline, ok := fl.Field().Interface().(time.Time)
	if !ok {
		return false
	}
	entry, ok := ctx.Value(entryTimeKey{}).(time.Time)
	if !ok {
		return false
	}
	return deadline.After(entry.Add(MinResolutionLead))
}

// ValidateDraft checks draft as if it were entered at entryTime.
func ValidateDraft(ctx context.Context, draft Draft, entryTime time.Time) error {
	ctx = context.WithValue(ctx, entryTimeKey{}, entryTime)

	err := validate.StructCtx(ctx, draft)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("appeal: validate: %w", err)
	}

	out := &ValidationError{Draft: draft, Fields: make(map[string][]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		out.Fields[fe.Field()] = append(out.Fields[fe.Field()], message(fe))
	}
	return out
}

func message(fe validator.FieldError) string {
	name := displayNames[fe.Field()]
	if name == "" {
		name = fe.Field()
	}

	switch fe.Tag() {
	case "notblank", "required":
		return name + " is required."
	case "min", "max":
		return fmt.Sprintf("%s must be between %d and %d characters long.", name, DescriptionMinLength, DescriptionMaxLength)
	case "deadline_window":
		return fmt.Sprintf("%s must be at least %d minutes after entry time.", name, int(MinResolutionLead/time.Minute))
	default:
		return name + " is invalid."
	}
}
