package drive

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

// pathRequired rejects an empty CloudPath; the path's own Validate checks
// its form.
var pathRequired = validation.Required

var (
	errNilUUID = errors.New("must not be the nil UUID")
	errBlank   = errors.New("must not be blank")
)

func nonNilUUID(value any) error {
	id, _ := value.(uuid.UUID)
	if id == uuid.Nil {
		return errNilUUID
	}

	return nil
}

func notBlank(value any) error {
	s, _ := value.(string)
	if strings.TrimSpace(s) == "" {
		return errBlank
	}

	return nil
}

// check validates one parameter, naming it in the returned *ValidationError.
func check(op Operation, param string, value any, rules ...validation.Rule) error {
	if err := validation.Validate(value, rules...); err != nil {
		return &ValidationError{Operation: op.name, Param: param, Err: err}
	}

	return nil
}

// checkAll returns the first failing parameter check.
func checkAll(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}

	return nil
}
