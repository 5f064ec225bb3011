package notes

import (
	"github.com/go-playground/validator/v10"

	"github.com/kuitang/notes-api/internal/errs"
)

// ErrMsgFieldsRequired is the message returned when title or content is missing.
const ErrMsgFieldsRequired = "title and content are required"

var validate = validator.New()

// ValidateInput checks that both title and content are present and non-empty.
// Absence and the empty string are treated the same.
func ValidateInput(in NoteInput) error {
	if err := validate.Struct(in); err != nil {
		return errs.Wrap(errs.InvalidArgument, ErrMsgFieldsRequired, err)
	}
	return nil
}
