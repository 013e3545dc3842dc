package submdomain

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the ranges of the numeric fields and that a status is set.
func (r JudgeResult) Validate() error {
	if r.Status.IsZero() {
		return errors.New("status is required")
	}
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("field %s fails %s=%s", fe.Field(), fe.Tag(), fe.Param())
		}
		return err
	}
	return nil
}
