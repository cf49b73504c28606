// FILE: internal/pkg/serverutils/validate.go
package serverutils

import "github.com/go-playground/validator/v10"

var validate = validator.New()

// ValidateRequest runs struct-tag validation (`validate:"required"` etc.)
// over a parsed request body.
func ValidateRequest(req any) error {
	return validate.Struct(req)
}
