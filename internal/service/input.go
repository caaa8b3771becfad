package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"user-service/internal/domain"
)

// bcrypt only reads the first 72 bytes of a password.
const maxPasswordBytes = 72

var passwordFitsBcrypt = validation.By(func(value interface{}) error {
	if s, _ := value.(string); len(s) > maxPasswordBytes {
		return fmt.Errorf("must be at most %d bytes", maxPasswordBytes)
	}
	return nil
})

// RegisterInput is the payload for creating an account.
type RegisterInput struct {
	Username       string `json:"username"`
	Password       string `json:"password"`
	Email          string `json:"email"`
	FullName       string `json:"fullName"`
	ProfilePicture string `json:"profilePicture"`
}

func (in *RegisterInput) normalize() {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.FullName = strings.TrimSpace(in.FullName)
	in.ProfilePicture = strings.TrimSpace(in.ProfilePicture)
}

// Validate will run validation rules
func (in RegisterInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Username, validation.Required, validation.Length(0, 50)),
		validation.Field(&in.Password, validation.Required, passwordFitsBcrypt),
		validation.Field(&in.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&in.FullName, validation.Required, validation.Length(1, 100)),
		validation.Field(&in.ProfilePicture, validation.Length(0, 512)),
	)
}

// LoginInput carries login credentials.
type LoginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate will run validation rules
func (in LoginInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Username, validation.Required),
		validation.Field(&in.Password, validation.Required),
	)
}

// UpdateInput replaces the mutable profile fields of an account.
type UpdateInput struct {
	Email          string `json:"email"`
	FullName       string `json:"fullName"`
	ProfilePicture string `json:"profilePicture"`
}

func (in *UpdateInput) normalize() {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.FullName = strings.TrimSpace(in.FullName)
	in.ProfilePicture = strings.TrimSpace(in.ProfilePicture)
}

// Validate will run validation rules
func (in UpdateInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&in.FullName, validation.Required, validation.Length(1, 100)),
		validation.Field(&in.ProfilePicture, validation.Length(0, 512)),
	)
}

// asValidationError flattens ozzo field errors into a domain.ValidationError
// with one "field: message" entry per field, sorted by field name.
func asValidationError(err error) error {
	if err == nil {
		return nil
	}
	var fieldErrs validation.Errors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	keys := make([]string, 0, len(fieldErrs))
	for k := range fieldErrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]string, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, fmt.Sprintf("%s: %s", k, fieldErrs[k].Error()))
	}
	return &domain.ValidationError{Fields: fields}
}
