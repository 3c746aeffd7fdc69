// Package forms binds and validates the HTML forms submitted by users.
package forms

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Warning is shown above a form that failed validation.
const Warning = "Invalid data"

// Errors maps a form field to the message shown next to it.
type Errors map[string]string

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+e[f])
	}
	return "invalid form: " + strings.Join(parts, "; ")
}

// Get returns the message for field, or "".
func (e Errors) Get(field string) string {
	return e[field]
}

// Upload is a file received through a multipart form.
type Upload struct {
	Filename    string `form:"filename" validate:"required,max=255"`
	ContentType string `form:"content_type" validate:"required,startswith=image/"`
	Size        int64  `form:"size" validate:"gt=0"`
	Data        []byte `form:"-" validate:"-"`
}

// Ext returns the lower-cased file extension of the original name.
func (u *Upload) Ext() string {
	return strings.ToLower(filepath.Ext(u.Filename))
}

// TeamForm is submitted when creating or editing a team.
type TeamForm struct {
	Title string  `form:"title" validate:"required,max=100"`
	Logo  *Upload `form:"logo" validate:"omitempty"`
}

// SignupForm registers a new account.
type SignupForm struct {
	Email    string `form:"email" validate:"required,email,max=254"`
	Nickname string `form:"nickname" validate:"required,min=3,max=32,alphanum"`
	Password string `form:"password" validate:"required,min=8,max=72"`
}

// LoginForm authenticates an existing account.
type LoginForm struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required"`
}

// ProfileForm edits the public part of an account.
type ProfileForm struct {
	Nickname string `form:"nickname" validate:"required,min=3,max=32,alphanum"`
}

// Validator checks forms against their struct tags and upload limits.
type Validator struct {
	validate     *validator.Validate
	maxLogoBytes int64
}

// NewValidator creates a validator accepting logos up to maxLogoBytes.
func NewValidator(maxLogoBytes int64) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{validate: v, maxLogoBytes: maxLogoBytes}
}

// MaxLogoBytes is the largest accepted logo upload.
func (v *Validator) MaxLogoBytes() int64 {
	return v.maxLogoBytes
}

// Team validates a team form. A logo is mandatory only when requireLogo is
// set; on edit the current logo is kept when none is uploaded.
func (v *Validator) Team(f *TeamForm, requireLogo bool) error {
	f.Title = strings.TrimSpace(f.Title)

	errs := v.check(f)
	if f.Logo == nil && requireLogo {
		errs.add("logo", "This field is required.")
	}
	if f.Logo != nil && f.Logo.Size > v.maxLogoBytes {
		errs.add("logo", fmt.Sprintf("Ensure the file is at most %d bytes.", v.maxLogoBytes))
	}
	return errs.orNil()
}

// Signup validates a registration form.
func (v *Validator) Signup(f *SignupForm) error {
	f.Email = strings.ToLower(strings.TrimSpace(f.Email))
	f.Nickname = strings.TrimSpace(f.Nickname)
	return v.check(f).orNil()
}

// Login validates a login form.
func (v *Validator) Login(f *LoginForm) error {
	f.Email = strings.ToLower(strings.TrimSpace(f.Email))
	return v.check(f).orNil()
}

// Profile validates a profile form.
func (v *Validator) Profile(f *ProfileForm) error {
	f.Nickname = strings.TrimSpace(f.Nickname)
	return v.check(f).orNil()
}

func (v *Validator) check(s interface{}) Errors {
	errs := Errors{}
	err := v.validate.Struct(s)
	if err == nil {
		return errs
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		errs.add("__all__", err.Error())
		return errs
	}
	for _, fe := range fieldErrs {
		errs.add(topField(fe.Namespace()), message(fe))
	}
	return errs
}

func (e Errors) add(field, msg string) {
	if _, exists := e[field]; !exists {
		e[field] = msg
	}
}

func (e Errors) orNil() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// topField maps "TeamForm.logo.content_type" to "logo".
func topField(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) < 2 {
		return namespace
	}
	return parts[1]
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "max":
		return fmt.Sprintf("Ensure this value has at most %s characters.", fe.Param())
	case "min":
		return fmt.Sprintf("Ensure this value has at least %s characters.", fe.Param())
	case "email":
		return "Enter a valid email address."
	case "alphanum":
		return "Use letters and digits only."
	case "startswith", "gt":
		return "Upload a valid image."
	default:
		return "Enter a valid value."
	}
}

// TeamFormFromRequest binds a multipart team form. The logo is nil when no
// file was sent.
func TeamFormFromRequest(r *http.Request, maxLogoBytes int64) (*TeamForm, error) {
	if err := r.ParseMultipartForm(maxLogoBytes + 1<<20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return nil, fmt.Errorf("parse multipart form: %w", err)
	}

	form := &TeamForm{Title: r.FormValue("title")}

	file, header, err := r.FormFile("logo")
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		return form, nil
	case err != nil:
		return nil, fmt.Errorf("read logo: %w", err)
	}
	defer file.Close()

	upload, err := readUpload(file, header, maxLogoBytes)
	if err != nil {
		return nil, err
	}
	form.Logo = upload
	return form, nil
}

func readUpload(file multipart.File, header *multipart.FileHeader, max int64) (*Upload, error) {
	// One byte past the limit is enough to reject oversized files.
	data, err := io.ReadAll(io.LimitReader(file, max+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	size := header.Size
	if size < int64(len(data)) {
		size = int64(len(data))
	}
	return &Upload{
		Filename:    filepath.Base(header.Filename),
		ContentType: http.DetectContentType(data),
		Size:        size,
		Data:        data,
	}, nil
}
