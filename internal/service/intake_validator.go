package service

import (
	"strings"

	"github.com/spec-kit/ticket-intake/internal/config"
	"github.com/spec-kit/ticket-intake/internal/domain"
	apperrors "github.com/spec-kit/ticket-intake/pkg/util"
)

// SubmissionInput is the loosely-typed intake payload. Nil means the key was absent.
type SubmissionInput struct {
	FullName   *string
	Department *string
	Email      *string
	Subject    *string
	Message    *string
}

// IntakeValidator applies the submission policy: full_name, email and message are
// required, subject falls back to a default, department is optional, and the
// email must belong to the authorized domain.
type IntakeValidator struct {
	domainSuffix   string
	defaultSubject string
}

// NewIntakeValidator constructs the validator.
func NewIntakeValidator(cfg config.IntakeConfig) *IntakeValidator {
	return &IntakeValidator{
		domainSuffix:   "@" + strings.ToLower(strings.TrimPrefix(strings.TrimSpace(cfg.AuthorizedDomain), "@")),
		defaultSubject: cfg.DefaultSubject,
	}
}

// Validate checks field completeness first, then the email domain.
func (v *IntakeValidator) Validate(in SubmissionInput) (domain.Submission, error) {
	var missing []string
	required := []struct {
		name  string
		value *string
	}{
		{"full_name", in.FullName},
		{"email", in.Email},
		{"message", in.Message},
	}
	for _, field := range required {
		if blank(field.value) {
			missing = append(missing, field.name)
		}
	}
	if len(missing) > 0 {
		return domain.Submission{}, apperrors.NewMalformedInput("Missing fields", missing)
	}

	if !v.Authorized(*in.Email) {
		return domain.Submission{}, apperrors.NewUnauthorizedDomain(*in.Email)
	}

	sub := domain.Submission{
		FullName: *in.FullName,
		Email:    *in.Email,
		Message:  *in.Message,
		Subject:  v.defaultSubject,
	}
	if !blank(in.Subject) {
		sub.Subject = *in.Subject
	}
	if in.Department != nil {
		sub.Department = *in.Department
	}
	return sub, nil
}

// Authorized reports whether email ends with the authorized domain suffix.
func (v *IntakeValidator) Authorized(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	return len(email) > len(v.domainSuffix) && strings.HasSuffix(email, v.domainSuffix)
}

func blank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}
