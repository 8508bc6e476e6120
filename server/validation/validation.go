package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Daskott/rightguard/server/models"
	"github.com/go-playground/validator"
)

const (
	ErrName              = "Name must be at least 2 characters long"
	ErrPhone             = "Please enter a valid phone number"
	ErrEmail             = "Please enter a valid email address"
	ErrRelationship      = "Relationship must be specified"
	ErrDuplicatePhone    = "This phone number is already used by another contact"
	ErrDuplicateEmail    = "This email address is already used by another contact"
	minNameOrRelationLen = "min=2"
)

var (
	phonePattern = regexp.MustCompile(`^\+?[\d\s\-\(\)]{10,}$`)
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	digitsOnly   = regexp.MustCompile(`\D`)

	validate *validator.Validate
)

func init() {
	validate = validator.New()
	if err := RegisterValidators(validate); err != nil {
		panic(err)
	}
}

type Result struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// Candidate is the contact being validated. ID is empty for a new contact.
type Candidate struct {
	ID           string
	Name         string
	Phone        string
	Email        string
	Relationship string
}

func CandidateFromInput(in models.ContactInput) Candidate {
	return Candidate{Name: in.Name, Phone: in.Phone, Email: in.Email, Relationship: in.Relationship}
}

func CandidateFromContact(contact models.EmergencyContact) Candidate {
	return Candidate{
		ID:           contact.ID,
		Name:         contact.Name,
		Phone:        contact.Phone,
		Email:        contact.Email,
		Relationship: contact.Relationship,
	}
}

func RegisterValidators(validate *validator.Validate) error {
	err := validate.RegisterValidation("phone_shape", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	if err != nil {
		return err
	}

	return validate.RegisterValidation("email_shape", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
}

// ValidateContact runs every check against candidate, in order, collecting all failures.
// Contacts in existing that share the candidate's id are ignored by the duplicate checks.
func ValidateContact(candidate Candidate, existing []models.EmergencyContact) Result {
	errs := []string{}

	if validate.Var(strings.TrimSpace(candidate.Name), minNameOrRelationLen) != nil {
		errs = append(errs, ErrName)
	}

	if validate.Var(candidate.Phone, "phone_shape") != nil {
		errs = append(errs, ErrPhone)
	}

	if validate.Var(candidate.Email, "email_shape") != nil {
		errs = append(errs, ErrEmail)
	}

	if validate.Var(strings.TrimSpace(candidate.Relationship), minNameOrRelationLen) != nil {
		errs = append(errs, ErrRelationship)
	}

	for _, contact := range existing {
		if contact.ID != candidate.ID && candidate.Phone != "" && contact.Phone == candidate.Phone {
			errs = append(errs, ErrDuplicatePhone)
			break
		}
	}

	for _, contact := range existing {
		if contact.ID != candidate.ID && candidate.Email != "" && contact.Email == candidate.Email {
			errs = append(errs, ErrDuplicateEmail)
			break
		}
	}

	return Result{Valid: len(errs) == 0, Errors: errs}
}

// FormatPhoneNumber renders a 10 digit number as (555) 123-4567, anything else is returned as is
func FormatPhoneNumber(phone string) string {
	digits := digitsOnly.ReplaceAllString(phone, "")
	if len(digits) != 10 {
		return phone
	}
	return fmt.Sprintf("(%s) %s-%s", digits[0:3], digits[3:6], digits[6:])
}
