package v1

import (
	"regexp"

	"github.com/duynhne/user-web/internal/core/domain"
	"github.com/go-playground/validator/v10"
)

// Mode selects which rule preset a draft is validated against.
type Mode int

const (
	ModeCreate Mode = iota
	ModeEdit
)

func (m Mode) String() string {
	if m == ModeEdit {
		return "edit"
	}
	return "create"
}

// Form field keys used in Errors.
const (
	FieldName     = "name"
	FieldUsername = "username"
	FieldEmail    = "email"
	FieldPhone    = "phone"
	FieldAddress  = "address"
	FieldCompany  = "company"
	FieldWebsite  = "website"
)

var (
	emailPattern         = regexp.MustCompile(`\S+@\S+\.\S+`)
	phonePattern         = regexp.MustCompile(`^\d{10}$`)
	websiteDottedPattern = regexp.MustCompile(`^https?://.+\..+`)
	websitePattern       = regexp.MustCompile(`^https?://.+`)
)

// Errors maps a form field to a human-readable message. A missing key means
// the field passed.
type Errors map[string]string

// Valid reports whether no field failed.
func (e Errors) Valid() bool { return len(e) == 0 }

type fieldRule struct {
	field   string
	tag     string
	message string
	value   func(domain.Draft) string
}

// Rules is a named preset of field rules.
// The create and edit presets differ on address shape and website strictness.
type Rules struct {
	Mode   Mode
	fields []fieldRule
}

// CreateRules validates the create dialog.
var CreateRules = Rules{
	Mode: ModeCreate,
	fields: []fieldRule{
		{FieldName, "required,min=3", "Name is required and must be at least 3 characters.", func(d domain.Draft) string { return d.Name }},
		{FieldEmail, "required,email_shape", "Email is required and must be a valid email.", func(d domain.Draft) string { return d.Email }},
		{FieldPhone, "required,phone10", "Phone number is required and must be 10 digits.", func(d domain.Draft) string { return d.Phone }},
		{FieldUsername, "omitempty,min=3", "Username must be at least 3 characters.", func(d domain.Draft) string { return d.Username }},
		{FieldAddress, "required", "Address is required.", func(d domain.Draft) string { return d.Address }},
		{FieldCompany, "omitempty,min=3", "Company name must be at least 3 characters.", func(d domain.Draft) string { return d.Company }},
		{FieldWebsite, "omitempty,website_dotted", "Website must be a valid URL.", func(d domain.Draft) string { return d.Website }},
	},
}

// EditRules validates the edit dialog. Address is structured here: street and
// city are both required and report under the single "address" key.
var EditRules = Rules{
	Mode: ModeEdit,
	fields: []fieldRule{
		{FieldName, "required,min=3", "Name is required and must be at least 3 characters.", func(d domain.Draft) string { return d.Name }},
		{FieldEmail, "required,email_shape", "Email is required and must be a valid email format.", func(d domain.Draft) string { return d.Email }},
		{FieldPhone, "required,phone10", "Phone is required and must be a valid phone number.", func(d domain.Draft) string { return d.Phone }},
		{FieldUsername, "omitempty,min=3", "Username must be at least 3 characters.", func(d domain.Draft) string { return d.Username }},
		{FieldAddress, "required", "Address (Street and City) is required.", func(d domain.Draft) string { return d.Street }},
		{FieldAddress, "required", "Address (Street and City) is required.", func(d domain.Draft) string { return d.City }},
		{FieldCompany, "omitempty,min=3", "Company Name must be at least 3 characters if provided.", func(d domain.Draft) string { return d.Company }},
		{FieldWebsite, "omitempty,http_scheme", "Website must be a valid URL if provided.", func(d domain.Draft) string { return d.Website }},
	},
}

// RulesFor returns the preset for a mode.
func RulesFor(mode Mode) Rules {
	if mode == ModeEdit {
		return EditRules
	}
	return CreateRules
}

// Validator checks drafts against a rule preset. It is safe for concurrent use.
type Validator struct {
	validate *validator.Validate
}

// NewValidator registers the pattern tags used by the presets.
func NewValidator() *Validator {
	v := validator.New()
	patterns := map[string]*regexp.Regexp{
		"email_shape":    emailPattern,
		"phone10":        phonePattern,
		"website_dotted": websiteDottedPattern,
		"http_scheme":    websitePattern,
	}
	for tag, re := range patterns {
		if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return re.MatchString(fl.Field().String())
		}); err != nil {
			panic("register validation " + tag + ": " + err.Error())
		}
	}
	return &Validator{validate: v}
}

// Validate evaluates every rule of the mode's preset and collects one
// message per failing field. It has no side effects.
func (v *Validator) Validate(mode Mode, d domain.Draft) Errors {
	errs := Errors{}
	for _, rule := range RulesFor(mode).fields {
		if _, failed := errs[rule.field]; failed {
			continue
		}
		if err := v.validate.Var(rule.value(d), rule.tag); err != nil {
			errs[rule.field] = rule.message
		}
	}
	return errs
}
