// Package validation checks submitted forms. Rules are validator struct
// tags on the form types; failures come back as an ordered collection of
// messages per field, with field rules ahead of comparisons between fields.
package validation

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"restaurant-menu/apperr"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

const (
	msgRequired = "This field is required."

	// A price holds at most priceMaxDigits digits, priceDecimalPlaces of
	// them after the point.
	priceMaxDigits     = 10
	priceDecimalPlaces = 2
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("form"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	funcs := map[string]validator.Func{
		"username_chars": matches(usernameRe),
		"phone_number":   matches(phoneRe),
		"not_numeric": func(fl validator.FieldLevel) bool {
			return !numericRe.MatchString(fl.Field().String())
		},
		"differs_ci": differsFold,
		"decimal_number": func(fl validator.FieldLevel) bool {
			_, ok := ParseDecimal(fl.Field().String())
			return ok
		},
		"gt_zero": func(fl validator.FieldLevel) bool {
			f, ok := ParseDecimal(fl.Field().String())
			return ok && f > 0
		},
		"price_size": func(fl validator.FieldLevel) bool {
			return priceSizeMessage(fl.Field().String()) == ""
		},
	}
	for tag, fn := range funcs {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(err)
		}
	}

	ctxFuncs := map[string]validator.FuncCtx{
		"username_free": func(ctx context.Context, fl validator.FieldLevel) bool {
			return !lookupFrom(ctx).taken(func(users Users, _ uint) (bool, error) {
				return users.UsernameTaken(ctx, fl.Field().String())
			})
		},
		"email_free": func(ctx context.Context, fl validator.FieldLevel) bool {
			return !lookupFrom(ctx).taken(func(users Users, except uint) (bool, error) {
				return users.EmailTaken(ctx, fl.Field().String(), except)
			})
		},
	}
	for tag, fn := range ctxFuncs {
		if err := v.RegisterValidationCtx(tag, fn); err != nil {
			panic(err)
		}
	}
	return v
}

func matches(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}
}

// differsFold fails when the field equals, ignoring case, the sibling field
// named by the tag parameter.
func differsFold(fl validator.FieldLevel) bool {
	other := reflect.Indirect(fl.Parent()).FieldByName(fl.Param())
	if !other.IsValid() || other.Kind() != reflect.String {
		return true
	}
	return !strings.EqualFold(fl.Field().String(), other.String())
}

type lookupKey struct{}

// lookup carries the uniqueness queries of one validation run. The first
// query error is kept and stops further queries.
type lookup struct {
	users  Users
	except uint
	err    error
}

func lookupFrom(ctx context.Context) *lookup {
	l, _ := ctx.Value(lookupKey{}).(*lookup)
	return l
}

func (l *lookup) taken(query func(users Users, except uint) (bool, error)) bool {
	if l == nil || l.users == nil || l.err != nil {
		return false
	}
	taken, err := query(l.users, l.except)
	if err != nil {
		l.err = err
		return false
	}
	return taken
}

// crossTags compare a field with the sibling named in their parameter.
var crossTags = map[string]bool{
	"eqfield":       true,
	"differs_ci":    true,
	"required_with": true,
}

var messages = map[string]string{
	"required":       msgRequired,
	"email":          "Enter a valid email address.",
	"username_chars": "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters.",
	"username_free":  "A user with that username already exists.",
	"email_free":     "This email is already in use.",
	"not_numeric":    "This password is entirely numeric.",
	"phone_number":   "Enter a valid phone number.",
	"decimal_number": "Enter a number.",
	"gt_zero":        "Price must be greater than zero.",
	"eqfield":        "The two fields didn't match.",
	"differs_ci":     "The value is too similar to another field.",
	"required_with":  msgRequired,
}

// fieldMessages override messages for a single field, keyed "field.tag".
var fieldMessages = map[string]string{
	"password1.min":                  "This password is too short. It must contain at least 8 characters.",
	"password2.eqfield":              "The two password fields didn't match.",
	"password2.differs_ci":           "The password is too similar to the username.",
	"restaurant_email.required_with": "Restaurant email is required when a restaurant name is given.",
}

func message(fe validator.FieldError) string {
	if msg, ok := fieldMessages[fe.Field()+"."+fe.Tag()]; ok {
		return msg
	}
	switch fe.Tag() {
	case "max":
		return fmt.Sprintf("Ensure this value has at most %s characters.", fe.Param())
	case "min":
		return fmt.Sprintf("Ensure this value has at least %s characters.", fe.Param())
	case "price_size":
		return priceSizeMessage(fmt.Sprint(fe.Value()))
	}
	if msg, ok := messages[fe.Tag()]; ok {
		return msg
	}
	return "Enter a valid value."
}

// check validates form, a pointer to a tagged struct, and translates the
// outcome into *Errors. A failed uniqueness query is returned unchanged.
func check(ctx context.Context, form any, l *lookup) error {
	if l == nil {
		l = &lookup{}
	}
	err := validate.StructCtx(context.WithValue(ctx, lookupKey{}, l), form)
	if l.err != nil {
		return l.err
	}
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperr.Internal("validation.check", err)
	}
	return translate(reflect.TypeOf(form).Elem(), fieldErrs).Err()
}

// translate keeps struct field order for field rules and reports
// comparisons afterwards, dropping those whose sibling failed on its own.
func translate(t reflect.Type, fieldErrs validator.ValidationErrors) *Errors {
	errs := &Errors{}
	var cross []validator.FieldError
	for _, fe := range fieldErrs {
		if crossTags[fe.Tag()] {
			cross = append(cross, fe)
			continue
		}
		errs.Add(fe.Field(), message(fe))
	}
	for _, fe := range cross {
		if errs.Has(formName(t, fe.Param())) {
			continue
		}
		errs.Add(fe.Field(), message(fe))
	}
	return errs
}

func formName(t reflect.Type, field string) string {
	f, ok := t.FieldByName(field)
	if !ok {
		return field
	}
	name, _, _ := strings.Cut(f.Tag.Get("form"), ",")
	return name
}

// Errors collects validation messages per field, remembering the order in
// which fields first failed.
type Errors struct {
	order []string
	msgs  map[string][]string
}

// Add appends msg to field.
func (e *Errors) Add(field, msg string) {
	if e.msgs == nil {
		e.msgs = map[string][]string{}
	}
	if _, ok := e.msgs[field]; !ok {
		e.order = append(e.order, field)
	}
	e.msgs[field] = append(e.msgs[field], msg)
}

// Has reports whether field has any message.
func (e *Errors) Has(field string) bool {
	return e != nil && len(e.msgs[field]) > 0
}

// Get returns the messages of field.
func (e *Errors) Get(field string) []string {
	if e == nil {
		return nil
	}
	return e.msgs[field]
}

// First returns the first message of field, or "".
func (e *Errors) First(field string) string {
	if m := e.Get(field); len(m) > 0 {
		return m[0]
	}
	return ""
}

// Fields returns the failed fields in the order they failed.
func (e *Errors) Fields() []string {
	if e == nil {
		return nil
	}
	return e.order
}

// Len returns the number of failed fields.
func (e *Errors) Len() int {
	if e == nil {
		return 0
	}
	return len(e.order)
}

func (e *Errors) Error() string {
	var b strings.Builder
	for i, f := range e.order {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(f)
		b.WriteString(": ")
		b.WriteString(strings.Join(e.msgs[f], " "))
	}
	return b.String()
}

// ErrorCode marks validation failures as apperr.EInvalid.
func (e *Errors) ErrorCode() string { return apperr.EInvalid }

// Err returns e as an error, or nil when nothing failed.
func (e *Errors) Err() error {
	if e.Len() == 0 {
		return nil
	}
	return e
}

var decimalRe = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)

// ParseDecimal parses a plain decimal number such as "4", "4.50" or ".5".
// Exponents, hex and Inf/NaN spellings are rejected.
func ParseDecimal(value string) (float64, bool) {
	value = strings.TrimSpace(value)
	if !decimalRe.MatchString(value) {
		return 0, false
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// priceSizeMessage says why value does not fit a price, or returns "" when
// it does. Digits count as written: "4.500" has three decimal places.
func priceSizeMessage(value string) string {
	digits := strings.TrimLeft(strings.TrimSpace(value), "+-")
	whole, frac, _ := strings.Cut(digits, ".")
	whole = strings.TrimLeft(whole, "0")
	switch {
	case len(whole)+len(frac) > priceMaxDigits:
		return fmt.Sprintf("Ensure that there are no more than %d digits in total.", priceMaxDigits)
	case len(frac) > priceDecimalPlaces:
		return fmt.Sprintf("Ensure that there are no more than %d decimal places.", priceDecimalPlaces)
	case len(whole) > priceMaxDigits-priceDecimalPlaces:
		return fmt.Sprintf("Ensure that there are no more than %d digits before the decimal point.", priceMaxDigits-priceDecimalPlaces)
	}
	return ""
}

// Checkbox interprets an HTML checkbox value.
func Checkbox(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "on", "true", "1":
		return true
	}
	return false
}
