package service

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	alphanumRe = regexp.MustCompile(`^[a-zA-Z0-9]+$`)
	usernameRe = regexp.MustCompile(`^[a-zA-Z0-9@]+$`)
)

const (
	nameMinLen     = 1
	nameMaxLen     = 25
	usernameMinLen = 3
	usernameMaxLen = 100
	passwordMinLen = 8
	passwordMaxLen = 35
)

type check func(field, value string) *ValidationError

func fail(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(`"%s" `+format, append([]any{field}, args...)...)}
}

func notEmpty(field, value string) *ValidationError {
	if value == "" {
		return fail(field, "is not allowed to be empty")
	}
	return nil
}

func length(min, max int) check {
	return func(field, value string) *ValidationError {
		n := utf8.RuneCountInString(value)
		if n < min {
			return fail(field, "length must be at least %d characters long", min)
		}
		if n > max {
			return fail(field, "length must be less than or equal to %d characters long", max)
		}
		return nil
	}
}

func alphanum(field, value string) *ValidationError {
	if !alphanumRe.MatchString(value) {
		return fail(field, "must only contain alpha-numeric characters")
	}
	return nil
}

func pattern(re *regexp.Regexp) check {
	return func(field, value string) *ValidationError {
		if !re.MatchString(value) {
			return fail(field, `with value "%s" fails to match the required pattern: /%s/`, value, re.String())
		}
		return nil
	}
}

// email accepts a bare addr-spec whose domain has a TLD.
func email(field, value string) *ValidationError {
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value {
		return fail(field, "must be a valid email")
	}
	at := strings.LastIndexByte(value, '@')
	domain := value[at+1:]
	if !strings.Contains(domain, ".") || strings.HasSuffix(domain, ".") {
		return fail(field, "must be a valid email")
	}
	return nil
}

type fieldRules struct {
	field  string
	value  string
	checks []check
}

func firstViolation(fields []fieldRules) error {
	for _, f := range fields {
		for _, c := range f.checks {
			if v := c(f.field, f.value); v != nil {
				return v
			}
		}
	}
	return nil
}

func ValidateSignup(in SignupInput) error {
	return firstViolation([]fieldRules{
		{"firstName", in.FirstName, []check{notEmpty, length(nameMinLen, nameMaxLen), alphanum}},
		{"lastName", in.LastName, []check{notEmpty, length(nameMinLen, nameMaxLen), alphanum}},
		{"username", in.Username, []check{notEmpty, length(usernameMinLen, usernameMaxLen), pattern(usernameRe)}},
		{"email", in.Email, []check{notEmpty, email}},
		{"password", in.Password, []check{notEmpty, length(passwordMinLen, passwordMaxLen)}},
	})
}

func ValidateAuthenticate(in AuthenticateInput) error {
	return firstViolation([]fieldRules{
		{"username", in.Username, []check{notEmpty}},
		{"password", in.Password, []check{notEmpty, length(passwordMinLen, passwordMaxLen)}},
	})
}
