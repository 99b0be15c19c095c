package binding

import (
	"errors"
	"fmt"
	"regexp"
	"unicode/utf8"

	"gitlab.com/tinyland/lab/declui/pkg/command"
	"gitlab.com/tinyland/lab/declui/pkg/value"
)

// Required rejects missing values, empty strings and empty collections.
func Required() command.Validator {
	return func(v value.Value) error {
		switch v.Kind() {
		case value.KindInvalid:
			return errors.New("value is required")
		case value.KindString, value.KindList, value.KindMap:
			if v.Len() == 0 {
				return errors.New("value is required")
			}
		}
		return nil
	}
}

// Range rejects values that are not numbers within [min, max].
func Range(min, max float64) command.Validator {
	return func(v value.Value) error {
		f, ok := v.ToFloat()
		if !ok {
			return fmt.Errorf("%s is not a number", v)
		}
		if f < min || f > max {
			return fmt.Errorf("%g is outside [%g, %g]", f, min, max)
		}
		return nil
	}
}

// Length rejects strings shorter than min or longer than max runes. A
// negative max means no upper bound.
func Length(min, max int) command.Validator {
	return func(v value.Value) error {
		s, ok := v.ToString()
		if !ok {
			return fmt.Errorf("%s is not text", v.Kind())
		}
		n := utf8.RuneCountInString(s)
		if n < min {
			return fmt.Errorf("at least %d characters required", min)
		}
		if max >= 0 && n > max {
			return fmt.Errorf("at most %d characters allowed", max)
		}
		return nil
	}
}

// Regex rejects strings that do not match re.
func Regex(re *regexp.Regexp) command.Validator {
	return func(v value.Value) error {
		s, ok := v.ToString()
		if !ok {
			return fmt.Errorf("%s is not text", v.Kind())
		}
		if !re.MatchString(s) {
			return fmt.Errorf("%q does not match %s", s, re)
		}
		return nil
	}
}

// All runs every validator and returns the first rejection.
func All(vs ...command.Validator) command.Validator {
	return func(v value.Value) error {
		for _, fn := range vs {
			if fn == nil {
				continue
			}
			if err := fn(v); err != nil {
				return err
			}
		}
		return nil
	}
}
