package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once

	hhmmPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)
)

// weekdayTokens are the abbreviations used in run_days and route active_days.
var weekdayTokens = map[string]struct{}{
	"Mon": {}, "Tue": {}, "Wed": {}, "Thu": {}, "Fri": {}, "Sat": {}, "Sun": {},
}

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
			return hhmmPattern.MatchString(fl.Field().String())
		})
		_ = validate.RegisterValidation("weekdays", func(fl validator.FieldLevel) bool {
			_, err := ParseWeekdays(fl.Field().String())
			return err == nil
		})
	})
	return validate
}

// Validate runs struct-tag validation on any domain record.
func Validate(v any) error {
	if err := validatorInstance().Struct(v); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid %T: %s", v, strings.Join(msgs, "; "))
		}
		return err
	}
	return nil
}

// ParseWeekdays splits a comma-separated weekday list ("Mon,Wed,Fri") into tokens.
func ParseWeekdays(s string) ([]string, error) {
	parts := strings.Split(s, ",")
	days := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, ok := weekdayTokens[p]; !ok {
			return nil, fmt.Errorf("unknown weekday token %q", p)
		}
		days = append(days, p)
	}
	if len(days) == 0 {
		return nil, fmt.Errorf("weekday list %q is empty", s)
	}
	return days, nil
}

// IsHHMM reports whether s is a zero-padded 24h time of day.
func IsHHMM(s string) bool {
	return hhmmPattern.MatchString(s)
}
