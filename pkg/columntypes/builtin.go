package columntypes

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/erimeilis/store-sub004/pkg/constants"
	"github.com/erimeilis/store-sub004/pkg/utils"
)

// Builtin providers. Nil and empty values always pass here; required-ness
// is checked by the validation service, not the type.

func registerBuiltins(r *Registry) {
	providers := []Provider{
		textProvider{NewBaseProvider(string(constants.ColumnTypeText), "Text")},
		textProvider{NewBaseProvider(string(constants.ColumnTypeTextArea), "Text Area")},
		numberProvider{NewBaseProvider(string(constants.ColumnTypeNumber), "Number"), false},
		numberProvider{NewBaseProvider(string(constants.ColumnTypeInteger), "Integer"), true},
		numberProvider{NewBaseProvider(string(constants.ColumnTypeDecimal), "Decimal"), false},
		boolProvider{NewBaseProvider(string(constants.ColumnTypeBoolean), "Boolean")},
		timeLayoutProvider{NewBaseProvider(string(constants.ColumnTypeDate), "Date"), []string{"2006-01-02"}},
		timeLayoutProvider{NewBaseProvider(string(constants.ColumnTypeDateTime), "Date Time"), []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05"}},
		timeLayoutProvider{NewBaseProvider(string(constants.ColumnTypeTime), "Time"), []string{"15:04:05", "15:04"}},
		selectProvider{NewBaseProvider(string(constants.ColumnTypeSelect), "Select")},
		emailProvider{NewBaseProvider(string(constants.ColumnTypeEmail), "Email")},
		urlProvider{NewBaseProvider(string(constants.ColumnTypeURL), "URL")},
	}

	for _, p := range providers {
		// Builtins register once under the singleton lock, errors impossible
		_ = r.Register(p)
	}
}

func isEmpty(value interface{}) bool {
	if value == nil {
		return true
	}
	if s, ok := value.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

type textProvider struct {
	BaseProvider
}

func (p textProvider) Validate(value interface{}) error {
	if isEmpty(value) {
		return nil
	}
	switch value.(type) {
	case string, float64, float32, int, int64, bool:
		return nil
	}
	return fmt.Errorf("value must be a scalar")
}

type numberProvider struct {
	BaseProvider
	whole bool
}

func (p numberProvider) Validate(value interface{}) error {
	if isEmpty(value) {
		return nil
	}
	f, ok := utils.ToFloat64(value)
	if !ok {
		return fmt.Errorf("value must be a number")
	}
	if p.whole && f != float64(int64(f)) {
		return fmt.Errorf("value must be a whole number")
	}
	return nil
}

type boolProvider struct {
	BaseProvider
}

func (p boolProvider) Validate(value interface{}) error {
	if isEmpty(value) {
		return nil
	}
	switch v := value.(type) {
	case bool:
		return nil
	case string:
		lower := strings.ToLower(strings.TrimSpace(v))
		if lower == "true" || lower == "false" {
			return nil
		}
	case float64:
		if v == 0 || v == 1 {
			return nil
		}
	}
	return fmt.Errorf("value must be true or false")
}

type timeLayoutProvider struct {
	BaseProvider
	layouts []string
}

func (p timeLayoutProvider) Validate(value interface{}) error {
	if isEmpty(value) {
		return nil
	}
	str, ok := value.(string)
	if !ok {
		return fmt.Errorf("value must be a %s string", p.Name())
	}
	for _, layout := range p.layouts {
		if _, err := time.Parse(layout, strings.TrimSpace(str)); err == nil {
			return nil
		}
	}
	return fmt.Errorf("value is not a valid %s", p.Name())
}

func (p timeLayoutProvider) Normalize(value interface{}) (interface{}, error) {
	str, ok := value.(string)
	if !ok {
		return value, nil
	}
	trimmed := strings.TrimSpace(str)
	for _, layout := range p.layouts {
		if parsed, err := time.Parse(layout, trimmed); err == nil {
			return parsed.Format(p.layouts[0]), nil
		}
	}
	return value, nil
}

type selectProvider struct {
	BaseProvider
}

func (p selectProvider) Validate(value interface{}) error {
	if isEmpty(value) {
		return nil
	}
	if _, ok := value.(string); !ok {
		return fmt.Errorf("value must be a string option")
	}
	return nil
}

type emailProvider struct {
	BaseProvider
}

func (p emailProvider) Validate(value interface{}) error {
	if isEmpty(value) {
		return nil
	}
	str, ok := value.(string)
	if !ok {
		return fmt.Errorf("value must be a string")
	}
	if _, err := mail.ParseAddress(str); err != nil {
		return fmt.Errorf("invalid email format")
	}
	return nil
}

type urlProvider struct {
	BaseProvider
}

func (p urlProvider) Validate(value interface{}) error {
	if isEmpty(value) {
		return nil
	}
	str, ok := value.(string)
	if !ok {
		return fmt.Errorf("value must be a string")
	}
	if !strings.HasPrefix(str, "http://") && !strings.HasPrefix(str, "https://") {
		return fmt.Errorf("URL must start with http:// or https://")
	}
	return nil
}
