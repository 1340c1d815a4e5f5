package columntypes

import (
	"testing"
)

func TestRegistry_Lifecycle(t *testing.T) {
	registry := GetRegistry()
	mockName := "LifecycleType"

	// 1. Register
	mock := MockProvider{
		BaseProvider: NewBaseProvider(mockName, "Lifecycle"),
	}
	if err := registry.Register(mock); err != nil {
		t.Fatalf("Failed to register provider: %v", err)
	}
	defer registry.Unregister(mockName)

	// 2. Get
	p, ok := registry.Get(mockName)
	if !ok {
		t.Errorf("Failed to retrieve registered provider")
	}
	if p.Name() != mockName {
		t.Errorf("Expected name %s, got %s", mockName, p.Name())
	}

	// 3. Duplicate registration fails
	if err := registry.Register(mock); err == nil {
		t.Errorf("Expected duplicate registration to fail")
	}

	// 4. List
	names := registry.List()
	found := false
	for _, name := range names {
		if name == mockName {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("List() did not contain registered provider")
	}
}

// Mock provider for testing custom registration
type MockProvider struct {
	BaseProvider
}

func TestBuiltinsAreLoaded(t *testing.T) {
	for _, name := range []string{"text", "number", "integer", "decimal", "boolean", "date", "datetime", "time", "select", "email", "url"} {
		if _, ok := GetProvider(name); !ok {
			t.Errorf("builtin provider %q not registered", name)
		}
	}
}

func TestNumberValidation(t *testing.T) {
	p, _ := GetProvider("number")

	if err := p.Validate(100.5); err != nil {
		t.Errorf("float should be valid: %v", err)
	}
	if err := p.Validate("42"); err != nil {
		t.Errorf("numeric string should be valid: %v", err)
	}
	if err := p.Validate(nil); err != nil {
		t.Errorf("nil should pass, required is checked elsewhere: %v", err)
	}
	if err := p.Validate("abc"); err == nil {
		t.Errorf("non-numeric string should fail")
	}

	whole, _ := GetProvider("integer")
	if err := whole.Validate(3.5); err == nil {
		t.Errorf("fractional value should fail integer validation")
	}
	if err := whole.Validate(float64(3)); err != nil {
		t.Errorf("whole value should pass integer validation: %v", err)
	}
}

func TestBooleanValidation(t *testing.T) {
	p, _ := GetProvider("boolean")

	for _, v := range []interface{}{true, false, "true", "False", nil, ""} {
		if err := p.Validate(v); err != nil {
			t.Errorf("%v should be a valid boolean: %v", v, err)
		}
	}
	if err := p.Validate("maybe"); err == nil {
		t.Errorf("'maybe' should fail boolean validation")
	}
}

func TestDateValidation(t *testing.T) {
	p, _ := GetProvider("date")

	if err := p.Validate("2024-06-01"); err != nil {
		t.Errorf("ISO date should be valid: %v", err)
	}
	if err := p.Validate("06/01/2024"); err == nil {
		t.Errorf("non-ISO date should fail")
	}

	normalized, err := p.Normalize(" 2024-06-01 ")
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if normalized != "2024-06-01" {
		t.Errorf("expected trimmed canonical date, got %v", normalized)
	}
}

func TestEmailAndURLValidation(t *testing.T) {
	email, _ := GetProvider("email")
	if err := email.Validate("user@example.com"); err != nil {
		t.Errorf("valid email rejected: %v", err)
	}
	if err := email.Validate("not-an-email"); err == nil {
		t.Errorf("invalid email accepted")
	}

	url, _ := GetProvider("url")
	if err := url.Validate("https://example.com/x"); err != nil {
		t.Errorf("valid url rejected: %v", err)
	}
	if err := url.Validate("ftp://example.com"); err == nil {
		t.Errorf("non-http url accepted")
	}
}
