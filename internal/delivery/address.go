package delivery

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrPostalCodeInvalid indicates the postal code does not match the
	// country's pattern.
	ErrPostalCodeInvalid = errors.New("postal code invalid for country")
	// ErrRegionRequired indicates the country requires a region field.
	ErrRegionRequired = errors.New("region is required for country")
)

// AddressRule is the per-country validation sub-policy. The table is data:
// adding a country needs no code change.
type AddressRule struct {
	PostalPattern  *regexp.Regexp
	RegionRequired bool
}

var defaultAddressRules = map[string]AddressRule{
	"NZ": {PostalPattern: regexp.MustCompile(`^\d{4}$`)},
	"AU": {PostalPattern: regexp.MustCompile(`^\d{4}$`), RegionRequired: true},
	"US": {PostalPattern: regexp.MustCompile(`^\d{5}(-\d{4})?$`), RegionRequired: true},
	"CA": {PostalPattern: regexp.MustCompile(`^[A-Za-z]\d[A-Za-z][ ]?\d[A-Za-z]\d$`), RegionRequired: true},
	"GB": {PostalPattern: regexp.MustCompile(`^[A-Za-z]{1,2}\d[A-Za-z\d]?[ ]?\d[A-Za-z]{2}$`)},
	"DE": {PostalPattern: regexp.MustCompile(`^\d{5}$`)},
	"JP": {PostalPattern: regexp.MustCompile(`^\d{3}-?\d{4}$`)},
	"SG": {PostalPattern: regexp.MustCompile(`^\d{6}$`)},
}

// AddressValidator validates destination address fields against the
// per-country rule table.
type AddressValidator struct {
	Rules map[string]AddressRule
}

// NewAddressValidator returns a validator seeded with the default table.
func NewAddressValidator() AddressValidator {
	rules := make(map[string]AddressRule, len(defaultAddressRules))
	for k, v := range defaultAddressRules {
		rules[k] = v
	}
	return AddressValidator{Rules: rules}
}

// Validate checks postal code and region fields for the destination country.
// Countries absent from the table accept any input.
func (v AddressValidator) Validate(countryCode, postalCode, region string) error {
	rule, ok := v.Rules[strings.ToUpper(strings.TrimSpace(countryCode))]
	if !ok {
		return nil
	}
	if rule.RegionRequired && strings.TrimSpace(region) == "" {
		return ErrRegionRequired
	}
	if rule.PostalPattern != nil && !rule.PostalPattern.MatchString(strings.TrimSpace(postalCode)) {
		return ErrPostalCodeInvalid
	}
	return nil
}
