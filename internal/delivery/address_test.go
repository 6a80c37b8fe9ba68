package delivery_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mossery/storefront-api/internal/delivery"
)

func TestAddressValidation(t *testing.T) {
	t.Parallel()

	v := delivery.NewAddressValidator()

	require.NoError(t, v.Validate("NZ", "6011", ""))
	require.ErrorIs(t, v.Validate("NZ", "60115", ""), delivery.ErrPostalCodeInvalid)
	require.ErrorIs(t, v.Validate("NZ", "abcd", ""), delivery.ErrPostalCodeInvalid)

	require.NoError(t, v.Validate("AU", "2000", "NSW"))
	require.ErrorIs(t, v.Validate("AU", "2000", ""), delivery.ErrRegionRequired)

	require.NoError(t, v.Validate("US", "90210", "CA"))
	require.NoError(t, v.Validate("US", "90210-1234", "CA"))
	require.ErrorIs(t, v.Validate("US", "9021", "CA"), delivery.ErrPostalCodeInvalid)

	require.NoError(t, v.Validate("CA", "K1A 0B1", "ON"))
	require.NoError(t, v.Validate("GB", "SW1A 1AA", ""))
}

func TestAddressValidationUnknownCountryAcceptsAnything(t *testing.T) {
	t.Parallel()

	v := delivery.NewAddressValidator()
	require.NoError(t, v.Validate("ZZ", "whatever", ""))
}

func TestAddressValidationCaseInsensitiveCountry(t *testing.T) {
	t.Parallel()

	v := delivery.NewAddressValidator()
	require.ErrorIs(t, v.Validate("nz", "bad", ""), delivery.ErrPostalCodeInvalid)
}
