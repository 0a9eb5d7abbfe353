package listing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trustside/listing-sentinel/pkg/errors"
)

func f64(v float64) *float64 { return &v }

func TestNew_GeneratesIDAndTimestamps(t *testing.T) {
	l := New("Apple iPhone 15 Pro", "Latest model", "Apple", f64(999))

	assert.True(t, strings.HasPrefix(l.ID, "lst-"))
	assert.False(t, l.CreatedAt.IsZero())
	assert.Equal(t, l.CreatedAt, l.UpdatedAt)
	assert.False(t, l.Verified)
}

func TestValidate_RequiresTitle(t *testing.T) {
	l := New("", "desc", "Apple", nil)
	err := l.Validate()
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeListingInvalid))

	l.Title = "   "
	assert.Error(t, l.Validate())
}

func TestValidate_NilListing(t *testing.T) {
	var l *Listing
	assert.Error(t, l.Validate())
}

func TestValidate_AcceptsZeroAndNegativePrices(t *testing.T) {
	// Pricing anomalies are risk evidence, never validation failures.
	assert.NoError(t, New("Free iPhone", "d", "Apple", f64(0)).Validate())
	assert.NoError(t, New("Weird listing", "d", "Apple", f64(-10)).Validate())
	assert.NoError(t, New("No price", "d", "Apple", nil).Validate())
}

func TestValidate_RejectsOversizedFields(t *testing.T) {
	huge := strings.Repeat("x", maxFieldLength+1)

	l := New(huge, "d", "b", nil)
	assert.Error(t, l.Validate())

	l = New("t", huge, "b", nil)
	assert.Error(t, l.Validate())
}

func TestEmbeddingText_CanonicalFormat(t *testing.T) {
	l := New("Apple iPhone 15 Pro", "Brand new, sealed box", "Apple", f64(999))
	assert.Equal(t,
		"Title: Apple iPhone 15 Pro. Description: Brand new, sealed box. Brand: Apple.",
		l.EmbeddingText())
}

func TestEmbeddingText_DeterministicForEqualFields(t *testing.T) {
	a := New("Widget", "desc", "Acme", nil)
	b := New("Widget", "desc", "Acme", f64(10))
	assert.Equal(t, a.EmbeddingText(), b.EmbeddingText(),
		"price must not leak into the embedded text")
}

func TestPriceAccessors(t *testing.T) {
	l := New("t", "d", "b", nil)
	assert.False(t, l.HasPrice())
	assert.Equal(t, 0.0, l.PriceValue())

	l.Price = f64(49.99)
	assert.True(t, l.HasPrice())
	assert.Equal(t, 49.99, l.PriceValue())
}

func TestMarkVerified(t *testing.T) {
	l := New("t", "d", "b", nil)
	created := l.UpdatedAt
	l.MarkVerified()
	assert.True(t, l.Verified)
	assert.True(t, !l.UpdatedAt.Before(created))
}

func TestNormalizedBrand(t *testing.T) {
	l := New("t", "d", "  Apple ", nil)
	assert.Equal(t, "apple", l.NormalizedBrand())
}
