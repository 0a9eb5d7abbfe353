package signal

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trustside/listing-sentinel/internal/domain/listing"
)

func f64(v float64) *float64 { return &v }

func newListing(title, desc, brand string, price *float64) *listing.Listing {
	return &listing.Listing{ID: "lst-test", Title: title, Description: desc, Brand: brand, Price: price}
}

// ─────────────────────────────────────────────────────────────────────────────
// PricePlausibility
// ─────────────────────────────────────────────────────────────────────────────

func TestPricePlausibility_NoPriceYieldsNoSignal(t *testing.T) {
	p := NewPricePlausibility(0.3, map[string]float64{"apple": 1000})
	sig, err := p.Extract(context.Background(), newListing("t", "d", "Apple", nil))
	require.NoError(t, err)
	assert.Nil(t, sig)
}

func TestPricePlausibility_ZeroOrNegativePriceIsMaximal(t *testing.T) {
	p := NewPricePlausibility(0.3, nil)

	for _, price := range []float64{0, -5} {
		sig, err := p.Extract(context.Background(), newListing("t", "d", "Apple", f64(price)))
		require.NoError(t, err)
		require.NotNil(t, sig)
		assert.Equal(t, CategoryPrice, sig.Category)
		assert.Equal(t, 1.0, sig.Contribution)
	}
}

func TestPricePlausibility_BelowFloorScalesWithDepth(t *testing.T) {
	p := NewPricePlausibility(0.3, map[string]float64{"apple": 1000})

	// Floor is 300.  A price of 150 is halfway to zero.
	sig, err := p.Extract(context.Background(), newListing("t", "d", "Apple", f64(150)))
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.InDelta(t, 0.5, sig.Contribution, 1e-9)
	assert.Contains(t, sig.Evidence, "Apple")
}

func TestPricePlausibility_AtOrAboveFloorIsSilent(t *testing.T) {
	p := NewPricePlausibility(0.3, map[string]float64{"apple": 1000})

	for _, price := range []float64{300, 999} {
		sig, err := p.Extract(context.Background(), newListing("t", "d", "Apple", f64(price)))
		require.NoError(t, err)
		assert.Nil(t, sig)
	}
}

func TestPricePlausibility_UnknownBrandIsSilent(t *testing.T) {
	p := NewPricePlausibility(0.3, map[string]float64{"apple": 1000})
	sig, err := p.Extract(context.Background(), newListing("t", "d", "Acme", f64(1)))
	require.NoError(t, err)
	assert.Nil(t, sig)
}

func TestPricePlausibility_BrandLookupIsCaseInsensitive(t *testing.T) {
	p := NewPricePlausibility(0.3, map[string]float64{"Apple": 1000})
	sig, err := p.Extract(context.Background(), newListing("t", "d", "APPLE", f64(10)))
	require.NoError(t, err)
	require.NotNil(t, sig)
}

// ─────────────────────────────────────────────────────────────────────────────
// BrandDistortion
// ─────────────────────────────────────────────────────────────────────────────

var testBrands = []string{"Apple", "Samsung", "Gucci", "Nike"}

func TestBrandDistortion_ExactMatchIsClean(t *testing.T) {
	b := NewBrandDistortion(testBrands)
	sig, err := b.Extract(context.Background(), newListing("MacBook Pro", "d", "Apple", nil))
	require.NoError(t, err)
	assert.Nil(t, sig)
}

func TestBrandDistortion_OneEditIsStrongEvidence(t *testing.T) {
	b := NewBrandDistortion(testBrands)
	sig, err := b.Extract(context.Background(), newListing("t", "d", "Aple", nil))
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.Equal(t, CategoryBrand, sig.Category)
	assert.Equal(t, 1.0, sig.Contribution)
	assert.Contains(t, sig.Evidence, "apple")
}

func TestBrandDistortion_TwoEditsIsWeakerEvidence(t *testing.T) {
	b := NewBrandDistortion(testBrands)
	sig, err := b.Extract(context.Background(), newListing("t", "d", "Samsg", nil))
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.Equal(t, 0.8, sig.Contribution)
}

func TestBrandDistortion_ShortNamesAreIgnored(t *testing.T) {
	// "Nik" is below the 4-char minimum and must not match "Nike".
	b := NewBrandDistortion(testBrands)
	sig, err := b.Extract(context.Background(), newListing("t", "d", "Nik", nil))
	require.NoError(t, err)
	assert.Nil(t, sig)
}

func TestBrandDistortion_UnrelatedBrandIsSilent(t *testing.T) {
	b := NewBrandDistortion(testBrands)
	sig, err := b.Extract(context.Background(), newListing("t", "d", "Sony", nil))
	require.NoError(t, err)
	assert.Nil(t, sig)
}

func TestBrandDistortion_ScansTitleWhenBrandFieldEmpty(t *testing.T) {
	b := NewBrandDistortion(testBrands)
	sig, err := b.Extract(context.Background(), newListing("Aple iPhone 15 Pro", "d", "", nil))
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.Equal(t, 1.0, sig.Contribution)
}

func TestBrandDistortion_ExactBrandInTitleIsClean(t *testing.T) {
	b := NewBrandDistortion(testBrands)
	sig, err := b.Extract(context.Background(), newListing("Apple iPhone 15 Pro", "d", "", nil))
	require.NoError(t, err)
	assert.Nil(t, sig)
}

// ─────────────────────────────────────────────────────────────────────────────
// DescriptionQuality
// ─────────────────────────────────────────────────────────────────────────────

func TestDescriptionQuality_HealthyDescriptionIsSilent(t *testing.T) {
	d := NewDescriptionQuality(40)
	desc := "Genuine product in original packaging with a two year manufacturer warranty included."
	sig, err := d.Extract(context.Background(), newListing("t", desc, "b", nil))
	require.NoError(t, err)
	assert.Nil(t, sig)
}

func TestDescriptionQuality_ShortDescription(t *testing.T) {
	d := NewDescriptionQuality(40)
	sig, err := d.Extract(context.Background(), newListing("t", "Nice phone", "b", nil))
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.Equal(t, CategoryDescription, sig.Category)
	assert.InDelta(t, 0.5, sig.Contribution, 1e-9)
}

func TestDescriptionQuality_HypeTermsAccumulate(t *testing.T) {
	d := NewDescriptionQuality(10)
	desc := "Cheapest replica on the market, 1:1 mirror quality, hurry before clearance ends"
	sig, err := d.Extract(context.Background(), newListing("t", desc, "b", nil))
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.Equal(t, 1.0, sig.Contribution, "many hype terms must cap at 1.0")
}

func TestDescriptionQuality_ExclamationMarks(t *testing.T) {
	d := NewDescriptionQuality(10)
	desc := "Buy now!!! Great deal on this wonderful item for sale"
	sig, err := d.Extract(context.Background(), newListing("t", desc, "b", nil))
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.InDelta(t, 0.2, sig.Contribution, 1e-9)
}

func TestDescriptionQuality_ContributionNeverExceedsOne(t *testing.T) {
	d := NewDescriptionQuality(100)
	desc := "replica!!! 1:1 aaa quality mirror quality 100% real best quality cheapest guarantee clearance hurry limited stock no box"
	sig, err := d.Extract(context.Background(), newListing("t", desc, "b", nil))
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.Equal(t, 1.0, sig.Contribution)
}

// ─────────────────────────────────────────────────────────────────────────────
// levenshtein
// ─────────────────────────────────────────────────────────────────────────────

func TestLevenshtein(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"apple", "apple", 0},
		{"aple", "apple", 1},
		{"samsng", "samsung", 1},
		{"gucci", "guci", 1},
		{"kitten", "sitting", 3},
		{"", "abc", 3},
		{"abc", "", 3},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, levenshtein(tc.a, tc.b), "%s vs %s", tc.a, tc.b)
	}
}

func TestDiagnostic_IsZeroContribution(t *testing.T) {
	sig := Diagnostic("price_deviation", CategoryPrice, "extractor panicked")
	assert.True(t, sig.Diagnostic)
	assert.Equal(t, 0.0, sig.Contribution)
	assert.True(t, strings.Contains(sig.Evidence, "panicked"))
}
