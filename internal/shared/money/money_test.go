package money

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeToMinorUnits(t *testing.T) {
	assert.Equal(t, int64(1999), NormalizeToMinorUnits(19.99))
	assert.Equal(t, int64(1999), NormalizeToMinorUnits(1999))
	assert.Equal(t, int64(0), NormalizeToMinorUnits(math.NaN()))
	assert.Equal(t, int64(0), NormalizeToMinorUnits(math.Inf(1)))
	assert.Equal(t, int64(0), NormalizeToMinorUnits(math.Inf(-1)))
	// integer at the threshold is still a major-unit amount
	assert.Equal(t, int64(100000), NormalizeToMinorUnits(1000))
	assert.Equal(t, int64(800), NormalizeToMinorUnits(8.00))
}

func TestFromTagged(t *testing.T) {
	got, err := FromTagged(1999, UnitMinor)
	assert.NoError(t, err)
	assert.Equal(t, int64(1999), got)

	got, err = FromTagged(19.99, UnitMajor)
	assert.NoError(t, err)
	assert.Equal(t, int64(1999), got)

	_, err = FromTagged(19.99, UnitMinor)
	assert.Error(t, err)

	_, err = FromTagged(10, "kobo")
	assert.Error(t, err)

	_, err = FromTagged(math.NaN(), UnitMajor)
	assert.Error(t, err)

	// untagged falls back to the heuristic
	got, err = FromTagged(1999, "")
	assert.NoError(t, err)
	assert.Equal(t, int64(1999), got)
}

func TestConvertMinorUnits(t *testing.T) {
	// 39.98 USD at 1500 NGN/USD => 59,970.00 NGN => 5,997,000 kobo
	assert.Equal(t, int64(5_997_000), ConvertMinorUnits(3998, 1500.0))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "$39.98", Format("USD", 3998))
	assert.Equal(t, "₦59970.00", Format("NGN", 5_997_000))
	assert.Equal(t, "12.34 GBP", Format("GBP", 1234))
}
