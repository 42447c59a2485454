package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatExpiryHoursAndMinutes(t *testing.T) {
	got := FormatExpiry(time.Now().Add(2*time.Hour + 14*time.Minute + 5*time.Second))
	assert.Equal(t, "in 2h 14m", got)
}

func TestFormatExpiryMinutesOnly(t *testing.T) {
	got := FormatExpiry(time.Now().Add(9 * time.Minute))
	assert.Equal(t, "in 9m", got)
}

func TestFormatExpiryHoursOnly(t *testing.T) {
	got := FormatExpiry(time.Now().Add(3 * time.Hour))
	assert.Equal(t, "in 3h", got)
}

func TestFormatExpiryPast(t *testing.T) {
	got := FormatExpiry(time.Now().Add(-time.Minute))
	assert.Equal(t, "expired", got)
}
