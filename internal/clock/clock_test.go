package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClinicUsesZone(t *testing.T) {
	c := NewClinic("America/Sao_Paulo")
	assert.Equal(t, "America/Sao_Paulo", c.Location().String())
	assert.Equal(t, c.Location(), c.Now().Location())
}

func TestNewClinicFallsBackToUTC(t *testing.T) {
	assert.Equal(t, time.UTC, NewClinic("").Location())
	assert.Equal(t, time.UTC, NewClinic("Not/AZone").Location())
}

func TestFixed(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)
	at := time.Date(2026, 3, 10, 9, 0, 0, 0, loc)

	f := Fixed{At: at}
	assert.Equal(t, at, f.Now())
	assert.Equal(t, loc, f.Location())
}
