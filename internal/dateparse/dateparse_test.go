package dateparse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var saoPaulo = func() *time.Location {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		panic(err)
	}
	return loc
}()

func TestDateTimeLayouts(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want time.Time
	}{
		{"rfc3339", "2026-03-10T14:30:00-03:00", time.Date(2026, 3, 10, 14, 30, 0, 0, saoPaulo)},
		{"naive iso", "2026-03-10T14:30:00", time.Date(2026, 3, 10, 14, 30, 0, 0, saoPaulo)},
		{"brazilian", "10/03/2026 14:30", time.Date(2026, 3, 10, 14, 30, 0, 0, saoPaulo)},
		{"brazilian h", "10/03/2026 14h30", time.Date(2026, 3, 10, 14, 30, 0, 0, saoPaulo)},
		{"hour only", "10/03/2026 14h", time.Date(2026, 3, 10, 14, 0, 0, 0, saoPaulo)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DateTime(tt.raw, saoPaulo)
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %v want %v", got, tt.want)
		})
	}
}

func TestDateTimeRejectsUnknownFormat(t *testing.T) {
	_, err := DateTime("next tuesday around lunch", saoPaulo)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "next tuesday around lunch", perr.Input)
	assert.NotEmpty(t, perr.Layouts)
}

func TestDateWithoutYearRollsForward(t *testing.T) {
	ref := time.Date(2026, 11, 20, 10, 0, 0, 0, saoPaulo)

	got, err := Date("05/01", saoPaulo, ref)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2027, 1, 5, 0, 0, 0, 0, saoPaulo), got)

	got, err = Date("25/11", saoPaulo, ref)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 11, 25, 0, 0, 0, 0, saoPaulo), got)
}

func TestDateFullYear(t *testing.T) {
	got, err := Date("2026-03-10", saoPaulo, time.Now())
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, saoPaulo), got)
}
