package normalizer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaintrace-systems/chaintrace-stack/common/models"
	dmodels "github.com/chaintrace-systems/chaintrace-stack/detect/internal/models"
)

func submission(dt string, fields map[string]any) *dmodels.TelemetrySubmission {
	return &dmodels.TelemetrySubmission{
		RecordID: "rec-1",
		OrgID:    "org-1",
		DataType: dt,
		Fields:   fields,
	}
}

func TestNormalizeTemperature(t *testing.T) {
	reg := DefaultRegistry()

	rec, vec, err := reg.Normalize(context.Background(), submission("temperature", map[string]any{
		"value":    39.2,
		"unit":     "f",
		"setpoint": 39.2,
	}))
	require.NoError(t, err)

	assert.Equal(t, "rec-1", rec.RecordID)
	assert.Equal(t, models.DataTypeTemperature, rec.DataType)

	tempC, ok := vec.Get("temp_c")
	require.True(t, ok)
	assert.InDelta(t, 4.0, tempC, 1e-9)

	delta, ok := vec.Get("setpoint_delta")
	require.True(t, ok)
	assert.InDelta(t, 0.0, delta, 1e-9)
}

func TestNormalizeHumidityRatioCoercion(t *testing.T) {
	reg := DefaultRegistry()

	_, vec, err := reg.Normalize(context.Background(), submission("humidity", map[string]any{
		"value": 0.45,
		"unit":  "ratio",
	}))
	require.NoError(t, err)

	pct, ok := vec.Get("humidity_pct")
	require.True(t, ok)
	assert.InDelta(t, 45.0, pct, 1e-9)
}

func TestNormalizeLocationSpeedMPH(t *testing.T) {
	reg := DefaultRegistry()

	_, vec, err := reg.Normalize(context.Background(), submission("location", map[string]any{
		"lat":        10.5,
		"lon":        -74.1,
		"speed":      50,
		"speed_unit": "mph",
	}))
	require.NoError(t, err)

	speed, ok := vec.Get("speed_kmh")
	require.True(t, ok)
	assert.InDelta(t, 80.4672, speed, 1e-4)
}

func TestNormalizeMixed(t *testing.T) {
	reg := DefaultRegistry()

	_, vec, err := reg.Normalize(context.Background(), submission("mixed", map[string]any{
		"temperature": 5.0,
		"humidity":    50.0,
		"lat":         1.0,
		"lon":         2.0,
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"humidity_pct", "lat", "lon", "temp_c"}, vec.Names)
}

func TestNormalizeDeterministicVector(t *testing.T) {
	reg := DefaultRegistry()
	sub := submission("mixed", map[string]any{
		"temperature": 5.0,
		"humidity":    50.0,
		"lat":         1.0,
		"lon":         2.0,
	})

	_, first, err := reg.Normalize(context.Background(), sub)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		_, again, err := reg.Normalize(context.Background(), sub)
		require.NoError(t, err)
		assert.Equal(t, first.Names, again.Names)
		assert.Equal(t, first.Values, again.Values)
	}
}

func TestNormalizeGeneratesRecordID(t *testing.T) {
	reg := DefaultRegistry()
	sub := submission("temperature", map[string]any{"value": 4.0})
	sub.RecordID = ""

	rec, _, err := reg.Normalize(context.Background(), sub)
	require.NoError(t, err)
	assert.NotEmpty(t, rec.RecordID)
}

func TestNormalizeValidationErrors(t *testing.T) {
	reg := DefaultRegistry()

	tests := []struct {
		name  string
		sub   *dmodels.TelemetrySubmission
		field string
	}{
		{
			name:  "unknown data type",
			sub:   submission("vibration", map[string]any{"value": 1.0}),
			field: "data_type",
		},
		{
			name: "missing org",
			sub: &dmodels.TelemetrySubmission{
				DataType: "temperature",
				Fields:   map[string]any{"value": 1.0},
			},
			field: "org_id",
		},
		{
			name:  "missing fields",
			sub:   submission("temperature", nil),
			field: "fields",
		},
		{
			name:  "non numeric value",
			sub:   submission("temperature", map[string]any{"value": "warm"}),
			field: "fields.value",
		},
		{
			name:  "bad unit",
			sub:   submission("temperature", map[string]any{"value": 4.0, "unit": "kelvin"}),
			field: "fields.unit",
		},
		{
			name:  "humidity out of range",
			sub:   submission("humidity", map[string]any{"value": 140.0}),
			field: "fields.value",
		},
		{
			name:  "latitude out of range",
			sub:   submission("location", map[string]any{"lat": 95.0, "lon": 0.0}),
			field: "fields.lat",
		},
		{
			name:  "mixed missing humidity",
			sub:   submission("mixed", map[string]any{"temperature": 4.0, "lat": 0.0, "lon": 0.0}),
			field: "fields.humidity",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := reg.Normalize(context.Background(), tt.sub)
			require.Error(t, err)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}
