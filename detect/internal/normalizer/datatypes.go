package normalizer

import (
	"context"
	"fmt"
	"strings"

	"github.com/chaintrace-systems/chaintrace-stack/common/models"
	dmodels "github.com/chaintrace-systems/chaintrace-stack/detect/internal/models"
)

// temperatureNormalizer handles cold-chain temperature readings. Accepts
// celsius or fahrenheit input and always emits celsius.
type temperatureNormalizer struct{}

func (n *temperatureNormalizer) DataType() models.DataType { return models.DataTypeTemperature }

func (n *temperatureNormalizer) Normalize(_ context.Context, sub *dmodels.TelemetrySubmission) (*models.TelemetryRecord, models.FeatureVector, error) {
	value, ok := numField(sub.Fields, "value")
	if !ok {
		return nil, models.FeatureVector{}, invalid("fields.value", "is required and must be numeric")
	}

	tempC, err := toCelsius(value, strField(sub.Fields, "unit"))
	if err != nil {
		return nil, models.FeatureVector{}, err
	}
	if tempC < -80 || tempC > 120 {
		return nil, models.FeatureVector{}, invalid("fields.value", "outside physical range")
	}

	delta := 0.0
	if setpoint, ok := numField(sub.Fields, "setpoint"); ok {
		sp, err := toCelsius(setpoint, strField(sub.Fields, "unit"))
		if err != nil {
			return nil, models.FeatureVector{}, err
		}
		delta = tempC - sp
	}

	canonical := map[string]any{"temp_c": tempC, "setpoint_delta": delta}
	rec := newRecord(sub, models.DataTypeTemperature, canonical)
	vec := models.NewFeatureVector(map[string]float64{
		"temp_c":         tempC,
		"setpoint_delta": delta,
	})
	return rec, vec, nil
}

// humidityNormalizer handles relative-humidity readings, emitted as percent.
type humidityNormalizer struct{}

func (n *humidityNormalizer) DataType() models.DataType { return models.DataTypeHumidity }

func (n *humidityNormalizer) Normalize(_ context.Context, sub *dmodels.TelemetrySubmission) (*models.TelemetryRecord, models.FeatureVector, error) {
	value, ok := numField(sub.Fields, "value")
	if !ok {
		return nil, models.FeatureVector{}, invalid("fields.value", "is required and must be numeric")
	}

	pct := value
	switch strings.ToLower(strField(sub.Fields, "unit")) {
	case "", "pct", "percent":
	case "ratio":
		pct = value * 100
	default:
		return nil, models.FeatureVector{}, invalid("fields.unit", "must be pct or ratio")
	}
	if pct < 0 || pct > 100 {
		return nil, models.FeatureVector{}, invalid("fields.value", "must be within 0-100 percent")
	}

	delta := 0.0
	if setpoint, ok := numField(sub.Fields, "setpoint"); ok {
		delta = pct - setpoint
	}

	canonical := map[string]any{"humidity_pct": pct, "setpoint_delta": delta}
	rec := newRecord(sub, models.DataTypeHumidity, canonical)
	vec := models.NewFeatureVector(map[string]float64{
		"humidity_pct":   pct,
		"setpoint_delta": delta,
	})
	return rec, vec, nil
}

// locationNormalizer handles GPS fixes with optional speed.
type locationNormalizer struct{}

func (n *locationNormalizer) DataType() models.DataType { return models.DataTypeLocation }

func (n *locationNormalizer) Normalize(_ context.Context, sub *dmodels.TelemetrySubmission) (*models.TelemetryRecord, models.FeatureVector, error) {
	lat, ok := numField(sub.Fields, "lat")
	if !ok {
		return nil, models.FeatureVector{}, invalid("fields.lat", "is required and must be numeric")
	}
	lon, ok := numField(sub.Fields, "lon")
	if !ok {
		return nil, models.FeatureVector{}, invalid("fields.lon", "is required and must be numeric")
	}
	if lat < -90 || lat > 90 {
		return nil, models.FeatureVector{}, invalid("fields.lat", "must be within -90..90")
	}
	if lon < -180 || lon > 180 {
		return nil, models.FeatureVector{}, invalid("fields.lon", "must be within -180..180")
	}

	speed := 0.0
	if s, ok := numField(sub.Fields, "speed"); ok {
		switch strings.ToLower(strField(sub.Fields, "speed_unit")) {
		case "", "kmh":
			speed = s
		case "mph":
			speed = s * 1.609344
		default:
			return nil, models.FeatureVector{}, invalid("fields.speed_unit", "must be kmh or mph")
		}
		if speed < 0 {
			return nil, models.FeatureVector{}, invalid("fields.speed", "must be non-negative")
		}
	}

	canonical := map[string]any{"lat": lat, "lon": lon, "speed_kmh": speed}
	rec := newRecord(sub, models.DataTypeLocation, canonical)
	vec := models.NewFeatureVector(map[string]float64{
		"lat":       lat,
		"lon":       lon,
		"speed_kmh": speed,
	})
	return rec, vec, nil
}

// mixedNormalizer handles combined sensor payloads carrying temperature,
// humidity, and position in one reading.
type mixedNormalizer struct{}

func (n *mixedNormalizer) DataType() models.DataType { return models.DataTypeMixed }

func (n *mixedNormalizer) Normalize(_ context.Context, sub *dmodels.TelemetrySubmission) (*models.TelemetryRecord, models.FeatureVector, error) {
	required := []string{"temperature", "humidity", "lat", "lon"}
	values := make(map[string]float64, len(required))
	for _, f := range required {
		v, ok := numField(sub.Fields, f)
		if !ok {
			return nil, models.FeatureVector{}, invalid("fields."+f, "is required and must be numeric")
		}
		values[f] = v
	}

	tempC, err := toCelsius(values["temperature"], strField(sub.Fields, "unit"))
	if err != nil {
		return nil, models.FeatureVector{}, err
	}
	if values["humidity"] < 0 || values["humidity"] > 100 {
		return nil, models.FeatureVector{}, invalid("fields.humidity", "must be within 0-100 percent")
	}
	if values["lat"] < -90 || values["lat"] > 90 {
		return nil, models.FeatureVector{}, invalid("fields.lat", "must be within -90..90")
	}
	if values["lon"] < -180 || values["lon"] > 180 {
		return nil, models.FeatureVector{}, invalid("fields.lon", "must be within -180..180")
	}

	canonical := map[string]any{
		"temp_c":       tempC,
		"humidity_pct": values["humidity"],
		"lat":          values["lat"],
		"lon":          values["lon"],
	}
	rec := newRecord(sub, models.DataTypeMixed, canonical)
	vec := models.NewFeatureVector(map[string]float64{
		"temp_c":       tempC,
		"humidity_pct": values["humidity"],
		"lat":          values["lat"],
		"lon":          values["lon"],
	})
	return rec, vec, nil
}

func toCelsius(value float64, unit string) (float64, error) {
	switch strings.ToLower(unit) {
	case "", "c", "celsius":
		return value, nil
	case "f", "fahrenheit":
		return (value - 32) * 5 / 9, nil
	}
	return 0, invalid("fields.unit", fmt.Sprintf("unsupported temperature unit %q", unit))
}
