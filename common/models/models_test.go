package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDataType(t *testing.T) {
	for _, valid := range []string{"temperature", "humidity", "location", "mixed"} {
		dt, err := ParseDataType(valid)
		require.NoError(t, err)
		assert.Equal(t, DataType(valid), dt)
	}

	_, err := ParseDataType("vibration")
	assert.Error(t, err)
}

func TestSeverityOrdering(t *testing.T) {
	assert.True(t, SeverityCritical.AtLeast(SeverityHigh))
	assert.True(t, SeverityHigh.AtLeast(SeverityHigh))
	assert.False(t, SeverityLow.AtLeast(SeverityMedium))
	assert.True(t, SeverityInfo.AtLeast(SeverityInfo))

	// Unknown tiers never satisfy a min-severity filter.
	assert.False(t, Severity("bogus").AtLeast(SeverityInfo))
}

func TestParseSeverity(t *testing.T) {
	sev, err := ParseSeverity("medium")
	require.NoError(t, err)
	assert.Equal(t, SeverityMedium, sev)

	_, err = ParseSeverity("urgent")
	assert.Error(t, err)
}

func TestNewFeatureVectorDeterministic(t *testing.T) {
	a := NewFeatureVector(map[string]float64{"temp_c": 4.5, "delta": -0.2, "hour": 13})
	b := NewFeatureVector(map[string]float64{"hour": 13, "temp_c": 4.5, "delta": -0.2})

	assert.Equal(t, a.Names, b.Names)
	assert.Equal(t, a.Values, b.Values)
	assert.Equal(t, []string{"delta", "hour", "temp_c"}, a.Names)
}

func TestFeatureVectorGet(t *testing.T) {
	v := NewFeatureVector(map[string]float64{"temp_c": 4.5})

	got, ok := v.Get("temp_c")
	require.True(t, ok)
	assert.Equal(t, 4.5, got)

	_, ok = v.Get("missing")
	assert.False(t, ok)
}

func TestFeatureVectorCloneIsIndependent(t *testing.T) {
	v := NewFeatureVector(map[string]float64{"a": 1, "b": 2})
	c := v.Clone()
	c.Values[0] = 99

	orig, _ := v.Get("a")
	assert.Equal(t, 1.0, orig)
}

func TestFeatureVectorSameShape(t *testing.T) {
	a := NewFeatureVector(map[string]float64{"a": 1, "b": 2})
	b := NewFeatureVector(map[string]float64{"a": 9, "b": -3})
	c := NewFeatureVector(map[string]float64{"a": 1, "c": 2})

	assert.True(t, a.SameShape(b))
	assert.False(t, a.SameShape(c))
}
