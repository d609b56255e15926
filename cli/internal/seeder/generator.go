// Package seeder generates synthetic supply-chain telemetry and submits it to
// the detection service. Most readings are unremarkable baseline sensor data;
// a configurable fraction is injected with cold-chain breaches, humidity
// spikes, and route deviations so every severity band gets exercised.
package seeder

import (
	"fmt"
	"math/rand"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/chaintrace-systems/chaintrace-stack/cli/internal/client"
)

// Generator produces telemetry submissions for one organization.
type Generator struct {
	orgID string
	rng   *rand.Rand
	faker *gofakeit.Faker
}

// NewGenerator creates a generator. A fixed seed makes runs reproducible;
// pass 0 to randomize.
func NewGenerator(orgID string, seed int64) *Generator {
	if seed == 0 {
		seed = gofakeit.New(0).Int64()
	}
	return &Generator{
		orgID: orgID,
		rng:   rand.New(rand.NewSource(seed)),
		faker: gofakeit.New(seed),
	}
}

// Generate returns one submission of the given data type. When anomalous is
// true the reading is pushed well outside its baseline band.
func (g *Generator) Generate(dataType string, anomalous bool) *client.TelemetrySubmission {
	sub := &client.TelemetrySubmission{
		RecordID: g.recordID(),
		OrgID:    g.orgID,
		DataType: dataType,
		Source:   g.source(),
	}

	switch dataType {
	case "humidity":
		sub.Fields = g.humidityFields(anomalous)
	case "location":
		sub.Fields = g.locationFields(anomalous)
	case "mixed":
		sub.Fields = g.mixedFields(anomalous)
	default:
		sub.DataType = "temperature"
		sub.Fields = g.temperatureFields(anomalous)
	}
	return sub
}

// recordID mimics warehouse-issued shipment reading IDs.
func (g *Generator) recordID() string {
	return fmt.Sprintf("shp-%s-%04d", g.faker.LetterN(6), g.rng.Intn(10000))
}

func (g *Generator) source() string {
	return fmt.Sprintf("sensor-%s/%s", g.faker.AppName(), g.faker.CarMaker())
}

// temperatureFields models a refrigerated container holding near 4C. An
// anomalous reading simulates a cold-chain breach: door left open, unit
// failed, or a mislabeled ambient pallet.
func (g *Generator) temperatureFields(anomalous bool) map[string]any {
	setpoint := 4.0
	value := setpoint + g.rng.NormFloat64()*0.8
	if anomalous {
		value = setpoint + 12 + g.rng.Float64()*25
	}
	return map[string]any{
		"value":    round1(value),
		"unit":     "c",
		"setpoint": setpoint,
	}
}

// humidityFields models dry-goods storage around 45% RH.
func (g *Generator) humidityFields(anomalous bool) map[string]any {
	setpoint := 45.0
	value := setpoint + g.rng.NormFloat64()*4
	if anomalous {
		value = 88 + g.rng.Float64()*11
	}
	if value < 0 {
		value = 0
	}
	if value > 100 {
		value = 100
	}
	return map[string]any{
		"value":    round1(value),
		"unit":     "pct",
		"setpoint": setpoint,
	}
}

// locationFields models a truck on a known corridor. Anomalous fixes jump far
// off-route at implausible speed.
func (g *Generator) locationFields(anomalous bool) map[string]any {
	lat := 47.6 + g.rng.NormFloat64()*0.3
	lon := -122.3 + g.rng.NormFloat64()*0.3
	speed := 60 + g.rng.NormFloat64()*15
	if speed < 0 {
		speed = 0
	}
	if anomalous {
		lat = g.faker.Latitude()
		lon = g.faker.Longitude()
		speed = 180 + g.rng.Float64()*120
	}
	return map[string]any{
		"lat":        round4(lat),
		"lon":        round4(lon),
		"speed":      round1(speed),
		"speed_unit": "kmh",
	}
}

func (g *Generator) mixedFields(anomalous bool) map[string]any {
	temp := g.temperatureFields(false)
	hum := g.humidityFields(false)
	loc := g.locationFields(false)
	if anomalous {
		// Breach one dimension at a time so explanations single it out.
		switch g.rng.Intn(3) {
		case 0:
			temp = g.temperatureFields(true)
		case 1:
			hum = g.humidityFields(true)
		default:
			loc = g.locationFields(true)
		}
	}
	return map[string]any{
		"temperature": temp["value"],
		"unit":        "c",
		"humidity":    hum["value"],
		"lat":         loc["lat"],
		"lon":         loc["lon"],
	}
}

func round1(v float64) float64 { return float64(int(v*10)) / 10 }
func round4(v float64) float64 { return float64(int(v*10000)) / 10000 }
