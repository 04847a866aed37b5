package condition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homecore/internal/models"
)

func props(kv ...any) models.PropertySet {
	ps := models.PropertySet{}
	for i := 0; i < len(kv); i += 2 {
		v, ok := models.ValueOf(kv[i+1])
		if !ok {
			panic("bad value")
		}
		ps[kv[i].(models.Property)] = v
	}
	return ps
}

func TestEvaluateExamples(t *testing.T) {
	assert.True(t, EvaluateSet("battery < 20", props(models.PropBattery, 15)))
	assert.False(t, EvaluateSet("battery < 20 AND reachable = true",
		props(models.PropBattery, 15, models.PropReachable, false)))
	assert.True(t, EvaluateSet("temperature > 80 OR temperature < 50",
		props(models.PropTemperature, 45)))
	assert.True(t, EvaluateSet("contact = open", props(models.PropContact, 0)))
}

func TestIntegerOperators(t *testing.T) {
	ps := props(models.PropBattery, 20)
	cases := []struct {
		expr string
		want bool
	}{
		{"battery >= 20", true},
		{"battery <= 20", true},
		{"battery != 20", false},
		{"battery > 20", false},
		{"battery < 20", false},
		{"battery = 20", true},
		{"battery = 20.0", true},
		{"battery > 19.5", true},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, EvaluateSet(tc.expr, ps), tc.expr)
	}
}

func TestFloatEpsilon(t *testing.T) {
	ps := props(models.PropTemperature, 21.505)
	assert.True(t, EvaluateSet("temperature = 21.5", ps))
	assert.False(t, EvaluateSet("temperature != 21.5", ps))
	assert.False(t, EvaluateSet("temperature = 21.6", ps))
	assert.True(t, EvaluateSet("temperature != 21.6", ps))
	assert.True(t, EvaluateSet("temperature >= 21.5", ps))
	assert.True(t, EvaluateSet("temperature < 22", ps))
}

func TestBooleanComparisons(t *testing.T) {
	on := props(models.PropPower, true)
	for _, lit := range []string{"true", "1", "yes", "TRUE", "Yes"} {
		assert.True(t, EvaluateSet("power = "+lit, on), lit)
	}
	assert.False(t, EvaluateSet("power = false", on))
	assert.True(t, EvaluateSet("power != false", on))
	// ordering operators are not defined on booleans
	assert.False(t, EvaluateSet("power > 0", on))
	assert.False(t, EvaluateSet("power >= true", on))
}

func TestStringComparisons(t *testing.T) {
	ps := props(models.PropAirQuality, "Good")
	assert.True(t, EvaluateSet("air_quality = good", ps))
	assert.True(t, EvaluateSet("airquality != poor", ps))
	assert.False(t, EvaluateSet("air quality > bad", ps))
}

func TestBinarySensorWords(t *testing.T) {
	closed := props(models.PropContact, 1)
	assert.True(t, EvaluateSet("contact = closed", closed))
	assert.False(t, EvaluateSet("contact = open", closed))

	leak := props(models.PropLeak, 0)
	assert.True(t, EvaluateSet("leak = detected", leak))
	assert.False(t, EvaluateSet("leak = clear", leak))
}

func TestPropertyNamesAreCaseInsensitive(t *testing.T) {
	ps := props(models.PropBattery, 10, models.PropCarbonDioxide, 1200)
	assert.True(t, EvaluateSet("Battery < 20", ps))
	assert.True(t, EvaluateSet("BATTERY_LEVEL < 20", ps))
	assert.True(t, EvaluateSet("CO2 > 1000", ps))
}

func TestUnresolvableTermsAreFalse(t *testing.T) {
	ps := props(models.PropBattery, 10)
	assert.False(t, EvaluateSet("humidity > 10", ps))
	assert.False(t, EvaluateSet("wattage > 10", ps))
	assert.False(t, EvaluateSet("battery < twenty", ps))
	assert.False(t, EvaluateSet("battery", ps))
	assert.False(t, EvaluateSet("", ps))
	assert.False(t, EvaluateSet("battery <", ps))
}

func TestMixedAndOrSplitsOnOrFirst(t *testing.T) {
	// (battery < 20 AND reachable = true) OR motion = true
	ps := props(models.PropBattery, 50, models.PropReachable, true, models.PropMotion, true)
	assert.True(t, EvaluateSet("battery < 20 AND reachable = true OR motion = true", ps))

	ps = props(models.PropBattery, 10, models.PropReachable, true, models.PropMotion, false)
	assert.True(t, EvaluateSet("battery < 20 AND reachable = true OR motion = true", ps))

	ps = props(models.PropBattery, 10, models.PropReachable, false, models.PropMotion, false)
	assert.False(t, EvaluateSet("battery < 20 AND reachable = true OR motion = true", ps))
}

func TestEvaluateUsesLookup(t *testing.T) {
	var asked []models.Property
	lookup := func(p models.Property) (models.Value, bool) {
		asked = append(asked, p)
		return models.Int(5), true
	}
	assert.True(t, Evaluate("battery < 20 AND humidity = 5", lookup))
	assert.Equal(t, []models.Property{models.PropBattery, models.PropHumidity}, asked)
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate("battery < 20 AND reachable = true"))
	require.NoError(t, Validate("temperature > 80 OR temperature < 50"))
	assert.ErrorIs(t, Validate(""), ErrMalformed)
	assert.ErrorIs(t, Validate("battery"), ErrMalformed)
	assert.ErrorIs(t, Validate("wattage > 10"), ErrMalformed)
	assert.ErrorIs(t, Validate("battery < 20 AND = 5"), ErrMalformed)
}

func TestProperties(t *testing.T) {
	got := Properties("temperature > 80 OR temperature < 50 AND humidity > 60")
	assert.Equal(t, []models.Property{models.PropTemperature, models.PropHumidity}, got)
}
