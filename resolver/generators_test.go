package resolver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSpecialValueShapes(t *testing.T) {
	cases := []struct {
		generator string
		check     string
	}{
		{GeneratorUUID, `^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`},
		{GeneratorShortUUID, `^[0-9a-f]{8}$`},
		{GeneratorNanoID, `^[A-Za-z0-9_-]{21}$`},
		{GeneratorRandomString, `^[A-Za-z0-9]{16}$`},
		{GeneratorRandomEmail, `^[A-Za-z0-9]{10}@example\.com$`},
	}
	for _, tc := range cases {
		v, err := GenerateSpecialValue(tc.generator)
		require.NoError(t, err, tc.generator)
		s, ok := v.(string)
		require.True(t, ok, "%s should produce a string", tc.generator)
		assert.Regexp(t, tc.check, s, tc.generator)
	}
}

func TestGenerateTimestamps(t *testing.T) {
	iso, err := GenerateSpecialValue(GeneratorTimestampISO)
	require.NoError(t, err)
	_, err = time.Parse(time.RFC3339, iso.(string))
	assert.NoError(t, err)

	day, err := GenerateSpecialValue(GeneratorDateOnly)
	require.NoError(t, err)
	_, err = time.Parse("2006-01-02", day.(string))
	assert.NoError(t, err)

	unix, err := GenerateSpecialValue(GeneratorTimestampUnix)
	require.NoError(t, err)
	assert.IsType(t, int64(0), unix)
}

func TestGenerateRandomIntRange(t *testing.T) {
	for i := 0; i < 100; i++ {
		v, err := GenerateSpecialValue(GeneratorRandomInt)
		require.NoError(t, err)
		n := v.(int)
		assert.GreaterOrEqual(t, n, 0)
		assert.Less(t, n, 1000000)
	}
}

func TestGenerateUnknownGenerator(t *testing.T) {
	_, err := GenerateSpecialValue("coin_flip")
	assert.Error(t, err)
}
