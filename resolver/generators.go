package resolver

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Special-value generator names. This is a closed set; the values are the
// wire format used by the mapping authoring surface.
const (
	GeneratorUUID          = "uuid"
	GeneratorShortUUID     = "short_uuid"
	GeneratorNanoID        = "nanoid"
	GeneratorTimestampISO  = "timestamp_iso"
	GeneratorDateOnly      = "date_only"
	GeneratorTimestampUnix = "timestamp_unix"
	GeneratorRandomInt     = "random_int"
	GeneratorRandomString  = "random_string"
	GeneratorRandomEmail   = "random_email"
)

const randomStringAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateSpecialValue invokes the named generator. Generators are pure but
// non-deterministic (except the fixed-format date/time ones); a fresh value is
// produced on every call, never cached.
func GenerateSpecialValue(generator string) (interface{}, error) {
	switch generator {
	case GeneratorUUID:
		return uuid.NewString(), nil
	case GeneratorShortUUID:
		return strings.SplitN(uuid.NewString(), "-", 2)[0], nil
	case GeneratorNanoID:
		id, err := gonanoid.New()
		if err != nil {
			return nil, fmt.Errorf("generating nanoid: %w", err)
		}
		return id, nil
	case GeneratorTimestampISO:
		return time.Now().UTC().Format(time.RFC3339), nil
	case GeneratorDateOnly:
		return time.Now().UTC().Format("2006-01-02"), nil
	case GeneratorTimestampUnix:
		return time.Now().Unix(), nil
	case GeneratorRandomInt:
		return rand.IntN(1000000), nil
	case GeneratorRandomString:
		return randomString(16), nil
	case GeneratorRandomEmail:
		return fmt.Sprintf("%s@example.com", randomString(10)), nil
	default:
		return nil, fmt.Errorf("unknown special-value generator %q", generator)
	}
}

func randomString(length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = randomStringAlphabet[rand.IntN(len(randomStringAlphabet))]
	}
	return string(b)
}
