package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	t.Run("Local number with trunk prefix", func(t *testing.T) {
		assert.Equal(t, "972501234567", Normalize("0501234567"))
	})

	t.Run("Already in country-code form", func(t *testing.T) {
		assert.Equal(t, "972501234567", Normalize("972501234567"))
	})

	t.Run("International prefix and separators", func(t *testing.T) {
		assert.Equal(t, "972501234567", Normalize("+972-50-123-4567"))
		assert.Equal(t, "972501234567", Normalize("(050) 123 4567"))
	})

	t.Run("Bare national number without trunk prefix", func(t *testing.T) {
		assert.Equal(t, "972501234567", Normalize("501234567"))
	})

	t.Run("Garbage in, digits out", func(t *testing.T) {
		assert.Equal(t, "", Normalize(""))
		assert.Equal(t, "", Normalize("abc"))
		assert.Equal(t, "97250", Normalize("c0a5b0"))
	})

	t.Run("Idempotent for all forms", func(t *testing.T) {
		inputs := []string{
			"0501234567", "972501234567", "+972 50 123 4567",
			"501234567", "", "03-1234567", "0",
		}
		for _, raw := range inputs {
			once := Normalize(raw)
			assert.Equal(t, once, Normalize(once), "input %q", raw)
		}
	})
}
