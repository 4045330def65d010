package refdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeRegion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"canonical passes through", "Northeast", "Northeast"},
		{"lowercase", "northeast", "Northeast"},
		{"uppercase", "NORTHEAST", "Northeast"},
		{"abbreviation", "NE", "Northeast"},
		{"spaced variant", "north  east", "Northeast"},
		{"padded", "  southeast  ", "Southeast"},
		{"gulf alias", "gulf", "Gulf Coast"},
		{"hyphen variant", "mid-atlantic", "Mid-Atlantic"},
		{"unknown keeps own bucket", "pacific northwest", "Pacific Northwest"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, NormalizeRegion(tt.in))
		})
	}
}

func TestNormalizeEquipmentType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"canonical", "Crawler", "Crawler"},
		{"suffix variant", "crawler crane", "Crawler"},
		{"abbreviation", "AT", "All-Terrain"},
		{"spaced", "all terrain", "All-Terrain"},
		{"rough terrain", "Rough Terrain", "Rough-Terrain"},
		{"boom truck maps to truck", "boom truck", "Truck"},
		{"unknown keeps own bucket", "ringer", "Ringer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, NormalizeEquipmentType(tt.in))
		})
	}
}

func TestNormalizationIsLookupConsistent(t *testing.T) {
	t.Parallel()

	// Every spelling of the same market must land on one curve key.
	variants := []string{"NE", "ne", "Northeast", " NORTHEAST ", "north east"}
	for _, v := range variants {
		assert.Equal(t, "Northeast", NormalizeRegion(v), "variant %q", v)
	}
}
