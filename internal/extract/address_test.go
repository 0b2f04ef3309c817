package extract

import "testing"

func TestInferAddressDirectionLabel(t *testing.T) {
	corpus := "Hermosa casa remodelada.\n" +
		"Dirección: Av. Insurgentes Sur No. 1234\n" +
		"Col. Del Valle, Ciudad de México"

	got := InferAddress(corpus)

	if got.Street != "Av. Insurgentes Sur No. 1234" {
		t.Errorf("Street = %q", got.Street)
	}
	if got.ExteriorNum != "1234" {
		t.Errorf("ExteriorNum = %q", got.ExteriorNum)
	}
	if got.City != "ciudad de mexico" {
		t.Errorf("City = %q", got.City)
	}
	if got.Neighborhood != "del valle" {
		t.Errorf("Neighborhood = %q", got.Neighborhood)
	}
}

func TestInferAddressStreetKeyword(t *testing.T) {
	corpus := "Se vende bonito terreno.\nCalle Framboyanes s/n, Mérida"

	got := InferAddress(corpus)

	if got.Street == "" {
		t.Error("expected street from keyword line")
	}
	if got.City != "merida" {
		t.Errorf("City = %q, want merida", got.City)
	}
}

func TestInferAddressEmpty(t *testing.T) {
	got := InferAddress("Amplios espacios, muy iluminado.")
	if got.Street != "" || got.Neighborhood != "" || got.City != "" {
		t.Errorf("expected empty inference, got %+v", got)
	}
}

func TestFindCoordinates(t *testing.T) {
	tests := []struct {
		input    string
		lat, lng float64
		ok       bool
	}{
		{"ver mapa: 19.432608, -99.133209", 19.432608, -99.133209, true},
		{"20.659698,-103.349609 zona centro", 20.659698, -103.349609, true},
		{"precio 1.5, 2.5 millones", 0, 0, false},       // too few decimals
		{"123.456789, 200.123456 no es valido", 0, 0, false}, // out of range
		{"sin coordenadas", 0, 0, false},
	}

	for _, tt := range tests {
		lat, lng, ok := FindCoordinates(tt.input)
		if ok != tt.ok || lat != tt.lat || lng != tt.lng {
			t.Errorf("FindCoordinates(%q) = %v, %v, %v; want %v, %v, %v",
				tt.input, lat, lng, ok, tt.lat, tt.lng, tt.ok)
		}
	}
}

func TestFindPostalCode(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"C.P. 03100, Benito Juárez", "03100"},
		{"colonia centro 44100", "44100"},
		{"tel 5512345678", ""}, // 10 digits, not a postal code
		{"", ""},
	}

	for _, tt := range tests {
		if got := FindPostalCode(tt.input); got != tt.expected {
			t.Errorf("FindPostalCode(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
