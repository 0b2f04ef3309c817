package extract

import (
	"strings"

	"listing-importer/internal/models"
)

var availableMarkers = []string{
	"disponible", "activa", "activo", "available", "en venta", "en renta",
	"publicada", "status-active", "status-available", "badge-green", "label-success",
}

var retiredMarkers = []string{
	"retirada", "retirado", "vendida", "vendido", "rentada", "rentado",
	"sold", "retired", "inactiva", "inactivo", "baja", "suspendida",
	"status-sold", "status-retired", "status-inactive", "badge-red", "label-danger",
}

// ClassifyStatus maps the class attribute and visible text of a card's
// status indicator onto a listing status. Read before opening the popup,
// which does not repeat status. Retired markers are checked first so a
// "vendida" badge inside an otherwise active-looking card wins.
func ClassifyStatus(class, text string) string {
	probe := Normalize(class) + " " + Normalize(text)
	for _, m := range retiredMarkers {
		if strings.Contains(probe, m) {
			return models.StatusRetired
		}
	}
	for _, m := range availableMarkers {
		if strings.Contains(probe, m) {
			return models.StatusAvailable
		}
	}
	return models.StatusUnknown
}
