package emergency

import (
	"fmt"
	"strings"

	"aesthetic-triage-bot/internal/rules"
)

// Directory resolves the emergency phone number for a user's country and
// renders the fixed line that deterministic safety replies embed.
type Directory struct {
	numbers []rules.EmergencyNumber
}

func NewDirectory(numbers []rules.EmergencyNumber) *Directory {
	return &Directory{numbers: numbers}
}

// Find matches by ISO code or country name, case-insensitive.
func (d *Directory) Find(countryNameOrCode string) *rules.EmergencyNumber {
	if countryNameOrCode == "" {
		return nil
	}
	query := strings.ToLower(strings.TrimSpace(countryNameOrCode))

	for i := range d.numbers {
		e := &d.numbers[i]
		if strings.ToLower(e.CountryCode) == query || strings.ToLower(e.CountryName) == query {
			return e
		}
	}
	return nil
}

// Line builds the country-specific emergency sentence, falling back to a
// generic one when the country is unknown.
func (d *Directory) Line(country string) string {
	if e := d.Find(country); e != nil {
		return fmt.Sprintf("En %s, el número principal de emergencias es: %s.", e.CountryName, e.Number)
	}
	return "Si estás en México, el número general de emergencias es el 911; en otros países, usa el número de emergencias local."
}
