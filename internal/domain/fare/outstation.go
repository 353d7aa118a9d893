package fare

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNoFixedRoute means no fare is configured for a city pair. Callers must
// block the booking rather than charge zero or the minimum fare.
var ErrNoFixedRoute = errors.New("no fixed-route fare configured for this city pair")

// VehicleClass is the seating class of the cab.
type VehicleClass string

const (
	Vehicle4Seater VehicleClass = "4-seater"
	Vehicle6Seater VehicleClass = "6-seater"
)

// IsValid returns true if the vehicle class is recognized.
func (v VehicleClass) IsValid() bool {
	return v == Vehicle4Seater || v == Vehicle6Seater
}

// ParseVehicleClass converts a string to a VehicleClass.
func ParseVehicleClass(s string) (VehicleClass, error) {
	v := VehicleClass(strings.TrimSpace(s))
	if !v.IsValid() {
		return "", fmt.Errorf("invalid vehicle class: %s", s)
	}
	return v, nil
}

// routeSep joins the two cities of a route key. City names may not contain it.
const routeSep = "-"

// RouteKey builds the table key for a directed city pair, e.g. "Mumbai-Pune".
func RouteKey(from, to string) string {
	return strings.TrimSpace(from) + routeSep + strings.TrimSpace(to)
}

// ParseRouteKey splits a key built by RouteKey.
func ParseRouteKey(key string) (from, to string, err error) {
	parts := strings.Split(key, routeSep)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("route key %q must be two cities joined by %q", key, routeSep)
	}
	from, to = strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	if from == "" || to == "" {
		return "", "", fmt.Errorf("route key %q has an empty city", key)
	}
	return from, to, nil
}

// ValidateCity rejects names that cannot be stored in a route key.
func ValidateCity(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("city name is required")
	}
	if strings.Contains(name, routeSep) {
		return fmt.Errorf("city name %q cannot contain %q", name, routeSep)
	}
	return nil
}

// SameCity compares city names ignoring case and surrounding space.
func SameCity(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// OutstationTable holds fixed intercity fares per vehicle class keyed by RouteKey.
// Only one direction of a pair needs to be present. City matching ignores case.
type OutstationTable struct {
	Fares                 map[VehicleClass]map[string]int64 `json:"fares" yaml:"fares"`
	LargeVehicleSurcharge int64                             `json:"large_vehicle_surcharge" yaml:"large_vehicle_surcharge"`
}

// NewOutstationTable returns an empty table.
func NewOutstationTable() OutstationTable {
	return OutstationTable{Fares: make(map[VehicleClass]map[string]int64)}
}

// Set stores the fare for a directed pair. Any existing entry for the same
// pair, in either direction or letter case, is replaced so each pair has a
// single authoritative price.
func (t *OutstationTable) Set(class VehicleClass, from, to string, amount int64) error {
	if !class.IsValid() {
		return fmt.Errorf("invalid vehicle class: %s", class)
	}
	if err := ValidateCity(from); err != nil {
		return err
	}
	if err := ValidateCity(to); err != nil {
		return err
	}
	if SameCity(from, to) {
		return errors.New("cities must differ")
	}
	if t.Fares == nil {
		t.Fares = make(map[VehicleClass]map[string]int64)
	}
	if t.Fares[class] == nil {
		t.Fares[class] = make(map[string]int64)
	}
	t.Delete(class, from, to)
	t.Fares[class][RouteKey(from, to)] = amount
	return nil
}

// Delete removes every entry for the pair and reports whether one existed.
func (t *OutstationTable) Delete(class VehicleClass, from, to string) bool {
	fares := t.Fares[class]
	removed := false
	for key := range fares {
		if matchesPair(key, from, to) {
			delete(fares, key)
			removed = true
		}
	}
	return removed
}

// Lookup returns the fare for an unordered city pair, trying "from-to" then
// "to-from". The large-vehicle surcharge applies to 6-seaters.
func (t OutstationTable) Lookup(from, to string, class VehicleClass) (int64, error) {
	if !class.IsValid() {
		return 0, fmt.Errorf("invalid vehicle class: %s", class)
	}
	if strings.TrimSpace(from) == "" || strings.TrimSpace(to) == "" || SameCity(from, to) {
		return 0, ErrNoFixedRoute
	}

	amount, ok := t.find(class, from, to)
	if !ok || amount <= 0 {
		return 0, fmt.Errorf("%w: %s (%s)", ErrNoFixedRoute, RouteKey(from, to), class)
	}

	if class == Vehicle6Seater {
		amount += t.LargeVehicleSurcharge
	}
	return amount, nil
}

func (t OutstationTable) find(class VehicleClass, from, to string) (int64, bool) {
	fares := t.Fares[class]
	if amount, ok := fares[RouteKey(from, to)]; ok {
		return amount, true
	}
	if amount, ok := fares[RouteKey(to, from)]; ok {
		return amount, true
	}
	for key, amount := range fares {
		if matchesPair(key, from, to) {
			return amount, true
		}
	}
	return 0, false
}

// matchesPair reports whether key names the unordered pair {a, b}.
func matchesPair(key, a, b string) bool {
	from, to, err := ParseRouteKey(key)
	if err != nil {
		return false
	}
	return (SameCity(from, a) && SameCity(to, b)) || (SameCity(from, b) && SameCity(to, a))
}

// Cities lists every city appearing in any route key, sorted. Names that
// differ only in case are listed once.
func (t OutstationTable) Cities() []string {
	seen := make(map[string]string)
	for _, fares := range t.Fares {
		for key := range fares {
			from, to, err := ParseRouteKey(key)
			if err != nil {
				continue
			}
			for _, c := range []string{from, to} {
				if _, ok := seen[strings.ToLower(c)]; !ok {
					seen[strings.ToLower(c)] = c
				}
			}
		}
	}
	cities := make([]string, 0, len(seen))
	for _, c := range seen {
		cities = append(cities, c)
	}
	sort.Strings(cities)
	return cities
}

// DefaultOutstationTable is the launch fare sheet for the Mumbai region.
func DefaultOutstationTable() OutstationTable {
	t := NewOutstationTable()
	for key, amount := range map[string]int64{
		"Mumbai-Pune":   2500,
		"Mumbai-Surat":  3500,
		"Mumbai-Nashik": 2800,
		"Pune-Surat":    4000,
		"Pune-Nashik":   2200,
		"Surat-Nashik":  3200,
	} {
		from, to, _ := ParseRouteKey(key)
		_ = t.Set(Vehicle4Seater, from, to, amount)
	}
	for key, amount := range map[string]int64{
		"Mumbai-Pune":   3500,
		"Mumbai-Surat":  4500,
		"Mumbai-Nashik": 3800,
		"Pune-Surat":    5000,
		"Pune-Nashik":   3200,
		"Surat-Nashik":  4200,
	} {
		from, to, _ := ParseRouteKey(key)
		_ = t.Set(Vehicle6Seater, from, to, amount)
	}
	return t
}
