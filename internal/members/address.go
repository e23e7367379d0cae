package members

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/martabak-juara/loyalty-club/internal/models"
)

// NormalizeAddress validates an address for its type and fills in the map link.
func NormalizeAddress(a models.Address) (models.Address, error) {
	a.Type = strings.ToLower(strings.TrimSpace(a.Type))
	a.Display = strings.TrimSpace(a.Display)
	a.MapURL = strings.TrimSpace(a.MapURL)

	switch a.Type {
	case models.AddressManual, models.AddressSearch:
		if a.Display == "" {
			return models.Address{}, fmt.Errorf("%w: display address is required", ErrInvalidAddress)
		}
	case models.AddressGPS:
		if a.Latitude == nil || a.Longitude == nil {
			return models.Address{}, fmt.Errorf("%w: gps address needs coordinates", ErrInvalidAddress)
		}
		if *a.Latitude < -90 || *a.Latitude > 90 || *a.Longitude < -180 || *a.Longitude > 180 {
			return models.Address{}, fmt.Errorf("%w: coordinates out of range", ErrInvalidAddress)
		}
		if a.Display == "" {
			a.Display = fmt.Sprintf("%.6f, %.6f", *a.Latitude, *a.Longitude)
		}
	default:
		return models.Address{}, fmt.Errorf("%w: unknown type %q", ErrInvalidAddress, a.Type)
	}
	if (a.Latitude == nil) != (a.Longitude == nil) {
		return models.Address{}, fmt.Errorf("%w: latitude and longitude go together", ErrInvalidAddress)
	}
	if a.MapURL == "" {
		a.MapURL = MapURL(a)
	}
	return a, nil
}

// MapURL links to the address on Google Maps, preferring coordinates.
func MapURL(a models.Address) string {
	if strings.TrimSpace(a.MapURL) != "" {
		return a.MapURL
	}
	if a.Latitude != nil && a.Longitude != nil {
		return fmt.Sprintf("https://www.google.com/maps?q=%f,%f", *a.Latitude, *a.Longitude)
	}
	return "https://www.google.com/maps?q=" + url.QueryEscape(a.Display)
}

// DirectionsURL builds a Google Maps directions link from origin to destination.
func DirectionsURL(origin, destination models.Address) string {
	values := url.Values{}
	values.Set("api", "1")
	values.Set("origin", routePoint(origin))
	values.Set("destination", routePoint(destination))
	return "https://www.google.com/maps/dir/?" + values.Encode()
}

func routePoint(a models.Address) string {
	if display := strings.TrimSpace(a.Display); display != "" {
		return display
	}
	if a.Latitude != nil && a.Longitude != nil {
		return fmt.Sprintf("%f,%f", *a.Latitude, *a.Longitude)
	}
	return ""
}
