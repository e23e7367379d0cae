package settings

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/martabak-juara/loyalty-club/internal/models"
)

// SiteName returns the configured site name.
func SiteName() string {
	var name string
	if raw, ok := lookup(SiteNameKey); ok && json.Unmarshal(raw, &name) == nil {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			return trimmed
		}
	}
	return DefaultSiteName
}

// RedemptionPoints returns the points a member asks for in one redemption.
func RedemptionPoints() int64 {
	return positiveInt(RedemptionPointsKey, DefaultRedemptionPoints)
}

// PointsPerTransaction returns the points awarded for one recorded purchase.
func PointsPerTransaction() int64 {
	return positiveInt(PointsPerTransactionKey, DefaultPointsPerTransaction)
}

// StoreAddress returns the store address, falling back to the default display address.
func StoreAddress() models.Address {
	var addr models.Address
	if raw, ok := lookup(StoreAddressKey); ok && json.Unmarshal(raw, &addr) == nil {
		if !addr.IsZero() {
			return addr
		}
	}
	return models.Address{Type: models.AddressManual, Display: DefaultStoreAddress}
}

func positiveInt(key string, fallback int64) int64 {
	raw, ok := lookup(key)
	if !ok || len(raw) == 0 {
		return fallback
	}
	var value int64
	if errUnmarshal := json.Unmarshal(raw, &value); errUnmarshal != nil || value <= 0 {
		return fallback
	}
	return value
}

// ValidateValue checks a raw JSON value for the given key before it is stored.
func ValidateValue(key string, raw json.RawMessage) error {
	switch key {
	case SiteNameKey:
		var name string
		if errUnmarshal := json.Unmarshal(raw, &name); errUnmarshal != nil {
			return fmt.Errorf("%s must be a string", key)
		}
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("%s must not be empty", key)
		}
	case RedemptionPointsKey, PointsPerTransactionKey:
		var value int64
		if errUnmarshal := json.Unmarshal(raw, &value); errUnmarshal != nil {
			return fmt.Errorf("%s must be an integer", key)
		}
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	case StoreAddressKey:
		var addr models.Address
		if errUnmarshal := json.Unmarshal(raw, &addr); errUnmarshal != nil {
			return fmt.Errorf("%s must be an address object", key)
		}
		if strings.TrimSpace(addr.Display) == "" && (addr.Latitude == nil || addr.Longitude == nil) {
			return fmt.Errorf("%s needs a display address or coordinates", key)
		}
	default:
		return fmt.Errorf("unknown setting %s", key)
	}
	return nil
}
