package settings

// DB config keys and defaults for settings.
const (
	// SiteNameKey is the DB config key for the UI site name.
	SiteNameKey = "SITE_NAME"
	// DefaultSiteName is the fallback UI site name.
	DefaultSiteName = "Martabak Juara Loyalty Club"
	// RedemptionPointsKey controls how many points a member redeems per request.
	RedemptionPointsKey = "REDEMPTION_POINTS"
	// PointsPerTransactionKey controls the award for one recorded purchase.
	PointsPerTransactionKey = "POINTS_PER_TRANSACTION"
	// StoreAddressKey holds the store's address as a JSON object.
	StoreAddressKey = "STORE_ADDRESS"
	// DefaultRedemptionPoints is the fallback redemption amount.
	DefaultRedemptionPoints = 300
	// DefaultPointsPerTransaction is the fallback purchase award.
	DefaultPointsPerTransaction = 5
	// DefaultStoreAddress is used when no store address is configured.
	DefaultStoreAddress = "Jl. Raya Martabak No. 1, Jakarta"
)

// Keys lists every setting the admin API accepts.
var Keys = []string{SiteNameKey, RedemptionPointsKey, PointsPerTransactionKey, StoreAddressKey}

// IsKnownKey reports whether key is a supported setting.
func IsKnownKey(key string) bool {
	for _, k := range Keys {
		if k == key {
			return true
		}
	}
	return false
}
