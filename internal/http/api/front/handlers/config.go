package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/martabak-juara/loyalty-club/internal/members"
	"github.com/martabak-juara/loyalty-club/internal/models"
	internalsettings "github.com/martabak-juara/loyalty-club/internal/settings"
)

// publicConfigResponse is the response payload for public config.
type publicConfigResponse struct {
	SiteName             string         `json:"site_name"`
	RedemptionPoints     int64          `json:"redemption_points"`
	PointsPerTransaction int64          `json:"points_per_transaction"`
	StoreAddress         models.Address `json:"store_address"`
	StoreMapURL          string         `json:"store_map_url"`
}

// GetPublicConfig returns public configuration for the front UI.
func GetPublicConfig(c *gin.Context) {
	store := internalsettings.StoreAddress()
	c.JSON(http.StatusOK, publicConfigResponse{
		SiteName:             internalsettings.SiteName(),
		RedemptionPoints:     internalsettings.RedemptionPoints(),
		PointsPerTransaction: internalsettings.PointsPerTransaction(),
		StoreAddress:         store,
		StoreMapURL:          members.MapURL(store),
	})
}
