package handlers

import (
	"net/http"

	"vehicle-rental-api/models"
	"vehicle-rental-api/service"
	"vehicle-rental-api/store"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ListVehicles returns the catalog (public)
func ListVehicles(vehicles store.VehicleStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		all, err := vehicles.List()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load vehicles"})
			return
		}

		// Filter by type or availability
		vehicleType := c.Query("type")
		onlyAvailable := c.Query("available") == "true"

		filtered := make([]models.Vehicle, 0, len(all))
		for _, v := range all {
			if vehicleType != "" && v.Type != vehicleType {
				continue
			}
			if onlyAvailable && !v.Available {
				continue
			}
			filtered = append(filtered, v)
		}

		available := 0
		for _, v := range filtered {
			if v.Available {
				available++
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"count":     len(filtered),
			"available": available,
			"vehicles":  filtered,
		})
	}
}

// GetVehicle returns a single vehicle (public)
func GetVehicle(vehicles store.VehicleStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, err := vehicles.Get(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Vehicle not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"vehicle": v})
	}
}

type VehicleRequest struct {
	Brand       string  `json:"brand" binding:"required"`
	Model       string  `json:"model" binding:"required"`
	Year        int     `json:"year"`
	Price       float64 `json:"price" binding:"required"`
	Type        string  `json:"type"`
	FuelType    string  `json:"fuel_type"`
	Seats       int     `json:"seats"`
	Image       string  `json:"image"`
	Description string  `json:"description"`
	Available   *bool   `json:"available"`
}

// CreateVehicle adds a vehicle to the catalog — admin only
func CreateVehicle(vehicles store.VehicleStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req VehicleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		v := models.Vehicle{
			ID:          uuid.NewString(),
			Brand:       req.Brand,
			Model:       req.Model,
			Year:        req.Year,
			Price:       req.Price,
			Type:        req.Type,
			FuelType:    req.FuelType,
			Seats:       req.Seats,
			Image:       req.Image,
			Description: req.Description,
			Available:   true,
		}
		if req.Available != nil {
			v.Available = *req.Available
		}

		if err := vehicles.Create(&v); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create vehicle"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"message": "Vehicle created", "vehicle": v})
	}
}

// UpdateVehicle edits a vehicle — admin only. An explicit availability edit
// here is authoritative until the next reconciliation pass recomputes it.
func UpdateVehicle(vehicles store.VehicleStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, err := vehicles.Get(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Vehicle not found"})
			return
		}

		var req VehicleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		v.Brand = req.Brand
		v.Model = req.Model
		v.Year = req.Year
		v.Price = req.Price
		v.Type = req.Type
		v.FuelType = req.FuelType
		v.Seats = req.Seats
		v.Image = req.Image
		v.Description = req.Description
		if req.Available != nil {
			v.Available = *req.Available
		}

		if err := vehicles.Update(&v); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update vehicle"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Vehicle updated", "vehicle": v})
	}
}

// DeleteVehicle removes a vehicle from the catalog — admin only
func DeleteVehicle(vehicles store.VehicleStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := vehicles.Get(c.Param("id")); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Vehicle not found"})
			return
		}
		if err := vehicles.Delete(c.Param("id")); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete vehicle"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Vehicle deleted"})
	}
}

// RefreshAvailability recomputes every vehicle's availability from the
// current reservations — admin only
func RefreshAvailability(svc *service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		updated, err := svc.RefreshAvailability(c.Request.Context(), true)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to refresh availability"})
			return
		}

		locked := 0
		for _, v := range updated {
			if !v.Available {
				locked++
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"message":   "Availability recomputed",
			"count":     len(updated),
			"locked":    locked,
			"available": len(updated) - locked,
			"vehicles":  updated,
		})
	}
}
