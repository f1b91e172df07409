package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"storefront_pay/internal/apperr"
	"storefront_pay/internal/models"
)

// UserPreferenceHandler manages how payment receipts reach a user.
type UserPreferenceHandler struct {
	DB *gorm.DB
}

func NewUserPreferenceHandler(db *gorm.DB) *UserPreferenceHandler {
	return &UserPreferenceHandler{DB: db}
}

func parseUserID(c echo.Context) (uint, error) {
	userID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return 0, apperr.ValidationErr("Invalid user ID", nil)
	}
	return uint(userID), nil
}

func (h *UserPreferenceHandler) findUser(c echo.Context, userID uint) error {
	var user models.User
	err := h.DB.WithContext(c.Request().Context()).First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFoundErr("User not found")
	}
	return err
}

func preferenceResponse(pref models.UserNotifPreference) NotificationPreferenceResponse {
	return NotificationPreferenceResponse{
		UserID:             pref.UserID,
		Channel:            string(pref.Channel),
		WhatsappTargetType: pref.WhatsappTargetType,
		WhatsappGroupID:    pref.WhatsappGroupID,
	}
}

// GetUserPreference handles GET /api/users/:id/notification-preference
func (h *UserPreferenceHandler) GetUserPreference(c echo.Context) error {
	userID, err := parseUserID(c)
	if err != nil {
		return err
	}
	if err := h.findUser(c, userID); err != nil {
		return err
	}

	var pref models.UserNotifPreference
	err = h.DB.WithContext(c.Request().Context()).Where("user_id = ?", userID).First(&pref).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Default values
		pref = models.UserNotifPreference{
			UserID:             userID,
			Channel:            models.NotificationChannelEmail,
			WhatsappTargetType: models.WhatsappTargetTypePersonal,
		}
	} else if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, preferenceResponse(pref))
}

// UpdateUserPreference handles PUT /api/users/:id/notification-preference
func (h *UserPreferenceHandler) UpdateUserPreference(c echo.Context) error {
	userID, err := parseUserID(c)
	if err != nil {
		return err
	}
	var req NotificationPreferenceRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := h.findUser(c, userID); err != nil {
		return err
	}

	// Upsert preference
	var pref models.UserNotifPreference
	err = h.DB.WithContext(c.Request().Context()).Where("user_id = ?", userID).First(&pref).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		pref = models.UserNotifPreference{UserID: userID}
	} else if err != nil {
		return err
	}

	pref.Channel = models.NotificationChannel(req.Channel)
	pref.WhatsappTargetType = req.WhatsappTargetType
	if pref.WhatsappTargetType == "" {
		pref.WhatsappTargetType = models.WhatsappTargetTypePersonal
	}
	pref.WhatsappGroupID = req.WhatsappGroupID

	if err := h.DB.WithContext(c.Request().Context()).Save(&pref).Error; err != nil {
		return err
	}
	return c.JSON(http.StatusOK, preferenceResponse(pref))
}
