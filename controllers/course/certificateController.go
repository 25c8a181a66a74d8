package controllers

import (
	"lms/apperr"
	"lms/middleware"
	courseModels "lms/models/course"

	"github.com/gofiber/fiber/v2"
)

// GetUserCertificates lists the certificates issued to the caller.
// GET /user/certificates
func GetUserCertificates(c *fiber.Ctx) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized", nil)
	}

	var certificates []courseModels.Certificate
	if err := db().WithContext(c.UserContext()).
		Where("client_id = ? AND user_id = ?", p.ClientID, p.UserID).
		Order("issued_at desc").
		Find(&certificates).Error; err != nil {
		return middleware.ErrorResponse(c, apperr.Wrap(err, "list certificates"))
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Certificates fetched successfully!", certificates)
}
