package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/pthanh137/pbl3-lms/model"
	"gorm.io/gorm"
)

// AdminAuditLog records a row for each mutating admin action. It must run
// after RequireAdmin so the admin user is in the request context.
func AdminAuditLog(db *gorm.DB, action, resource string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		admin, ok := GetUser(c)
		if !ok || admin == nil {
			return c.Next()
		}

		resourceID := c.Params("id")

		err := c.Next()

		entry := model.AdminAuditLog{
			AdminID:    admin.ID,
			Action:     action,
			Resource:   resource,
			ResourceID: resourceID,
			Detail:     c.Method() + " " + c.Path(),
			IPAddress:  c.IP(),
		}
		db.Create(&entry)

		return err
	}
}
