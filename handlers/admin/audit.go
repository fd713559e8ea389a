package admin

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/pthanh137/pbl3-lms/model"
	"github.com/pthanh137/pbl3-lms/utils/response"
)

// ListAuditLogs handles GET /api/v1/admin/audit-logs
func (h *AdminHandler) ListAuditLogs(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	action := c.Query("action", "")
	resource := c.Query("resource", "")

	query := h.db.Model(&model.AdminAuditLog{})
	if action != "" {
		query = query.Where("action = ?", action)
	}
	if resource != "" {
		query = query.Where("resource = ?", resource)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return response.InternalServerError(c, "Failed to count audit logs")
	}

	pagination := response.CalculatePagination(page, limit, total)
	offset := (pagination.CurrentPage - 1) * pagination.PerPage

	var logs []model.AdminAuditLog
	if err := query.Order("created_at DESC").
		Limit(pagination.PerPage).
		Offset(offset).
		Find(&logs).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch audit logs")
	}

	return response.Paginated(c, logs, pagination)
}

// ListCronJobLogs handles GET /api/v1/admin/cron-logs
func (h *AdminHandler) ListCronJobLogs(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	jobName := c.Query("job", "")

	query := h.db.Model(&model.CronJobLog{})
	if jobName != "" {
		query = query.Where("job_name = ?", jobName)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return response.InternalServerError(c, "Failed to count cron logs")
	}

	pagination := response.CalculatePagination(page, limit, total)
	offset := (pagination.CurrentPage - 1) * pagination.PerPage

	var logs []model.CronJobLog
	if err := query.Order("started_at DESC").
		Limit(pagination.PerPage).
		Offset(offset).
		Find(&logs).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch cron logs")
	}

	return response.Paginated(c, logs, pagination)
}
