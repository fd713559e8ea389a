package section

import (
	"github.com/gofiber/fiber/v2"
	"github.com/pthanh137/pbl3-lms/model"
	"github.com/pthanh137/pbl3-lms/utils/middleware"
	"github.com/pthanh137/pbl3-lms/utils/response"
	"github.com/pthanh137/pbl3-lms/utils/validation"
	"gorm.io/gorm"
)

// SectionHandler handles course section requests
type SectionHandler struct {
	db        *gorm.DB
	validator *validation.Validator
}

// NewSectionHandler creates a new section handler
func NewSectionHandler(db *gorm.DB) *SectionHandler {
	return &SectionHandler{
		db:        db,
		validator: validation.NewValidator(),
	}
}

// CreateSectionRequest represents the request body for creating a section
type CreateSectionRequest struct {
	Title     string `json:"title" validate:"required,min=1,max=255"`
	SortOrder *uint  `json:"sort_order" validate:"omitempty"`
}

// UpdateSectionRequest represents the request body for updating a section
type UpdateSectionRequest struct {
	Title     string `json:"title" validate:"omitempty,min=1,max=255"`
	SortOrder *uint  `json:"sort_order" validate:"omitempty"`
}

func (h *SectionHandler) loadOwnedCourse(c *fiber.Ctx, user *model.User, courseID string) (*model.Course, error) {
	var course model.Course
	if err := h.db.First(&course, courseID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, response.NotFound(c, "Course not found")
		}
		return nil, response.InternalServerError(c, "Failed to fetch course")
	}

	if course.TeacherID != user.ID && !user.IsAdmin() {
		return nil, response.Forbidden(c, "You do not own this course")
	}

	return &course, nil
}

// ListSections handles GET /api/v1/courses/:id/sections
func (h *SectionHandler) ListSections(c *fiber.Ctx) error {
	var sections []model.Section
	err := h.db.Where("course_id = ?", c.Params("id")).
		Preload("Lessons", func(db *gorm.DB) *gorm.DB {
			return db.Order("lessons.sort_order ASC")
		}).
		Order("sort_order ASC").
		Find(&sections).Error
	if err != nil {
		return response.InternalServerError(c, "Failed to fetch sections")
	}

	return response.Success(c, sections)
}

// CreateSection handles POST /api/v1/courses/:id/sections
func (h *SectionHandler) CreateSection(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	course, err := h.loadOwnedCourse(c, user, c.Params("id"))
	if err != nil {
		return err
	}

	var req CreateSectionRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	section := model.Section{
		CourseID: course.ID,
		Title:    validation.SanitizeString(req.Title),
	}

	if req.SortOrder != nil {
		section.SortOrder = *req.SortOrder
	} else {
		// Append at the end
		var maxOrder struct {
			Max uint
		}
		h.db.Model(&model.Section{}).
			Where("course_id = ?", course.ID).
			Select("COALESCE(MAX(sort_order), 0) as max").
			Scan(&maxOrder)
		section.SortOrder = maxOrder.Max + 1
	}

	if err := h.db.Create(&section).Error; err != nil {
		return response.Conflict(c, "A section with this sort order already exists")
	}

	return response.Created(c, section)
}

// UpdateSection handles PUT /api/v1/sections/:id
func (h *SectionHandler) UpdateSection(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	var section model.Section
	if err := h.db.Preload("Course").First(&section, c.Params("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "Section not found")
		}
		return response.InternalServerError(c, "Failed to fetch section")
	}

	if section.Course.TeacherID != user.ID && !user.IsAdmin() {
		return response.Forbidden(c, "You do not own this course")
	}

	var req UpdateSectionRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	if req.Title != "" {
		section.Title = validation.SanitizeString(req.Title)
	}
	if req.SortOrder != nil {
		section.SortOrder = *req.SortOrder
	}

	if err := h.db.Save(&section).Error; err != nil {
		return response.Conflict(c, "A section with this sort order already exists")
	}

	return response.Success(c, section)
}

// DeleteSection handles DELETE /api/v1/sections/:id
func (h *SectionHandler) DeleteSection(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	var section model.Section
	if err := h.db.Preload("Course").First(&section, c.Params("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "Section not found")
		}
		return response.InternalServerError(c, "Failed to fetch section")
	}

	if section.Course.TeacherID != user.ID && !user.IsAdmin() {
		return response.Forbidden(c, "You do not own this course")
	}

	if err := h.db.Delete(&section).Error; err != nil {
		return response.InternalServerError(c, "Failed to delete section")
	}

	return response.NoContent(c)
}
