package lesson

import (
	"bytes"
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/pthanh137/pbl3-lms/model"
	"github.com/pthanh137/pbl3-lms/services"
	"github.com/pthanh137/pbl3-lms/services/storage"
	"github.com/pthanh137/pbl3-lms/utils/middleware"
	"github.com/pthanh137/pbl3-lms/utils/pdfvalidation"
	"github.com/pthanh137/pbl3-lms/utils/response"
	"github.com/pthanh137/pbl3-lms/utils/validation"
	"gorm.io/gorm"
)

// LessonHandler handles lesson content and completion requests
type LessonHandler struct {
	db            *gorm.DB
	validator     *validation.Validator
	progress      *services.ProgressService
	notifications *services.NotificationService
	spaces        *storage.SpacesClient
}

// NewLessonHandler creates a new lesson handler
func NewLessonHandler(db *gorm.DB, progress *services.ProgressService, notifications *services.NotificationService, spaces *storage.SpacesClient) *LessonHandler {
	return &LessonHandler{
		db:            db,
		validator:     validation.NewValidator(),
		progress:      progress,
		notifications: notifications,
		spaces:        spaces,
	}
}

// CreateLessonRequest represents the request body for creating a lesson
type CreateLessonRequest struct {
	Title     string `json:"title" validate:"required,min=1,max=255"`
	VideoURL  string `json:"video_url" validate:"omitempty,url,max=500"`
	Content   string `json:"content" validate:"omitempty"`
	Duration  uint   `json:"duration" validate:"omitempty"`
	SortOrder *uint  `json:"sort_order" validate:"omitempty"`
}

// UpdateLessonRequest represents the request body for updating a lesson
type UpdateLessonRequest struct {
	Title     string  `json:"title" validate:"omitempty,min=1,max=255"`
	VideoURL  *string `json:"video_url" validate:"omitempty,max=500"`
	Content   *string `json:"content" validate:"omitempty"`
	Duration  *uint   `json:"duration" validate:"omitempty"`
	SortOrder *uint   `json:"sort_order" validate:"omitempty"`
}

// loadOwnedLesson fetches a lesson with its section and course and checks
// the caller owns the course or is an admin.
func (h *LessonHandler) loadOwnedLesson(c *fiber.Ctx, user *model.User) (*model.Lesson, error) {
	var lesson model.Lesson
	if err := h.db.Preload("Section.Course").First(&lesson, c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NotFound(c, "Lesson not found")
		}
		return nil, response.InternalServerError(c, "Failed to fetch lesson")
	}

	if lesson.Section.Course.TeacherID != user.ID && !user.IsAdmin() {
		return nil, response.Forbidden(c, "You do not own this course")
	}

	return &lesson, nil
}

// GetLesson handles GET /api/v1/lessons/:id. Full content is limited to
// enrolled students, the owner, and admins.
func (h *LessonHandler) GetLesson(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	var lesson model.Lesson
	if err := h.db.Preload("Section.Course").First(&lesson, c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Lesson not found")
		}
		return response.InternalServerError(c, "Failed to fetch lesson")
	}

	course := lesson.Section.Course
	if course.TeacherID != user.ID && !user.IsAdmin() {
		var enrolled int64
		err := h.db.Model(&model.Enrollment{}).
			Where("student_id = ? AND course_id = ?", user.ID, course.ID).
			Count(&enrolled).Error
		if err != nil {
			return response.InternalServerError(c, "Failed to check enrollment")
		}
		if enrolled == 0 {
			return response.Forbidden(c, "You must enroll in this course first")
		}
	}

	return response.Success(c, lesson)
}

// CreateLesson handles POST /api/v1/sections/:id/lessons
func (h *LessonHandler) CreateLesson(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	var section model.Section
	if err := h.db.Preload("Course").First(&section, c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Section not found")
		}
		return response.InternalServerError(c, "Failed to fetch section")
	}

	if section.Course.TeacherID != user.ID && !user.IsAdmin() {
		return response.Forbidden(c, "You do not own this course")
	}

	var req CreateLessonRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	lesson := model.Lesson{
		SectionID: section.ID,
		Title:     validation.SanitizeString(req.Title),
		VideoURL:  req.VideoURL,
		Content:   req.Content,
		Duration:  req.Duration,
	}

	if req.SortOrder != nil {
		lesson.SortOrder = *req.SortOrder
	} else {
		var maxOrder struct {
			Max uint
		}
		h.db.Model(&model.Lesson{}).
			Where("section_id = ?", section.ID).
			Select("COALESCE(MAX(sort_order), 0) as max").
			Scan(&maxOrder)
		lesson.SortOrder = maxOrder.Max + 1
	}

	if err := h.db.Create(&lesson).Error; err != nil {
		return response.Conflict(c, "A lesson with this sort order already exists")
	}

	// Adding a lesson dilutes every enrollment's percentage; enrolled
	// students hear about the new content instead of silently losing
	// progress. The fan-out runs on a detached context: fasthttp recycles
	// the request context once the handler returns.
	if section.Course.IsPublished {
		course := section.Course
		go h.notifications.NotifyNewLesson(context.Background(), &course, &lesson)
	}

	return response.Created(c, lesson)
}

// UpdateLesson handles PUT /api/v1/lessons/:id
func (h *LessonHandler) UpdateLesson(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	lesson, err := h.loadOwnedLesson(c, user)
	if err != nil {
		return err
	}

	var req UpdateLessonRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	if req.Title != "" {
		lesson.Title = validation.SanitizeString(req.Title)
	}
	if req.VideoURL != nil {
		lesson.VideoURL = *req.VideoURL
	}
	if req.Content != nil {
		lesson.Content = *req.Content
	}
	if req.Duration != nil {
		lesson.Duration = *req.Duration
	}
	if req.SortOrder != nil {
		lesson.SortOrder = *req.SortOrder
	}

	if err := h.db.Save(lesson).Error; err != nil {
		return response.Conflict(c, "A lesson with this sort order already exists")
	}

	return response.Success(c, lesson)
}

// DeleteLesson handles DELETE /api/v1/lessons/:id
func (h *LessonHandler) DeleteLesson(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	lesson, err := h.loadOwnedLesson(c, user)
	if err != nil {
		return err
	}

	if err := h.db.Delete(lesson).Error; err != nil {
		return response.InternalServerError(c, "Failed to delete lesson")
	}

	return response.NoContent(c)
}

// UploadDocument handles POST /api/v1/lessons/:id/document. The file
// must be a structurally valid PDF within the lesson document limits.
func (h *LessonHandler) UploadDocument(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	if h.spaces == nil {
		return response.InternalServerError(c, "File storage is not configured")
	}

	lesson, err := h.loadOwnedLesson(c, user)
	if err != nil {
		return err
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return response.BadRequest(c, "Document file is required")
	}

	result, err := pdfvalidation.ValidatePDFFile(fileHeader, pdfvalidation.LessonDocumentLimits)
	if err != nil {
		return response.InternalServerError(c, "Failed to validate document")
	}
	if !result.Valid {
		return response.BadRequest(c, result.Error)
	}

	key := storage.GenerateKey("lesson-documents", fileHeader.Filename)
	url, err := h.spaces.UploadFile(c.Context(), key, bytes.NewReader(result.Content), "application/pdf")
	if err != nil {
		return response.InternalServerError(c, "Failed to upload document")
	}

	if err := h.db.Model(lesson).UpdateColumn("document_url", url).Error; err != nil {
		return response.InternalServerError(c, "Failed to save document URL")
	}
	lesson.DocumentURL = url

	return response.Success(c, lesson)
}

// CompleteLesson handles POST /api/v1/lessons/:id/complete. Completion is
// idempotent; repeated calls return the current progress.
func (h *LessonHandler) CompleteLesson(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	lessonID, err := c.ParamsInt("id")
	if err != nil || lessonID <= 0 {
		return response.BadRequest(c, "Invalid lesson id")
	}

	result, err := h.progress.CompleteLesson(c.Context(), user.ID, uint(lessonID))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			return response.NotFound(c, "Lesson not found")
		case errors.Is(err, services.ErrNotEnrolled):
			return response.Error(c, fiber.StatusForbidden, "You must enroll in this course first", "NOT_ENROLLED")
		default:
			return response.InternalServerError(c, "Failed to record completion")
		}
	}

	return response.Success(c, result)
}
