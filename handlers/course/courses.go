package course

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/pthanh137/pbl3-lms/model"
	"github.com/pthanh137/pbl3-lms/services"
	"github.com/pthanh137/pbl3-lms/services/storage"
	"github.com/pthanh137/pbl3-lms/utils/middleware"
	"github.com/pthanh137/pbl3-lms/utils/response"
	"github.com/pthanh137/pbl3-lms/utils/validation"
	"gorm.io/gorm"
)

// CourseHandler handles course catalog requests
type CourseHandler struct {
	db        *gorm.DB
	validator *validation.Validator
	reviews   *services.ReviewService
	spaces    *storage.SpacesClient
}

// NewCourseHandler creates a new course handler. The Spaces client may be
// nil, in which case thumbnail upload is disabled.
func NewCourseHandler(db *gorm.DB, reviews *services.ReviewService, spaces *storage.SpacesClient) *CourseHandler {
	return &CourseHandler{
		db:        db,
		validator: validation.NewValidator(),
		reviews:   reviews,
		spaces:    spaces,
	}
}

// CreateCourseRequest represents the request body for creating a course
type CreateCourseRequest struct {
	Title       string  `json:"title" validate:"required,min=3,max=255"`
	Subtitle    string  `json:"subtitle" validate:"omitempty,max=255"`
	Description string  `json:"description" validate:"omitempty,max=5000"`
	Price       float64 `json:"price" validate:"omitempty,min=0"`
	Level       string  `json:"level" validate:"omitempty,oneof=beginner intermediate advanced"`
	Category    string  `json:"category" validate:"omitempty,max=100"`
}

// UpdateCourseRequest represents the request body for updating a course
type UpdateCourseRequest struct {
	Title       string   `json:"title" validate:"omitempty,min=3,max=255"`
	Subtitle    *string  `json:"subtitle" validate:"omitempty,max=255"`
	Description *string  `json:"description" validate:"omitempty,max=5000"`
	Price       *float64 `json:"price" validate:"omitempty,min=0"`
	Level       string   `json:"level" validate:"omitempty,oneof=beginner intermediate advanced"`
	Category    *string  `json:"category" validate:"omitempty,max=100"`
}

// loadOwnedCourse fetches the course and checks the caller owns it or is
// an admin.
func (h *CourseHandler) loadOwnedCourse(c *fiber.Ctx, user *model.User) (*model.Course, error) {
	var course model.Course
	if err := h.db.First(&course, c.Params("id")).Error; err != nil {
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

// ListCourses handles GET /api/v1/courses. Only published courses show
// in the public catalog.
func (h *CourseHandler) ListCourses(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "10"))
	search := c.Query("search", "")
	category := c.Query("category", "")
	level := c.Query("level", "")
	teacherID := c.Query("teacher_id", "")

	query := h.db.Model(&model.Course{}).Where("is_published = ?", true)

	if search != "" {
		query = query.Where("title ILIKE ? OR subtitle ILIKE ? OR description ILIKE ?",
			"%"+search+"%", "%"+search+"%", "%"+search+"%")
	}
	if category != "" {
		query = query.Where("category = ?", category)
	}
	if level != "" {
		query = query.Where("level = ?", level)
	}
	if teacherID != "" {
		query = query.Where("teacher_id = ?", teacherID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return response.InternalServerError(c, "Failed to count courses")
	}

	offset := (page - 1) * limit
	pagination := response.CalculatePagination(page, limit, total)

	var courses []model.Course
	if err := query.Preload("Teacher").
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&courses).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch courses")
	}

	return response.Paginated(c, courses, pagination)
}

// GetCourse handles GET /api/v1/courses/:id. Unpublished courses are
// visible to their owner and admins only.
func (h *CourseHandler) GetCourse(c *fiber.Ctx) error {
	id := c.Params("id")

	var course model.Course
	err := h.db.Preload("Teacher").
		Preload("Sections", func(db *gorm.DB) *gorm.DB {
			return db.Order("sections.sort_order ASC")
		}).
		Preload("Sections.Lessons", func(db *gorm.DB) *gorm.DB {
			return db.Order("lessons.sort_order ASC")
		}).
		First(&course, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "Course not found")
		}
		return response.InternalServerError(c, "Failed to fetch course")
	}

	if !course.IsPublished {
		user, ok := middleware.GetUser(c)
		if !ok || (course.TeacherID != user.ID && !user.IsAdmin()) {
			return response.NotFound(c, "Course not found")
		}
	}

	rating, err := h.reviews.Summary(c.Context(), course.ID)
	if err != nil {
		return response.InternalServerError(c, "Failed to load rating")
	}

	lessonCount, err := services.CountLessons(h.db, course.ID)
	if err != nil {
		return response.InternalServerError(c, "Failed to count lessons")
	}

	payload := fiber.Map{
		"course":       course,
		"rating":       rating,
		"lesson_count": lessonCount,
	}

	// Enrolled callers also get their completed lesson ids so the
	// curriculum can render checkmarks
	if user, ok := middleware.GetUser(c); ok && user != nil {
		var enrollment model.Enrollment
		err := h.db.Where("student_id = ? AND course_id = ?", user.ID, course.ID).
			First(&enrollment).Error
		if err == nil {
			var completedIDs []uint
			if err := h.db.Model(&model.LessonProgress{}).
				Where("enrollment_id = ? AND is_completed = ?", enrollment.ID, true).
				Pluck("lesson_id", &completedIDs).Error; err != nil {
				return response.InternalServerError(c, "Failed to load progress")
			}
			payload["enrollment"] = enrollment
			payload["completed_lesson_ids"] = completedIDs
		}
	}

	return response.Success(c, payload)
}

// ListMyCourses handles GET /api/v1/teacher/courses, the owner's view
// including unpublished drafts.
func (h *CourseHandler) ListMyCourses(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	var courses []model.Course
	if err := h.db.Where("teacher_id = ?", user.ID).
		Order("created_at DESC").
		Find(&courses).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch courses")
	}

	return response.Success(c, courses)
}

// CreateCourse handles POST /api/v1/courses
func (h *CourseHandler) CreateCourse(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req CreateCourseRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	req.Title = validation.SanitizeString(req.Title)
	req.Subtitle = validation.SanitizeString(req.Subtitle)
	req.Description = validation.SanitizeString(req.Description)

	if req.Level == "" {
		req.Level = model.LevelBeginner
	}

	course := model.Course{
		TeacherID:   user.ID,
		Title:       req.Title,
		Subtitle:    req.Subtitle,
		Description: req.Description,
		Price:       req.Price,
		Level:       req.Level,
		Category:    validation.SanitizeString(req.Category),
	}

	if err := h.db.Create(&course).Error; err != nil {
		return response.InternalServerError(c, "Failed to create course")
	}

	return response.Created(c, course)
}

// UpdateCourse handles PUT /api/v1/courses/:id
func (h *CourseHandler) UpdateCourse(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req UpdateCourseRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	course, err := h.loadOwnedCourse(c, user)
	if err != nil {
		return err
	}

	if req.Title != "" {
		course.Title = validation.SanitizeString(req.Title)
	}
	if req.Subtitle != nil {
		course.Subtitle = validation.SanitizeString(*req.Subtitle)
	}
	if req.Description != nil {
		course.Description = validation.SanitizeString(*req.Description)
	}
	if req.Price != nil {
		course.Price = *req.Price
	}
	if req.Level != "" {
		course.Level = req.Level
	}
	if req.Category != nil {
		course.Category = validation.SanitizeString(*req.Category)
	}

	if err := h.db.Save(course).Error; err != nil {
		return response.InternalServerError(c, "Failed to update course")
	}

	return response.Success(c, course)
}

// PublishCourse handles POST /api/v1/courses/:id/publish
func (h *CourseHandler) PublishCourse(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	course, err := h.loadOwnedCourse(c, user)
	if err != nil {
		return err
	}

	// A course must carry content before it can be sold
	lessonCount, err := services.CountLessons(h.db, course.ID)
	if err != nil {
		return response.InternalServerError(c, "Failed to count lessons")
	}
	if lessonCount == 0 {
		return response.BadRequestWithCode(c, "Course has no lessons", "NO_LESSONS")
	}

	if err := h.db.Model(course).UpdateColumn("is_published", true).Error; err != nil {
		return response.InternalServerError(c, "Failed to publish course")
	}
	course.IsPublished = true

	return response.Success(c, course)
}

// UnpublishCourse handles POST /api/v1/courses/:id/unpublish
func (h *CourseHandler) UnpublishCourse(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	course, err := h.loadOwnedCourse(c, user)
	if err != nil {
		return err
	}

	if err := h.db.Model(course).UpdateColumn("is_published", false).Error; err != nil {
		return response.InternalServerError(c, "Failed to unpublish course")
	}
	course.IsPublished = false

	return response.Success(c, course)
}

// DeleteCourse handles DELETE /api/v1/courses/:id
func (h *CourseHandler) DeleteCourse(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	course, err := h.loadOwnedCourse(c, user)
	if err != nil {
		return err
	}

	if err := h.db.Delete(course).Error; err != nil {
		return response.InternalServerError(c, "Failed to delete course")
	}

	return response.NoContent(c)
}

// UploadThumbnail handles POST /api/v1/courses/:id/thumbnail
func (h *CourseHandler) UploadThumbnail(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	if h.spaces == nil {
		return response.InternalServerError(c, "File storage is not configured")
	}

	course, err := h.loadOwnedCourse(c, user)
	if err != nil {
		return err
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return response.BadRequest(c, "Thumbnail file is required")
	}
	if fileHeader.Size > 5*1024*1024 {
		return response.BadRequest(c, "Thumbnail must be under 5MB")
	}

	contentType := storage.ContentType(fileHeader.Filename)
	if contentType != "image/png" && contentType != "image/jpeg" && contentType != "image/webp" {
		return response.BadRequest(c, "Thumbnail must be a PNG, JPEG or WebP image")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return response.InternalServerError(c, "Failed to read file")
	}
	defer file.Close()

	key := storage.GenerateKey("thumbnails", fileHeader.Filename)
	url, err := h.spaces.UploadFile(c.Context(), key, file, contentType)
	if err != nil {
		return response.InternalServerError(c, "Failed to upload thumbnail")
	}

	if err := h.db.Model(course).UpdateColumn("thumbnail_url", url).Error; err != nil {
		return response.InternalServerError(c, "Failed to save thumbnail URL")
	}
	course.ThumbnailURL = url

	return response.Success(c, course)
}
