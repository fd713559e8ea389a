package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/pthanh137/pbl3-lms/model"
	"github.com/pthanh137/pbl3-lms/utils/cache"
	"gorm.io/gorm"
)

const dashboardStatsCacheKey = "analytics:dashboard"

// enrollmentCompletedExpr matches enrollments whose completion rows cover
// every live lesson of the course. Completion is derived from counts, the
// same way certificate eligibility is, so a stale cached progress_percent
// cannot skew the numbers. An empty course never counts as completed.
const enrollmentCompletedExpr = `
	(SELECT COUNT(*) FROM lessons
		JOIN sections ON sections.id = lessons.section_id AND sections.deleted_at IS NULL
		WHERE sections.course_id = enrollments.course_id AND lessons.deleted_at IS NULL) > 0
	AND (SELECT COUNT(*) FROM lesson_progresses
		WHERE lesson_progresses.enrollment_id = enrollments.id AND lesson_progresses.is_completed = ?) >=
	(SELECT COUNT(*) FROM lessons
		JOIN sections ON sections.id = lessons.section_id AND sections.deleted_at IS NULL
		WHERE sections.course_id = enrollments.course_id AND lessons.deleted_at IS NULL)`

// AnalyticsService handles analytics and reporting
type AnalyticsService struct {
	db    *gorm.DB
	cache *cache.RedisCache
}

// NewAnalyticsService creates a new analytics service. The cache is
// optional; a nil cache means every call hits the database.
func NewAnalyticsService(db *gorm.DB, cacheStore *cache.RedisCache) *AnalyticsService {
	return &AnalyticsService{
		db:    db,
		cache: cacheStore,
	}
}

// DashboardStats represents overall platform statistics
type DashboardStats struct {
	TotalUsers        int64   `json:"total_users"`
	TotalStudents     int64   `json:"total_students"`
	TotalTeachers     int64   `json:"total_teachers"`
	TotalCourses      int64   `json:"total_courses"`
	PublishedCourses  int64   `json:"published_courses"`
	TotalEnrollments  int64   `json:"total_enrollments"`
	PaidEnrollments   int64   `json:"paid_enrollments"`
	AuditEnrollments  int64   `json:"audit_enrollments"`
	TotalCertificates int64   `json:"total_certificates"`
	TotalRevenue      float64 `json:"total_revenue"`
	NewUsersToday     int64   `json:"new_users_today"`
	EnrollmentsToday  int64   `json:"enrollments_today"`
	AvgCourseProgress float64 `json:"avg_course_progress"`
	CompletedCourses  int64   `json:"completed_courses"`
}

// GetDashboardStats retrieves overall platform statistics
func (s *AnalyticsService) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	if s.cache != nil {
		cached := &DashboardStats{}
		if err := s.cache.GetJSON(ctx, dashboardStatsCacheKey, cached); err == nil {
			return cached, nil
		} else if !errors.Is(err, cache.ErrNotFound) {
			log.Printf("Dashboard stats cache read failed: %v", err)
		}
	}

	stats := &DashboardStats{}

	if err := s.db.Model(&model.User{}).Count(&stats.TotalUsers).Error; err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	if err := s.db.Model(&model.User{}).
		Where("role = ?", model.RoleStudent).
		Count(&stats.TotalStudents).Error; err != nil {
		return nil, fmt.Errorf("failed to count students: %w", err)
	}

	if err := s.db.Model(&model.User{}).
		Where("role = ?", model.RoleTeacher).
		Count(&stats.TotalTeachers).Error; err != nil {
		return nil, fmt.Errorf("failed to count teachers: %w", err)
	}

	if err := s.db.Model(&model.Course{}).Count(&stats.TotalCourses).Error; err != nil {
		return nil, fmt.Errorf("failed to count courses: %w", err)
	}

	if err := s.db.Model(&model.Course{}).
		Where("is_published = ?", true).
		Count(&stats.PublishedCourses).Error; err != nil {
		return nil, fmt.Errorf("failed to count published courses: %w", err)
	}

	if err := s.db.Model(&model.Enrollment{}).Count(&stats.TotalEnrollments).Error; err != nil {
		return nil, fmt.Errorf("failed to count enrollments: %w", err)
	}

	if err := s.db.Model(&model.Enrollment{}).
		Where("enrollment_type = ?", model.EnrollmentPaid).
		Count(&stats.PaidEnrollments).Error; err != nil {
		return nil, fmt.Errorf("failed to count paid enrollments: %w", err)
	}
	stats.AuditEnrollments = stats.TotalEnrollments - stats.PaidEnrollments

	if err := s.db.Model(&model.Certificate{}).Count(&stats.TotalCertificates).Error; err != nil {
		return nil, fmt.Errorf("failed to count certificates: %w", err)
	}

	var revenueResult struct {
		Total float64
	}
	if err := s.db.Model(&model.Payment{}).
		Where("status = ?", model.PaymentSucceeded).
		Select("COALESCE(SUM(amount), 0) as total").
		Scan(&revenueResult).Error; err != nil {
		return nil, fmt.Errorf("failed to calculate revenue: %w", err)
	}
	stats.TotalRevenue = revenueResult.Total

	today := time.Now().Truncate(24 * time.Hour)
	if err := s.db.Model(&model.User{}).
		Where("created_at >= ?", today).
		Count(&stats.NewUsersToday).Error; err != nil {
		return nil, fmt.Errorf("failed to count new users: %w", err)
	}

	if err := s.db.Model(&model.Enrollment{}).
		Where("created_at >= ?", today).
		Count(&stats.EnrollmentsToday).Error; err != nil {
		return nil, fmt.Errorf("failed to count today's enrollments: %w", err)
	}

	var progressResult struct {
		Avg float64
	}
	if err := s.db.Model(&model.Enrollment{}).
		Select("COALESCE(AVG(progress_percent), 0) as avg").
		Scan(&progressResult).Error; err != nil {
		return nil, fmt.Errorf("failed to calculate avg progress: %w", err)
	}
	stats.AvgCourseProgress = progressResult.Avg

	if err := s.db.Model(&model.Enrollment{}).
		Where(enrollmentCompletedExpr, true).
		Count(&stats.CompletedCourses).Error; err != nil {
		return nil, fmt.Errorf("failed to count completed courses: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, dashboardStatsCacheKey, stats, 5*time.Minute); err != nil {
			log.Printf("Dashboard stats cache write failed: %v", err)
		}
	}

	return stats, nil
}

// TeacherStats represents aggregate statistics for one teacher's catalog
type TeacherStats struct {
	TeacherID       uint    `json:"teacher_id"`
	TotalCourses    int64   `json:"total_courses"`
	TotalStudents   int64   `json:"total_students"`
	PaidEnrollments int64   `json:"paid_enrollments"`
	TotalRevenue    float64 `json:"total_revenue"`
	AvgRating       float64 `json:"avg_rating"`
	CertificatesOut int64   `json:"certificates_issued"`
}

// GetTeacherStats retrieves aggregate statistics across a teacher's courses
func (s *AnalyticsService) GetTeacherStats(ctx context.Context, teacherID uint) (*TeacherStats, error) {
	stats := &TeacherStats{TeacherID: teacherID}

	if err := s.db.Model(&model.Course{}).
		Where("teacher_id = ?", teacherID).
		Count(&stats.TotalCourses).Error; err != nil {
		return nil, fmt.Errorf("failed to count courses: %w", err)
	}

	courseIDs := s.db.Model(&model.Course{}).
		Select("id").
		Where("teacher_id = ?", teacherID)

	if err := s.db.Model(&model.Enrollment{}).
		Where("course_id IN (?)", courseIDs).
		Distinct("student_id").
		Count(&stats.TotalStudents).Error; err != nil {
		return nil, fmt.Errorf("failed to count students: %w", err)
	}

	if err := s.db.Model(&model.Enrollment{}).
		Where("course_id IN (?) AND enrollment_type = ?", courseIDs, model.EnrollmentPaid).
		Count(&stats.PaidEnrollments).Error; err != nil {
		return nil, fmt.Errorf("failed to count paid enrollments: %w", err)
	}

	var revenueResult struct {
		Total float64
	}
	if err := s.db.Model(&model.Payment{}).
		Where("course_id IN (?) AND status = ?", courseIDs, model.PaymentSucceeded).
		Select("COALESCE(SUM(amount), 0) as total").
		Scan(&revenueResult).Error; err != nil {
		return nil, fmt.Errorf("failed to calculate revenue: %w", err)
	}
	stats.TotalRevenue = revenueResult.Total

	var ratingResult struct {
		Avg float64
	}
	if err := s.db.Model(&model.CourseReview{}).
		Where("course_id IN (?)", courseIDs).
		Select("COALESCE(AVG(rating), 0) as avg").
		Scan(&ratingResult).Error; err != nil {
		return nil, fmt.Errorf("failed to calculate rating: %w", err)
	}
	stats.AvgRating = ratingResult.Avg

	if err := s.db.Model(&model.Certificate{}).
		Where("course_id IN (?)", courseIDs).
		Count(&stats.CertificatesOut).Error; err != nil {
		return nil, fmt.Errorf("failed to count certificates: %w", err)
	}

	return stats, nil
}

// CourseStats represents statistics for a single course
type CourseStats struct {
	CourseID          uint    `json:"course_id"`
	CourseTitle       string  `json:"course_title"`
	TotalEnrollments  int64   `json:"total_enrollments"`
	PaidEnrollments   int64   `json:"paid_enrollments"`
	AuditEnrollments  int64   `json:"audit_enrollments"`
	AvgProgress       float64 `json:"avg_progress"`
	CompletedStudents int64   `json:"completed_students"`
	CertificatesOut   int64   `json:"certificates_issued"`
	TotalRevenue      float64 `json:"total_revenue"`
	AvgRating         float64 `json:"avg_rating"`
	ReviewCount       int64   `json:"review_count"`
}

// GetCourseStats retrieves statistics for a single course. Only the
// owning teacher and admins may read them.
func (s *AnalyticsService) GetCourseStats(ctx context.Context, requester *model.User, courseID uint) (*CourseStats, error) {
	var course model.Course
	if err := s.db.First(&course, courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch course: %w", err)
	}

	if !requester.IsAdmin() && course.TeacherID != requester.ID {
		return nil, ErrNotCourseOwner
	}

	stats := &CourseStats{CourseID: courseID, CourseTitle: course.Title}

	if err := s.db.Model(&model.Enrollment{}).
		Where("course_id = ?", courseID).
		Count(&stats.TotalEnrollments).Error; err != nil {
		return nil, fmt.Errorf("failed to count enrollments: %w", err)
	}

	if err := s.db.Model(&model.Enrollment{}).
		Where("course_id = ? AND enrollment_type = ?", courseID, model.EnrollmentPaid).
		Count(&stats.PaidEnrollments).Error; err != nil {
		return nil, fmt.Errorf("failed to count paid enrollments: %w", err)
	}
	stats.AuditEnrollments = stats.TotalEnrollments - stats.PaidEnrollments

	var progressResult struct {
		Avg float64
	}
	if err := s.db.Model(&model.Enrollment{}).
		Where("course_id = ?", courseID).
		Select("COALESCE(AVG(progress_percent), 0) as avg").
		Scan(&progressResult).Error; err != nil {
		return nil, fmt.Errorf("failed to calculate avg progress: %w", err)
	}
	stats.AvgProgress = progressResult.Avg

	if err := s.db.Model(&model.Enrollment{}).
		Where("course_id = ?", courseID).
		Where(enrollmentCompletedExpr, true).
		Count(&stats.CompletedStudents).Error; err != nil {
		return nil, fmt.Errorf("failed to count completed students: %w", err)
	}

	if err := s.db.Model(&model.Certificate{}).
		Where("course_id = ?", courseID).
		Count(&stats.CertificatesOut).Error; err != nil {
		return nil, fmt.Errorf("failed to count certificates: %w", err)
	}

	var revenueResult struct {
		Total float64
	}
	if err := s.db.Model(&model.Payment{}).
		Where("course_id = ? AND status = ?", courseID, model.PaymentSucceeded).
		Select("COALESCE(SUM(amount), 0) as total").
		Scan(&revenueResult).Error; err != nil {
		return nil, fmt.Errorf("failed to calculate revenue: %w", err)
	}
	stats.TotalRevenue = revenueResult.Total

	var ratingResult struct {
		Avg   float64
		Count int64
	}
	if err := s.db.Model(&model.CourseReview{}).
		Where("course_id = ?", courseID).
		Select("COALESCE(AVG(rating), 0) as avg, COUNT(*) as count").
		Scan(&ratingResult).Error; err != nil {
		return nil, fmt.Errorf("failed to calculate rating: %w", err)
	}
	stats.AvgRating = ratingResult.Avg
	stats.ReviewCount = ratingResult.Count

	return stats, nil
}

// TimeSeriesPoint represents a data point in time series
type TimeSeriesPoint struct {
	Date  string  `json:"date"`
	Count int64   `json:"count"`
	Value float64 `json:"value,omitempty"`
}

// GetEnrollmentTimeSeries retrieves enrollment volume over time
func (s *AnalyticsService) GetEnrollmentTimeSeries(ctx context.Context, days int) ([]TimeSeriesPoint, error) {
	startDate := time.Now().AddDate(0, 0, -days).Truncate(24 * time.Hour)

	var results []TimeSeriesPoint
	if err := s.db.Model(&model.Enrollment{}).
		Select("DATE(created_at) as date, COUNT(*) as count").
		Where("created_at >= ?", startDate).
		Group("DATE(created_at)").
		Order("date ASC").
		Scan(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch enrollment time series: %w", err)
	}

	return results, nil
}

// GetRevenueTimeSeries retrieves payment volume and revenue over time
func (s *AnalyticsService) GetRevenueTimeSeries(ctx context.Context, days int) ([]TimeSeriesPoint, error) {
	startDate := time.Now().AddDate(0, 0, -days).Truncate(24 * time.Hour)

	var results []TimeSeriesPoint
	if err := s.db.Model(&model.Payment{}).
		Select("DATE(created_at) as date, COUNT(*) as count, COALESCE(SUM(amount), 0) as value").
		Where("created_at >= ? AND status = ?", startDate, model.PaymentSucceeded).
		Group("DATE(created_at)").
		Order("date ASC").
		Scan(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch revenue time series: %w", err)
	}

	return results, nil
}

// TopCourse represents a top performing course
type TopCourse struct {
	CourseID        uint    `json:"course_id"`
	CourseTitle     string  `json:"course_title"`
	TeacherName     string  `json:"teacher_name"`
	EnrollmentCount int64   `json:"enrollment_count"`
	Revenue         float64 `json:"revenue"`
}

// GetTopCourses retrieves the most enrolled courses
func (s *AnalyticsService) GetTopCourses(ctx context.Context, limit int) ([]TopCourse, error) {
	var results []TopCourse

	if err := s.db.Model(&model.Course{}).
		Select(`
			courses.id as course_id,
			courses.title as course_title,
			users.full_name as teacher_name,
			COUNT(DISTINCT enrollments.id) as enrollment_count,
			COALESCE(SUM(enrollments.price_paid), 0) as revenue
		`).
		Joins("LEFT JOIN enrollments ON courses.id = enrollments.course_id").
		Joins("LEFT JOIN users ON courses.teacher_id = users.id").
		Group("courses.id, courses.title, users.full_name").
		Order("enrollment_count DESC").
		Limit(limit).
		Scan(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch top courses: %w", err)
	}

	return results, nil
}
