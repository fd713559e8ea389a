package services

import "errors"

// Service-level errors. Handlers map these onto HTTP statuses and
// machine-readable reason codes; they are never collapsed into a generic
// failure so clients can tell "upgrade to paid" from "keep studying".
var (
	ErrNotFound           = errors.New("resource not found")
	ErrNotEnrolled        = errors.New("you must enroll in this course first")
	ErrNotPaidEnrollment  = errors.New("certificate only for paid enrollments")
	ErrNoLessons          = errors.New("course has no lessons")
	ErrNotCompleted       = errors.New("course not completed yet")
	ErrAlreadyEnrolled    = errors.New("you are already enrolled in this course")
	ErrSelfPurchaseDenied = errors.New("you cannot purchase your own course")
	ErrOnlyStudents       = errors.New("only students can perform this action")
	ErrInvalidMode        = errors.New("mode must be \"audit\" or \"paid\"")
	ErrNotCourseOwner     = errors.New("you do not own this course")
	ErrAlreadyOwned       = errors.New("you already own this course")
	ErrEmptyCart          = errors.New("no items to checkout")
	ErrInvalidRating      = errors.New("rating must be between 1 and 5")
	ErrSelfMessage        = errors.New("you cannot message yourself")
	ErrMessagingDenied    = errors.New("you can only message users you share a course with")
)
