package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/pthanh137/pbl3-lms/model"
	"gorm.io/gorm"
)

// MessageService handles direct messages between students and teachers.
// Delivery is polling CRUD over the messages table; who may message whom
// is derived from the enrollment graph.
type MessageService struct {
	db *gorm.DB
}

// NewMessageService creates a new message service
func NewMessageService(db *gorm.DB) *MessageService {
	return &MessageService{db: db}
}

// ConversationSummary is one entry in a user's inbox: the partner, the
// latest message, and how many of the partner's messages are unread.
type ConversationSummary struct {
	PartnerID   uint           `json:"partner_id"`
	PartnerName string         `json:"partner_name"`
	LastMessage *model.Message `json:"last_message"`
	UnreadCount int64          `json:"unread_count"`
}

// Send delivers a message from sender to receiver, optionally in the
// context of a course. Students may message teachers of courses they are
// enrolled in (and anyone they already have a conversation with);
// teachers may message students enrolled in their own courses. Admins
// may message anyone.
func (s *MessageService) Send(ctx context.Context, sender *model.User, receiverID uint, courseID *uint, content string) (*model.Message, error) {
	if receiverID == sender.ID {
		return nil, ErrSelfMessage
	}

	var receiver model.User
	if err := s.db.WithContext(ctx).First(&receiver, receiverID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load receiver: %w", err)
	}

	if courseID != nil {
		var course model.Course
		if err := s.db.WithContext(ctx).First(&course, *courseID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrNotFound
			}
			return nil, fmt.Errorf("failed to load course: %w", err)
		}
	}

	allowed, err := s.canMessage(ctx, sender, &receiver)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrMessagingDenied
	}

	message := &model.Message{
		SenderID:   sender.ID,
		ReceiverID: receiver.ID,
		CourseID:   courseID,
		Content:    content,
	}
	if err := s.db.WithContext(ctx).Create(message).Error; err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}
	message.Sender = *sender

	return message, nil
}

// canMessage decides whether sender may open (or continue) a conversation
// with receiver. An existing conversation in either direction always
// keeps the channel open.
func (s *MessageService) canMessage(ctx context.Context, sender, receiver *model.User) (bool, error) {
	if sender.IsAdmin() || receiver.IsAdmin() {
		return true, nil
	}

	var existing int64
	err := s.db.WithContext(ctx).Model(&model.Message{}).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			sender.ID, receiver.ID, receiver.ID, sender.ID).
		Count(&existing).Error
	if err != nil {
		return false, fmt.Errorf("failed to check conversation: %w", err)
	}
	if existing > 0 {
		return true, nil
	}

	// No history yet: the pair must be linked through an enrollment, in
	// either direction (student writing their teacher, or teacher writing
	// their student).
	student, teacher := sender, receiver
	if sender.IsTeacher() {
		student, teacher = receiver, sender
	}

	var linked int64
	err = s.db.WithContext(ctx).Model(&model.Enrollment{}).
		Joins("JOIN courses ON courses.id = enrollments.course_id AND courses.deleted_at IS NULL").
		Where("enrollments.student_id = ? AND courses.teacher_id = ?", student.ID, teacher.ID).
		Count(&linked).Error
	if err != nil {
		return false, fmt.Errorf("failed to check enrollment link: %w", err)
	}

	return linked > 0, nil
}

// Conversation returns the messages exchanged between two users, newest
// first.
func (s *MessageService) Conversation(ctx context.Context, userID, otherID uint, limit, offset int) ([]model.Message, int64, error) {
	pair := s.db.WithContext(ctx).Model(&model.Message{}).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			userID, otherID, otherID, userID)

	var total int64
	if err := pair.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count messages: %w", err)
	}

	if limit <= 0 {
		limit = 50
	}

	var messages []model.Message
	err := s.db.WithContext(ctx).Preload("Sender").
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			userID, otherID, otherID, userID).
		Order("created_at DESC, id DESC").
		Limit(limit).Offset(offset).
		Find(&messages).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load messages: %w", err)
	}

	return messages, total, nil
}

// MarkConversationRead marks everything the partner sent to the user as
// read and returns how many rows flipped.
func (s *MessageService) MarkConversationRead(ctx context.Context, userID, otherID uint) (int64, error) {
	result := s.db.WithContext(ctx).Model(&model.Message{}).
		Where("receiver_id = ? AND sender_id = ? AND is_read = ?", userID, otherID, false).
		Update("is_read", true)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to mark conversation read: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// ListConversations returns one summary per conversation partner, most
// recently active first.
func (s *MessageService) ListConversations(ctx context.Context, userID uint) ([]ConversationSummary, error) {
	var messages []model.Message
	err := s.db.WithContext(ctx).
		Where("sender_id = ? OR receiver_id = ?", userID, userID).
		Order("created_at DESC, id DESC").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}

	summaries := make([]ConversationSummary, 0)
	index := make(map[uint]int)
	for i := range messages {
		msg := messages[i]
		partnerID := msg.SenderID
		if partnerID == userID {
			partnerID = msg.ReceiverID
		}

		pos, seen := index[partnerID]
		if !seen {
			index[partnerID] = len(summaries)
			summaries = append(summaries, ConversationSummary{
				PartnerID:   partnerID,
				LastMessage: &messages[i],
			})
			pos = index[partnerID]
		}
		if msg.ReceiverID == userID && !msg.IsRead {
			summaries[pos].UnreadCount++
		}
	}

	if len(summaries) == 0 {
		return summaries, nil
	}

	partnerIDs := make([]uint, 0, len(summaries))
	for _, summary := range summaries {
		partnerIDs = append(partnerIDs, summary.PartnerID)
	}
	var partners []model.User
	if err := s.db.WithContext(ctx).Find(&partners, partnerIDs).Error; err != nil {
		return nil, fmt.Errorf("failed to load partners: %w", err)
	}
	names := make(map[uint]string, len(partners))
	for i := range partners {
		names[partners[i].ID] = partners[i].DisplayName()
	}
	for i := range summaries {
		summaries[i].PartnerName = names[summaries[i].PartnerID]
	}

	return summaries, nil
}

// UnreadCount returns how many received messages are still unread.
func (s *MessageService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.Message{}).
		Where("receiver_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}
	return count, nil
}
