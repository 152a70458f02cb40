package storage

import (
	"campusmatch/backend/internal/models"
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service is the production Storage: PostgreSQL (gorm) keeps profiles, rooms,
// message logs and read pointers; Redis keeps the waiting queues, the resource
// locks and the live room channels.
type Service struct {
	DB        *gorm.DB
	Redis     *redis.Client
	keyPrefix string
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:        db,
		Redis:     rdb,
		keyPrefix: "campusmatch:",
	}
}

// AutoMigrate creates or updates every table the Service writes to.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Profile{},
		&models.DirectRoom{},
		&models.GroupRoom{},
		&models.GroupMember{},
		&models.Message{},
		&models.ReadStatus{},
	)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// --- Profiles ---

func (s *Service) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	var profile models.Profile
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return nil, notFound(err)
	}
	return &profile, nil
}

func (s *Service) SaveProfile(ctx context.Context, profile *models.Profile) error {
	return s.DB.WithContext(ctx).Save(profile).Error
}

// --- Direct rooms ---

func (s *Service) SaveDirectRoom(ctx context.Context, room *models.DirectRoom) error {
	return s.DB.WithContext(ctx).Save(room).Error
}

func (s *Service) GetDirectRoom(ctx context.Context, roomID string) (*models.DirectRoom, error) {
	var room models.DirectRoom
	if err := s.DB.WithContext(ctx).Where("room_id = ?", roomID).First(&room).Error; err != nil {
		return nil, notFound(err)
	}
	return &room, nil
}

// FindActiveDirectRoomForUser знаходить активну кімнату, в якій бере участь даний користувач.
func (s *Service) FindActiveDirectRoomForUser(ctx context.Context, userID string) (*models.DirectRoom, error) {
	var room models.DirectRoom
	err := s.DB.WithContext(ctx).
		Where("active = ?", true).
		Where("user1_id = ? OR user2_id = ?", userID, userID).
		Order("created_at asc").
		First(&room).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		logrus.WithError(err).WithField("user_id", userID).Error("storage: failed to find active room")
		return nil, err
	}
	return &room, nil
}

func (s *Service) ListActiveDirectRooms(ctx context.Context, userID string) ([]models.DirectRoom, error) {
	var rooms []models.DirectRoom
	err := s.DB.WithContext(ctx).
		Where("active = ?", true).
		Where("user1_id = ? OR user2_id = ?", userID, userID).
		Order("created_at asc").
		Find(&rooms).Error
	return rooms, err
}

// --- Group rooms ---

// SaveGroupRoom upserts the room row and its member seats in one transaction.
func (s *Service) SaveGroupRoom(ctx context.Context, room *models.GroupRoom) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(room).Error; err != nil {
			return err
		}
		if len(room.Members) == 0 {
			return nil
		}
		for i := range room.Members {
			room.Members[i].RoomID = room.RoomID
			room.Members[i].Position = i
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "room_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"position", "nickname", "gender"}),
		}).Create(&room.Members).Error
	})
}

func (s *Service) GetGroupRoom(ctx context.Context, roomID string) (*models.GroupRoom, error) {
	var room models.GroupRoom
	err := s.DB.WithContext(ctx).
		Preload("Members", func(db *gorm.DB) *gorm.DB { return db.Order("position asc") }).
		Where("room_id = ?", roomID).
		First(&room).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &room, nil
}

func (s *Service) ListActiveGroupRooms(ctx context.Context, userID string) ([]models.GroupRoom, error) {
	var rooms []models.GroupRoom
	memberOf := s.DB.Model(&models.GroupMember{}).Select("room_id").Where("user_id = ?", userID)
	err := s.DB.WithContext(ctx).
		Preload("Members", func(db *gorm.DB) *gorm.DB { return db.Order("position asc") }).
		Where("active = ?", true).
		Where("room_id IN (?)", memberOf).
		Order("created_at asc").
		Find(&rooms).Error
	return rooms, err
}

// ListActiveRoomIDs повертає список усіх RoomID, які є активними в даний момент.
func (s *Service) ListActiveRoomIDs(ctx context.Context) ([]string, error) {
	var direct, group []string
	db := s.DB.WithContext(ctx)
	if err := db.Model(&models.DirectRoom{}).Where("active = ?", true).Pluck("room_id", &direct).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.GroupRoom{}).Where("active = ?", true).Pluck("room_id", &group).Error; err != nil {
		return nil, err
	}
	return append(direct, group...), nil
}

// --- Message log ---

func (s *Service) LoadMessages(ctx context.Context, roomID string) ([]models.Message, error) {
	var messages []models.Message
	err := s.DB.WithContext(ctx).Where("room_id = ?", roomID).Order("position asc").Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("load messages for room %s: %w", roomID, err)
	}
	return messages, nil
}

// SaveMessages replaces the stored log of the room with messages, keeping
// their order in the position column.
func (s *Service) SaveMessages(ctx context.Context, roomID string, messages []models.Message) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids := make([]string, len(messages))
		for i := range messages {
			messages[i].RoomID = roomID
			messages[i].Position = i
			ids[i] = messages[i].ID
		}

		del := tx.Where("room_id = ?", roomID)
		if len(ids) > 0 {
			del = del.Where("id NOT IN ?", ids)
		}
		if err := del.Delete(&models.Message{}).Error; err != nil {
			return err
		}
		if len(messages) == 0 {
			return nil
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).Create(&messages).Error
	})
}

// --- Read status ---

func (s *Service) GetLastRead(ctx context.Context, userID, roomID string) (string, bool, error) {
	var status models.ReadStatus
	err := s.DB.WithContext(ctx).Where("user_id = ? AND room_id = ?", userID, roomID).First(&status).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return status.LastReadMessageID, true, nil
}

func (s *Service) SetLastRead(ctx context.Context, userID, roomID, messageID string) error {
	status := models.ReadStatus{UserID: userID, RoomID: roomID, LastReadMessageID: messageID}
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "room_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_read_message_id", "updated_at"}),
	}).Create(&status).Error
}

func (s *Service) LoadReadStatus(ctx context.Context, userID string) (map[string]string, error) {
	var rows []models.ReadStatus
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.RoomID] = r.LastReadMessageID
	}
	return out, nil
}
