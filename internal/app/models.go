package app

import "time"

// ==========================================
// СТРУКТУРЫ ДАННЫХ
// ==========================================

const (
	MediaPhoto = "photo"
	MediaVideo = "video"
)

const (
	SuggestionPending  = "pending"
	SuggestionAccepted = "accepted"
	SuggestionRejected = "rejected"
)

// Contestant — утвержденная участница турнира.
type Contestant struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"index"`
	FileID    string
	MediaKind string
	Votes     int  `gorm:"default:0"`
	Approved  bool `gorm:"default:true;index"`
	CreatedAt time.Time
}

// Suggestion — заявка от пользователя, ждет решения админа.
type Suggestion struct {
	ID          uint `gorm:"primaryKey"`
	Name        string
	FileID      string
	MediaKind   string
	SuggestedBy int64  `gorm:"index"`
	Status      string `gorm:"default:'pending';index"`
	CreatedAt   time.Time
}

// Vote — один голос. Составной первичный ключ дает
// уникальность (пользователь, участница) на уровне схемы.
type Vote struct {
	UserID       int64 `gorm:"primaryKey;autoIncrement:false"`
	ContestantID uint  `gorm:"primaryKey;autoIncrement:false"`
	CreatedAt    time.Time
}

// TournamentConfig — настройки и текущее состояние турнира.
// Активная строка не более одной, это проверяется в транзакции активации.
type TournamentConfig struct {
	ID            uint `gorm:"primaryKey"`
	RequiredVotes int  `gorm:"default:15"`
	DurationHours int  `gorm:"default:24"`
	IsActive      bool `gorm:"default:false;index"`
	StartedAt     time.Time
	CreatedAt     time.Time
}

const (
	defaultRequiredVotes = 15
	defaultDurationHours = 24

	minRequiredVotes = 1
	maxRequiredVotes = 1000
	minDurationHours = 1
	maxDurationHours = 168
)
