package app

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ==========================================
// ОШИБКИ РЕПОЗИТОРИЯ
// ==========================================

var (
	ErrNotFound             = errors.New("запись не найдена")
	ErrAlreadyVoted         = errors.New("голос уже учтен")
	ErrAlreadyDecided       = errors.New("заявка уже рассмотрена")
	ErrNoActiveTournament   = errors.New("турнир не запущен")
	ErrTournamentActive     = errors.New("турнир уже идет")
	ErrNotEnoughContestants = errors.New("недостаточно участниц")
)

type ContestManager struct {
	DB       *gorm.DB
	FilePath string
	Mu       sync.RWMutex
}

// ==========================================
// ИНИЦИАЛИЗАЦИЯ
// ==========================================

func NewContestManager(file string) *ContestManager {
	cm := &ContestManager{FilePath: file}
	cm.Connect()
	return cm
}

func (cm *ContestManager) Connect() {
	cm.Mu.Lock()
	defer cm.Mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(cm.FilePath), 0755); err != nil {
		log.Fatalf("❌ Ошибка создания директории БД: %v", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(10000)", cm.FilePath)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:      logger.Default.LogMode(logger.Silent),
		PrepareStmt: true,
	})
	if err != nil {
		log.Fatalf("❌ Ошибка БД: %v", err)
	}

	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(2 * time.Hour)

	if err := db.AutoMigrate(&Contestant{}, &Suggestion{}, &Vote{}, &TournamentConfig{}); err != nil {
		log.Printf("⚠️ Ошибка AutoMigrate: %v", err)
	}

	var cfg TournamentConfig
	if result := db.First(&cfg, 1); result.Error != nil {
		db.Create(&TournamentConfig{ID: 1, RequiredVotes: defaultRequiredVotes, DurationHours: defaultDurationHours, IsActive: false})
	} else {
		updated := false
		if cfg.RequiredVotes <= 0 {
			cfg.RequiredVotes = defaultRequiredVotes
			updated = true
		}
		if cfg.DurationHours <= 0 {
			cfg.DurationHours = defaultDurationHours
			updated = true
		}
		if updated {
			db.Save(&cfg)
		}
	}

	cm.DB = db
	log.Println("🔌 БД подключена (WAL).")
}

func (cm *ContestManager) CloseDB() error {
	cm.Mu.Lock()
	defer cm.Mu.Unlock()
	if cm.DB == nil {
		return nil
	}
	sqlDB, err := cm.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (cm *ContestManager) Vacuum() error {
	cm.Mu.Lock()
	defer cm.Mu.Unlock()
	return cm.DB.Exec("VACUUM").Error
}

// ==========================================
// ЗАЯВКИ
// ==========================================

func (cm *ContestManager) CreateSuggestion(s *Suggestion) error {
	if s == nil {
		return ErrNotFound
	}
	s.Status = SuggestionPending
	return cm.DB.Create(s).Error
}

func (cm *ContestManager) GetSuggestion(id uint) (*Suggestion, error) {
	var s Suggestion
	if err := cm.DB.First(&s, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (cm *ContestManager) PendingSuggestions() []Suggestion {
	var out []Suggestion
	cm.DB.Where("status = ?", SuggestionPending).Order("id asc").Find(&out)
	return out
}

func (cm *ContestManager) CountPendingSuggestions() int64 {
	var n int64
	cm.DB.Model(&Suggestion{}).Where("status = ?", SuggestionPending).Count(&n)
	return n
}

// DecideSuggestion закрывает заявку. Смена статуса и создание участницы
// идут одной транзакцией, повторное нажатие кнопки вернет ErrAlreadyDecided.
func (cm *ContestManager) DecideSuggestion(id uint, accept bool) (*Suggestion, *Contestant, error) {
	var sug Suggestion
	var created *Contestant
	err := cm.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&sug, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if sug.Status != SuggestionPending {
			return ErrAlreadyDecided
		}
		if accept {
			c := Contestant{Name: sug.Name, FileID: sug.FileID, MediaKind: sug.MediaKind, Approved: true}
			if err := tx.Create(&c).Error; err != nil {
				return err
			}
			created = &c
			sug.Status = SuggestionAccepted
		} else {
			sug.Status = SuggestionRejected
		}
		return tx.Model(&Suggestion{}).Where("id = ?", id).Update("status", sug.Status).Error
	})
	if err != nil {
		return nil, nil, err
	}
	return &sug, created, nil
}

// ==========================================
// УЧАСТНИЦЫ
// ==========================================

func (cm *ContestManager) CreateContestant(c *Contestant) error {
	return cm.DB.Create(c).Error
}

func (cm *ContestManager) GetContestant(id uint) (*Contestant, error) {
	var c Contestant
	if err := cm.DB.First(&c, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// DeleteContestant удаляет участницу вместе с ее голосами.
func (cm *ContestManager) DeleteContestant(id uint) error {
	return cm.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&Contestant{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Where("contestant_id = ?", id).Delete(&Vote{}).Error
	})
}

// ListContestants возвращает участниц по убыванию голосов,
// при равенстве — более ранняя запись выше.
func (cm *ContestManager) ListContestants(approvedOnly bool, limit int) []Contestant {
	q := cm.DB.Order("votes desc, id asc")
	if approvedOnly {
		q = q.Where("approved = ?", true)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []Contestant
	q.Find(&out)
	return out
}

func (cm *ContestManager) CountApproved() int64 {
	var n int64
	cm.DB.Model(&Contestant{}).Where("approved = ?", true).Count(&n)
	return n
}

// ==========================================
// ГОЛОСА
// ==========================================

func (cm *ContestManager) HasVoted(userID int64, contestantID uint) bool {
	var n int64
	cm.DB.Model(&Vote{}).Where("user_id = ? AND contestant_id = ?", userID, contestantID).Count(&n)
	return n > 0
}

// RecordVote фиксирует голос и возвращает новое число голосов участницы.
// Порядок проверок: турнир активен -> повторный голос -> участница
// утверждена. Вставка голоса и инкремент счетчика идут одной транзакцией.
func (cm *ContestManager) RecordVote(userID int64, contestantID uint) (int, error) {
	var count int
	err := cm.DB.Transaction(func(tx *gorm.DB) error {
		var cfg TournamentConfig
		if err := tx.First(&cfg, 1).Error; err != nil {
			return err
		}
		if !cfg.IsActive {
			return ErrNoActiveTournament
		}

		var existing int64
		tx.Model(&Vote{}).Where("user_id = ? AND contestant_id = ?", userID, contestantID).Count(&existing)
		if existing > 0 {
			return ErrAlreadyVoted
		}

		var cont Contestant
		if err := tx.First(&cont, contestantID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if !cont.Approved {
			return ErrNotFound
		}

		if err := tx.Create(&Vote{UserID: userID, ContestantID: contestantID}).Error; err != nil {
			return err
		}
		if err := tx.Model(&Contestant{}).Where("id = ?", contestantID).
			Update("votes", gorm.Expr("votes + 1")).Error; err != nil {
			return err
		}

		var fresh Contestant
		if err := tx.First(&fresh, contestantID).Error; err != nil {
			return err
		}
		count = fresh.Votes
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// RandomPairFor отдает до двух случайных участниц, за которых
// пользователь еще не голосовал. Пустой срез — голоса исчерпаны.
func (cm *ContestManager) RandomPairFor(userID int64) []Contestant {
	voted := cm.DB.Model(&Vote{}).Select("contestant_id").Where("user_id = ?", userID)
	var out []Contestant
	cm.DB.Where("approved = ?", true).
		Where("id NOT IN (?)", voted).
		Order("RANDOM()").Limit(2).Find(&out)
	return out
}

func (cm *ContestManager) TotalVotes() int64 {
	var n int64
	cm.DB.Model(&Vote{}).Count(&n)
	return n
}

func (cm *ContestManager) DistinctVoters() int64 {
	var n int64
	cm.DB.Model(&Vote{}).Distinct("user_id").Count(&n)
	return n
}

// ==========================================
// ТУРНИР
// ==========================================

func (cm *ContestManager) GetTournament() (*TournamentConfig, error) {
	var cfg TournamentConfig
	if err := cm.DB.First(&cfg, 1).Error; err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ActivateTournament включает турнир. Проверка "уже идет" и само
// включение идут одной транзакцией, двойной запуск невозможен.
func (cm *ContestManager) ActivateTournament() (*TournamentConfig, error) {
	var cfg TournamentConfig
	err := cm.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&cfg, 1).Error; err != nil {
			return err
		}
		if cfg.IsActive {
			return ErrTournamentActive
		}
		var approved int64
		tx.Model(&Contestant{}).Where("approved = ?", true).Count(&approved)
		if approved < 2 {
			return ErrNotEnoughContestants
		}
		cfg.IsActive = true
		cfg.StartedAt = time.Now()
		return tx.Save(&cfg).Error
	})
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DeactivateTournament выключает турнир. Участницы и голоса сохраняются.
func (cm *ContestManager) DeactivateTournament() (*TournamentConfig, error) {
	var cfg TournamentConfig
	err := cm.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&cfg, 1).Error; err != nil {
			return err
		}
		if !cfg.IsActive {
			return ErrNoActiveTournament
		}
		cfg.IsActive = false
		return tx.Save(&cfg).Error
	})
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cm *ContestManager) UpdateRequiredVotes(n int) error {
	if n < minRequiredVotes || n > maxRequiredVotes {
		return fmt.Errorf("допустимо от %d до %d голосов", minRequiredVotes, maxRequiredVotes)
	}
	return cm.DB.Model(&TournamentConfig{}).Where("id = ?", 1).Update("required_votes", n).Error
}

func (cm *ContestManager) UpdateDurationHours(n int) error {
	if n < minDurationHours || n > maxDurationHours {
		return fmt.Errorf("допустимо от %d до %d часов", minDurationHours, maxDurationHours)
	}
	return cm.DB.Model(&TournamentConfig{}).Where("id = ?", 1).Update("duration_hours", n).Error
}

// LeadingContestant — текущий лидер среди утвержденных.
// Ничья решается в пользу более ранней записи.
func (cm *ContestManager) LeadingContestant() (*Contestant, error) {
	var c Contestant
	err := cm.DB.Where("approved = ?", true).
		Order("votes desc, id asc").First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}
