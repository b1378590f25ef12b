package app

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	tele "gopkg.in/telebot.v3"
)

// ==========================================
// КОНФИГУРАЦИЯ
// ==========================================

type Config struct {
	Token        string  `json:"token"`
	AdminIDs     []int64 `json:"admin_ids"`
	ChannelURL   string  `json:"channel_url"`
	DeveloperURL string  `json:"developer_url"`
	BotAPIUrl    string  `json:"bot_api_url"`
}

// ==========================================
// ГЛОБАЛЬНЫЕ ПЕРЕМЕННЫЕ (Общие для всех файлов)
// ==========================================

var (
	config         Config
	contestManager *ContestManager
)

// ==========================================
// MAIN
// ==========================================

func Run() {
	initAppLayout()
	InitLogger()
	defer CloseLogger()
	markStart()

	// Вторая копия бота получит conflict от Telegram API,
	// поэтому блокируем запуск заранее через локальный порт.
	lock, err := acquireInstanceLock()
	if err != nil {
		log.Fatalf("❌ Бот уже запущен (порт %d занят): %v", instanceLockPort, err)
	}
	defer lock.Close()

	// 1. Загрузка конфигурации
	if err := loadJSON(configFilePath, &config); err != nil {
		log.Printf("⚠️ Файл %s не найден или поврежден: %v", configFilePath, err)
	}
	applyEnvOverrides(&config)
	if config.Token == "" {
		log.Fatalf("❌ Критическая ошибка: токен бота не задан (config.json или BB_BOT_TOKEN)")
	}
	if len(config.AdminIDs) == 0 {
		log.Println("⚠️ Список админов пуст. Заявки рассматривать будет некому.")
	}

	// 2. Инициализация хранилища (SQLite)
	contestManager = NewContestManager(dbFilePath)
	log.Printf("✅ База конкурса подключена. Участниц: %d, заявок: %d",
		contestManager.CountApproved(), contestManager.CountPendingSuggestions())

	// 3. Настройки бота
	log.Println("🔄 Попытка подключения к Telegram API...")

	pref := tele.Settings{
		Token: config.Token,
		URL:   config.BotAPIUrl,
		Poller: &tele.LongPoller{
			Timeout: 10 * time.Second,
		},
		OnError: func(err error, c tele.Context) {
			log.Printf("❌ Ошибка в Bot Poller: %v", err)
			if c != nil && c.Chat() != nil {
				log.Printf("   -> В чате: %v", c.Chat().ID)
			}
		},
	}

	b, err := tele.NewBot(pref)
	if err != nil {
		log.Fatalf("❌ КРИТИЧЕСКАЯ ОШИБКА при создании бота (проверьте токен или доступ к API): %v", err)
	}

	// 4. Меню и хендлеры
	InitMenus()
	RegisterHandlers(b)

	// 5. Фоновые задачи
	safeGo("housekeeping", startHousekeeping)
	if addr := os.Getenv("BB_HEALTH_ADDR"); addr != "" {
		safeGo("health-server", func() { startHealthServer(addr) })
	}

	log.Printf("✅ Соединение установлено! Бот: @%s (ID: %d)", b.Me.Username, b.Me.ID)
	if config.BotAPIUrl != "" {
		log.Printf("🌐 Работа через прокси: %s", config.BotAPIUrl)
	}

	// Сброс вебхука и зависших апдейтов, накопившихся пока бот не работал
	log.Println("🧹 Сброс вебхука и удаление старых зависших сообщений...")
	if err := b.RemoveWebhook(true); err != nil {
		log.Printf("⚠️ Предупреждение: Не удалось сбросить вебхук (возможно, ошибка сети): %v", err)
	} else {
		log.Println("✅ Вебхук удален, очередь очищена. Бот готов к работе.")
	}

	fmt.Printf("🚀 Бот запущен. Admins: %d\n", len(getAdmins()))

	safeGo("bot", func() { b.Start() })

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Println("⏹ Завершение работы...")
	b.Stop()
	if err := contestManager.CloseDB(); err != nil {
		log.Printf("⚠️ Ошибка закрытия БД: %v", err)
	}
}

func applyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}
	if v := os.Getenv("BB_BOT_TOKEN"); v != "" {
		cfg.Token = v
	}
	if v := os.Getenv("BB_CHANNEL_URL"); v != "" {
		cfg.ChannelURL = v
	}
	if v := os.Getenv("BB_DEVELOPER_URL"); v != "" {
		cfg.DeveloperURL = v
	}
	if v := os.Getenv("BB_BOT_API_URL"); v != "" {
		cfg.BotAPIUrl = v
	}
	if v := os.Getenv("BB_ADMIN_IDS"); v != "" {
		cfg.AdminIDs = parseAdminIDs(v)
	}
}

func parseAdminIDs(s string) []int64 {
	var out []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if id, err := strconv.ParseInt(part, 10, 64); err == nil && id != 0 {
			out = append(out, id)
		}
	}
	return out
}
