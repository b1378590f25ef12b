package app

import (
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	tele "gopkg.in/telebot.v3"
)

// ==========================================
// МЕНЮ И КНОПКИ
// ==========================================

var (
	// --- МЕНЮ ПОЛЬЗОВАТЕЛЯ (Reply) ---
	userReplyMenu = &tele.ReplyMarkup{ResizeKeyboard: true}
	btnVote       = userReplyMenu.Text("❤️ Голосовать")
	btnTopList    = userReplyMenu.Text("🏆 Топ участниц")
	btnPropose    = userReplyMenu.Text("📸 Предложить участницу")
	btnBugReport  = userReplyMenu.Text("🐞 Сообщить об ошибке")
	btnAdminEntry = userReplyMenu.Text("🛠 Админ-панель")

	// Кнопка отмены в диалоге заявки
	cancelSuggestMenu = &tele.ReplyMarkup{}
	btnCancelSuggest  = cancelSuggestMenu.Data("❌ Отменить", "cancel_proposal")

	// --- ANTI-SPAM ---
	userLastReq   = make(map[int64]time.Time)
	userLastReqMu sync.Mutex
)

func InitMenus() {
	userReplyMenu.Reply(
		userReplyMenu.Row(btnVote, btnTopList),
		userReplyMenu.Row(btnPropose),
		userReplyMenu.Row(btnBugReport),
	)

	cancelSuggestMenu.Inline(
		cancelSuggestMenu.Row(btnCancelSuggest),
	)
}

// userMenuFor собирает reply-клавиатуру, админам добавляется панель.
func userMenuFor(userID int64) *tele.ReplyMarkup {
	if !isAdmin(userID) {
		return userReplyMenu
	}
	m := &tele.ReplyMarkup{ResizeKeyboard: true}
	m.Reply(
		m.Row(btnVote, btnTopList),
		m.Row(btnPropose),
		m.Row(btnAdminEntry),
		m.Row(btnBugReport),
	)
	return m
}

// ==========================================
// РЕГИСТРАЦИЯ
// ==========================================

func RegisterHandlers(b *tele.Bot) {
	// Основные команды
	b.Handle("/start", HandleStart)
	b.Handle("/help", HandleHelp)
	b.Handle("/vote", HandleVote)
	b.Handle("/top", HandleTop)
	b.Handle("/propose", HandleStartSuggest)
	b.Handle("/cancel", HandleCancel)
	b.Handle("/id", HandleID)

	// Команды админа
	b.Handle("/admin", HandleAdminPanel)
	b.Handle("/status", HandleStatus)

	// Кнопки клавиатуры
	b.Handle(&btnVote, HandleVote)
	b.Handle(&btnTopList, HandleTop)
	b.Handle(&btnPropose, HandleStartSuggest)
	b.Handle(&btnBugReport, HandleBugReport)
	b.Handle(&btnAdminEntry, HandleAdminPanel)

	b.Handle(tele.OnCallback, func(c tele.Context) error {
		// Всегда подтверждаем callback, чтобы убрать "часики" на кнопке.
		defer func() {
			_ = c.Respond()
		}()
		return processCallback(c)
	})

	b.Handle(tele.OnPhoto, HandleMedia)
	b.Handle(tele.OnVideo, HandleMedia)
	b.Handle(tele.OnText, HandleText)
	b.Handle(tele.OnSticker, func(c tele.Context) error { return nil })

	// ВАЖНО: Middleware подключаем после всех хендлеров
	b.Use(RecoverMiddleware())
	b.Use(Middleware())
}

// ==========================================
// БАЗОВЫЕ ХЕНДЛЕРЫ
// ==========================================

func HandleStart(c tele.Context) error {
	userID := c.Sender().ID
	resetConversation(userID)
	text := "👋 Привет! Это конкурс красоты.\n\n" +
		"❤️ Голосуйте за участниц\n" +
		"🏆 Следите за топом\n" +
		"📸 Предлагайте своих кандидаток"
	return c.Send(text, userMenuFor(userID))
}

func HandleHelp(c tele.Context) error {
	text := "Команды:\n" +
		"/vote — голосовать\n" +
		"/top — топ участниц\n" +
		"/propose — предложить участницу\n" +
		"/cancel — отменить текущий диалог\n" +
		"/id — ваш ID"
	if isAdmin(c.Sender().ID) {
		text += "\n\nАдмин:\n/admin — панель управления\n/status — диагностика"
	}
	return c.Send(text)
}

func HandleID(c tele.Context) error {
	return c.Send(strconv.FormatInt(c.Sender().ID, 10))
}

func HandleBugReport(c tele.Context) error {
	if config.DeveloperURL == "" {
		return c.Send("Нашли ошибку? Напишите администратору.")
	}
	m := &tele.ReplyMarkup{}
	btn := m.URL("✍️ Написать разработчику", config.DeveloperURL)
	m.Inline(m.Row(btn))
	return c.Send("Нашли ошибку? Опишите ее разработчику:", m)
}

// HandleMedia принимает фото и видео. Вне шага загрузки медиа — игнор.
func HandleMedia(c tele.Context) error {
	if getUserState(c.Sender().ID) == STATE_WAITING_MEDIA {
		return handleSuggestMedia(c)
	}
	return nil
}

// HandleText маршрутизирует текст по текущему состоянию диалога.
func HandleText(c tele.Context) error {
	userID := c.Sender().ID

	switch getUserState(userID) {
	case STATE_WAITING_NAME:
		return handleSuggestName(c)
	case STATE_WAITING_MEDIA:
		return c.Send("Жду фото или видео. Пришлите медиафайл:", cancelSuggestMenu, tele.ModeHTML)
	case STATE_PREVIEW:
		return c.Send("Используйте кнопки под превью заявки.")
	case STATE_WAITING_VOTES:
		if !isAdmin(userID) {
			setUserState(userID, STATE_IDLE)
			return nil
		}
		return handleVotesCountInput(c)
	case STATE_WAITING_TIME:
		if !isAdmin(userID) {
			setUserState(userID, STATE_IDLE)
			return nil
		}
		return handleTournamentTimeInput(c)
	}
	return nil
}

// ==========================================
// CALLBACK-РОУТЕР
// ==========================================

func processCallback(c tele.Context) error {
	data := strings.TrimSpace(c.Callback().Data)
	userID := c.Sender().ID

	switch data {
	case "cancel_proposal":
		return handlePreviewCancel(c)
	case "edit_name":
		return handlePreviewEditName(c)
	case "edit_media":
		return handlePreviewEditMedia(c)
	case "send_proposal":
		return handlePreviewSend(c)
	case "check_subscription":
		return handleSubscriptionCheck(c)
	case "admin_back":
		if !isAdmin(userID) {
			return nil
		}
		return showAdminPanel(c)
	case "admin_inbox":
		if !isAdmin(userID) {
			return nil
		}
		return showAdminInbox(c)
	case "admin_participants":
		if !isAdmin(userID) {
			return nil
		}
		return showAdminParticipants(c)
	case "admin_stats":
		if !isAdmin(userID) {
			return nil
		}
		return showAdminStats(c)
	case "admin_settings":
		if !isAdmin(userID) {
			return nil
		}
		return showTournamentSettings(c)
	case "admin_export":
		return handleAdminExport(c)
	case "set_votes":
		if !isAdmin(userID) {
			return nil
		}
		return askVotesCount(c)
	case "set_time":
		if !isAdmin(userID) {
			return nil
		}
		return askTournamentTime(c)
	case "start_tournament":
		if !isAdmin(userID) {
			return nil
		}
		return startTournament(c)
	case "stop_tournament":
		if !isAdmin(userID) {
			return nil
		}
		return stopTournament(c)
	}

	// Колбэки с ID в хвосте
	if id, ok := parseCallbackID(data, "vote_"); ok {
		return handleVoteCallback(c, id)
	}
	if id, ok := parseCallbackID(data, "accept_suggestion_"); ok {
		return handleSuggestionDecision(c, id, true)
	}
	if id, ok := parseCallbackID(data, "reject_suggestion_"); ok {
		return handleSuggestionDecision(c, id, false)
	}
	if id, ok := parseCallbackID(data, "delete_participant_"); ok {
		return handleDeleteParticipant(c, id)
	}

	log.Printf("⚠️ Неизвестный callback %q от %d", data, userID)
	return nil
}

func parseCallbackID(data, prefix string) (uint, bool) {
	if !strings.HasPrefix(data, prefix) {
		return 0, false
	}
	id, err := strconv.ParseUint(strings.TrimPrefix(data, prefix), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// ==========================================
// MIDDLEWARE И ПОМОЩНИКИ
// ==========================================

// Middleware ограничивает частоту обращений: одно сообщение в секунду,
// админы без лимита.
func Middleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			if sender == nil {
				return next(c)
			}
			if isAdmin(sender.ID) {
				return next(c)
			}

			userLastReqMu.Lock()
			last, exists := userLastReq[sender.ID]
			if exists && time.Since(last) < 1*time.Second {
				userLastReqMu.Unlock()
				if c.Callback() != nil {
					return c.Respond(&tele.CallbackResponse{Text: "Не так быстро"})
				}
				return nil
			}
			userLastReq[sender.ID] = time.Now()
			userLastReqMu.Unlock()

			return next(c)
		}
	}
}

func tryEdit(c tele.Context, what interface{}, opts ...interface{}) error {
	err := c.Edit(what, opts...)
	if err != nil && strings.Contains(err.Error(), "message is not modified") {
		return c.Respond()
	}
	if err != nil {
		log.Printf("⚠️ Ошибка редактирования сообщения: %v", err)
	}
	return err
}
