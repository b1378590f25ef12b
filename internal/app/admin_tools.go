package app

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	tele "gopkg.in/telebot.v3"
)

// ==========================================
// АДМИН-ПАНЕЛЬ
// ==========================================

func buildAdminMenu() *tele.ReplyMarkup {
	m := &tele.ReplyMarkup{}
	pending := contestManager.CountPendingSuggestions()
	inboxLabel := "📨 Заявки"
	if pending > 0 {
		inboxLabel = fmt.Sprintf("📨 Заявки (%d)", pending)
	}
	btnInbox := m.Data(inboxLabel, "admin_inbox")
	btnParticipants := m.Data("👥 Участницы", "admin_participants")
	btnStats := m.Data("📊 Статистика", "admin_stats")
	btnSettings := m.Data("⚙️ Настройки турнира", "admin_settings")
	btnExport := m.Data("📄 Экспорт", "admin_export")
	m.Inline(
		m.Row(btnInbox, btnParticipants),
		m.Row(btnStats, btnSettings),
		m.Row(btnExport),
	)
	return m
}

func buildTournamentMenu(active bool) *tele.ReplyMarkup {
	m := &tele.ReplyMarkup{}
	var rows []tele.Row
	if active {
		btnStop := m.Data("⏹ Остановить турнир", "stop_tournament")
		rows = append(rows, m.Row(btnStop))
	} else {
		btnStart := m.Data("🚀 Запустить турнир", "start_tournament")
		rows = append(rows, m.Row(btnStart))
	}
	btnVotes := m.Data("❤️ Порог голосов", "set_votes")
	btnTime := m.Data("⏰ Длительность", "set_time")
	btnBack := m.Data("🔙 Назад", "admin_back")
	rows = append(rows, m.Row(btnVotes, btnTime), m.Row(btnBack))
	m.Inline(rows...)
	return m
}

func HandleAdminPanel(c tele.Context) error {
	if !isAdmin(c.Sender().ID) {
		return nil
	}
	return c.Send("Админ-панель. Выберите раздел:", buildAdminMenu(), tele.ModeHTML)
}

func showAdminPanel(c tele.Context) error {
	return tryEdit(c, "Админ-панель. Выберите раздел:", buildAdminMenu(), tele.ModeHTML)
}

// ==========================================
// РАЗДЕЛЫ ПАНЕЛИ
// ==========================================

func showAdminInbox(c tele.Context) error {
	pending := contestManager.PendingSuggestions()
	if len(pending) == 0 {
		return c.Respond(&tele.CallbackResponse{Text: "Новых заявок нет"})
	}
	for i := range pending {
		s := pending[i]
		caption := suggestionCard(&s)
		var err error
		if s.MediaKind == MediaVideo {
			video := &tele.Video{File: tele.File{FileID: s.FileID}, Caption: caption}
			_, err = c.Bot().Send(c.Chat(), video, buildSuggestionMenu(s.ID), tele.ModeHTML)
		} else {
			photo := &tele.Photo{File: tele.File{FileID: s.FileID}, Caption: caption}
			_, err = c.Bot().Send(c.Chat(), photo, buildSuggestionMenu(s.ID), tele.ModeHTML)
		}
		if err != nil {
			log.Printf("⚠️ Не удалось отправить карточку заявки #%d: %v", s.ID, err)
		}
	}
	return c.Respond(&tele.CallbackResponse{Text: fmt.Sprintf("Заявок в очереди: %d", len(pending))})
}

func showAdminParticipants(c tele.Context) error {
	list := contestManager.ListContestants(true, 0)
	if len(list) == 0 {
		return c.Respond(&tele.CallbackResponse{Text: "Участниц пока нет"})
	}
	for i := range list {
		ct := list[i]
		m := &tele.ReplyMarkup{}
		btnDel := m.Data("🗑 Удалить", fmt.Sprintf("delete_participant_%d", ct.ID))
		m.Inline(m.Row(btnDel))
		if err := sendContestantCard(c, &ct, m); err != nil {
			log.Printf("⚠️ Не удалось отправить карточку участницы #%d: %v", ct.ID, err)
		}
	}
	return nil
}

// handleDeleteParticipant удаляет участницу вместе с ее голосами.
// Работает и во время турнира, удаление немедленное.
func handleDeleteParticipant(c tele.Context, id uint) error {
	if !isAdmin(c.Sender().ID) {
		return c.Respond(&tele.CallbackResponse{Text: "Недостаточно прав"})
	}
	if err := contestManager.DeleteContestant(id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return c.Respond(&tele.CallbackResponse{Text: "Участница уже удалена"})
		}
		log.Printf("❌ Ошибка удаления участницы #%d: %v", id, err)
		return c.Respond(&tele.CallbackResponse{Text: "Ошибка удаления"})
	}
	log.Printf("🗑 Участница #%d удалена админом %d", id, c.Sender().ID)
	c.Delete()
	return c.Respond(&tele.CallbackResponse{Text: "Участница удалена"})
}

func showTournamentSettings(c tele.Context) error {
	cfg, err := contestManager.GetTournament()
	if err != nil {
		log.Printf("❌ Ошибка чтения настроек турнира: %v", err)
		return c.Respond(&tele.CallbackResponse{Text: "Ошибка чтения настроек"})
	}
	state := "не идет"
	if cfg.IsActive {
		state = fmt.Sprintf("идет с %s", cfg.StartedAt.Format("02.01 15:04"))
	}
	text := fmt.Sprintf("⚙️ <b>Настройки турнира</b>\n\nСтатус: %s\nПорог победы: %d голосов\nДлительность: %d ч.",
		state, cfg.RequiredVotes, cfg.DurationHours)
	return tryEdit(c, text, buildTournamentMenu(cfg.IsActive), tele.ModeHTML)
}

// ==========================================
// ДВУХШАГОВЫЙ ВВОД НАСТРОЕК
// ==========================================

func askVotesCount(c tele.Context) error {
	userID := c.Sender().ID
	startDraft(userID)
	setUserState(userID, STATE_WAITING_VOTES)
	return tryEdit(c, fmt.Sprintf("Введите порог голосов для победы (%d-%d):", minRequiredVotes, maxRequiredVotes), tele.ModeHTML)
}

func askTournamentTime(c tele.Context) error {
	setUserState(c.Sender().ID, STATE_WAITING_TIME)
	return tryEdit(c, fmt.Sprintf("Введите длительность турнира в часах (%d-%d):", minDurationHours, maxDurationHours), tele.ModeHTML)
}

// handleVotesCountInput — первый шаг цепочки настроек. Порог не
// применяется сразу, а запоминается в черновике: оба значения
// сохраняются вместе после ввода длительности.
func handleVotesCountInput(c tele.Context) error {
	userID := c.Sender().ID
	n, err := strconv.Atoi(strings.TrimSpace(c.Text()))
	if err != nil || n < minRequiredVotes || n > maxRequiredVotes {
		// Состояние не меняем, ждем число
		return c.Send(fmt.Sprintf("Нужно целое число от %d до %d. Попробуйте еще раз:", minRequiredVotes, maxRequiredVotes))
	}
	if !withDraft(userID, func(d *SubmissionDraft) { d.VotesCount = n }) {
		startDraft(userID)
		withDraft(userID, func(d *SubmissionDraft) { d.VotesCount = n })
	}
	setUserState(userID, STATE_WAITING_TIME)
	return c.Send(fmt.Sprintf("Порог: %d голосов.\nТеперь введите длительность турнира в часах (%d-%d):",
		n, minDurationHours, maxDurationHours))
}

// handleTournamentTimeInput — второй шаг. Применяет длительность и,
// если цепочка началась с порога, отложенный порог тоже.
func handleTournamentTimeInput(c tele.Context) error {
	userID := c.Sender().ID
	n, err := strconv.Atoi(strings.TrimSpace(c.Text()))
	if err != nil || n < minDurationHours || n > maxDurationHours {
		return c.Send(fmt.Sprintf("Нужно целое число от %d до %d. Попробуйте еще раз:", minDurationHours, maxDurationHours))
	}

	votes := 0
	if d, ok := getDraft(userID); ok {
		votes = d.VotesCount
	}
	if votes > 0 {
		if err := contestManager.UpdateRequiredVotes(votes); err != nil {
			resetConversation(userID)
			return c.Send(err.Error() + ". Начните настройку заново.")
		}
	}
	if err := contestManager.UpdateDurationHours(n); err != nil {
		return c.Send(err.Error() + ". Попробуйте еще раз:")
	}
	resetConversation(userID)

	if votes > 0 {
		log.Printf("⚙️ Настройки турнира: порог %d голосов, длительность %d ч. (админ %d)", votes, n, userID)
		return c.Send(fmt.Sprintf("✅ Настройки сохранены.\nПорог победы: %d голосов.\nДлительность: %d ч.", votes, n),
			buildAdminMenu(), tele.ModeHTML)
	}
	log.Printf("⚙️ Длительность турнира изменена на %d ч. (админ %d)", n, userID)
	return c.Send(fmt.Sprintf("✅ Длительность турнира: %d ч.", n), buildAdminMenu(), tele.ModeHTML)
}

// ==========================================
// СТАТИСТИКА И ДИАГНОСТИКА
// ==========================================

func buildStatsText() string {
	var sb strings.Builder
	sb.WriteString("📊 <b>Статистика турнира</b>\n\n")
	sb.WriteString(fmt.Sprintf("Участниц: %d\n", contestManager.CountApproved()))
	sb.WriteString(fmt.Sprintf("Заявок на рассмотрении: %d\n", contestManager.CountPendingSuggestions()))
	sb.WriteString(fmt.Sprintf("Всего голосов: %d\n", contestManager.TotalVotes()))
	sb.WriteString(fmt.Sprintf("Проголосовавших: %d\n\n", contestManager.DistinctVoters()))

	top := contestManager.ListContestants(true, 3)
	if len(top) > 0 {
		sb.WriteString("Топ-3:\n")
		for i, ct := range top {
			sb.WriteString(fmt.Sprintf("%d. %s — %d ❤️\n", i+1, html.EscapeString(ct.Name), ct.Votes))
		}
	}
	return sb.String()
}

func showAdminStats(c tele.Context) error {
	if err := tryEdit(c, buildStatsText(), buildAdminMenu(), tele.ModeHTML); err != nil {
		return err
	}
	// Отрисовка графика тяжелая, уводим в фон
	bot := c.Bot()
	chatID := c.Chat().ID
	runHeavy("stats-chart", func() {
		img, err := renderVotesChart(contestManager.ListContestants(true, 10))
		if err != nil {
			log.Printf("⚠️ Не удалось построить график голосов: %v", err)
			return
		}
		photo := &tele.Photo{File: tele.FromReader(bytes.NewReader(img)), Caption: "Распределение голосов"}
		if _, err := bot.Send(&tele.Chat{ID: chatID}, photo); err != nil {
			log.Printf("⚠️ Не удалось отправить график: %v", err)
		}
	})
	return nil
}

func HandleStatus(c tele.Context) error {
	if !isAdmin(c.Sender().ID) {
		return nil
	}
	gor, alloc, _, sys := runtimeStats()
	text := fmt.Sprintf("🩺 <b>Статус бота</b>\n\nUptime: %s\nGoroutines: %d\nПамять: %s (sys %s)\n\n%s",
		formatDuration(time.Since(appStartedAt)), gor, formatBytes(alloc), formatBytes(sys), buildStatsText())
	return c.Send(text, tele.ModeHTML)
}

// ==========================================
// ЭКСПОРТ
// ==========================================

func buildExportReport() string {
	var sb strings.Builder
	sb.WriteString("ОТЧЕТ ПО ТУРНИРУ\n")
	sb.WriteString("Сформирован: " + time.Now().Format("02.01.2006 15:04:05") + "\n\n")

	if cfg, err := contestManager.GetTournament(); err == nil {
		state := "не идет"
		if cfg.IsActive {
			state = "идет с " + cfg.StartedAt.Format("02.01.2006 15:04")
		}
		sb.WriteString(fmt.Sprintf("Турнир: %s\nПорог победы: %d голосов\nДлительность: %d ч.\n\n",
			state, cfg.RequiredVotes, cfg.DurationHours))
	}

	sb.WriteString(fmt.Sprintf("Всего голосов: %d\nПроголосовавших: %d\n\n",
		contestManager.TotalVotes(), contestManager.DistinctVoters()))

	sb.WriteString("УЧАСТНИЦЫ:\n")
	for i, ct := range contestManager.ListContestants(true, 0) {
		sb.WriteString(fmt.Sprintf("%d. %s — %d голосов (ID %d, добавлена %s)\n",
			i+1, ct.Name, ct.Votes, ct.ID, ct.CreatedAt.Format("02.01.2006")))
	}

	pending := contestManager.PendingSuggestions()
	if len(pending) > 0 {
		sb.WriteString("\nЗАЯВКИ НА РАССМОТРЕНИИ:\n")
		for _, s := range pending {
			sb.WriteString(fmt.Sprintf("#%d %s (от %d)\n", s.ID, s.Name, s.SuggestedBy))
		}
	}
	return sb.String()
}

func handleAdminExport(c tele.Context) error {
	if !isAdmin(c.Sender().ID) {
		return c.Respond(&tele.CallbackResponse{Text: "Недостаточно прав"})
	}

	report := buildExportReport()
	tmpPath := filepath.Join(dirTmp, "report-"+uuid.NewString()+".txt")
	if err := os.WriteFile(tmpPath, []byte(report), 0644); err != nil {
		log.Printf("❌ Ошибка записи отчета: %v", err)
		return c.Respond(&tele.CallbackResponse{Text: "Ошибка формирования отчета"})
	}
	defer os.Remove(tmpPath)

	doc := &tele.Document{File: tele.FromDisk(tmpPath), FileName: "report.txt"}
	if err := c.Send(doc); err != nil {
		log.Printf("⚠️ Не удалось отправить отчет: %v", err)
		return c.Respond(&tele.CallbackResponse{Text: "Не удалось отправить отчет"})
	}
	log.Printf("📄 Отчет выгружен админом %d", c.Sender().ID)
	return c.Respond(&tele.CallbackResponse{Text: "Отчет отправлен"})
}
