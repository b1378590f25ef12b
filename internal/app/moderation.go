package app

import (
	"errors"
	"fmt"
	"html"
	"log"
	"time"

	tele "gopkg.in/telebot.v3"
)

// ==========================================
// МОДЕРАЦИЯ ЗАЯВОК
// ==========================================

func buildSuggestionMenu(id uint) *tele.ReplyMarkup {
	m := &tele.ReplyMarkup{}
	btnAccept := m.Data("✅ Принять", fmt.Sprintf("accept_suggestion_%d", id))
	btnReject := m.Data("❌ Отклонить", fmt.Sprintf("reject_suggestion_%d", id))
	m.Inline(m.Row(btnAccept, btnReject))
	return m
}

func suggestionCard(s *Suggestion) string {
	return fmt.Sprintf("📨 <b>Новая заявка #%d</b>\n\nИмя: <b>%s</b>\nОт: <code>%d</code>",
		s.ID, html.EscapeString(s.Name), s.SuggestedBy)
}

// notifyAdminsAboutSuggestion рассылает карточку заявки всем админам.
// Сбой доставки одному админу не мешает остальным, временные ошибки
// Telegram пережидаем повторными попытками.
func notifyAdminsAboutSuggestion(bot *tele.Bot, s *Suggestion) {
	for _, adminID := range getAdmins() {
		adminID := adminID
		safeGo("notify-admin-suggestion", func() {
			recipient := &tele.User{ID: adminID}
			err := sendWithRetry(3, 500*time.Millisecond, func() error {
				var err error
				if s.MediaKind == MediaVideo {
					video := &tele.Video{File: tele.File{FileID: s.FileID}, Caption: suggestionCard(s)}
					_, err = bot.Send(recipient, video, buildSuggestionMenu(s.ID), tele.ModeHTML)
				} else {
					photo := &tele.Photo{File: tele.File{FileID: s.FileID}, Caption: suggestionCard(s)}
					_, err = bot.Send(recipient, photo, buildSuggestionMenu(s.ID), tele.ModeHTML)
				}
				return err
			})
			if err != nil {
				log.Printf("⚠️ Не удалось отправить заявку #%d админу %d: %v", s.ID, adminID, err)
			}
		})
	}
}

// handleSuggestionDecision обрабатывает решение админа по заявке.
// Повторное нажатие на уже рассмотренную заявку дает только тост.
func handleSuggestionDecision(c tele.Context, id uint, accept bool) error {
	if !isAdmin(c.Sender().ID) {
		return c.Respond(&tele.CallbackResponse{Text: "Недостаточно прав"})
	}

	sug, created, err := contestManager.DecideSuggestion(id, accept)
	if err != nil {
		switch {
		case errors.Is(err, ErrAlreadyDecided):
			return c.Respond(&tele.CallbackResponse{Text: "Заявка уже рассмотрена"})
		case errors.Is(err, ErrNotFound):
			return c.Respond(&tele.CallbackResponse{Text: "Заявка не найдена"})
		default:
			log.Printf("❌ Ошибка решения по заявке #%d: %v", id, err)
			return c.Respond(&tele.CallbackResponse{Text: "Ошибка. Попробуйте еще раз"})
		}
	}

	var verdict string
	if accept {
		verdict = fmt.Sprintf("✅ Заявка #%d принята. Участница <b>%s</b> добавлена (ID %d).",
			sug.ID, html.EscapeString(sug.Name), created.ID)
		log.Printf("✅ Заявка #%d принята, участница #%d (%s)", sug.ID, created.ID, sug.Name)
	} else {
		verdict = fmt.Sprintf("❌ Заявка #%d отклонена.", sug.ID)
		log.Printf("🗑 Заявка #%d отклонена (%s)", sug.ID, sug.Name)
	}

	// Убираем кнопки с карточки, чтобы не кликали второй раз
	if msg := c.Message(); msg != nil && (msg.Photo != nil || msg.Video != nil) {
		_ = c.EditCaption(verdict, tele.ModeHTML)
	} else {
		_ = tryEdit(c, verdict, tele.ModeHTML)
	}

	notifySubmitter(c.Bot(), sug, accept)
	return nil
}

// notifySubmitter сообщает автору заявки о решении.
// Пользователь мог заблокировать бота, сбой не критичен.
func notifySubmitter(bot *tele.Bot, s *Suggestion, accepted bool) {
	if s.SuggestedBy == 0 {
		return
	}
	text := "🎉 Ваша участница <b>" + html.EscapeString(s.Name) + "</b> принята в турнир!"
	if !accepted {
		text = "К сожалению, ваша заявка <b>" + html.EscapeString(s.Name) + "</b> отклонена."
	}
	safeGo("notify-submitter", func() {
		err := sendWithRetry(2, time.Second, func() error {
			_, err := bot.Send(&tele.User{ID: s.SuggestedBy}, text, tele.ModeHTML)
			return err
		})
		if err != nil {
			log.Printf("⚠️ Не удалось уведомить автора заявки %d: %v", s.SuggestedBy, err)
		}
	})
}
