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
// ГОЛОСОВАНИЕ
// ==========================================

func HandleVote(c tele.Context) error {
	userID := c.Sender().ID

	if allowed, reason := accessPolicy(userID); !allowed {
		return sendSubscribePrompt(c, reason)
	}

	cfg, err := contestManager.GetTournament()
	if err != nil {
		log.Printf("❌ Ошибка чтения настроек турнира: %v", err)
		return c.Send("Что-то пошло не так. Попробуйте позже.")
	}
	if !cfg.IsActive {
		return c.Send("Турнир сейчас не идет. Следите за анонсами!")
	}
	return sendVotingPair(c)
}

func contestantCard(ct *Contestant) string {
	return fmt.Sprintf("<b>%s</b>\n❤️ Голосов: %d", html.EscapeString(ct.Name), ct.Votes)
}

func buildVoteMenu(id uint) *tele.ReplyMarkup {
	m := &tele.ReplyMarkup{}
	btn := m.Data("❤️ Голосовать", fmt.Sprintf("vote_%d", id))
	m.Inline(m.Row(btn))
	return m
}

// sendVotingPair показывает до двух случайных участниц, за которых
// пользователь еще не голосовал. Одна оставшаяся — тоже показывается.
func sendVotingPair(c tele.Context) error {
	userID := c.Sender().ID
	pair := contestManager.RandomPairFor(userID)
	if len(pair) == 0 {
		return c.Send("Вы проголосовали за всех участниц! Ожидайте результатов. 🏆")
	}

	for i := range pair {
		ct := pair[i]
		if err := sendContestantCard(c, &ct, buildVoteMenu(ct.ID)); err != nil {
			log.Printf("⚠️ Не удалось отправить карточку участницы #%d: %v", ct.ID, err)
		}
	}
	return nil
}

func sendContestantCard(c tele.Context, ct *Contestant, menu *tele.ReplyMarkup) error {
	caption := contestantCard(ct)
	var err error
	if ct.MediaKind == MediaVideo {
		video := &tele.Video{File: tele.File{FileID: ct.FileID}, Caption: caption}
		if menu != nil {
			_, err = c.Bot().Send(c.Chat(), video, menu, tele.ModeHTML)
		} else {
			_, err = c.Bot().Send(c.Chat(), video, tele.ModeHTML)
		}
	} else {
		photo := &tele.Photo{File: tele.File{FileID: ct.FileID}, Caption: caption}
		if menu != nil {
			_, err = c.Bot().Send(c.Chat(), photo, menu, tele.ModeHTML)
		} else {
			_, err = c.Bot().Send(c.Chat(), photo, tele.ModeHTML)
		}
	}
	return err
}

// handleVoteCallback учитывает голос и при достижении порога завершает турнир.
func handleVoteCallback(c tele.Context, contestantID uint) error {
	userID := c.Sender().ID

	if allowed, reason := accessPolicy(userID); !allowed {
		return sendSubscribePrompt(c, reason)
	}

	count, err := contestManager.RecordVote(userID, contestantID)
	if err != nil {
		switch {
		case errors.Is(err, ErrAlreadyVoted):
			return c.Respond(&tele.CallbackResponse{Text: "Вы уже голосовали за эту участницу"})
		case errors.Is(err, ErrNoActiveTournament):
			return c.Respond(&tele.CallbackResponse{Text: "Турнир сейчас не идет"})
		case errors.Is(err, ErrNotFound):
			return c.Respond(&tele.CallbackResponse{Text: "Участница больше не участвует"})
		default:
			log.Printf("❌ Ошибка записи голоса %d -> %d: %v", userID, contestantID, err)
			return c.Respond(&tele.CallbackResponse{Text: "Ошибка. Попробуйте еще раз"})
		}
	}

	c.Respond(&tele.CallbackResponse{Text: fmt.Sprintf("Голос учтен! Всего: %d ❤️", count)})

	cfg, err := contestManager.GetTournament()
	if err == nil && cfg.IsActive && count >= cfg.RequiredVotes {
		finishTournament(c.Bot(), cfg)
		return c.Send("Турнир завершен! Победительница определена. 🏆")
	}

	// Следующая пара, пока есть за кого голосовать
	return sendVotingPair(c)
}

// ==========================================
// ЖИЗНЕННЫЙ ЦИКЛ ТУРНИРА
// ==========================================

func startTournament(c tele.Context) error {
	cfg, err := contestManager.ActivateTournament()
	if err != nil {
		switch {
		case errors.Is(err, ErrTournamentActive):
			return c.Respond(&tele.CallbackResponse{Text: "Турнир уже идет"})
		case errors.Is(err, ErrNotEnoughContestants):
			return c.Respond(&tele.CallbackResponse{Text: "Нужно минимум 2 участницы"})
		default:
			log.Printf("❌ Ошибка запуска турнира: %v", err)
			return c.Respond(&tele.CallbackResponse{Text: "Ошибка запуска"})
		}
	}

	log.Printf("🚀 Турнир запущен: порог %d голосов, длительность %d ч.", cfg.RequiredVotes, cfg.DurationHours)
	text := fmt.Sprintf("🚀 <b>Турнир запущен!</b>\n\nУчастниц: %d\nПорог победы: %d голосов\nДлительность: %d ч.",
		contestManager.CountApproved(), cfg.RequiredVotes, cfg.DurationHours)
	return tryEdit(c, text, buildTournamentMenu(true), tele.ModeHTML)
}

func stopTournament(c tele.Context) error {
	cfg, err := contestManager.DeactivateTournament()
	if err != nil {
		if errors.Is(err, ErrNoActiveTournament) {
			return c.Respond(&tele.CallbackResponse{Text: "Турнир и так не идет"})
		}
		log.Printf("❌ Ошибка остановки турнира: %v", err)
		return c.Respond(&tele.CallbackResponse{Text: "Ошибка остановки"})
	}

	log.Println("⏹ Турнир остановлен вручную.")
	text := fmt.Sprintf("⏹ <b>Турнир остановлен.</b>\n\nУчастниц: %d\nВсего голосов: %d\nПорог был: %d",
		contestManager.CountApproved(), contestManager.TotalVotes(), cfg.RequiredVotes)
	return tryEdit(c, text, buildTournamentMenu(false), tele.ModeHTML)
}

// finishTournament выключает турнир и объявляет победительницу.
// Повторный вызов безопасен: второй DeactivateTournament вернет ошибку.
func finishTournament(bot *tele.Bot, cfg *TournamentConfig) {
	if _, err := contestManager.DeactivateTournament(); err != nil {
		if !errors.Is(err, ErrNoActiveTournament) {
			log.Printf("❌ Ошибка завершения турнира: %v", err)
		}
		return
	}

	winner, err := contestManager.LeadingContestant()
	if err != nil {
		log.Printf("❌ Турнир завершен, но победительница не найдена: %v", err)
		return
	}
	log.Printf("🏆 Победительница: #%d %s (%d голосов)", winner.ID, winner.Name, winner.Votes)
	announceWinner(bot, winner, cfg)
}

func announceWinner(bot *tele.Bot, winner *Contestant, cfg *TournamentConfig) {
	caption := fmt.Sprintf("🏆 <b>Победительница турнира!</b>\n\n<b>%s</b>\n❤️ Голосов: %d (порог %d)",
		html.EscapeString(winner.Name), winner.Votes, cfg.RequiredVotes)
	for _, adminID := range getAdmins() {
		adminID := adminID
		safeGo("announce-winner", func() {
			recipient := &tele.User{ID: adminID}
			err := sendWithRetry(3, 500*time.Millisecond, func() error {
				var err error
				if winner.MediaKind == MediaVideo {
					video := &tele.Video{File: tele.File{FileID: winner.FileID}, Caption: caption}
					_, err = bot.Send(recipient, video, tele.ModeHTML)
				} else {
					photo := &tele.Photo{File: tele.File{FileID: winner.FileID}, Caption: caption}
					_, err = bot.Send(recipient, photo, tele.ModeHTML)
				}
				return err
			})
			if err != nil {
				log.Printf("⚠️ Не удалось отправить итоги админу %d: %v", adminID, err)
			}
		})
	}
}

// ==========================================
// ТОП УЧАСТНИЦ
// ==========================================

var medals = []string{"🥇", "🥈", "🥉"}

func HandleTop(c tele.Context) error {
	top := contestManager.ListContestants(true, 3)
	if len(top) == 0 {
		return c.Send("Пока нет ни одной участницы. Предложите свою: /propose")
	}

	if err := c.Send("🏅 <b>Доска почета</b>", tele.ModeHTML); err != nil {
		return err
	}
	for i := range top {
		ct := top[i]
		medal := ""
		if i < len(medals) {
			medal = medals[i] + " "
		}
		caption := fmt.Sprintf("%s<b>%s</b>\n❤️ Голосов: %d", medal, html.EscapeString(ct.Name), ct.Votes)
		var err error
		if ct.MediaKind == MediaVideo {
			video := &tele.Video{File: tele.File{FileID: ct.FileID}, Caption: caption}
			_, err = c.Bot().Send(c.Chat(), video, tele.ModeHTML)
		} else {
			photo := &tele.Photo{File: tele.File{FileID: ct.FileID}, Caption: caption}
			_, err = c.Bot().Send(c.Chat(), photo, tele.ModeHTML)
		}
		if err != nil {
			log.Printf("⚠️ Не удалось отправить карточку топа #%d: %v", ct.ID, err)
		}
	}
	return nil
}
