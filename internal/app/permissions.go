package app

import (
	tele "gopkg.in/telebot.v3"
)

func isAdmin(id int64) bool {
	for _, a := range config.AdminIDs {
		if a == id {
			return true
		}
	}
	return false
}

func getAdmins() []int64 {
	out := make([]int64, len(config.AdminIDs))
	copy(out, config.AdminIDs)
	return out
}

// accessPolicy решает, пускать ли пользователя к голосованию.
// Сейчас проверка подписки отключена и доступ открыт всем,
// но интерфейс с кнопкой подписки сохранен.
var accessPolicy = func(userID int64) (bool, string) {
	return true, ""
}

func sendSubscribePrompt(c tele.Context, reason string) error {
	m := &tele.ReplyMarkup{}
	btnCheck := m.Data("✅ Я подписался", "check_subscription")
	if config.ChannelURL != "" {
		btnChannel := m.URL("📢 Подписаться на канал", config.ChannelURL)
		m.Inline(m.Row(btnChannel), m.Row(btnCheck))
	} else {
		m.Inline(m.Row(btnCheck))
	}
	text := "Для участия в голосовании подпишитесь на наш канал."
	if reason != "" {
		text = reason
	}
	return c.Send(text, m)
}

func handleSubscriptionCheck(c tele.Context) error {
	allowed, reason := accessPolicy(c.Sender().ID)
	if !allowed {
		return sendSubscribePrompt(c, reason)
	}
	c.Respond(&tele.CallbackResponse{Text: "Доступ открыт!"})
	return sendVotingPair(c)
}
