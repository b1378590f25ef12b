package app

import (
	"fmt"
	"html"
	"log"
	"regexp"
	"strings"
	"unicode/utf8"

	tele "gopkg.in/telebot.v3"
)

// Имя: буквы любого алфавита, цифры, пробел и дефис.
var nameRegex = regexp.MustCompile(`^[\p{L}\p{N} -]+$`)

const (
	nameMinLen = 2
	nameMaxLen = 50
)

func validateContestantName(name string) (string, bool, string) {
	name = strings.TrimSpace(name)
	n := utf8.RuneCountInString(name)
	switch {
	case n < nameMinLen:
		return "", false, fmt.Sprintf("Имя слишком короткое (минимум %d символа).", nameMinLen)
	case n > nameMaxLen:
		return "", false, fmt.Sprintf("Имя слишком длинное (максимум %d символов).", nameMaxLen)
	case !nameRegex.MatchString(name):
		return "", false, "Имя содержит недопустимые символы. Разрешены буквы, цифры, пробел и дефис."
	}
	return name, true, ""
}

// isCancelText распознает отмену, набранную текстом вместо кнопки.
// "Отмена" проходит проверку имени, поэтому разбираем ее до валидации.
func isCancelText(s string) bool {
	t := strings.ToLower(strings.TrimSpace(s))
	t = strings.TrimSpace(strings.TrimPrefix(t, "❌"))
	return t == "отмена" || t == "cancel" || t == "/cancel"
}

// ==========================================
// ДИАЛОГ ПРЕДЛОЖЕНИЯ
// ==========================================

// HandleCancel прерывает любой диалог: заявку на любом шаге или
// ввод настроек турнира.
func HandleCancel(c tele.Context) error {
	userID := c.Sender().ID
	if getUserState(userID) == STATE_IDLE {
		return c.Send("Сейчас нечего отменять.", userMenuFor(userID))
	}
	deletePreview(c, userID)
	resetConversation(userID)
	return c.Send("Действие отменено.", userMenuFor(userID))
}

func HandleStartSuggest(c tele.Context) error {
	userID := c.Sender().ID
	startDraft(userID)
	setUserState(userID, STATE_WAITING_NAME)
	return c.Send("Как зовут участницу?\nВведите имя (2-50 символов):", cancelSuggestMenu, tele.ModeHTML)
}

func handleSuggestName(c tele.Context) error {
	userID := c.Sender().ID
	if isCancelText(c.Text()) {
		return HandleCancel(c)
	}
	name, ok, reason := validateContestantName(c.Text())
	if !ok {
		// Состояние не меняем, ждем корректное имя
		return c.Send(reason+"\nПопробуйте еще раз:", cancelSuggestMenu, tele.ModeHTML)
	}
	if !withDraft(userID, func(d *SubmissionDraft) { d.Name = name }) {
		log.Printf("⚠️ Потерян черновик пользователя %d на шаге имени", userID)
		resetConversation(userID)
		return c.Send("Диалог был сброшен. Начните заново: /propose")
	}
	if d, _ := getDraft(userID); d != nil && d.FileID != "" {
		// Возврат с превью: медиа уже есть, имя исправлено
		setUserState(userID, STATE_PREVIEW)
		return sendPreview(c, userID)
	}
	setUserState(userID, STATE_WAITING_MEDIA)
	return c.Send("Теперь пришлите фото или видео участницы:", cancelSuggestMenu, tele.ModeHTML)
}

func handleSuggestMedia(c tele.Context) error {
	userID := c.Sender().ID
	msg := c.Message()
	if msg == nil {
		return nil
	}

	var fileID, kind string
	switch {
	case msg.Photo != nil:
		fileID = msg.Photo.FileID
		kind = MediaPhoto
	case msg.Video != nil:
		fileID = msg.Video.FileID
		kind = MediaVideo
	default:
		return c.Send("Нужно фото или видео. Пришлите медиафайл:", cancelSuggestMenu, tele.ModeHTML)
	}

	if !withDraft(userID, func(d *SubmissionDraft) {
		d.FileID = fileID
		d.MediaKind = kind
	}) {
		log.Printf("⚠️ Потерян черновик пользователя %d на шаге медиа", userID)
		resetConversation(userID)
		return c.Send("Диалог был сброшен. Начните заново: /propose")
	}
	setUserState(userID, STATE_PREVIEW)
	return sendPreview(c, userID)
}

func buildPreviewMenu() *tele.ReplyMarkup {
	m := &tele.ReplyMarkup{}
	btnEditName := m.Data("✏️ Изменить имя", "edit_name")
	btnEditMedia := m.Data("🖼 Заменить медиа", "edit_media")
	btnSend := m.Data("✅ Отправить", "send_proposal")
	btnCancel := m.Data("❌ Отменить", "cancel_proposal")
	m.Inline(
		m.Row(btnEditName, btnEditMedia),
		m.Row(btnSend),
		m.Row(btnCancel),
	)
	return m
}

func sendPreview(c tele.Context, userID int64) error {
	d, ok := getDraft(userID)
	if !ok || d.Name == "" || d.FileID == "" {
		log.Printf("⚠️ Неполный черновик пользователя %d при показе превью", userID)
		resetConversation(userID)
		return c.Send("Диалог был сброшен. Начните заново: /propose")
	}

	caption := fmt.Sprintf("<b>Проверьте заявку</b>\n\nИмя: <b>%s</b>\n\nВсе верно?", html.EscapeString(d.Name))
	var sent *tele.Message
	var err error
	if d.MediaKind == MediaVideo {
		video := &tele.Video{File: tele.File{FileID: d.FileID}, Caption: caption}
		sent, err = c.Bot().Send(c.Chat(), video, buildPreviewMenu(), tele.ModeHTML)
	} else {
		photo := &tele.Photo{File: tele.File{FileID: d.FileID}, Caption: caption}
		sent, err = c.Bot().Send(c.Chat(), photo, buildPreviewMenu(), tele.ModeHTML)
	}
	if err != nil {
		log.Printf("⚠️ Не удалось отправить превью пользователю %d: %v", userID, err)
		return c.Send("Не удалось показать превью. Пришлите медиа еще раз:", cancelSuggestMenu, tele.ModeHTML)
	}
	withDraft(userID, func(d *SubmissionDraft) {
		d.PreviewChatID = sent.Chat.ID
		d.PreviewMessageID = sent.ID
	})
	return nil
}

// deletePreview убирает карточку превью. Ошибка не критична,
// сообщение могло быть уже удалено.
func deletePreview(c tele.Context, userID int64) {
	d, ok := getDraft(userID)
	if !ok || d.PreviewMessageID == 0 {
		return
	}
	msg := tele.StoredMessage{MessageID: fmt.Sprint(d.PreviewMessageID), ChatID: d.PreviewChatID}
	if err := c.Bot().Delete(msg); err != nil {
		log.Printf("⚠️ Не удалось удалить превью пользователя %d: %v", userID, err)
	}
}

func handlePreviewEditName(c tele.Context) error {
	userID := c.Sender().ID
	if getUserState(userID) != STATE_PREVIEW {
		return c.Respond(&tele.CallbackResponse{Text: "Действие недоступно"})
	}
	deletePreview(c, userID)
	setUserState(userID, STATE_WAITING_NAME)
	return c.Send("Введите новое имя:", cancelSuggestMenu, tele.ModeHTML)
}

func handlePreviewEditMedia(c tele.Context) error {
	userID := c.Sender().ID
	if getUserState(userID) != STATE_PREVIEW {
		return c.Respond(&tele.CallbackResponse{Text: "Действие недоступно"})
	}
	deletePreview(c, userID)
	setUserState(userID, STATE_WAITING_MEDIA)
	return c.Send("Пришлите новое фото или видео:", cancelSuggestMenu, tele.ModeHTML)
}

func handlePreviewSend(c tele.Context) error {
	userID := c.Sender().ID
	if getUserState(userID) != STATE_PREVIEW {
		return c.Respond(&tele.CallbackResponse{Text: "Действие недоступно"})
	}
	d, ok := getDraft(userID)
	if !ok || d.Name == "" || d.FileID == "" {
		log.Printf("⚠️ Потерян черновик пользователя %d при подтверждении", userID)
		resetConversation(userID)
		return c.Send("Диалог был сброшен. Начните заново: /propose")
	}

	sug := &Suggestion{
		Name:        d.Name,
		FileID:      d.FileID,
		MediaKind:   d.MediaKind,
		SuggestedBy: userID,
	}
	if err := contestManager.CreateSuggestion(sug); err != nil {
		log.Printf("❌ Ошибка сохранения заявки от %d: %v", userID, err)
		// Состояние не сбрасываем: пользователь может нажать "Отправить" еще раз
		return c.Send("Не удалось сохранить заявку. Попробуйте еще раз.")
	}

	deletePreview(c, userID)
	resetConversation(userID)
	notifyAdminsAboutSuggestion(c.Bot(), sug)
	log.Printf("✅ Новая заявка #%d от %d: %s", sug.ID, userID, sug.Name)
	return c.Send("Благодарю! Заявка отправлена на рассмотрение.", userMenuFor(userID))
}

func handlePreviewCancel(c tele.Context) error {
	userID := c.Sender().ID
	deletePreview(c, userID)
	resetConversation(userID)
	return c.Send("Заявка отменена.", userMenuFor(userID))
}
