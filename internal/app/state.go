package app

import "sync"

// КОНСТАНТЫ СОСТОЯНИЙ
const (
	STATE_IDLE          = ""
	STATE_WAITING_NAME  = "waiting_name"
	STATE_WAITING_MEDIA = "waiting_media"
	STATE_PREVIEW       = "preview_submission"

	// Состояния настроек турнира (только админ)
	STATE_WAITING_VOTES = "waiting_votes_count"
	STATE_WAITING_TIME  = "waiting_tournament_time"
)

// SubmissionDraft — черновик диалога. Живет только в памяти,
// перезапуск бота сбрасывает диалоги. Для заявки хранит имя и медиа,
// для настройки турнира — введенный на первом шаге порог голосов.
type SubmissionDraft struct {
	Name             string
	FileID           string
	MediaKind        string
	PreviewChatID    int64
	PreviewMessageID int
	VotesCount       int
}

var (
	userStates   = make(map[int64]string)
	userStatesMu sync.Mutex

	drafts   = make(map[int64]*SubmissionDraft)
	draftsMu sync.Mutex
)

func getUserState(userID int64) string {
	userStatesMu.Lock()
	defer userStatesMu.Unlock()
	return userStates[userID]
}

func setUserState(userID int64, state string) {
	userStatesMu.Lock()
	defer userStatesMu.Unlock()
	if state == STATE_IDLE {
		delete(userStates, userID)
		return
	}
	userStates[userID] = state
}

func getDraft(userID int64) (*SubmissionDraft, bool) {
	draftsMu.Lock()
	defer draftsMu.Unlock()
	d, ok := drafts[userID]
	return d, ok
}

func startDraft(userID int64) *SubmissionDraft {
	draftsMu.Lock()
	defer draftsMu.Unlock()
	d := &SubmissionDraft{}
	drafts[userID] = d
	return d
}

func withDraft(userID int64, fn func(d *SubmissionDraft)) bool {
	draftsMu.Lock()
	defer draftsMu.Unlock()
	d, ok := drafts[userID]
	if !ok {
		return false
	}
	fn(d)
	return true
}

func clearDraft(userID int64) {
	draftsMu.Lock()
	defer draftsMu.Unlock()
	delete(drafts, userID)
}

// resetConversation возвращает пользователя в начало диалога.
func resetConversation(userID int64) {
	setUserState(userID, STATE_IDLE)
	clearDraft(userID)
}
