package app

import "testing"

func TestUserStateTransitions(t *testing.T) {
	const userID = int64(101)
	defer resetConversation(userID)

	if got := getUserState(userID); got != STATE_IDLE {
		t.Fatalf("начальное состояние = %q; want IDLE", got)
	}
	setUserState(userID, STATE_WAITING_NAME)
	if got := getUserState(userID); got != STATE_WAITING_NAME {
		t.Fatalf("состояние = %q; want %q", got, STATE_WAITING_NAME)
	}
	setUserState(userID, STATE_IDLE)
	if got := getUserState(userID); got != STATE_IDLE {
		t.Fatalf("после сброса состояние = %q; want IDLE", got)
	}

	userStatesMu.Lock()
	_, exists := userStates[userID]
	userStatesMu.Unlock()
	if exists {
		t.Fatal("сброс в IDLE должен удалять запись из карты")
	}
}

func TestDraftLifecycle(t *testing.T) {
	const userID = int64(202)
	defer resetConversation(userID)

	if _, ok := getDraft(userID); ok {
		t.Fatal("черновика еще нет")
	}
	if withDraft(userID, func(d *SubmissionDraft) { d.Name = "x" }) {
		t.Fatal("withDraft без черновика должен вернуть false")
	}

	startDraft(userID)
	if !withDraft(userID, func(d *SubmissionDraft) {
		d.Name = "Анна"
		d.FileID = "file123"
		d.MediaKind = MediaPhoto
	}) {
		t.Fatal("withDraft не нашел созданный черновик")
	}

	d, ok := getDraft(userID)
	if !ok || d.Name != "Анна" || d.FileID != "file123" {
		t.Fatalf("черновик не сохранил данные: %+v", d)
	}

	// Повторный старт начинает с чистого листа
	startDraft(userID)
	d, _ = getDraft(userID)
	if d.Name != "" || d.FileID != "" {
		t.Fatalf("повторный startDraft должен сбросить черновик: %+v", d)
	}

	clearDraft(userID)
	if _, ok := getDraft(userID); ok {
		t.Fatal("черновик должен быть удален")
	}
}
