package app

import (
	"errors"
	"testing"
	"time"

	tele "gopkg.in/telebot.v3"
)

// fakeTeleContext покрывает минимум методов tele.Context, которые
// дергают хендлеры. Остальное закрывает встроенный nil-интерфейс.
type fakeTeleContext struct {
	tele.Context
	sender *tele.User
	text   string
	sent   []string
	toasts []string
}

func (f *fakeTeleContext) Sender() *tele.User { return f.sender }
func (f *fakeTeleContext) Text() string       { return f.text }
func (f *fakeTeleContext) Bot() *tele.Bot     { return nil }

func (f *fakeTeleContext) Send(what interface{}, opts ...interface{}) error {
	if s, ok := what.(string); ok {
		f.sent = append(f.sent, s)
	}
	return nil
}

func (f *fakeTeleContext) Respond(resp ...*tele.CallbackResponse) error {
	for _, r := range resp {
		f.toasts = append(f.toasts, r.Text)
	}
	return nil
}

func useTestManager(t *testing.T) *ContestManager {
	t.Helper()
	prev := contestManager
	cm := newTestManager(t)
	contestManager = cm
	t.Cleanup(func() { contestManager = prev })
	return cm
}

// Ввод порога голосов не завершает настройку, а переводит админа
// к вводу длительности; оба значения применяются на втором шаге.
func TestSettingsInputChain(t *testing.T) {
	useTestManager(t)
	const adminID = int64(900)
	t.Cleanup(func() { resetConversation(adminID) })

	startDraft(adminID)
	setUserState(adminID, STATE_WAITING_VOTES)

	step1 := &fakeTeleContext{sender: &tele.User{ID: adminID}, text: "5"}
	if err := handleVotesCountInput(step1); err != nil {
		t.Fatalf("handleVotesCountInput: %v", err)
	}
	if got := getUserState(adminID); got != STATE_WAITING_TIME {
		t.Fatalf("после ввода порога состояние = %q; want %q", got, STATE_WAITING_TIME)
	}
	d, ok := getDraft(adminID)
	if !ok || d.VotesCount != 5 {
		t.Fatalf("порог не запомнен в черновике: %+v", d)
	}

	step2 := &fakeTeleContext{sender: &tele.User{ID: adminID}, text: "48"}
	if err := handleTournamentTimeInput(step2); err != nil {
		t.Fatalf("handleTournamentTimeInput: %v", err)
	}
	if got := getUserState(adminID); got != STATE_IDLE {
		t.Fatalf("после второго шага состояние = %q; want IDLE", got)
	}
	if _, ok := getDraft(adminID); ok {
		t.Fatal("черновик настроек должен быть очищен")
	}

	cfg, err := contestManager.GetTournament()
	if err != nil {
		t.Fatalf("GetTournament: %v", err)
	}
	if cfg.RequiredVotes != 5 || cfg.DurationHours != 48 {
		t.Fatalf("настройки = %d/%d; want 5/48", cfg.RequiredVotes, cfg.DurationHours)
	}
}

// Некорректный ввод не двигает цепочку и не трогает настройки.
func TestSettingsInputChainRejectsBadValues(t *testing.T) {
	useTestManager(t)
	const adminID = int64(901)
	t.Cleanup(func() { resetConversation(adminID) })

	startDraft(adminID)
	setUserState(adminID, STATE_WAITING_VOTES)

	for _, text := range []string{"abc", "0", "1001"} {
		c := &fakeTeleContext{sender: &tele.User{ID: adminID}, text: text}
		if err := handleVotesCountInput(c); err != nil {
			t.Fatalf("handleVotesCountInput(%q): %v", text, err)
		}
		if got := getUserState(adminID); got != STATE_WAITING_VOTES {
			t.Fatalf("после %q состояние = %q; want %q", text, got, STATE_WAITING_VOTES)
		}
	}

	cfg, _ := contestManager.GetTournament()
	if cfg.RequiredVotes != defaultRequiredVotes {
		t.Fatalf("порог изменился на %d без валидного ввода", cfg.RequiredVotes)
	}
}

// Кнопка "Длительность" ведет сразу ко второму шагу: применяется
// только длительность, порог остается прежним.
func TestDurationOnlyInput(t *testing.T) {
	useTestManager(t)
	const adminID = int64(902)
	t.Cleanup(func() { resetConversation(adminID) })

	setUserState(adminID, STATE_WAITING_TIME)
	c := &fakeTeleContext{sender: &tele.User{ID: adminID}, text: "72"}
	if err := handleTournamentTimeInput(c); err != nil {
		t.Fatalf("handleTournamentTimeInput: %v", err)
	}
	if got := getUserState(adminID); got != STATE_IDLE {
		t.Fatalf("состояние = %q; want IDLE", got)
	}

	cfg, _ := contestManager.GetTournament()
	if cfg.RequiredVotes != defaultRequiredVotes || cfg.DurationHours != 72 {
		t.Fatalf("настройки = %d/%d; want %d/72", cfg.RequiredVotes, cfg.DurationHours, defaultRequiredVotes)
	}
}

// "Отмена", набранная текстом на шаге имени, прерывает диалог,
// а не сохраняется как имя участницы.
func TestCancelTextOnNameStep(t *testing.T) {
	const userID = int64(303)
	t.Cleanup(func() { resetConversation(userID) })

	startDraft(userID)
	setUserState(userID, STATE_WAITING_NAME)

	c := &fakeTeleContext{sender: &tele.User{ID: userID}, text: "Отмена"}
	if err := handleSuggestName(c); err != nil {
		t.Fatalf("handleSuggestName: %v", err)
	}
	if got := getUserState(userID); got != STATE_IDLE {
		t.Fatalf("после отмены состояние = %q; want IDLE", got)
	}
	if d, ok := getDraft(userID); ok {
		t.Fatalf("черновик должен быть удален, а не заполнен: %+v", d)
	}
}

func TestIsCancelText(t *testing.T) {
	for _, s := range []string{"отмена", "Отмена", " ОТМЕНА ", "❌ отмена", "/cancel", "cancel"} {
		if !isCancelText(s) {
			t.Errorf("isCancelText(%q) = false; want true", s)
		}
	}
	for _, s := range []string{"Анна", "отмена заявки", "не отмена"} {
		if isCancelText(s) {
			t.Errorf("isCancelText(%q) = true; want false", s)
		}
	}
}

// /cancel работает в любом состоянии диалога.
func TestHandleCancelResetsAnyState(t *testing.T) {
	const userID = int64(304)
	t.Cleanup(func() { resetConversation(userID) })

	for _, state := range []string{STATE_WAITING_NAME, STATE_WAITING_MEDIA, STATE_WAITING_VOTES, STATE_WAITING_TIME} {
		startDraft(userID)
		setUserState(userID, state)
		c := &fakeTeleContext{sender: &tele.User{ID: userID}}
		if err := HandleCancel(c); err != nil {
			t.Fatalf("HandleCancel из %q: %v", state, err)
		}
		if got := getUserState(userID); got != STATE_IDLE {
			t.Fatalf("после /cancel из %q состояние = %q", state, got)
		}
	}
}

func TestSendWithRetry(t *testing.T) {
	calls := 0
	err := sendWithRetry(3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return errors.New("temporary")
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Fatalf("sendWithRetry = %v после %d попыток; want nil после 3", err, calls)
	}

	calls = 0
	wantErr := errors.New("permanent")
	err = sendWithRetry(2, time.Millisecond, func() error {
		calls++
		return wantErr
	})
	if !errors.Is(err, wantErr) || calls != 2 {
		t.Fatalf("sendWithRetry = %v после %d попыток; want permanent после 2", err, calls)
	}
}

// Голос, добирающий порог, сам выключает турнир и объявляет итоги.
func TestVoteCallbackFinishesAtThreshold(t *testing.T) {
	cm := useTestManager(t)

	prevAdmins := config.AdminIDs
	config.AdminIDs = nil
	t.Cleanup(func() { config.AdminIDs = prevAdmins })

	anna := addContestant(t, cm, "Анна")
	addContestant(t, cm, "Мария")
	if err := cm.UpdateRequiredVotes(2); err != nil {
		t.Fatalf("UpdateRequiredVotes: %v", err)
	}
	if _, err := cm.ActivateTournament(); err != nil {
		t.Fatalf("ActivateTournament: %v", err)
	}
	if _, err := cm.RecordVote(1, anna.ID); err != nil {
		t.Fatalf("RecordVote: %v", err)
	}

	// Второй голос приходит через колбэк и добирает порог
	c := &fakeTeleContext{sender: &tele.User{ID: 2}}
	if err := handleVoteCallback(c, anna.ID); err != nil {
		t.Fatalf("handleVoteCallback: %v", err)
	}

	cfg, err := cm.GetTournament()
	if err != nil {
		t.Fatalf("GetTournament: %v", err)
	}
	if cfg.IsActive {
		t.Fatal("турнир должен завершиться при достижении порога")
	}
	if len(c.sent) == 0 {
		t.Fatal("пользователь не получил сообщение о завершении турнира")
	}

	// После автозавершения голоса не принимаются, итоги сохранены
	if _, err := cm.RecordVote(3, anna.ID); !errors.Is(err, ErrNoActiveTournament) {
		t.Fatalf("RecordVote после завершения: %v; want ErrNoActiveTournament", err)
	}
	winner, err := cm.LeadingContestant()
	if err != nil || winner.ID != anna.ID || winner.Votes != 2 {
		t.Fatalf("LeadingContestant = %+v,%v; want #%d с 2 голосами", winner, err, anna.ID)
	}
}
