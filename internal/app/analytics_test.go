package app

import "testing"

func TestRenderVotesChart(t *testing.T) {
	if _, err := renderVotesChart(nil); err == nil {
		t.Fatal("пустой список должен давать ошибку")
	}
	if _, err := renderVotesChart([]Contestant{{Name: "Анна", Votes: 0}}); err == nil {
		t.Fatal("нулевые голоса должны давать ошибку")
	}

	img, err := renderVotesChart([]Contestant{
		{Name: "Анна", Votes: 5},
		{Name: "Мария", Votes: 3},
		{Name: "Очень Длинное Имя Участницы", Votes: 1},
	})
	if err != nil {
		t.Fatalf("renderVotesChart: %v", err)
	}
	if len(img) == 0 {
		t.Fatal("пустой PNG")
	}
	// Сигнатура PNG
	if img[0] != 0x89 || img[1] != 'P' || img[2] != 'N' || img[3] != 'G' {
		t.Fatalf("не PNG: % x", img[:4])
	}
}

func TestFormatHelpers(t *testing.T) {
	if got := shorten("абвгде", 3); got != "абв..." {
		t.Fatalf("shorten = %q", got)
	}
	if got := shorten("аб", 3); got != "аб" {
		t.Fatalf("shorten = %q", got)
	}
	if got := formatBytes(2 * 1024 * 1024); got != "2.00 MB" {
		t.Fatalf("formatBytes = %q", got)
	}
}
