package notifier

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"Stackstarter/internal/model"
)

func TestFormatSTX(t *testing.T) {
	tests := []struct {
		micro *big.Int
		want  string
	}{
		{big.NewInt(20000), "0.02 STX"},
		{big.NewInt(1000000), "1 STX"},
		{big.NewInt(1), "0.000001 STX"},
		{new(big.Int), "0 STX"},
		{nil, "0 STX"},
	}
	for _, tt := range tests {
		if got := FormatSTX(tt.micro); got != tt.want {
			t.Errorf("FormatSTX(%v) = %q, want %q", tt.micro, got, tt.want)
		}
	}
}

func TestParseSTX(t *testing.T) {
	n, err := ParseSTX("1.5")
	if err != nil || n.Int64() != 1500000 {
		t.Errorf("ParseSTX(1.5) = %v, %v", n, err)
	}
	if _, err := ParseSTX("0.0000001"); err == nil {
		t.Error("expected error for sub-micro amount")
	}
	if _, err := ParseSTX("abc"); err == nil {
		t.Error("expected parse error")
	}
}

func testSnapshot() *model.CampaignSnapshot {
	return &model.CampaignSnapshot{
		Campaign: &model.Campaign{
			ID: 3, Name: "Solar <kit>", Fundraiser: "ST1PQHQKV0RJXZFY1DGX8MNSNYVE3VGZJSRTPGZGM",
			Goal: big.NewInt(50000), TargetBlockHeight: 120,
		},
		Information: &model.CampaignInformation{Description: "panels", Link: "https://example.org"},
		Status:      &model.CampaignStatus{},
		Totals:      &model.Totals{TotalInvestment: big.NewInt(30000), TotalInvestors: big.NewInt(2)},
		Tiers: []model.Tier{{ID: 1, Name: "bronze", Cost: big.NewInt(10000),
			Totals: &model.Totals{TotalInvestment: big.NewInt(10000), TotalInvestors: big.NewInt(1)}}},
		Height: 100,
		Stage:  model.StageActive,
	}
}

func TestFormatSnapshot(t *testing.T) {
	msg := FormatSnapshot(testSnapshot())
	for _, want := range []string{
		"#3 Solar &lt;kit&gt;", "ACTIVE", "0.03 STX / 0.05 STX (60.0%)", "Investors: 2",
		"20 blocks left", "1. bronze: 0.01 STX (1 investors)",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("snapshot message missing %q:\n%s", want, msg)
		}
	}
}

func TestFormatTransitionAndList(t *testing.T) {
	snap := testSnapshot()
	msg := FormatTransition(&model.Transition{CampaignID: 3, From: model.StageActive, To: model.StageExpired, Height: 120}, snap)
	if !strings.Contains(msg, "ACTIVE → EXPIRED at block 120") || !strings.Contains(msg, "refund") {
		t.Errorf("unexpected transition message %q", msg)
	}
	list := FormatCampaignList([]*model.CampaignSnapshot{snap})
	if !strings.Contains(list, "(1)") || !strings.Contains(list, "0.03 STX of 0.05 STX") {
		t.Errorf("unexpected list %q", list)
	}
	if FormatCampaignList(nil) != "No campaigns yet." {
		t.Error("empty list message")
	}
}

type fakeTelegram struct {
	mu           sync.Mutex
	sent         []string
	failures     int
	reject       string
	pollFailures int
	updates      []telegramUpdate
	polled       int
}

func (f *fakeTelegram) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		switch {
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			if f.failures > 0 {
				f.failures--
				http.Error(w, "flood", http.StatusTooManyRequests)
				return
			}
			if f.reject != "" {
				json.NewEncoder(w).Encode(map[string]any{"ok": false, "description": f.reject})
				return
			}
			var body map[string]string
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("decode send body: %v", err)
			}
			if body["chat_id"] != "42" || body["parse_mode"] != "HTML" {
				t.Errorf("unexpected send body %v", body)
			}
			f.sent = append(f.sent, body["text"])
			w.Write([]byte(`{"ok":true}`))
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			f.polled++
			if f.pollFailures > 0 {
				f.pollFailures--
				http.Error(w, "bad gateway", http.StatusBadGateway)
				return
			}
			json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": f.updates})
			f.updates = nil
		default:
			http.NotFound(w, r)
		}
	})
}

func newTestNotifier(t *testing.T, fake *fakeTelegram) *TelegramNotifier {
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)
	n := NewTelegramNotifier("token", "42", "")
	n.APIBase = srv.URL
	n.RetryBase = time.Millisecond
	return n
}

func TestSendWithRetry(t *testing.T) {
	fake := &fakeTelegram{failures: 2}
	n := newTestNotifier(t, fake)
	if err := n.SendWithRetry(context.Background(), "hello", 3); err != nil {
		t.Fatalf("SendWithRetry: %v", err)
	}
	fake.mu.Lock()
	if len(fake.sent) != 1 || fake.sent[0] != "hello" {
		t.Errorf("sent %v", fake.sent)
	}
	fake.failures = 10
	fake.mu.Unlock()

	if err := n.SendWithRetry(context.Background(), "again", 1); err == nil {
		t.Error("expected retries to be exhausted")
	}
}

func TestStartPolling_RepliesToCommands(t *testing.T) {
	fake := &fakeTelegram{}
	fake.updates = []telegramUpdate{{UpdateID: 1}}
	fake.updates[0].Message = &struct {
		Text string `json:"text"`
	}{Text: " /campaigns "}
	n := newTestNotifier(t, fake)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	var got []string
	go func() {
		defer close(done)
		n.StartPolling(ctx, func(_ context.Context, cmd string) string {
			got = append(got, cmd)
			cancel()
			return "reply to " + cmd
		})
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatal("polling did not stop")
	}
	if len(got) != 1 || got[0] != "/campaigns" {
		t.Errorf("handled %v", got)
	}
}

func TestSend_RejectedByAPI(t *testing.T) {
	fake := &fakeTelegram{reject: "Bad Request: chat not found"}
	n := newTestNotifier(t, fake)
	err := n.Send(context.Background(), "hello")
	if err == nil || !strings.Contains(err.Error(), "chat not found") {
		t.Errorf("expected API rejection, got %v", err)
	}
}

func TestBackoff_DoublesUpToCap(t *testing.T) {
	n := NewTelegramNotifier("token", "42", "")
	n.RetryBase = time.Second
	tests := []struct {
		failures int
		want     time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{5, 32 * time.Second},
		{6, time.Minute},
		{100, time.Minute},
	}
	for _, tt := range tests {
		if got := n.backoff(tt.failures); got != tt.want {
			t.Errorf("backoff(%d) = %v, want %v", tt.failures, got, tt.want)
		}
	}
}

func TestStartPolling_RecoversAfterFailedPolls(t *testing.T) {
	fake := &fakeTelegram{pollFailures: 2}
	fake.updates = []telegramUpdate{{UpdateID: 7}}
	fake.updates[0].Message = &struct {
		Text string `json:"text"`
	}{Text: "/status 1"}
	n := newTestNotifier(t, fake)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	var got []string
	go func() {
		defer close(done)
		n.StartPolling(ctx, func(_ context.Context, cmd string) string {
			got = append(got, cmd)
			cancel()
			return ""
		})
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatal("polling did not recover")
	}
	if len(got) != 1 || got[0] != "/status 1" {
		t.Errorf("handled %v", got)
	}
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if fake.polled != 3 {
		t.Errorf("polled %d times, want 3", fake.polled)
	}
}
