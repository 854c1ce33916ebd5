package oracle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func chatServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": content}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestReviewDosageParsesVerdict(t *testing.T) {
	srv := chatServer(t, `{"passed": false, "severity": "critical", "reason": "exceeds daily max"}`)
	defer srv.Close()

	c := NewClient(srv.URL, "key", "test-model", 2*time.Second)
	verdict, err := c.ReviewDosage(context.Background(), DosageContext{MedicineName: "Pacimol 650", Quantity: 40})
	if err != nil {
		t.Fatalf("review dosage: %v", err)
	}
	if verdict.Passed || verdict.Severity != "critical" {
		t.Errorf("verdict = %+v, want failed critical", verdict)
	}
}

func TestReviewDosageToleratesFencedJSON(t *testing.T) {
	srv := chatServer(t, "Here is my assessment:\n```json\n{\"passed\": true, \"severity\": \"ok\", \"reason\": \"fine\"}\n```")
	defer srv.Close()

	c := NewClient(srv.URL, "", "test-model", 2*time.Second)
	verdict, err := c.ReviewDosage(context.Background(), DosageContext{MedicineName: "Cetirizine", Quantity: 10})
	if err != nil {
		t.Fatalf("review dosage: %v", err)
	}
	if !verdict.Passed {
		t.Errorf("verdict = %+v, want passed", verdict)
	}
}

func TestReviewDosageRejectsUnknownSeverity(t *testing.T) {
	srv := chatServer(t, `{"passed": true, "severity": "fine", "reason": ""}`)
	defer srv.Close()

	c := NewClient(srv.URL, "", "test-model", 2*time.Second)
	if _, err := c.ReviewDosage(context.Background(), DosageContext{}); err == nil {
		t.Fatal("expected error for unknown severity")
	}
}

func TestJudgeRefillParsesVerdict(t *testing.T) {
	srv := chatServer(t, `{"alert": true, "urgency": "high", "message": "refill now"}`)
	defer srv.Close()

	c := NewClient(srv.URL, "", "test-model", 2*time.Second)
	verdict, err := c.JudgeRefill(context.Background(), RefillContext{DaysUntilDepletion: 1})
	if err != nil {
		t.Fatalf("judge refill: %v", err)
	}
	if !verdict.Alert || verdict.Urgency != "high" {
		t.Errorf("verdict = %+v, want high-urgency alert", verdict)
	}
}

func TestClientErrorsOnServerFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "test-model", 2*time.Second)
	if _, err := c.ReviewDosage(context.Background(), DosageContext{}); err == nil {
		t.Fatal("expected error on server failure")
	}
}

func TestClientErrorsWithoutBaseURL(t *testing.T) {
	c := NewClient("", "", "test-model", 2*time.Second)
	if _, err := c.ReviewDosage(context.Background(), DosageContext{}); err == nil {
		t.Fatal("expected error without base URL")
	}
}

func TestClientTimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "test-model", 20*time.Millisecond)
	if _, err := c.ReviewDosage(context.Background(), DosageContext{}); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestStaticRefillGuidance(t *testing.T) {
	s := &Static{}
	ctx := context.Background()

	tests := []struct {
		name string
		rc   RefillContext
		want bool
	}{
		{"imminent depletion", RefillContext{DaysUntilDepletion: 5, DaysSinceLastOrder: 20}, true},
		{"far depletion", RefillContext{DaysUntilDepletion: 20, DaysSinceLastOrder: 20}, false},
		{"rx extends window", RefillContext{DaysUntilDepletion: 9, DaysSinceLastOrder: 20, PrescriptionRequired: true}, true},
		{"9 days without rx", RefillContext{DaysUntilDepletion: 9, DaysSinceLastOrder: 20}, false},
		{"recent order suppresses", RefillContext{DaysUntilDepletion: 2, DaysSinceLastOrder: 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict, err := s.JudgeRefill(ctx, tt.rc)
			if err != nil {
				t.Fatalf("judge refill: %v", err)
			}
			if verdict.Alert != tt.want {
				t.Errorf("alert = %v, want %v", verdict.Alert, tt.want)
			}
		})
	}
}
