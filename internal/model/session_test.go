package model

import "testing"

func TestSession_RecentTurns(t *testing.T) {
	s := &Session{}
	s.Append(
		Turn{Role: RoleAssistant, Content: "hello"},
		Turn{Role: RoleUser, Content: "q1"},
		Turn{Role: RoleAssistant, Content: "a1"},
	)

	if got := s.RecentTurns(2); len(got) != 2 || got[0].Content != "q1" {
		t.Errorf("RecentTurns(2) = %+v", got)
	}
	if got := s.RecentTurns(0); len(got) != 3 {
		t.Errorf("RecentTurns(0) should return everything, got %d", len(got))
	}
	if got := s.RecentTurns(10); len(got) != 3 {
		t.Errorf("RecentTurns(10) = %d turns", len(got))
	}
	if s.UpdatedAt.IsZero() {
		t.Error("Append should set UpdatedAt")
	}
}
