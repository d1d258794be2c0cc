package worker

import (
	"errors"
	"testing"

	"mentor-ai/internal/model"
)

type memorySink struct {
	saved []model.Message
	err   error
}

func (s *memorySink) Create(message *model.Message) error {
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, *message)
	return nil
}

func TestHandle(t *testing.T) {
	sink := &memorySink{}
	w := NewTranscriptArchiveWorker(nil, sink, "mentor.transcript", nil)

	body := []byte(`{"id":42,"session_id":"s-1","username":"admin","role":"user","content":"How many sets?"}`)
	if err := w.handle(body); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(sink.saved) != 1 {
		t.Fatalf("saved %d messages, want 1", len(sink.saved))
	}
	got := sink.saved[0]
	if got.ID != 0 || got.SessionID != "s-1" || got.Content != "How many sets?" {
		t.Errorf("saved %+v", got)
	}
}

func TestHandle_Rejects(t *testing.T) {
	cases := map[string][]byte{
		"malformed":  []byte(`{not json`),
		"no session": []byte(`{"role":"user","content":"x"}`),
		"no role":    []byte(`{"session_id":"s-1","content":"x"}`),
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			sink := &memorySink{}
			w := NewTranscriptArchiveWorker(nil, sink, "q", nil)
			if err := w.handle(body); err == nil {
				t.Error("expected an error")
			}
			if len(sink.saved) != 0 {
				t.Error("nothing should be saved")
			}
		})
	}
}

func TestHandle_SinkError(t *testing.T) {
	boom := errors.New("db down")
	w := NewTranscriptArchiveWorker(nil, &memorySink{err: boom}, "q", nil)
	err := w.handle([]byte(`{"session_id":"s-1","role":"assistant","content":"x"}`))
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
}
