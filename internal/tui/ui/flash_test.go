package ui

import (
	"testing"
	"time"
)

func TestFlashExpires(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	f := NewFlashModel()
	f.now = func() time.Time { return now }

	if f.Current() != nil {
		t.Fatal("expected no flash before any message")
	}

	f.Warn("Sem conexão com o servidor.")
	msg := f.Current()
	if msg == nil || msg.Level != FlashWarn || msg.Text != "Sem conexão com o servidor." {
		t.Fatalf("Current() = %+v", msg)
	}

	now = now.Add(warnFor + time.Second)
	if f.Current() != nil {
		t.Error("expected flash to expire")
	}

	select {
	case fm := <-f.Watch():
		if fm.Text != "Sem conexão com o servidor." {
			t.Errorf("watched %q", fm.Text)
		}
	default:
		t.Error("expected watched message")
	}
}
