package views

import (
	"strings"
	"testing"

	"github.com/andrejr971/chat/internal/chat"
	"github.com/andrejr971/chat/internal/tui/ui"
)

func TestGlyphIsDistinctPerStatus(t *testing.T) {
	statuses := []chat.Status{
		chat.StatusPending,
		chat.StatusSent,
		chat.StatusDeliveredPartial,
		chat.StatusDeliveredAll,
		chat.StatusSeenPartial,
		chat.StatusSeenAll,
	}
	seen := make(map[string]chat.Status)
	for _, s := range statuses {
		g := glyph(s)
		if g == "" {
			t.Errorf("glyph(%s) is empty", s)
			continue
		}
		if prev, dup := seen[g]; dup {
			t.Errorf("glyph(%s) = %q, same as %s", s, g, prev)
		}
		seen[g] = s
	}
}

func TestUnknownStatusRendersEmpty(t *testing.T) {
	theme := ui.DefaultTheme()
	for _, s := range []chat.Status{"", "read", "DELIVERED_ALL"} {
		if g := glyph(s); g != "" {
			t.Errorf("glyph(%q) = %q, want empty", s, g)
		}
		if m := statusMark(theme, s); m != "" {
			t.Errorf("statusMark(%q) = %q, want empty", s, m)
		}
	}
}

func TestStatusMarkColorsByPhase(t *testing.T) {
	theme := ui.DefaultTheme()
	tests := []struct {
		status chat.Status
		color  string
	}{
		{chat.StatusPending, ui.Tag(theme.PendingColor)},
		{chat.StatusSent, ui.Tag(theme.SentColor)},
		{chat.StatusDeliveredPartial, ui.Tag(theme.DeliveredColor)},
		{chat.StatusSeenAll, ui.Tag(theme.SeenColor)},
	}
	for _, tt := range tests {
		m := statusMark(theme, tt.status)
		if !strings.HasPrefix(m, "["+tt.color+"]") {
			t.Errorf("statusMark(%s) = %q, want color %s", tt.status, m, tt.color)
		}
	}
}
