package changefeed

import (
	"testing"
)

func fanLinkChange(userID string) Change {
	return Change{
		Table: "fan_links",
		Type:  Insert,
		Row:   map[string]any{"id": "f1", "user_id": userID},
	}
}

func TestFilter_Match(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		change Change
		want   bool
	}{
		{"table only", Filter{Table: "streaming_links"}, Change{Table: "streaming_links"}, true},
		{"other table", Filter{Table: "streaming_links"}, Change{Table: "fan_links"}, false},
		{"column match", Filter{Table: "fan_links", Column: "user_id", Value: "a"}, fanLinkChange("a"), true},
		{"column mismatch", Filter{Table: "fan_links", Column: "user_id", Value: "a"}, fanLinkChange("b"), false},
		{"missing column", Filter{Table: "fan_links", Column: "owner", Value: "a"}, fanLinkChange("a"), false},
		{"numeric value", Filter{Table: "t", Column: "n", Value: "7"}, Change{Table: "t", Row: map[string]any{"n": 7.0}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Match(tt.change); got != tt.want {
				t.Errorf("Match() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHub_PublishFiltersByOwner(t *testing.T) {
	hub := NewHub()
	a := hub.Subscribe(Filter{Table: "fan_links", Column: "user_id", Value: "a"})
	b := hub.Subscribe(Filter{Table: "fan_links", Column: "user_id", Value: "b"})
	links := hub.Subscribe(Filter{Table: "streaming_links"})
	defer a.Close()
	defer b.Close()
	defer links.Close()

	if n := hub.Publish(fanLinkChange("a")); n != 1 {
		t.Errorf("Publish() delivered to %d, want 1", n)
	}
	if n := hub.Publish(Change{Table: "streaming_links", Type: Delete}); n != 1 {
		t.Errorf("Publish() delivered to %d, want 1", n)
	}

	select {
	case c := <-a.Events():
		if c.Value("user_id") != "a" {
			t.Errorf("a received %v", c)
		}
	default:
		t.Error("a received nothing")
	}
	select {
	case c := <-b.Events():
		t.Errorf("b received %v, want nothing", c)
	default:
	}
	select {
	case c := <-links.Events():
		if c.Type != Delete {
			t.Errorf("links received %v", c)
		}
	default:
		t.Error("links received nothing")
	}
}

func TestHub_PublishNeverBlocks(t *testing.T) {
	hub := NewHub()
	s := hub.Subscribe(Filter{Table: "fan_links"})
	defer s.Close()

	for range DefaultBuffer + 5 {
		hub.Publish(fanLinkChange("a"))
	}
	if got := len(s.Events()); got != DefaultBuffer {
		t.Errorf("buffered = %d, want %d", got, DefaultBuffer)
	}
}

func TestSubscription_Close(t *testing.T) {
	hub := NewHub()
	s := hub.Subscribe(Filter{Table: "fan_links"})
	if hub.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", hub.Len())
	}

	s.Close()
	s.Close()

	if hub.Len() != 0 {
		t.Errorf("Len() = %d after Close, want 0", hub.Len())
	}
	if _, ok := <-s.Events(); ok {
		t.Error("Events() not closed after Close")
	}
	if n := hub.Publish(fanLinkChange("a")); n != 0 {
		t.Errorf("Publish() after Close delivered to %d", n)
	}
}
