package analysis

import (
	"errors"
	"testing"
)

func TestTransitionTable(t *testing.T) {
	tests := []struct {
		name    string
		from    State
		event   Event
		want    State
		wantErr bool
	}{
		{name: "idle configure", from: StateIdle, event: EventConfigure, want: StateConfiguring},
		{name: "idle submit", from: StateIdle, event: EventSubmit, want: StateIdle, wantErr: true},
		{name: "configuring stays", from: StateConfiguring, event: EventConfigure, want: StateConfiguring},
		{name: "configuring submit", from: StateConfiguring, event: EventSubmit, want: StateSubmitting},
		{name: "configuring result", from: StateConfiguring, event: EventSucceeded, want: StateConfiguring, wantErr: true},
		{name: "submitting edit", from: StateSubmitting, event: EventConfigure, want: StateSubmitting},
		{name: "submitting resubmit", from: StateSubmitting, event: EventSubmit, want: StateSubmitting, wantErr: true},
		{name: "submitting succeeded", from: StateSubmitting, event: EventSucceeded, want: StateSucceeded},
		{name: "submitting failed", from: StateSubmitting, event: EventFailed, want: StateFailed},
		{name: "succeeded configure", from: StateSucceeded, event: EventConfigure, want: StateConfiguring},
		{name: "failed configure", from: StateFailed, event: EventConfigure, want: StateConfiguring},
		{name: "failed submit", from: StateFailed, event: EventSubmit, want: StateFailed, wantErr: true},
		{name: "close from submitting", from: StateSubmitting, event: EventClose, want: StateIdle},
		{name: "close from failed", from: StateFailed, event: EventClose, want: StateIdle},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := transition(tt.from, tt.event)
			if got != tt.want {
				t.Fatalf("transition(%s, %s) = %s, want %s", tt.from, tt.event, got, tt.want)
			}
			if tt.wantErr != (err != nil) {
				t.Fatalf("unexpected error %v", err)
			}
			if err != nil && !errors.Is(err, ErrInvalidTransition) {
				t.Fatalf("expected ErrInvalidTransition, got %v", err)
			}
		})
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		raw     string
		want    Mode
		wantErr bool
	}{
		{raw: "upload", want: ModeUpload},
		{raw: " PDF ", want: ModeUpload},
		{raw: "file", want: ModeUpload},
		{raw: "Text", want: ModeText},
		{raw: "docx", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseMode(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownMode) {
					t.Fatalf("expected ErrUnknownMode, got %v", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("ParseMode(%q) = %s, %v", tt.raw, got, err)
			}
		})
	}
}

func TestFileFromBytesReadsContent(t *testing.T) {
	f := FileFromBytes("notes.pdf", []byte("not really a pdf"))
	if f.Size != 16 || f.Pages != 0 {
		t.Fatalf("unexpected file %+v", f)
	}
	rc, err := f.Open()
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rc.Close()
	buf := make([]byte, 3)
	if _, err := rc.Read(buf); err != nil || string(buf) != "not" {
		t.Fatalf("unexpected read %q, %v", buf, err)
	}

	if _, err := (File{Name: "empty.pdf"}).Open(); err == nil {
		t.Fatalf("expected error for file without content")
	}
}
