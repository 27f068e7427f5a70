package mediatype

import (
	"strings"
	"testing"
)

func TestValidateFilename(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		wantErr  string
	}{
		{name: "audio file", filename: "standup.mp3"},
		{name: "video file", filename: "recording.MP4"},
		{name: "document", filename: "notes.pdf"},
		{name: "dotted name", filename: "q3.review.meeting.wav"},
		{name: "missing extension", filename: "recording", wantErr: "file extension"},
		{name: "trailing dot", filename: "recording.", wantErr: "file extension"},
		{name: "empty", filename: "", wantErr: "file extension"},
		{name: "executable blocked", filename: "setup.exe", wantErr: "security"},
		{name: "archive blocked", filename: "batch.zip", wantErr: "security"},
		{name: "script blocked", filename: "payload.JS", wantErr: "security"},
		{name: "unknown extension", filename: "data.parquet", wantErr: "not supported"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFilename(tt.filename)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("expected %q to be allowed, got %v", tt.filename, err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected %q to be rejected", tt.filename)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %q", tt.wantErr, err)
			}
		})
	}
}

func TestContentType(t *testing.T) {
	ct, err := ContentType("meeting.MOV")
	if err != nil {
		t.Fatalf("failed to infer content type: %v", err)
	}
	if ct != "video/quicktime" {
		t.Errorf("expected video/quicktime, got %s", ct)
	}

	if _, err := ContentType("payload.exe"); err == nil {
		t.Error("expected blocked extension to be rejected")
	}
}

func TestValidateSize(t *testing.T) {
	if err := ValidateSize(1024); err != nil {
		t.Errorf("expected 1KB to be allowed: %v", err)
	}
	if err := ValidateSize(MaxFileSizeBytes); err != nil {
		t.Errorf("expected exactly the cap to be allowed: %v", err)
	}
	if err := ValidateSize(MaxFileSizeBytes + 1); err == nil {
		t.Error("expected over-cap size to be rejected")
	}
	if err := ValidateSize(0); err == nil {
		t.Error("expected zero size to be rejected")
	}
}
