package common

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"rezscan/internal/errors"
	"rezscan/internal/types"
)

func writeTemp(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadAttachments(t *testing.T) {
	dir := t.TempDir()
	a := writeTemp(t, dir, "alice.pdf", "alice")
	b := writeTemp(t, dir, "bob.docx", "bob")

	fp := NewFileProcessor(errors.NewDiscardLogger(), 1024)
	attachments, err := fp.ReadAttachments(a, b)
	if err != nil {
		t.Fatalf("ReadAttachments returned error: %v", err)
	}
	if len(attachments) != 2 {
		t.Fatalf("Expected 2 attachments, got %d", len(attachments))
	}
	if attachments[0].Name != "alice.pdf" || string(attachments[0].Content) != "alice" {
		t.Errorf("Unexpected first attachment: %+v", attachments[0])
	}
	if attachments[1].Name != "bob.docx" {
		t.Errorf("Expected upload order to be kept, got %s", attachments[1].Name)
	}
}

func TestReadAttachmentErrors(t *testing.T) {
	dir := t.TempDir()
	big := writeTemp(t, dir, "big.txt", strings.Repeat("x", 64))

	fp := NewFileProcessor(errors.NewDiscardLogger(), 32)

	_, err := fp.ReadAttachment(filepath.Join(dir, "missing.pdf"))
	if !errors.HasCode(err, errors.ErrCodeFileNotFound) {
		t.Errorf("Expected FILE_NOT_FOUND, got %v", err)
	}

	_, err = fp.ReadAttachment(big)
	if !errors.HasCode(err, errors.ErrCodeFileTooLarge) {
		t.Errorf("Expected FILE_TOO_LARGE, got %v", err)
	}

	_, err = fp.ReadAttachment(dir)
	if !errors.HasCode(err, errors.ErrCodeFileNotReadable) {
		t.Errorf("Expected FILE_NOT_READABLE for a directory, got %v", err)
	}
}

func TestReadAttachmentWarnsOnUnknownType(t *testing.T) {
	dir := t.TempDir()
	path := writeTemp(t, dir, "photo.png", "png")

	var logs bytes.Buffer
	fp := NewFileProcessor(errors.NewLoggerWithWriter(&logs, slog.LevelDebug), 0)
	a, err := fp.ReadAttachment(path)
	if err != nil {
		t.Fatalf("Expected unknown types to be uploaded anyway, got %v", err)
	}
	if a.Name != "photo.png" {
		t.Errorf("Unexpected name %s", a.Name)
	}
	if !strings.Contains(logs.String(), "may not be supported") {
		t.Errorf("Expected a warning, got %q", logs.String())
	}
}

func TestHandleOutput(t *testing.T) {
	var out bytes.Buffer
	handler := NewOutputHandlerTo(errors.NewDiscardLogger(), &out)

	status := types.HealthStatus{Status: "healthy"}
	if err := handler.HandleOutput(status, CommandConfig{OutputFormat: "text"}); err != nil {
		t.Fatalf("HandleOutput returned error: %v", err)
	}
	if out.String() != "Scoring service: healthy\n" {
		t.Errorf("Unexpected stdout: %q", out.String())
	}

	file := filepath.Join(t.TempDir(), "nested", "health.json")
	if err := handler.HandleOutput(status, CommandConfig{OutputFormat: "json", OutputFile: file}); err != nil {
		t.Fatalf("HandleOutput returned error: %v", err)
	}
	content, err := os.ReadFile(file)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(content), `"status": "healthy"`) {
		t.Errorf("Unexpected file content: %s", content)
	}

	if err := handler.HandleOutput(status, CommandConfig{OutputFormat: "yaml"}); !errors.HasCode(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("Expected INVALID_FORMAT, got %v", err)
	}
}
