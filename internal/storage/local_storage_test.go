package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

type mockFile struct {
	*bytes.Reader
}

func (m *mockFile) Close() error {
	return nil
}

func TestLocalStorage(t *testing.T) {
	tmpDir := t.TempDir()
	storage, err := NewLocalStorage(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	t.Run("SaveFile", func(t *testing.T) {
		content := []byte("classroom video content")
		reader := &mockFile{bytes.NewReader(content)}

		filename, err := storage.SaveFile(reader, FileInfo{
			Filename:    "lecture.mp4",
			ContentType: "video/mp4",
			Size:        int64(len(content)),
		})
		if err != nil {
			t.Fatalf("Failed to save file: %v", err)
		}

		if filepath.Ext(filename) != ".mp4" {
			t.Errorf("Expected .mp4 extension, got %s", filepath.Ext(filename))
		}

		path, err := storage.FilePath(filename)
		if err != nil {
			t.Fatalf("FilePath failed: %v", err)
		}
		saved, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("Saved file unreadable: %v", err)
		}
		if !bytes.Equal(saved, content) {
			t.Error("Saved content does not match input")
		}
	})

	t.Run("FilePath rejects traversal", func(t *testing.T) {
		if _, err := storage.FilePath("../outside.mp4"); err == nil {
			t.Error("Expected error for path traversal")
		}
		if _, err := storage.FilePath("/etc/passwd"); err == nil {
			t.Error("Expected error for absolute path")
		}
	})

	t.Run("DeleteFile", func(t *testing.T) {
		content := []byte("x")
		reader := &mockFile{bytes.NewReader(content)}
		filename, err := storage.SaveFile(reader, FileInfo{Filename: "gone.mp4"})
		if err != nil {
			t.Fatalf("Failed to save file: %v", err)
		}

		if err := storage.DeleteFile(filename); err != nil {
			t.Fatalf("Failed to delete file: %v", err)
		}

		path, _ := storage.FilePath(filename)
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Error("File still exists after delete")
		}
	})
}
