package writer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"marketflow/config"
	"marketflow/models"
)

func TestArchiveEcbFxWritesLocalFile(t *testing.T) {
	dir := t.TempDir()

	cfg := &config.Config{}
	cfg.Storage.LocalDir = dir

	a, err := NewArchiver(cfg)
	if err != nil {
		t.Fatalf("NewArchiver failed: %v", err)
	}

	rows := []models.EcbFxRate{
		{Date: models.NewDate(2025, time.January, 2), Code: "USD", RateVsEur: 0.9, IngestionTag: "20250102_120000"},
		{Date: models.NewDate(2025, time.January, 2), Code: "EUR", RateVsEur: 1.0, IngestionTag: "20250102_120000"},
	}
	if err := a.ArchiveEcbFx(context.Background(), rows, "20250102_120000"); err != nil {
		t.Fatalf("ArchiveEcbFx failed: %v", err)
	}

	path := filepath.Join(dir, "ecb", "ecb_fx_20250102_120000.parquet")
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("archive file missing: %v", err)
	}
	if info.Size() == 0 {
		t.Error("archive file is empty")
	}
}

func TestArchiveSkipsEmptyBatch(t *testing.T) {
	dir := t.TempDir()

	cfg := &config.Config{}
	cfg.Storage.LocalDir = dir

	a, err := NewArchiver(cfg)
	if err != nil {
		t.Fatalf("NewArchiver failed: %v", err)
	}

	if err := a.ArchivePtax(context.Background(), nil, "20250102_120000"); err != nil {
		t.Fatalf("ArchivePtax failed on empty batch: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "bacen")); !os.IsNotExist(err) {
		t.Error("empty batch should not create a provider directory")
	}
}
