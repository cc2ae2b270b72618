package sample

import (
	"context"
	"os"
	"testing"

	"IntakeRobot/internal/domain"
)

func TestEnsurePDFIsIdempotent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	first, err := EnsurePDF(dir)
	if err != nil {
		t.Fatalf("EnsurePDF returned error: %v", err)
	}
	info, err := os.Stat(first)
	if err != nil {
		t.Fatalf("sample pdf missing: %v", err)
	}
	if info.Size() == 0 {
		t.Fatal("sample pdf is empty")
	}

	second, err := EnsurePDF(dir)
	if err != nil {
		t.Fatalf("second EnsurePDF returned error: %v", err)
	}
	if second != first {
		t.Fatalf("expected same path, got %q and %q", first, second)
	}
}

func TestSourceYieldsOneDocument(t *testing.T) {
	t.Parallel()

	src := &Source{Dir: t.TempDir()}
	docs, err := src.FetchNew(context.Background())
	if err != nil {
		t.Fatalf("FetchNew returned error: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected one sample document, got %d", len(docs))
	}
	if docs[0].Origin != domain.OriginSample {
		t.Fatalf("unexpected origin: %q", docs[0].Origin)
	}
}
