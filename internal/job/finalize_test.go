package job

import (
	"context"
	"errors"
	"testing"

	"github.com/miragelabs/mirage/internal/log"
	"github.com/miragelabs/mirage/internal/tools"
)

type stubUploader struct {
	url     string
	err     error
	gotKind string
	gotName string
	gotData []byte
	gotType string
}

func (u *stubUploader) Upload(ctx context.Context, kindSegment, filename string, data []byte, contentType string) (string, error) {
	u.gotKind = kindSegment
	u.gotName = filename
	u.gotData = data
	u.gotType = contentType
	if u.err != nil {
		return "", u.err
	}
	return u.url, nil
}

func completedQueue() *stubQueue {
	return &stubQueue{
		resultFn: func(ctx context.Context, model, requestID string) (any, error) {
			return map[string]any{"images": []any{map[string]any{"url": "https://provider.example.com/raw.png"}}}, nil
		},
		downloadFn: func(ctx context.Context, url string) ([]byte, string, error) {
			return []byte("png-bytes"), "image/png", nil
		},
	}
}

func testHandle() Handle {
	return Handle{RequestID: "abc123", Model: "provider/x"}
}

func TestFinalizeUploadsToOwnedStorage(t *testing.T) {
	uploader := &stubUploader{url: "https://owned-storage.example.com/dreamforge/images/abc123.png"}
	f := &Finalizer{Queue: completedQueue(), Uploader: uploader, Logger: log.NewNop()}

	url, err := f.Finalize(context.Background(), tools.NewContext(), testHandle(), FinalizeOptions{KindSegment: "images"})
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	if url != uploader.url {
		t.Errorf("url = %q, want owned URL", url)
	}
	if uploader.gotKind != "images" {
		t.Errorf("kind = %q, want images", uploader.gotKind)
	}
	if string(uploader.gotData) != "png-bytes" {
		t.Errorf("data = %q, want downloaded bytes", uploader.gotData)
	}
	if uploader.gotType != "image/png" {
		t.Errorf("content type = %q, want image/png", uploader.gotType)
	}
}

func TestFinalizeAppliesPostProcessor(t *testing.T) {
	uploader := &stubUploader{url: "https://owned-storage.example.com/audio/out.ogg"}
	f := &Finalizer{Queue: completedQueue(), Uploader: uploader, Logger: log.NewNop()}

	process := func(ctx context.Context, data []byte, contentType string) ([]byte, string, error) {
		return []byte("ogg-bytes"), "audio/ogg", nil
	}

	_, err := f.Finalize(context.Background(), tools.NewContext(), testHandle(), FinalizeOptions{
		KindSegment: "audio",
		Process:     process,
	})
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	if string(uploader.gotData) != "ogg-bytes" {
		t.Errorf("uploaded data = %q, want post-processed bytes", uploader.gotData)
	}
	if uploader.gotType != "audio/ogg" {
		t.Errorf("uploaded type = %q, want audio/ogg", uploader.gotType)
	}
}

func TestFinalizeFallsBackToProviderURLOnUploadFailure(t *testing.T) {
	uploader := &stubUploader{err: errors.New("bucket full")}
	f := &Finalizer{Queue: completedQueue(), Uploader: uploader, Logger: log.NewNop()}

	url, err := f.Finalize(context.Background(), tools.NewContext(), testHandle(), FinalizeOptions{KindSegment: "images"})
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if url != "https://provider.example.com/raw.png" {
		t.Errorf("url = %q, want provider URL fallback", url)
	}
}

func TestFinalizeRequireOwnedMakesUploadFailureFatal(t *testing.T) {
	uploader := &stubUploader{err: errors.New("bucket full")}
	f := &Finalizer{Queue: completedQueue(), Uploader: uploader, Logger: log.NewNop()}

	_, err := f.Finalize(context.Background(), tools.NewContext(), testHandle(), FinalizeOptions{
		KindSegment:  "skyboxes",
		RequireOwned: true,
	})

	var te *tools.Error
	if !errors.As(err, &te) || te.Code != tools.CodeStorageError {
		t.Errorf("err = %v, want storage error code", err)
	}
}

func TestFinalizeWithoutUploader(t *testing.T) {
	queue := completedQueue()
	downloaded := false
	queue.downloadFn = func(ctx context.Context, url string) ([]byte, string, error) {
		downloaded = true
		return []byte("png-bytes"), "image/png", nil
	}
	f := &Finalizer{Queue: queue, Logger: log.NewNop()}

	url, err := f.Finalize(context.Background(), tools.NewContext(), testHandle(), FinalizeOptions{KindSegment: "images"})
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if url != "https://provider.example.com/raw.png" {
		t.Errorf("url = %q, want provider URL when storage is absent", url)
	}
	// Nothing to upload means nothing to download.
	if downloaded {
		t.Error("artifact was downloaded with no storage configured")
	}
}

func TestFinalizeWithoutUploaderRequireOwned(t *testing.T) {
	f := &Finalizer{Queue: completedQueue(), Logger: log.NewNop()}

	_, err := f.Finalize(context.Background(), tools.NewContext(), testHandle(), FinalizeOptions{
		KindSegment:  "skyboxes",
		RequireOwned: true,
	})

	var te *tools.Error
	if !errors.As(err, &te) || te.Code != tools.CodeStorageError {
		t.Errorf("err = %v, want storage error code", err)
	}
}

func TestFinalizeDownloadFailureFallsBack(t *testing.T) {
	queue := completedQueue()
	queue.downloadFn = func(ctx context.Context, url string) ([]byte, string, error) {
		return nil, "", errors.New("cdn timeout")
	}
	f := &Finalizer{Queue: queue, Uploader: &stubUploader{url: "unused"}, Logger: log.NewNop()}

	url, err := f.Finalize(context.Background(), tools.NewContext(), testHandle(), FinalizeOptions{KindSegment: "images"})
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if url != "https://provider.example.com/raw.png" {
		t.Errorf("url = %q, want provider URL fallback", url)
	}
}

func TestFinalizeResultFetchFailureIsFatal(t *testing.T) {
	queue := completedQueue()
	queue.resultFn = func(ctx context.Context, model, requestID string) (any, error) {
		return nil, errors.New("request is still in progress")
	}
	f := &Finalizer{Queue: queue, Logger: log.NewNop()}

	_, err := f.Finalize(context.Background(), tools.NewContext(), testHandle(), FinalizeOptions{KindSegment: "images"})

	var te *tools.Error
	if !errors.As(err, &te) || te.Code != tools.CodeProviderError {
		t.Errorf("err = %v, want provider error code", err)
	}
}

func TestFinalizeNoURLInPayloadIsFatal(t *testing.T) {
	queue := completedQueue()
	queue.resultFn = func(ctx context.Context, model, requestID string) (any, error) {
		return map[string]any{"status": "COMPLETED"}, nil
	}
	f := &Finalizer{Queue: queue, Logger: log.NewNop()}

	_, err := f.Finalize(context.Background(), tools.NewContext(), testHandle(), FinalizeOptions{KindSegment: "images"})
	if err == nil {
		t.Fatal("expected extraction error")
	}
}
