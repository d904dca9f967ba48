package azure

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
)

// Azurite's published development account key.
const devAccountKey = "Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw=="

func newTestStore(t *testing.T, handler http.HandlerFunc) *BlobStore {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	conn := "DefaultEndpointsProtocol=http;AccountName=devstoreaccount1;AccountKey=" + devAccountKey +
		";BlobEndpoint=" + server.URL + "/devstoreaccount1;"
	store, err := NewBlobStore(conn, "images")
	if err != nil {
		t.Fatalf("new blob store: %v", err)
	}
	return store
}

func notFound(code string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("x-ms-error-code", code)
		w.WriteHeader(http.StatusNotFound)
	}
}

func TestOpenMissingBlobIsNotExist(t *testing.T) {
	store := newTestStore(t, notFound("BlobNotFound"))

	_, err := store.Open(context.Background(), "quiz_1_q0_flag.png")
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected os.ErrNotExist, got %v", err)
	}
}

func TestOpenOtherFailureIsNotNotExist(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("x-ms-error-code", "AuthorizationFailure")
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := store.Open(context.Background(), "quiz_1_q0_flag.png")
	if err == nil || errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected a plain download error, got %v", err)
	}
}

func TestOpenStreamsBlob(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/images/quiz_1_q0_flag.png") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Length", "3")
		_, _ = w.Write([]byte("png"))
	})

	rc, err := store.Open(context.Background(), "quiz_1_q0_flag.png")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "png" {
		t.Fatalf("unexpected content %q", data)
	}
}

func TestDeleteMissingBlobIsIgnored(t *testing.T) {
	store := newTestStore(t, notFound("BlobNotFound"))

	if err := store.Delete(context.Background(), "quiz_1_q0_flag.png"); err != nil {
		t.Fatalf("expected missing blob delete to succeed, got %v", err)
	}
}
