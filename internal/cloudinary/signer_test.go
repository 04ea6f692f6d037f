package cloudinary

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSignParamsSortsAndSkipsEmpty(t *testing.T) {
	// folder=f&tags=t&timestamp=100 + "secret"
	got := SignParams(map[string]string{
		"timestamp": "100",
		"tags":      "t",
		"folder":    "f",
		"empty":     "",
	}, "secret")
	same := SignParams(map[string]string{
		"folder":    "f",
		"tags":      "t",
		"timestamp": "100",
	}, "secret")
	if got != same {
		t.Fatalf("signature must be order-insensitive and skip empty params: %q vs %q", got, same)
	}
	if len(got) != 40 {
		t.Fatalf("expected sha1 hex signature, got %q", got)
	}
}

func TestNewUploadSignature(t *testing.T) {
	now := time.Unix(1700000000, 0)
	sig := NewUploadSignature("demo", "key-1", "secret", now)

	if sig.Timestamp != 1700000000 {
		t.Fatalf("timestamp mismatch: %d", sig.Timestamp)
	}
	if sig.CloudName != "demo" || sig.APIKey != "key-1" {
		t.Fatalf("credentials not carried: %+v", sig)
	}
	if sig.Folder != UploadFolder || sig.Tags != EphemeralTag {
		t.Fatalf("folder/tags mismatch: %+v", sig)
	}
	want := SignParams(map[string]string{
		"timestamp": "1700000000",
		"folder":    UploadFolder,
		"tags":      EphemeralTag,
	}, "secret")
	if sig.Signature != want {
		t.Fatalf("signature mismatch: got %q want %q", sig.Signature, want)
	}
}

func TestAdminDestroySignsRequest(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/demo/image/destroy" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.PostForm.Get("public_id") != "modelcast/uploads/abc" {
			t.Fatalf("public_id mismatch: %s", r.PostForm.Get("public_id"))
		}
		want := SignParams(map[string]string{
			"public_id": "modelcast/uploads/abc",
			"timestamp": r.PostForm.Get("timestamp"),
		}, "secret")
		if r.PostForm.Get("signature") != want {
			t.Fatalf("signature mismatch")
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"result": "ok"})
	}))
	defer ts.Close()

	client := NewAdminClient(AdminOptions{BaseURL: ts.URL, CloudName: "demo", APIKey: "k", APISecret: "secret"})
	if err := client.Destroy(context.Background(), "modelcast/uploads/abc"); err != nil {
		t.Fatalf("Destroy error: %v", err)
	}
}

func TestAdminDeleteByToken(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/demo/delete_by_token" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		_ = r.ParseForm()
		if r.PostForm.Get("token") != "tok-1" {
			t.Fatalf("token mismatch: %s", r.PostForm.Get("token"))
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"result": "ok"})
	}))
	defer ts.Close()

	client := NewAdminClient(AdminOptions{BaseURL: ts.URL, CloudName: "demo", APIKey: "k", APISecret: "secret"})
	if err := client.DeleteByToken(context.Background(), "tok-1"); err != nil {
		t.Fatalf("DeleteByToken error: %v", err)
	}
}

func TestAdminDestroyTreatsNotFoundAsDeleted(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"result": "not found"})
	}))
	defer ts.Close()

	client := NewAdminClient(AdminOptions{BaseURL: ts.URL, CloudName: "demo", APIKey: "k", APISecret: "secret"})
	if err := client.Destroy(context.Background(), "gone"); err != nil {
		t.Fatalf("not found should not be an error: %v", err)
	}
}
