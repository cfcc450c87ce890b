package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gymsync/internal/syncerr"
)

type staticToken string

func (s staticToken) Token(ctx context.Context) (string, error) { return string(s), nil }

func TestCreateProgramSendsAuthAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/programs" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok123" {
			t.Errorf("Authorization = %q", got)
		}
		var p ProgramPayload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(Program{
			ID: "srv-1", ProfileID: p.ProfileID, Name: p.Name,
			CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, staticToken("tok123"))
	got, err := c.CreateProgram(context.Background(), ProgramPayload{ProfileID: "p1", Name: "Leg Day"})
	if err != nil {
		t.Fatalf("CreateProgram: %v", err)
	}
	if got.ID != "srv-1" || got.Name != "Leg Day" {
		t.Errorf("decoded program = %+v", got)
	}
}

func TestRemoteRejectionCarriesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"name too long"}`, http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, nil)
	_, err := c.CreateProgram(context.Background(), ProgramPayload{Name: "x"})
	if !syncerr.IsKind(err, syncerr.KindRemoteRejected) {
		t.Fatalf("err = %v, want KindRemoteRejected", err)
	}
	if got := syncerr.StatusCode(err); got != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", got)
	}
}

func TestDeleteTreats404AsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, nil)
	if err := c.DeleteProgram(context.Background(), "gone"); err != nil {
		t.Errorf("DeleteProgram on 404 = %v, want nil", err)
	}
	// Non-delete calls still surface the 404.
	_, err := c.ListPrograms(context.Background(), "p1")
	if !syncerr.IsKind(err, syncerr.KindRemoteRejected) {
		t.Errorf("ListPrograms on 404 = %v, want KindRemoteRejected", err)
	}
}

func TestTransportFailureIsNetworkUnavailable(t *testing.T) {
	// Point at a server that is already closed.
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c := NewClient(srv.URL, 500*time.Millisecond, nil)
	_, err := c.ListPrograms(context.Background(), "p1")
	if !syncerr.IsKind(err, syncerr.KindNetworkUnavailable) {
		t.Errorf("err = %v, want KindNetworkUnavailable", err)
	}
}
