package webhook

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"chronoguess/core"
)

func TestSink_OnEventPostsToEndpoints(t *testing.T) {
	var (
		hits  int32
		mu    sync.Mutex
		types []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		var ev core.Event
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			t.Errorf("decode: %v", err)
		}
		_ = r.Body.Close()
		mu.Lock()
		types = append(types, r.Header.Get("X-Chronoguess-Event"))
		mu.Unlock()
	}))
	defer srv.Close()

	sink := New([]string{srv.URL, srv.URL})
	sink.OnEvent(core.NewGameCompleted("u1", "s1", 20, 1000, 1000))

	if atomic.LoadInt32(&hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", hits)
	}
	if types[0] != string(core.EventGameCompleted) {
		t.Fatalf("unexpected event header %q", types[0])
	}
}

func TestSink_FiltersEventTypes(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	sink := New([]string{srv.URL})
	sink.OnEvent(core.NewHintUsed("u1", "s1", 1, core.HintWhat))
	if atomic.LoadInt32(&hits) != 0 {
		t.Fatal("hint events are not forwarded by default")
	}

	sink = New([]string{srv.URL}, WithEvents(core.EventHintUsed))
	sink.OnEvent(core.NewHintUsed("u1", "s1", 1, core.HintWhat))
	sink.OnEvent(core.NewGameCompleted("u1", "s1", 20, 1000, 1000))
	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("expected only the hint event, got %d hits", hits)
	}
}

func TestSink_SurvivesFailures(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	sink := New([]string{"http://127.0.0.1:1/unreachable", "::bad", srv.URL})
	sink.OnEvent(core.NewBadgeAwarded("u1", "s1", core.Badge{ID: "first_steps"}))
	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("later endpoints should still be called, got %d", hits)
	}
}
