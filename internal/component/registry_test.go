package component

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

type stub struct{ name, path string }

func (s stub) Name() string { return s.name }

func (s stub) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get(s.path, func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte(s.name)) })
	return r
}

func TestRegisterAndMount(t *testing.T) {
	Register(stub{name: "zeta", path: "/z"})
	Register(stub{name: "alpha", path: "/a"})

	all := All()
	if len(all) < 2 || all[0].Name() > all[1].Name() {
		t.Fatalf("All not sorted: %v", all)
	}

	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {})
	if err := Mount(r); err != nil {
		t.Fatalf("Mount: %v", err)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/a", nil))
	if rec.Body.String() != "alpha" {
		t.Fatalf("GET /a = %q", rec.Body.String())
	}
}
