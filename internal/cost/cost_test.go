package cost

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"qroute/internal/model"
)

func TestManhattan(t *testing.T) {
	m, err := Manhattan([]model.Coord{{X: 0, Y: 0}, {X: 1, Y: 2}}, model.UnitMeters)
	if err != nil {
		t.Fatalf("manhattan: %v", err)
	}
	if m[0][1] != 3 || m[1][0] != 3 || m[0][0] != 0 || m[1][1] != 0 {
		t.Fatalf("matrix = %v", m)
	}
}

func TestEuclideanRounds(t *testing.T) {
	m, err := Euclidean([]model.Coord{{X: 0, Y: 0}, {X: 1, Y: 1}}, model.UnitMeters)
	if err != nil {
		t.Fatalf("euclidean: %v", err)
	}
	if m[0][1] != 1 { // sqrt(2) rounds down
		t.Fatalf("m[0][1] = %v, want 1", m[0][1])
	}
}

func TestHaversineEquatorDegree(t *testing.T) {
	m, err := Haversine([]model.Coord{{X: 0, Y: 0}, {X: 0, Y: 1}}, model.UnitMeters)
	if err != nil {
		t.Fatalf("haversine: %v", err)
	}
	// One degree of longitude at the equator is about 111.2 km.
	if math.Abs(m[0][1]-111195) > 200 {
		t.Fatalf("m[0][1] = %v, want about 111195", m[0][1])
	}
}

func TestByName(t *testing.T) {
	if _, ok := ByName(""); !ok {
		t.Fatal("empty name should default")
	}
	if _, ok := ByName("euclidean"); !ok {
		t.Fatal("euclidean should resolve")
	}
	if _, ok := ByName("teleport"); ok {
		t.Fatal("unknown name should not resolve")
	}
}

func TestMatrixAPITilesRequests(t *testing.T) {
	all := []model.Coord{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}}
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if got := r.Header.Get("Authorization"); got != "Bearer k1" {
			t.Errorf("authorization = %q", got)
		}
		var req matrixRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		out := matrixResponse{Distances: make([][]float64, len(req.Origins))}
		for i, o := range req.Origins {
			out.Distances[i] = make([]float64, len(req.Destinations))
			for j, d := range req.Destinations {
				out.Distances[i][j] = math.Abs(o.X - d.X)
			}
		}
		json.NewEncoder(w).Encode(out)
	}))
	defer srv.Close()

	api := &MatrixAPI{BaseURL: srv.URL, APIKey: "k1", Chunk: 2}
	m, err := api.Matrix(context.Background(), all, model.UnitMeters)
	if err != nil {
		t.Fatalf("matrix: %v", err)
	}
	if calls != 4 {
		t.Fatalf("calls = %d, want 4 tiles for chunk 2 over 3 locations", calls)
	}
	for i := range all {
		for j := range all {
			want := math.Abs(all[i].X - all[j].X)
			if i == j {
				want = 0
			}
			if m[i][j] != want {
				t.Fatalf("m[%d][%d] = %v, want %v", i, j, m[i][j], want)
			}
		}
	}
}

func TestMatrixAPIStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()
	api := &MatrixAPI{BaseURL: srv.URL}
	if _, err := api.Matrix(context.Background(), []model.Coord{{X: 0, Y: 0}, {X: 1, Y: 0}}, model.UnitMeters); err == nil {
		t.Fatal("want error on non-200 response")
	}
}

func TestCacheKeyStable(t *testing.T) {
	locs := []model.Coord{{X: 1, Y: 2}, {X: 3, Y: 4}}
	a, err := cacheKey(locs, model.UnitMeters)
	if err != nil {
		t.Fatalf("key: %v", err)
	}
	b, err := cacheKey(locs, model.UnitMeters)
	if err != nil {
		t.Fatalf("key: %v", err)
	}
	if a != b {
		t.Fatalf("keys differ: %s vs %s", a, b)
	}
	c, err := cacheKey(locs, model.UnitSeconds)
	if err != nil {
		t.Fatalf("key: %v", err)
	}
	if a == c {
		t.Fatal("unit must be part of the key")
	}
}
