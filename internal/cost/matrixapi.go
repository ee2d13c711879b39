package cost

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"qroute/internal/model"
)

// Remote distance providers cap the elements per request, commonly at 100,
// so requests are tiled in blocks of up to chunk x chunk locations.
const defaultChunk = 10

// MatrixAPI fetches a travel matrix from an external distance service. The
// key is passed explicitly at construction; nothing here reads the
// environment.
type MatrixAPI struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
	Chunk   int
}

type matrixRequest struct {
	Origins      []model.Coord      `json:"origins"`
	Destinations []model.Coord      `json:"destinations"`
	Unit         model.DistanceUnit `json:"unit"`
}

type matrixResponse struct {
	Distances [][]float64 `json:"distances"`
}

// Matrix fetches the full matrix for locs, tiling requests as needed.
func (m *MatrixAPI) Matrix(ctx context.Context, locs []model.Coord, unit model.DistanceUnit) ([][]float64, error) {
	n := len(locs)
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, n)
	}
	chunk := m.Chunk
	if chunk <= 0 {
		chunk = defaultChunk
	}
	for oi := 0; oi < n; oi += chunk {
		oj := min(oi+chunk, n)
		for di := 0; di < n; di += chunk {
			dj := min(di+chunk, n)
			block, err := m.fetch(ctx, matrixRequest{
				Origins:      locs[oi:oj],
				Destinations: locs[di:dj],
				Unit:         unit,
			})
			if err != nil {
				return nil, err
			}
			if len(block) != oj-oi {
				return nil, fmt.Errorf("matrix api returned %d rows, want %d", len(block), oj-oi)
			}
			for r, row := range block {
				if len(row) != dj-di {
					return nil, fmt.Errorf("matrix api returned %d columns, want %d", len(row), dj-di)
				}
				copy(out[oi+r][di:dj], row)
			}
		}
	}
	for i := range out {
		out[i][i] = 0
	}
	return out, nil
}

func (m *MatrixAPI) fetch(ctx context.Context, reqBody matrixRequest) ([][]float64, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.BaseURL+"/matrix", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if m.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+m.APIKey)
	}
	client := m.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("matrix api status %d: %s", resp.StatusCode, snippet)
	}
	var mr matrixResponse
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		return nil, err
	}
	return mr.Distances, nil
}

// CostFunc adapts the client to the pluggable cost interface.
func (m *MatrixAPI) CostFunc(ctx context.Context) model.CostFunc {
	return func(locs []model.Coord, unit model.DistanceUnit) ([][]float64, error) {
		return m.Matrix(ctx, locs, unit)
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
