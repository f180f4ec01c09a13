package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"itinerary/internal/config"
	"itinerary/internal/model"
	"itinerary/internal/store"
)

const feed = "상호명,업종명,위도,경도,영업시간\n" +
	"Alpha,카페,37.5801,127.0401,09:00~21:00\n" +
	"Bravo,편의점,37.5810,127.0410,\n" +
	"Broken,카페,north,127.0,\n" +
	"Charlie,과일,37.5820,127.0420,\n"

func writeFeed(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "feed.csv")
	require.NoError(t, os.WriteFile(path, []byte(feed), 0o644))
	return path
}

func execute(t *testing.T, cmd *cobra.Command, args ...string) []byte {
	t.Helper()
	logger = zap.NewNop()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	return out.Bytes()
}

func TestIngestWritesSeed(t *testing.T) {
	seed := filepath.Join(t.TempDir(), "stores.json")
	out := execute(t, ingestCmd(), writeFeed(t), "--out", seed)

	var resp struct {
		Report struct {
			Rows    int `json:"rows"`
			Kept    int `json:"kept"`
			Dropped int `json:"dropped"`
		} `json:"report"`
	}
	require.NoError(t, json.Unmarshal(out, &resp))
	assert.Equal(t, 4, resp.Report.Rows)
	assert.Equal(t, 3, resp.Report.Kept)
	assert.Equal(t, 1, resp.Report.Dropped)

	stores, err := store.ReadSeed(seed)
	require.NoError(t, err)
	require.Len(t, stores, 3)
	assert.Equal(t, model.CategoryCafe, stores[0].Category)
	assert.Equal(t, model.CategoryMart, stores[1].Category)
}

func TestIngestIntoSQLite(t *testing.T) {
	db := filepath.Join(t.TempDir(), "catalog.db")
	execute(t, ingestCmd(), writeFeed(t), "--out", "", "--store", "sqlite", "--dsn", db)

	st, err := store.NewSQLite(t.Context(), db)
	require.NoError(t, err)
	defer st.Close()
	got, err := st.LoadCatalog(t.Context())
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestPlanFromFeed(t *testing.T) {
	out := execute(t, planCmd(), writeFeed(t), "--lat", "37.58", "--lng", "127.04", "-w", "Cafe,Mart", "-w", "Unknown")

	var res model.PlanResult
	require.NoError(t, json.Unmarshal(out, &res))
	require.Len(t, res.Stops, 2)
	assert.Equal(t, "Alpha", res.Stops[0].Name)
	assert.Equal(t, "Bravo", res.Stops[1].Name)
}

func TestIntentWithoutCatalog(t *testing.T) {
	out := execute(t, intentCmd(), "카페", "갔다가", "과일")

	var in model.Intent
	require.NoError(t, json.Unmarshal(out, &in))
	var cats []string
	for _, w := range in.Waypoints {
		cats = append(cats, w.Category)
	}
	assert.Equal(t, []string{model.CategoryCafe, model.CategoryFruitShop}, cats)
}

func TestSearchSeed(t *testing.T) {
	seed := filepath.Join(t.TempDir(), "stores.json")
	execute(t, ingestCmd(), writeFeed(t), "--out", seed)

	out := execute(t, searchCmd(), seed, "--category", "all", "--limit", "2")
	var resp struct {
		Items []json.RawMessage `json:"items"`
	}
	require.NoError(t, json.Unmarshal(out, &resp))
	assert.Len(t, resp.Items, 2)
}

func TestConfigInitWritesLoadableDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "config.yaml")
	execute(t, configCmd(), "init", path)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)

	cmd := configCmd()
	cmd.SetArgs([]string{"init", path})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	require.Error(t, cmd.Execute(), "existing file is kept without --force")

	execute(t, configCmd(), "init", "--force", path)
}
