package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"northscrape-engine/internal/config"
	"northscrape-engine/internal/domain"
	"northscrape-engine/internal/events"
	"northscrape-engine/internal/store"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func TestShutdownHandler(t *testing.T) {
	var stopped atomic.Int32
	h := shutdownHandler("s3cret", func() { stopped.Add(1) })

	tests := []struct {
		name   string
		method string
		remote string
		token  string
		want   int
	}{
		{"wrong method", http.MethodGet, "127.0.0.1:4000", "s3cret", http.StatusMethodNotAllowed},
		{"remote caller", http.MethodPost, "10.0.0.8:4000", "s3cret", http.StatusForbidden},
		{"missing token", http.MethodPost, "127.0.0.1:4000", "", http.StatusUnauthorized},
		{"bad token", http.MethodPost, "[::1]:4000", "nope", http.StatusUnauthorized},
		{"ok", http.MethodPost, "127.0.0.1:4000", "s3cret", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/shutdown", nil)
			req.RemoteAddr = tt.remote
			if tt.token != "" {
				req.Header.Set("X-Shutdown-Token", tt.token)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			assert.Equal(t, tt.want, rr.Code)
		})
	}
	assert.Eventually(t, func() bool { return stopped.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestRandomToken(t *testing.T) {
	a, err := randomToken(16)
	require.NoError(t, err)
	b, err := randomToken(16)
	require.NoError(t, err)
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}

func TestSheetFormat(t *testing.T) {
	assert.Equal(t, "xlsx", sheetFormat("out/Leads.XLSX"))
	assert.Equal(t, "csv", sheetFormat("leads.csv"))
	assert.Equal(t, "csv", sheetFormat("leads"))
}

func TestLeadsFileRoundTrip(t *testing.T) {
	leads := []domain.Lead{{
		Name:    "Bob's Plumbing",
		Address: domain.AddressParts{Street: "123 Main St", City: "Sudbury", Province: "ON", PostalCode: "P3A 1B2"},
		Phone:   "(705) 555-0101",
		Website: "https://bobsplumbing.ca",
		Status:  domain.LeadEnriched,
	}}
	for _, name := range []string{"leads.csv", "leads.xlsx"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, writeLeadsFile(path, nil, leads))

			res, err := readLeadsFile(path)
			require.NoError(t, err)
			require.Len(t, res.Leads, 1)
			assert.Equal(t, "Bob's Plumbing", res.Leads[0].Name)
			assert.Equal(t, "Sudbury", res.Leads[0].Address.City)
			assert.Equal(t, "(705) 555-0101", res.Leads[0].Phone)
		})
	}

	var buf bytes.Buffer
	require.NoError(t, writeLeadsFile("", &buf, leads))
	assert.True(t, strings.HasPrefix(buf.String(), "Name,"))
}

func TestNewEngine_LocksDataDir(t *testing.T) {
	c := config.Default()
	c.App.DataDir = t.TempDir()

	eng, err := newEngine(context.Background(), c)
	require.NoError(t, err)

	_, err = newEngine(context.Background(), c)
	assert.ErrorIs(t, err, store.ErrDataDirLocked)

	eng.Close()
	again, err := newEngine(context.Background(), c)
	require.NoError(t, err)
	again.Close()

	assert.FileExists(t, filepath.Join(c.App.DataDir, dbFile))
}

func TestStoreDSN(t *testing.T) {
	c := config.Default()
	c.App.DataDir = "/var/lib/northscrape"
	assert.Equal(t, filepath.Join("/var/lib/northscrape", dbFile), storeDSN(c))

	c.Store.Driver = "postgres"
	c.Store.DSN = "postgres://localhost/leads"
	assert.Equal(t, "postgres://localhost/leads", storeDSN(c))
}

func TestPrintEvent(t *testing.T) {
	var buf bytes.Buffer
	lead := &domain.Lead{Name: "Bob's Plumbing", Address: domain.AddressParts{City: "Sudbury"}, Phone: "(705) 555-0101"}
	printEvent(&buf, events.Event{Kind: events.LeadDiscovered, Lead: lead})
	printEvent(&buf, events.Event{Kind: events.LeadEnriched, Lead: lead})
	printEvent(&buf, events.Event{Kind: events.LeadFailed, Lead: lead, Reason: "search lookup: timeout"})

	out := buf.String()
	assert.Contains(t, out, "found    Bob's Plumbing, Sudbury")
	assert.Contains(t, out, "enriched Bob's Plumbing  (705) 555-0101  -")
	assert.Contains(t, out, "failed   Bob's Plumbing: search lookup: timeout")
}
