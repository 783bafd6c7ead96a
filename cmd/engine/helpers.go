package main

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"northscrape-engine/internal/domain"
	"northscrape-engine/internal/export"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// shutdownHandler lets the desktop shell stop a sidecar engine. Only loopback
// callers holding the token are accepted.
func shutdownHandler(token string, stop func()) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			// RemoteAddr can be a bare host
			host = r.RemoteAddr
		}
		if host != "127.0.0.1" && host != "::1" && host != "localhost" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		got := r.Header.Get("X-Shutdown-Token")
		if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("shutting down\n"))
		go stop()
	}
}

// sheetFormat picks xlsx or csv from a file name.
func sheetFormat(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return "xlsx"
	}
	return "csv"
}

// writeLeadsFile writes leads to path, or CSV to stdout when path is empty.
func writeLeadsFile(path string, stdout io.Writer, leads []domain.Lead) error {
	if path == "" {
		return export.WriteCSV(stdout, leads)
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "create %s", path)
	}
	if sheetFormat(path) == "xlsx" {
		err = export.WriteXLSX(f, leads)
	} else {
		err = export.WriteCSV(f, leads)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return eris.Wrapf(err, "write %s", path)
}

func readLeadsFile(path string) (export.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return export.Result{}, eris.Wrapf(err, "open %s", path)
	}
	defer f.Close()
	if sheetFormat(path) == "xlsx" {
		return export.ReadXLSX(f)
	}
	return export.ReadCSV(f)
}
