package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"festreg/internal/config"
	"festreg/internal/connect"
	"festreg/internal/errdef"
	"festreg/internal/models"
	"festreg/internal/notify"
	"festreg/internal/report"
	"festreg/internal/settings"
	"festreg/internal/sheetsync"
	"festreg/internal/store"
)

func New(cfg config.Config, st *store.Store, res *connect.Resolver, bridge *sheetsync.Bridge, sett *settings.Store, n notify.Notifier) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/registrations", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, map[string]any{
				"registrations": st.List(),
				"groups":        st.GroupByEvent(),
				"events":        models.EventOptions,
				"classes":       models.ClassOptions,
				"mode":          res.Mode(),
			})
		case http.MethodPost:
			var in models.Input
			if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
				writeError(w, n, errdef.NewValidation("decode request: %v", err))
				return
			}
			reg, err := st.Create(r.Context(), in)
			if err != nil {
				writeError(w, n, err)
				return
			}
			n.Successf("Registration added for %s.", reg.Event)
			writeJSON(w, http.StatusCreated, reg)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/registrations/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/api/registrations/")
		if id == "" || strings.Contains(id, "/") {
			http.NotFound(w, r)
			return
		}
		switch r.Method {
		case http.MethodPut:
			var in models.Input
			if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
				writeError(w, n, errdef.NewValidation("decode request: %v", err))
				return
			}
			if err := st.Update(r.Context(), id, in); err != nil {
				writeError(w, n, err)
				return
			}
			n.Successf("Entry updated.")
			writeJSON(w, http.StatusOK, map[string]any{"ok": true, "id": id})
		case http.MethodDelete:
			if err := st.Delete(r.Context(), id); err != nil {
				writeError(w, n, err)
				return
			}
			n.Infof("Entry deleted.")
			writeJSON(w, http.StatusOK, map[string]any{"ok": true, "id": id})
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"mode":     res.Mode(),
			"userId":   res.UserID(),
			"count":    len(st.List()),
			"sheetUrl": sett.SheetURL(),
		})
	})

	// Save a remote-config override and reconnect with it. Connecting
	// runs in the background; poll /api/status for the outcome.
	mux.HandleFunc("/api/config", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var c connect.Config
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			writeError(w, n, errdef.NewValidation("decode config: %v", err))
			return
		}
		if c.APIKey == "" {
			writeError(w, n, errdef.NewValidation("missing apiKey in config"))
			return
		}
		if err := sett.SetConfigOverride(c); err != nil {
			writeError(w, n, err)
			return
		}
		n.Infof("Configuration updated. Connecting...")
		go res.Apply(context.Background(), c)
		writeJSON(w, http.StatusAccepted, map[string]any{"ok": true, "mode": connect.ModeConnecting})
	})

	mux.HandleFunc("/api/offline", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		res.GoOffline()
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "mode": res.Mode()})
	})

	mux.HandleFunc("/api/settings/sheet-url", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, map[string]string{"url": sett.SheetURL()})
		case http.MethodPut:
			var body struct {
				URL string `json:"url"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				writeError(w, n, errdef.NewValidation("decode request: %v", err))
				return
			}
			if strings.TrimSpace(body.URL) == "" {
				writeError(w, n, errdef.NewValidation("url is required"))
				return
			}
			if err := sett.SetSheetURL(strings.TrimSpace(body.URL)); err != nil {
				writeError(w, n, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// Sync calls use a background context on purpose: a push or pull
	// already in flight runs to completion even if the operator's
	// request is abandoned.
	mux.HandleFunc("/api/sync/push", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		count, err := bridge.Push(context.Background())
		if err != nil {
			writeError(w, n, err)
			return
		}
		n.Successf("Sent %d rows to the sheet. Check the sheet to confirm receipt.", count)
		writeJSON(w, http.StatusOK, map[string]any{"pushed": count})
	})

	mux.HandleFunc("/api/sync/pull", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		result, err := bridge.Pull(context.Background())
		if err != nil {
			writeError(w, n, err)
			return
		}
		if result.Empty {
			n.Infof("Sheet is empty or no data found.")
		} else {
			n.Successf("Imported entries from the sheet.")
		}
		writeJSON(w, http.StatusOK, map[string]any{"imported": result.Imported, "empty": result.Empty})
	})

	mux.HandleFunc("/export/roster.pdf", func(w http.ResponseWriter, r *http.Request) {
		groups := st.GroupByEvent()
		if len(groups) == 0 {
			writeError(w, n, errdef.NewValidation("nothing to export yet"))
			return
		}
		data, err := report.Build(groups)
		if err != nil {
			writeError(w, n, err)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="`+report.FileName+`"`)
		_, _ = w.Write(data)
	})

	return &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError converts a failure into a notification and a JSON error
// body; nothing propagates to the mux unhandled.
func writeError(w http.ResponseWriter, n notify.Notifier, err error) {
	status := http.StatusInternalServerError
	switch {
	case errdef.IsValidation(err), errdef.IsMalformedResponse(err):
		status = http.StatusBadRequest
	case errdef.IsNotFound(err):
		status = http.StatusNotFound
	case errdef.IsNotReady(err):
		status = http.StatusServiceUnavailable
	case errdef.IsBusy(err):
		status = http.StatusConflict
	case errdef.IsConnectivity(err):
		status = http.StatusBadGateway
	}
	n.Errorf("%v", err)
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
