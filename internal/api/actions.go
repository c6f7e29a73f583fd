package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"dayvpn-panel/internal/format"
	"dayvpn-panel/internal/models"
)

// actionCatalog is the fixed set of relayable upstream operations.
var actionCatalog = []models.Action{
	{Name: "status", Label: "وضعیت کل", Method: "GET", Endpoint: "status"},
	{
		Name: "clients", Label: "لیست سرویس‌ها", Method: "GET", Endpoint: "clients",
		Fields: []models.ActionField{
			{Name: "limit", Label: "تعداد سرویس (اختیاری)", Type: "number"},
		},
	},
	{
		Name: "create", Label: "ساخت سرویس", Method: "POST", Endpoint: "create",
		Fields: []models.ActionField{
			{Name: "gig", Label: "مقدار حجم (گیگ)", Type: "number", Min: 0.5},
			{Name: "day", Label: "تعداد روز", Type: "number", Min: 1},
			{Name: "test", Label: "نوع سرویس (0=پولی,1=تست)", Type: "number", Required: true},
		},
	},
	{
		Name: "find", Label: "جستجوی سرویس", Method: "POST", Endpoint: "find",
		Fields: []models.ActionField{
			{Name: "username", Label: "نام سرویس", Required: true},
		},
	},
	{
		Name: "change_link", Label: "تغییر لینک سرویس", Method: "POST", Endpoint: "change_link",
		Fields: []models.ActionField{
			{Name: "username", Label: "نام سرویس", Required: true},
		},
	},
	{
		Name: "upg_time", Label: "افزایش زمان سرویس", Method: "POST", Endpoint: "upg_time",
		Fields: []models.ActionField{
			{Name: "username", Label: "نام سرویس", Required: true},
			{Name: "day", Label: "تعداد روز", Type: "number", Required: true, Min: 1},
		},
	},
	{
		Name: "upg_size", Label: "افزایش حجم سرویس", Method: "POST", Endpoint: "upg_size",
		Fields: []models.ActionField{
			{Name: "username", Label: "نام سرویس", Required: true},
			{Name: "gig", Label: "مقدار حجم (گیگ)", Type: "number", Required: true, Min: 0.5},
		},
	},
	{
		Name: "reverse_mode", Label: "تغییر وضعیت سرویس (خاموش/روشن)", Method: "POST", Endpoint: "reverse_mode",
		Fields: []models.ActionField{
			{Name: "username", Label: "نام سرویس", Required: true},
		},
	},
}

func findAction(name string) *models.Action {
	for i := range actionCatalog {
		if actionCatalog[i].Name == name {
			return &actionCatalog[i]
		}
	}
	return nil
}

// handleActions returns the action catalog
func (h *Handler) handleActions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, `{"error":"method not allowed"}`, 405)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(actionCatalog)
}

type actionResponse struct {
	OK      bool            `json:"ok"`
	Message string          `json:"message,omitempty"`
	Digest  string          `json:"digest,omitempty"`
	Shape   string          `json:"shape,omitempty"`
	Tree    *format.Node    `json:"tree,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
}

// handleAction validates inputs, relays the call upstream and pipes the
// response through both the digest formatter (Telegram + log) and the tree
// renderer (display).
func (h *Handler) handleAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, `{"error":"method not allowed"}`, 405)
		return
	}
	act := findAction(r.PathValue("name"))
	if act == nil {
		httpErr(w, errors.New("unknown action"), 404)
		return
	}

	var raw map[string]any
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		httpErr(w, errors.New("invalid body"), 400)
		return
	}
	params := make(map[string]string, len(raw))
	for k, v := range raw {
		params[k] = fieldString(v)
	}

	// Validation first: no network call on a missing required field.
	for _, f := range act.Fields {
		if f.Required && strings.TrimSpace(params[f.Name]) == "" {
			httpErr(w, fmt.Errorf("فیلد %s اجباری است!", f.Label), 400)
			return
		}
	}

	// One in-flight request per action slot; concurrent calls are rejected,
	// not queued.
	if !h.acquire(act.Name) {
		httpErr(w, errors.New("action already in progress"), 409)
		return
	}
	defer h.release(act.Name)

	env, err := h.relay.Call(r.Context(), act.Method, act.Endpoint, params)
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		msg := err.Error()
		h.forwardDigest(act.Endpoint, format.ShapeUnknown, msg, false)
		httpErr(w, errors.New(msg), 502)
		return
	}
	if !env.OK {
		msg := env.Error
		if msg == "" {
			msg = env.Message
		}
		h.forwardDigest(act.Endpoint, format.ShapeUnknown, msg, false)
		json.NewEncoder(w).Encode(actionResponse{OK: false, Message: msg})
		return
	}

	var result any
	if err := json.Unmarshal(env.Result, &result); err != nil {
		result = string(env.Result)
	}
	digest, shape := format.DigestShape(result)
	h.forwardDigest(act.Endpoint, shape, digest, true)

	json.NewEncoder(w).Encode(actionResponse{
		OK:     true,
		Digest: digest,
		Shape:  shape.String(),
		Tree:   format.Render(result),
		Result: env.Result,
	})
}

// forwardDigest sends the digest to the Telegram sink and records it
// centrally. Neither failure is surfaced to the caller.
func (h *Handler) forwardDigest(action string, shape format.Shape, text string, ok bool) {
	h.notifier.Send(text)
	if _, err := h.store.SaveDigest(models.DigestEntry{
		Action: action,
		Shape:  shape.String(),
		OK:     ok,
		Text:   text,
	}); err != nil {
		log.Printf("digest save failed: %v", err)
	}
}

func (h *Handler) acquire(slot string) bool {
	h.actionMu.Lock()
	defer h.actionMu.Unlock()
	if h.inFlight[slot] {
		return false
	}
	h.inFlight[slot] = true
	return true
}

func (h *Handler) release(slot string) {
	h.actionMu.Lock()
	delete(h.inFlight, slot)
	h.actionMu.Unlock()
}

func fieldString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}
