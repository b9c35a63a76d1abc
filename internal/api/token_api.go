// Package api exposes the device registration endpoints and the manual
// dispatch trigger.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tsvet01/eng-pulse/pkg/push"
)

// Trigger runs a single-provider dispatch cycle on demand.
type Trigger interface {
	Dispatch(ctx context.Context, provider push.Provider, n push.Notification) int
}

type TokenAPI struct {
	Store      push.EndpointStore
	Dispatcher Trigger
	Logger     *slog.Logger
}

func NewTokenAPI(store push.EndpointStore, dispatcher Trigger, logger *slog.Logger) *TokenAPI {
	return &TokenAPI{
		Store:      store,
		Dispatcher: dispatcher,
		Logger:     logger.With("component", "TokenAPI"),
	}
}

// --- FCM registration ---

type RegisterFCMRequest struct {
	Token      string `json:"token"`
	Platform   string `json:"platform"`
	AppVersion string `json:"app_version"`
}

func (api *TokenAPI) RegisterFCM(w http.ResponseWriter, r *http.Request) {
	var req RegisterFCMRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	token := strings.TrimSpace(req.Token)
	platform := strings.ToLower(strings.TrimSpace(req.Platform))

	if !push.ValidFCMToken(token) {
		writeError(w, http.StatusBadRequest, "Invalid FCM token format")
		return
	}
	if !push.ValidPlatform(platform) {
		writeError(w, http.StatusBadRequest, "Invalid platform. Must be ios, android, or web")
		return
	}

	now := time.Now().UTC()
	endpoint := push.Endpoint{
		Token:        token,
		Provider:     push.ProviderFCM,
		Platform:     platform,
		AppVersion:   strings.TrimSpace(req.AppVersion),
		Active:       true,
		RegisteredAt: now,
		LastSeen:     now,
	}

	if err := api.Store.Upsert(r.Context(), endpoint); err != nil {
		api.Logger.Error("Failed to register FCM token", "err", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	api.Logger.Info("FCM token registered", "platform", platform, "app_version", endpoint.AppVersion)
	writeSuccess(w, "Token registered successfully")
}

type UnregisterRequest struct {
	Token string `json:"token"`
}

func (api *TokenAPI) UnregisterFCM(w http.ResponseWriter, r *http.Request) {
	var req UnregisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	token := strings.TrimSpace(req.Token)
	if !push.ValidFCMToken(token) {
		writeError(w, http.StatusBadRequest, "Invalid FCM token format")
		return
	}

	if err := api.Store.Unregister(r.Context(), push.ProviderFCM, token); err != nil {
		api.Logger.Error("Failed to unregister FCM token", "err", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	api.Logger.Info("FCM token unregistered")
	writeSuccess(w, "Token unregistered successfully")
}

// --- APNs registration ---

type RegisterAPNSRequest struct {
	Token      string `json:"token"`
	AppVersion string `json:"app_version"`
	Sandbox    bool   `json:"sandbox"`
}

func (api *TokenAPI) RegisterAPNS(w http.ResponseWriter, r *http.Request) {
	var req RegisterAPNSRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	// Device tokens arrive in mixed case; stored form is lowercase hex.
	token := strings.ToLower(strings.TrimSpace(req.Token))

	if !push.ValidAPNSToken(token) {
		writeError(w, http.StatusBadRequest, "Invalid APNs token format")
		return
	}

	now := time.Now().UTC()
	endpoint := push.Endpoint{
		Token:        token,
		Provider:     push.ProviderAPNS,
		Platform:     "ios",
		AppVersion:   strings.TrimSpace(req.AppVersion),
		Sandbox:      req.Sandbox,
		Active:       true,
		RegisteredAt: now,
		LastSeen:     now,
	}

	if err := api.Store.Upsert(r.Context(), endpoint); err != nil {
		api.Logger.Error("Failed to register APNs token", "err", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	api.Logger.Info("APNs token registered", "sandbox", req.Sandbox, "app_version", endpoint.AppVersion)
	writeSuccess(w, "APNs token registered successfully")
}

func (api *TokenAPI) UnregisterAPNS(w http.ResponseWriter, r *http.Request) {
	var req UnregisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	token := strings.ToLower(strings.TrimSpace(req.Token))
	if !push.ValidAPNSToken(token) {
		writeError(w, http.StatusBadRequest, "Invalid APNs token format")
		return
	}

	if err := api.Store.Unregister(r.Context(), push.ProviderAPNS, token); err != nil {
		api.Logger.Error("Failed to unregister APNs token", "err", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	api.Logger.Info("APNs token unregistered")
	writeSuccess(w, "APNs token unregistered successfully")
}

// --- Manual trigger ---

type TriggerRequest struct {
	Title      string `json:"title"`
	Body       string `json:"body"`
	ArticleURL string `json:"article_url"`
}

// TriggerAPNS sends a test notification to every active APNs device.
func (api *TokenAPI) TriggerAPNS(w http.ResponseWriter, r *http.Request) {
	req := TriggerRequest{
		Title:      "Test Notification",
		Body:       "This is a test notification",
		ArticleURL: "https://example.com",
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}
	}

	n := push.Notification{Title: req.Title, Body: req.Body, ArticleURL: req.ArticleURL}
	count := api.Dispatcher.Dispatch(r.Context(), push.ProviderAPNS, n)

	writeJSON(w, http.StatusOK, TriggerResponse{Success: true, NotificationsSent: count})
}
