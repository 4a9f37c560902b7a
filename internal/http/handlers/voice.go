package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/wolfman30/hospital-voicebot/internal/knowledge"
	"github.com/wolfman30/hospital-voicebot/internal/observability/metrics"
	"github.com/wolfman30/hospital-voicebot/internal/voice"
	"github.com/wolfman30/hospital-voicebot/pkg/logging"
)

// VapiAPI is the outbound Vapi surface the setup route needs.
type VapiAPI interface {
	CreateOrUpdateAssistant(ctx context.Context, h knowledge.Hospital) (json.RawMessage, error)
}

// RetellAPI is the outbound Retell surface the setup routes need.
type RetellAPI interface {
	AgentID() string
	CreateAgent(ctx context.Context, h knowledge.Hospital) (json.RawMessage, error)
	UpdateAgentFunctions(ctx context.Context, agentID string, h knowledge.Hospital) (json.RawMessage, error)
	CreateWebCall(ctx context.Context, agentID string) (json.RawMessage, error)
}

// VoiceHandlerConfig wires a VoiceHandler. Vapi and Retell are optional;
// their setup routes answer 503 when missing.
type VoiceHandlerConfig struct {
	Dispatcher *voice.Dispatcher
	Hospital   knowledge.Hospital
	Vapi       VapiAPI
	Retell     RetellAPI
	Metrics    *metrics.VoiceMetrics
	Logger     *logging.Logger
}

// VoiceHandler serves the Vapi and Retell webhook and setup routes.
type VoiceHandler struct {
	dispatcher *voice.Dispatcher
	hospital   knowledge.Hospital
	vapi       VapiAPI
	retell     RetellAPI
	metrics    *metrics.VoiceMetrics
	logger     *logging.Logger
}

func NewVoiceHandler(cfg VoiceHandlerConfig) *VoiceHandler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &VoiceHandler{
		dispatcher: cfg.Dispatcher,
		hospital:   cfg.Hospital,
		vapi:       cfg.Vapi,
		retell:     cfg.Retell,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
	}
}

func (h *VoiceHandler) observe(platform string, start time.Time) {
	h.metrics.ObserveWebhookLatency(platform, time.Since(start).Seconds())
}

// VapiWebhook handles POST /api/vapi/webhook (legacy function-call format).
func (h *VoiceHandler) VapiWebhook(w http.ResponseWriter, r *http.Request) {
	defer h.observe(voice.PlatformVapi, time.Now())

	var hook voice.VapiWebhook
	if err := decodeBody(r, &hook); err != nil {
		h.logger.Warn("vapi: invalid webhook body", "error", err)
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	msg := hook.Message
	if msg.Type == voice.VapiFunctionCallType && msg.FunctionCall != nil {
		res := h.dispatcher.HandleVapiFunction(r.Context(), msg.FunctionCall.Name, msg.FunctionCall.Parameters)
		// The full result object here; /api/vapi/tool-calls answers with the speech string only.
		writeJSON(w, http.StatusOK, map[string]any{"result": res})
		return
	}
	h.logger.Debug("vapi: non-function message", "type", msg.Type)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// VapiToolCalls handles POST /api/vapi/tool-calls, which accepts both the
// tool-calls and the legacy function-call formats.
func (h *VoiceHandler) VapiToolCalls(w http.ResponseWriter, r *http.Request) {
	defer h.observe(voice.PlatformVapi, time.Now())

	var hook voice.VapiWebhook
	if err := decodeBody(r, &hook); err != nil {
		h.logger.Warn("vapi: invalid tool-calls body", "error", err)
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	msg := hook.Message
	switch {
	case msg.Type == voice.VapiToolCallsType && len(msg.ToolCallList) > 0:
		results := h.dispatcher.HandleVapiToolCalls(r.Context(), msg.ToolCallList)
		writeJSON(w, http.StatusOK, map[string]any{"results": results})
	case msg.Type == voice.VapiFunctionCallType && msg.FunctionCall != nil:
		res := h.dispatcher.HandleVapiFunction(r.Context(), msg.FunctionCall.Name, msg.FunctionCall.Parameters)
		// Speech only, unlike the object VapiWebhook returns for the same body.
		writeJSON(w, http.StatusOK, map[string]string{"result": res.Speech()})
	default:
		h.logger.Debug("vapi: non-function message", "type", msg.Type)
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

// VapiSetupAssistant handles POST /api/vapi/setup-assistant.
func (h *VoiceHandler) VapiSetupAssistant(w http.ResponseWriter, r *http.Request) {
	if h.vapi == nil {
		jsonError(w, "VAPI_API_KEY not configured in environment variables", http.StatusServiceUnavailable)
		return
	}
	assistant, err := h.vapi.CreateOrUpdateAssistant(r.Context(), h.hospital)
	if err != nil {
		h.logger.Error("vapi: setup assistant failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorWithDetails(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "assistant": assistant})
}

// RetellWebhook handles POST /api/retell/webhook.
func (h *VoiceHandler) RetellWebhook(w http.ResponseWriter, r *http.Request) {
	defer h.observe(voice.PlatformRetell, time.Now())

	var hook voice.RetellWebhook
	if err := decodeBody(r, &hook); err != nil {
		h.logger.Warn("retell: invalid webhook body", "error", err)
		writeJSON(w, http.StatusInternalServerError, voice.RetellResponse{
			Result: fmt.Sprintf("I apologize, I encountered a technical issue: %s", err.Error()),
		})
		return
	}
	if hook.FunctionName == "" {
		writeJSON(w, http.StatusOK, voice.RetellResponse{Response: "Acknowledged"})
		return
	}
	writeJSON(w, http.StatusOK, h.dispatcher.HandleRetellFunction(r.Context(), hook))
}

func (h *VoiceHandler) retellAgent(w http.ResponseWriter) (string, bool) {
	if h.retell == nil {
		jsonError(w, "RETELL_API_KEY not configured in environment variables", http.StatusServiceUnavailable)
		return "", false
	}
	id := h.retell.AgentID()
	if id == "" {
		jsonError(w, "RETELL_AGENT_ID not configured in environment variables", http.StatusBadRequest)
		return "", false
	}
	return id, true
}

// RetellCreateWebCall handles POST /api/retell/create-web-call.
func (h *VoiceHandler) RetellCreateWebCall(w http.ResponseWriter, r *http.Request) {
	agentID, ok := h.retellAgent(w)
	if !ok {
		return
	}
	call, err := h.retell.CreateWebCall(r.Context(), agentID)
	if err != nil {
		h.logger.Error("retell: create web call failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorWithDetails(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "webCall": call})
}

// RetellSetupAgent handles POST /api/retell/setup-agent.
func (h *VoiceHandler) RetellSetupAgent(w http.ResponseWriter, r *http.Request) {
	if h.retell == nil {
		jsonError(w, "RETELL_API_KEY not configured in environment variables", http.StatusServiceUnavailable)
		return
	}
	agent, err := h.retell.CreateAgent(r.Context(), h.hospital)
	if err != nil {
		h.logger.Error("retell: setup agent failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorWithDetails(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "agent": agent})
}

// RetellUpdateAgentFunctions handles POST /api/retell/update-agent-functions.
func (h *VoiceHandler) RetellUpdateAgentFunctions(w http.ResponseWriter, r *http.Request) {
	agentID, ok := h.retellAgent(w)
	if !ok {
		return
	}
	agent, err := h.retell.UpdateAgentFunctions(r.Context(), agentID, h.hospital)
	if err != nil {
		h.logger.Error("retell: update agent functions failed", "error", err, "agent_id", agentID)
		writeJSON(w, http.StatusInternalServerError, errorWithDetails(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"agent":   agent,
		"message": "Custom functions added successfully to agent " + agentID,
	})
}

func errorWithDetails(err error) map[string]any {
	out := map[string]any{"error": err.Error()}
	var apiErr *voice.APIError
	if errors.As(err, &apiErr) {
		out["details"] = apiErr.Body
	}
	return out
}
