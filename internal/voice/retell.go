package voice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/wolfman30/hospital-voicebot/internal/knowledge"
)

const (
	PlatformRetell       = "retell"
	defaultRetellBaseURL = "https://api.retellai.com"
)

// RetellWebhook is a custom-function call from a Retell agent. Events without
// a function name are acknowledged only.
type RetellWebhook struct {
	FunctionName string          `json:"function_name"`
	Arguments    json.RawMessage `json:"arguments"`
	CallID       string          `json:"call_id"`
}

// RetellResponse is returned to Retell; Result is spoken by the agent.
type RetellResponse struct {
	Result   string `json:"result,omitempty"`
	Response string `json:"response,omitempty"`
}

// HandleRetellFunction runs a Retell function call.
func (d *Dispatcher) HandleRetellFunction(ctx context.Context, hook RetellWebhook) RetellResponse {
	res, err := d.Dispatch(ctx, PlatformRetell, hook.FunctionName, hook.Arguments)
	if err == nil {
		return RetellResponse{Result: res.Speech()}
	}
	if errors.Is(err, ErrUnknownFunction) {
		return RetellResponse{Result: "Unknown function"}
	}
	d.logger.Error("retell function failed", "function", hook.FunctionName, "call_id", hook.CallID, "error", err)
	return RetellResponse{Result: fmt.Sprintf("I'm sorry, I encountered an error: %s", err.Error())}
}

// RetellTool is a custom tool entry in an agent definition.
type RetellTool struct {
	Type string `json:"type"`
	FunctionDef
}

func retellTools() []RetellTool {
	defs := Functions()
	out := make([]RetellTool, len(defs))
	for i, def := range defs {
		out[i] = RetellTool{Type: "custom", FunctionDef: def}
	}
	return out
}

type retellEngine struct {
	Type  string `json:"type"`
	LLMID string `json:"llm_id,omitempty"`
}

// RetellAgent is the agent definition pushed to Retell.
type RetellAgent struct {
	AgentName             string       `json:"agent_name"`
	VoiceID               string       `json:"voice_id"`
	VoiceModel            string       `json:"voice_model"`
	Language              string       `json:"language"`
	ResponseEngine        retellEngine `json:"response_engine"`
	GeneralPrompt         string       `json:"general_prompt"`
	GeneralTools          []RetellTool `json:"general_tools"`
	BeginMessage          string       `json:"begin_message"`
	EndCallAfterSilenceMS int          `json:"end_call_after_silence_ms"`
}

type retellAgentUpdate struct {
	GeneralPrompt string       `json:"general_prompt"`
	GeneralTools  []RetellTool `json:"general_tools"`
}

// RetellClient manages agents and calls through the Retell REST API.
type RetellClient struct {
	api     *apiClient
	agentID string
	llmID   string
}

func NewRetellClient(cfg ClientConfig, agentID, llmID string) (*RetellClient, error) {
	api, err := newAPIClient(PlatformRetell, defaultRetellBaseURL, cfg)
	if err != nil {
		return nil, err
	}
	return &RetellClient{api: api, agentID: strings.TrimSpace(agentID), llmID: strings.TrimSpace(llmID)}, nil
}

// AgentID is the configured agent, empty when none is set.
func (c *RetellClient) AgentID() string { return c.agentID }

func (c *RetellClient) NewAgent(h knowledge.Hospital) RetellAgent {
	return RetellAgent{
		AgentName:             h.Name + " Doctor Booking Assistant",
		VoiceID:               "11labs-Adrian",
		VoiceModel:            "eleven_turbo_v2",
		Language:              "en-US",
		ResponseEngine:        retellEngine{Type: "retell-llm", LLMID: c.llmID},
		GeneralPrompt:         RetellPrompt(h),
		GeneralTools:          retellTools(),
		BeginMessage:          Greeting(h),
		EndCallAfterSilenceMS: 30000,
	}
}

func (c *RetellClient) CreateAgent(ctx context.Context, h knowledge.Hospital) (json.RawMessage, error) {
	out, err := c.api.do(ctx, http.MethodPost, "/create-agent", c.NewAgent(h))
	if err != nil {
		return nil, err
	}
	var created struct {
		AgentID string `json:"agent_id"`
	}
	_ = json.Unmarshal(out, &created)
	c.api.logger.Info("retell agent created; set RETELL_AGENT_ID", "agent_id", created.AgentID)
	return out, nil
}

// UpdateAgentFunctions replaces the prompt and tools on an existing agent.
func (c *RetellClient) UpdateAgentFunctions(ctx context.Context, agentID string, h knowledge.Hospital) (json.RawMessage, error) {
	if strings.TrimSpace(agentID) == "" {
		return nil, errors.New("voice: agent id required")
	}
	update := retellAgentUpdate{GeneralPrompt: RetellPrompt(h), GeneralTools: retellTools()}
	return c.api.do(ctx, http.MethodPatch, "/update-agent/"+url.PathEscape(agentID), update)
}

// CreateWebCall opens a browser call. The correlation id lets webhook logs
// be tied back to the request that opened the call.
func (c *RetellClient) CreateWebCall(ctx context.Context, agentID string) (json.RawMessage, error) {
	if strings.TrimSpace(agentID) == "" {
		return nil, errors.New("voice: agent id required")
	}
	body := map[string]any{
		"agent_id": agentID,
		"metadata": map[string]string{"correlation_id": uuid.NewString()},
	}
	return c.api.do(ctx, http.MethodPost, "/v2/create-web-call", body)
}

func (c *RetellClient) CreatePhoneCall(ctx context.Context, to, from, agentID, hospitalName string) (json.RawMessage, error) {
	if strings.TrimSpace(to) == "" || strings.TrimSpace(from) == "" {
		return nil, errors.New("voice: to and from numbers required")
	}
	body := map[string]any{
		"from_number": from,
		"to_number":   to,
		"agent_id":    agentID,
		"retell_llm_dynamic_variables": map[string]string{
			"hospital_name": hospitalName,
		},
	}
	return c.api.do(ctx, http.MethodPost, "/create-phone-call", body)
}

func (c *RetellClient) RegisterPhoneNumber(ctx context.Context, number, agentID string) (json.RawMessage, error) {
	if strings.TrimSpace(number) == "" {
		return nil, errors.New("voice: phone number required")
	}
	body := map[string]string{"phone_number": number, "agent_id": agentID}
	return c.api.do(ctx, http.MethodPost, "/register-phone-number", body)
}
