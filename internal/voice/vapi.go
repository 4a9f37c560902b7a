package voice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/wolfman30/hospital-voicebot/internal/knowledge"
)

const (
	PlatformVapi       = "vapi"
	defaultVapiBaseURL = "https://api.vapi.ai"
)

// VapiWebhook is the envelope Vapi posts for every server message.
type VapiWebhook struct {
	Message VapiMessage `json:"message"`
}

// VapiMessage carries either a legacy function call or a tool-call list.
type VapiMessage struct {
	Type         string            `json:"type"`
	FunctionCall *VapiFunctionCall `json:"functionCall,omitempty"`
	ToolCallList []VapiToolCall    `json:"toolCallList,omitempty"`
}

type VapiFunctionCall struct {
	Name       string          `json:"name"`
	Parameters json.RawMessage `json:"parameters"`
}

type VapiToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	} `json:"function"`
}

// VapiToolResult answers one entry of a tool-call list.
type VapiToolResult struct {
	ToolCallID string `json:"toolCallId"`
	Result     string `json:"result"`
}

// Message types Vapi sends that carry function calls.
const (
	VapiFunctionCallType = "function-call"
	VapiToolCallsType    = "tool-calls"
)

// HandleVapiFunction runs a function call and folds failures into the result
// so the assistant always gets something to say.
func (d *Dispatcher) HandleVapiFunction(ctx context.Context, name string, params json.RawMessage) *Result {
	res, err := d.Dispatch(ctx, PlatformVapi, name, params)
	if err == nil {
		return res
	}
	if errors.Is(err, ErrUnknownFunction) {
		return &Result{Error: "Unknown function"}
	}
	d.logger.Error("vapi function failed", "function", name, "error", err)
	return &Result{Error: err.Error()}
}

// HandleVapiToolCalls answers every function entry in a tool-call list.
func (d *Dispatcher) HandleVapiToolCalls(ctx context.Context, calls []VapiToolCall) []VapiToolResult {
	out := make([]VapiToolResult, 0, len(calls))
	for _, call := range calls {
		if call.Type != "function" {
			continue
		}
		res := d.HandleVapiFunction(ctx, call.Function.Name, call.Function.Arguments)
		out = append(out, VapiToolResult{ToolCallID: call.ID, Result: res.Speech()})
	}
	return out
}

type vapiModel struct {
	Provider     string        `json:"provider"`
	Model        string        `json:"model"`
	Temperature  float64       `json:"temperature"`
	SystemPrompt string        `json:"systemPrompt"`
	Functions    []FunctionDef `json:"functions"`
}

type vapiVoice struct {
	Provider        string  `json:"provider"`
	VoiceID         string  `json:"voiceId"`
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarityBoost"`
}

// VapiAssistant is the assistant configuration pushed to Vapi.
type VapiAssistant struct {
	Name                         string    `json:"name"`
	Model                        vapiModel `json:"model"`
	Voice                        vapiVoice `json:"voice"`
	FirstMessage                 string    `json:"firstMessage"`
	EndCallMessage               string    `json:"endCallMessage"`
	EndCallPhrases               []string  `json:"endCallPhrases"`
	RecordingEnabled             bool      `json:"recordingEnabled"`
	MaxDurationSeconds           int       `json:"maxDurationSeconds"`
	SilenceTimeoutSeconds        int       `json:"silenceTimeoutSeconds"`
	ResponseDelaySeconds         float64   `json:"responseDelaySeconds"`
	LLMRequestDelaySeconds       float64   `json:"llmRequestDelaySeconds"`
	NumWordsToInterruptAssistant int       `json:"numWordsToInterruptAssistant"`
	BackgroundSound              string    `json:"backgroundSound"`
}

// NewVapiAssistant builds the assistant for hospital h.
func NewVapiAssistant(h knowledge.Hospital) VapiAssistant {
	return VapiAssistant{
		Name: h.Name + " Doctor Booking Assistant",
		Model: vapiModel{
			Provider:     "openai",
			Model:        "gpt-4",
			Temperature:  0.7,
			SystemPrompt: SystemPrompt(h),
			Functions:    Functions(),
		},
		Voice: vapiVoice{
			Provider:        "11labs",
			VoiceID:         "sarah",
			Stability:       0.5,
			SimilarityBoost: 0.75,
		},
		FirstMessage:                 Greeting(h),
		EndCallMessage:               fmt.Sprintf("Thank you for choosing %s. We look forward to seeing you. Take care and goodbye!", h.Name),
		EndCallPhrases:               []string{"goodbye", "thank you goodbye", "that's all", "end call"},
		RecordingEnabled:             true,
		MaxDurationSeconds:           600,
		SilenceTimeoutSeconds:        30,
		ResponseDelaySeconds:         0.4,
		LLMRequestDelaySeconds:       0.1,
		NumWordsToInterruptAssistant: 2,
		BackgroundSound:              "office",
	}
}

// VapiClient manages assistants and calls through the Vapi REST API.
type VapiClient struct {
	api         *apiClient
	assistantID string
}

func NewVapiClient(cfg ClientConfig, assistantID string) (*VapiClient, error) {
	api, err := newAPIClient(PlatformVapi, defaultVapiBaseURL, cfg)
	if err != nil {
		return nil, err
	}
	return &VapiClient{api: api, assistantID: strings.TrimSpace(assistantID)}, nil
}

// CreateOrUpdateAssistant patches the configured assistant, or creates a new
// one when no assistant id is configured.
func (c *VapiClient) CreateOrUpdateAssistant(ctx context.Context, h knowledge.Hospital) (json.RawMessage, error) {
	cfg := NewVapiAssistant(h)
	if c.assistantID != "" {
		out, err := c.api.do(ctx, http.MethodPatch, "/assistant/"+url.PathEscape(c.assistantID), cfg)
		if err != nil {
			return nil, err
		}
		c.api.logger.Info("vapi assistant updated", "assistant_id", c.assistantID)
		return out, nil
	}
	out, err := c.api.do(ctx, http.MethodPost, "/assistant", cfg)
	if err != nil {
		return nil, err
	}
	var created struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(out, &created)
	c.api.logger.Info("vapi assistant created; set VAPI_ASSISTANT_ID", "assistant_id", created.ID)
	return out, nil
}

// CreatePhoneCall starts an outbound call to number using assistantID, or the
// configured assistant when empty.
func (c *VapiClient) CreatePhoneCall(ctx context.Context, number, assistantID string) (json.RawMessage, error) {
	if strings.TrimSpace(number) == "" {
		return nil, errors.New("voice: phone number required")
	}
	if assistantID == "" {
		assistantID = c.assistantID
	}
	body := map[string]any{
		"assistantId": assistantID,
		"customer":    map[string]string{"number": number},
	}
	return c.api.do(ctx, http.MethodPost, "/call/phone", body)
}

func (c *VapiClient) GetCall(ctx context.Context, callID string) (json.RawMessage, error) {
	if strings.TrimSpace(callID) == "" {
		return nil, errors.New("voice: call id required")
	}
	return c.api.do(ctx, http.MethodGet, "/call/"+url.PathEscape(callID), nil)
}

func (c *VapiClient) EndCall(ctx context.Context, callID string) (json.RawMessage, error) {
	if strings.TrimSpace(callID) == "" {
		return nil, errors.New("voice: call id required")
	}
	return c.api.do(ctx, http.MethodDelete, "/call/"+url.PathEscape(callID), nil)
}
