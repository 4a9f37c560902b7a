package bootstrap

import (
	"strings"

	appconfig "github.com/wolfman30/hospital-voicebot/internal/config"
	"github.com/wolfman30/hospital-voicebot/internal/voice"
	"github.com/wolfman30/hospital-voicebot/pkg/logging"
)

// BuildVoiceClients returns the outbound Vapi and Retell clients. A platform
// without an API key gets a nil client and its setup routes report 503.
func BuildVoiceClients(cfg *appconfig.Config, logger *logging.Logger) (*voice.VapiClient, *voice.RetellClient) {
	if cfg == nil {
		return nil, nil
	}
	if logger == nil {
		logger = logging.Default()
	}

	var vapi *voice.VapiClient
	if strings.TrimSpace(cfg.VAPIAPIKey) != "" {
		c, err := voice.NewVapiClient(voice.ClientConfig{
			BaseURL:    cfg.VAPIBaseURL,
			APIKey:     cfg.VAPIAPIKey,
			MaxRetries: 2,
			Logger:     logger,
		}, cfg.VAPIAssistantID)
		if err != nil {
			logger.Warn("vapi client disabled", "error", err)
		} else {
			vapi = c
		}
	} else {
		logger.Info("VAPI_API_KEY not set; vapi setup routes disabled")
	}

	var retell *voice.RetellClient
	if strings.TrimSpace(cfg.RetellAPIKey) != "" {
		c, err := voice.NewRetellClient(voice.ClientConfig{
			BaseURL:    cfg.RetellBaseURL,
			APIKey:     cfg.RetellAPIKey,
			MaxRetries: 2,
			Logger:     logger,
		}, cfg.RetellAgentID, cfg.RetellLLMID)
		if err != nil {
			logger.Warn("retell client disabled", "error", err)
		} else {
			retell = c
		}
	} else {
		logger.Info("RETELL_API_KEY not set; retell setup routes disabled")
	}
	return vapi, retell
}
