package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/tanglebrook/vicinity/internal/common"
)

type ConfigHandler struct {
	logger arbor.ILogger
	config *common.Config
}

func NewConfigHandler(logger arbor.ILogger, config *common.Config) *ConfigHandler {
	return &ConfigHandler{
		logger: logger,
		config: config,
	}
}

// ConfigResponse represents the configuration response
type ConfigResponse struct {
	Version string         `json:"version"`
	Build   string         `json:"build"`
	Port    int            `json:"port"`
	Host    string         `json:"host"`
	Config  *common.Config `json:"config"`
}

// GetConfig returns the application configuration as JSON with secrets redacted
func (h *ConfigHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	// Shallow copy so the redaction never touches the live config.
	sanitized := *h.config
	if sanitized.PlacesAPI.APIKey != "" {
		sanitized.PlacesAPI.APIKey = "[REDACTED]"
	}
	if sanitized.Gemini.APIKey != "" {
		sanitized.Gemini.APIKey = "[REDACTED]"
	}
	if sanitized.Claude.APIKey != "" {
		sanitized.Claude.APIKey = "[REDACTED]"
	}

	WriteJSON(w, http.StatusOK, ConfigResponse{
		Version: common.GetVersion(),
		Build:   common.GetBuild(),
		Port:    sanitized.Server.Port,
		Host:    sanitized.Server.Host,
		Config:  &sanitized,
	})
}
