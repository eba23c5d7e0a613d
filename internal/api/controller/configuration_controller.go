package controller

import (
	"net/http"

	"github.com/bassista/go_action/internal/config"
	"github.com/gin-gonic/gin"
)

// ConfigurationResponse is the effective configuration without secrets.
type ConfigurationResponse struct {
	RuntimeType     string   `json:"runtimeType"`
	Image           string   `json:"image"`
	HTTPPort        int      `json:"httpPort"`
	MaxWait         string   `json:"maxWait"`
	LocalExtensions []string `json:"localExtensions"`
	RemoteEnabled   bool     `json:"remoteEnabled"`
	APIHost         string   `json:"apiHost,omitempty"`
	Namespace       string   `json:"namespace,omitempty"`
	HistoryLimit    int      `json:"historyLimit"`
}

type ConfigurationController struct {
	config *config.Config
}

func NewConfigurationController(cfg *config.Config) *ConfigurationController {
	return &ConfigurationController{config: cfg}
}

// GetConfiguration returns the settings new invocations run with.
func (cc *ConfigurationController) GetConfiguration(c *gin.Context) {
	cfg := cc.config
	response := ConfigurationResponse{
		RuntimeType:     cfg.Runtime.Type,
		Image:           cfg.Runtime.Image,
		HTTPPort:        cfg.Runtime.HTTPPort,
		MaxWait:         cfg.Runtime.MaxWait.String(),
		LocalExtensions: cfg.Runtime.LocalExtensions,
		RemoteEnabled:   cfg.Credentials.Valid(),
		HistoryLimit:    cfg.Data.HistoryLimit,
	}
	if response.RemoteEnabled {
		response.APIHost = cfg.Credentials.BaseURL()
		response.Namespace = cfg.Credentials.Namespace
	}
	c.JSON(http.StatusOK, response)
}
