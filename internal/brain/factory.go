package brain

import (
	"fmt"

	"github.com/normanking/taskdeck/internal/config"
)

// New creates the Brain for the configured provider.
func New(cfg config.ModelConfig) (Brain, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAIBrain(cfg)
	case "gemini":
		return NewGeminiBrain(cfg)
	default:
		return nil, fmt.Errorf("unknown model provider: %q", cfg.Provider)
	}
}
