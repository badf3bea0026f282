// Package prompts provides MCP prompt templates that walk an agent through
// the calculator tools in a clinically sensible order.
package prompts

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// PromptTemplate defines the interface for prompt templates
type PromptTemplate interface {
	GetPromptInfo() PromptInfo
	RenderPrompt(ctx context.Context, args map[string]string) (*RenderedPrompt, error)
}

// PromptInfo contains metadata about a prompt template
type PromptInfo struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Arguments   []ArgumentInfo `json:"arguments"`
}

// ArgumentInfo describes a prompt argument
type ArgumentInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// RenderedPrompt represents a rendered prompt ready for an agent
type RenderedPrompt struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Content     string `json:"content"`
}

// PromptManager manages MCP prompts and their templates
type PromptManager struct {
	logger    *logrus.Logger
	templates map[string]PromptTemplate
	mutex     sync.RWMutex
}

func NewPromptManager(logger *logrus.Logger) *PromptManager {
	return &PromptManager{
		logger:    logger,
		templates: make(map[string]PromptTemplate),
	}
}

// RegisterTemplate registers a prompt template under its name.
func (pm *PromptManager) RegisterTemplate(template PromptTemplate) {
	pm.mutex.Lock()
	defer pm.mutex.Unlock()

	name := template.GetPromptInfo().Name
	pm.templates[name] = template
	pm.logger.WithField("template", name).Debug("Registered prompt template")
}

// ListPrompts returns prompt metadata sorted by name.
func (pm *PromptManager) ListPrompts() []PromptInfo {
	pm.mutex.RLock()
	defer pm.mutex.RUnlock()

	infos := make([]PromptInfo, 0, len(pm.templates))
	for _, t := range pm.templates {
		infos = append(infos, t.GetPromptInfo())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// GetPrompt validates args against the template and renders it.
func (pm *PromptManager) GetPrompt(ctx context.Context, name string, args map[string]string) (*RenderedPrompt, error) {
	pm.mutex.RLock()
	template, ok := pm.templates[name]
	pm.mutex.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no template found for prompt: %s", name)
	}

	if err := validateArguments(template.GetPromptInfo(), args); err != nil {
		return nil, fmt.Errorf("argument validation failed for prompt %s: %w", name, err)
	}

	rendered, err := template.RenderPrompt(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("failed to render prompt %s: %w", name, err)
	}

	pm.logger.WithFields(logrus.Fields{
		"name":         name,
		"content_size": len(rendered.Content),
	}).Debug("Rendered prompt")
	return rendered, nil
}

func validateArguments(info PromptInfo, args map[string]string) error {
	known := make(map[string]bool, len(info.Arguments))
	for _, a := range info.Arguments {
		known[a.Name] = true
		if a.Required && strings.TrimSpace(args[a.Name]) == "" {
			return fmt.Errorf("required argument %q missing", a.Name)
		}
	}
	for name := range args {
		if !known[name] {
			return fmt.Errorf("unknown argument %q", name)
		}
	}
	return nil
}
