// Package resources serves read-only MCP resources: the conversion reference
// tables and the server health report.
package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

const mimeJSON = "application/json"

// ResourceProvider serves one resource URI.
type ResourceProvider interface {
	GetResourceInfo() ResourceInfo
	GetResource(ctx context.Context) (*ResourceContent, error)
}

// ResourceInfo provides metadata about a resource
type ResourceInfo struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType"`
}

// ResourceContent represents the content of a resource
type ResourceContent struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType"`
	Text     string `json:"text"`
}

// ResourceManager manages MCP resources and their providers
type ResourceManager struct {
	logger    *logrus.Logger
	providers map[string]ResourceProvider
	mutex     sync.RWMutex
}

func NewResourceManager(logger *logrus.Logger) *ResourceManager {
	return &ResourceManager{
		logger:    logger,
		providers: make(map[string]ResourceProvider),
	}
}

// RegisterProvider registers p under its URI, replacing any earlier provider.
func (rm *ResourceManager) RegisterProvider(p ResourceProvider) {
	rm.mutex.Lock()
	defer rm.mutex.Unlock()

	uri := p.GetResourceInfo().URI
	rm.providers[uri] = p
	rm.logger.WithField("uri", uri).Debug("Registered resource provider")
}

// ListResources returns resource metadata sorted by URI.
func (rm *ResourceManager) ListResources() []ResourceInfo {
	rm.mutex.RLock()
	defer rm.mutex.RUnlock()

	infos := make([]ResourceInfo, 0, len(rm.providers))
	for _, p := range rm.providers {
		infos = append(infos, p.GetResourceInfo())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].URI < infos[j].URI })
	return infos
}

// GetResource reads the resource at uri.
func (rm *ResourceManager) GetResource(ctx context.Context, uri string) (*ResourceContent, error) {
	rm.mutex.RLock()
	p, ok := rm.providers[uri]
	rm.mutex.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrResourceNotFound, uri)
	}

	content, err := p.GetResource(ctx)
	if err != nil {
		rm.logger.WithError(err).WithField("uri", uri).Error("Failed to read resource")
		return nil, fmt.Errorf("failed to read resource %s: %w", uri, err)
	}
	return content, nil
}

// jsonContent renders v as indented JSON content for uri.
func jsonContent(uri string, v interface{}) (*ResourceContent, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode resource: %w", err)
	}
	return &ResourceContent{URI: uri, MimeType: mimeJSON, Text: string(data)}, nil
}
