// Package registry resolves capability type identifiers to trigger and action
// factories. It is the seam across which real integrations are injected; the
// engine never embeds integration-specific logic.
package registry

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"plugin"
	"strings"

	"github.com/flowmate/flowmate/pkg/protocol"
	"github.com/xeipuuv/gojsonschema"
)

type Registry struct {
	logger           *slog.Logger
	triggerFactories map[string]protocol.TriggerFactory
	actionFactories  map[string]protocol.ActionFactory
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:           logger,
		triggerFactories: make(map[string]protocol.TriggerFactory),
		actionFactories:  make(map[string]protocol.ActionFactory),
	}
}

func (r *Registry) RegisterTrigger(factory protocol.TriggerFactory) {
	r.triggerFactories[factory.ID()] = factory
}

func (r *Registry) RegisterAction(factory protocol.ActionFactory) {
	r.actionFactories[factory.ID()] = factory
}

// TriggerTypes returns the registered trigger type identifiers.
func (r *Registry) TriggerTypes() []string {
	types := make([]string, 0, len(r.triggerFactories))
	for t := range r.triggerFactories {
		types = append(types, t)
	}

	return types
}

// ActionTypes returns the registered action type identifiers.
func (r *Registry) ActionTypes() []string {
	types := make([]string, 0, len(r.actionFactories))
	for t := range r.actionFactories {
		types = append(types, t)
	}

	return types
}

// CreateTrigger resolves a trigger type and builds a configured instance.
func (r *Registry) CreateTrigger(triggerType string, config map[string]any) (protocol.Trigger, error) {
	factory, ok := r.triggerFactories[triggerType]
	if !ok {
		return nil, fmt.Errorf("trigger type %q: %w", triggerType, ErrUnknownCapability)
	}

	if err := validateConfig(factory, config); err != nil {
		return nil, fmt.Errorf("trigger type %q: %w", triggerType, err)
	}

	return factory.Create(config, r.logger)
}

// CreateAction resolves an action type and builds a configured instance.
func (r *Registry) CreateAction(actionType string, config map[string]any) (protocol.Action, error) {
	factory, ok := r.actionFactories[actionType]
	if !ok {
		return nil, fmt.Errorf("action type %q: %w", actionType, ErrUnknownCapability)
	}

	if err := validateConfig(factory, config); err != nil {
		return nil, fmt.Errorf("action type %q: %w", actionType, err)
	}

	return factory.Create(config, r.logger)
}

// validateConfig checks the config against the factory's JSON schema when the
// factory publishes one.
func validateConfig(factory any, config map[string]any) error {
	provider, ok := factory.(protocol.ConfigSchemaProvider)
	if !ok {
		return nil
	}

	if config == nil {
		config = map[string]any{}
	}

	schemaLoader := gojsonschema.NewGoLoader(provider.ConfigSchema())
	configLoader := gojsonschema.NewGoLoader(config)

	result, err := gojsonschema.Validate(schemaLoader, configLoader)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}

		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(details, "; "))
	}

	return nil
}

// LoadTriggerPlugins loads trigger factories from .so plugins under
// pluginsPath/triggers. Each plugin must export a Trigger symbol.
func (r *Registry) LoadTriggerPlugins(pluginsPath string) ([]protocol.TriggerFactory, error) {
	return loadPlugin[protocol.TriggerFactory](r.logger, pluginsPath, "Trigger")
}

// LoadActionPlugins loads action factories from .so plugins under
// pluginsPath/actions. Each plugin must export an Action symbol.
func (r *Registry) LoadActionPlugins(pluginsPath string) ([]protocol.ActionFactory, error) {
	return loadPlugin[protocol.ActionFactory](r.logger, pluginsPath, "Action")
}

func loadPlugin[T any](logger *slog.Logger, pluginsPath string, symbolName string) ([]T, error) {
	rootPath := pluginsPath + "/" + strings.ToLower(symbolName) + "s"

	if _, err := os.Stat(rootPath); os.IsNotExist(err) {
		return nil, nil
	}

	root := os.DirFS(rootPath)

	pluginPathList, err := fs.Glob(root, "**/*.so")
	if err != nil {
		return nil, err
	}

	l := logger.With(slog.String("path", rootPath), slog.String("type", symbolName))
	l.Info("Loading plugins")

	pluginList := make([]T, 0, len(pluginPathList))

	for _, p := range pluginPathList {
		plg, err := plugin.Open(rootPath + "/" + p)
		if err != nil {
			return nil, fmt.Errorf("failed to open plugin %s: %w", p, err)
		}

		v, err := plg.Lookup(symbolName)
		if err != nil {
			return nil, fmt.Errorf("plugin %s has no %s symbol: %w", p, symbolName, err)
		}

		factory, ok := v.(T)
		if !ok {
			return nil, fmt.Errorf("plugin %s: %s symbol has unexpected type", p, symbolName)
		}

		pluginList = append(pluginList, factory)

		l.Info("Loaded plugin", slog.String("plugin", p))
	}

	return pluginList, nil
}
