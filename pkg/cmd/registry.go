// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"log/slog"

	logaction "github.com/flowmate/flowmate/pkg/actions/log"
	"github.com/flowmate/flowmate/pkg/actions/notify"
	"github.com/flowmate/flowmate/pkg/eventbus"
	"github.com/flowmate/flowmate/pkg/registry"
	"github.com/flowmate/flowmate/pkg/triggers/manual"
	"github.com/flowmate/flowmate/pkg/triggers/schedule"
)

func registerNativeTriggers(reg *registry.Registry) {
	reg.RegisterTrigger(manual.NewManualTriggerFactory())
	reg.RegisterTrigger(schedule.NewScheduleTriggerFactory())
}

func registerNativeActions(reg *registry.Registry, publisher eventbus.EventPublisher) {
	reg.RegisterAction(logaction.NewLogActionFactory())
	reg.RegisterAction(notify.NewNotifyActionFactory(publisher))
}

func registerTriggerPlugins(reg *registry.Registry, pluginsPath string) error {
	triggerPlugins, err := reg.LoadTriggerPlugins(pluginsPath)
	if err != nil {
		return err
	}

	for _, plugin := range triggerPlugins {
		reg.RegisterTrigger(plugin)
	}

	return nil
}

func registerActionPlugins(reg *registry.Registry, pluginsPath string) error {
	actionPlugins, err := reg.LoadActionPlugins(pluginsPath)
	if err != nil {
		return err
	}

	for _, plugin := range actionPlugins {
		reg.RegisterAction(plugin)
	}

	return nil
}

// NewRegistry builds a registry with the native capabilities plus any .so
// plugins found under pluginsPath.
func NewRegistry(logger *slog.Logger, publisher eventbus.EventPublisher, pluginsPath string) (*registry.Registry, error) {
	reg := registry.NewRegistry(logger)

	registerNativeTriggers(reg)
	registerNativeActions(reg, publisher)

	if pluginsPath != "" {
		if err := registerTriggerPlugins(reg, pluginsPath); err != nil {
			return nil, err
		}

		if err := registerActionPlugins(reg, pluginsPath); err != nil {
			return nil, err
		}
	}

	return reg, nil
}
