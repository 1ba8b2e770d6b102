package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ayusman/signbridge/internal/plugin"
	"github.com/ayusman/signbridge/internal/store"
)

// fireActions runs every enabled action bound to trigger in the background.
func (a *App) fireActions(trigger, text string) {
	if a.store == nil {
		return
	}
	actions, err := a.store.Actions().ListByTrigger(trigger)
	if err != nil {
		a.log.Warn("load actions", slog.String("trigger", trigger), slog.String("error", err.Error()))
		return
	}

	for _, act := range actions {
		a.wg.Add(1)
		go func(act *store.Action) {
			defer a.wg.Done()
			if _, err := a.RunAction(context.Background(), act, trigger, text); err != nil {
				a.log.Warn("action failed",
					slog.String("action", act.ID),
					slog.String("plugin", act.PluginName),
					slog.String("error", err.Error()),
				)
			}
		}(act)
	}
}

// RunAction executes one bound action with the given trigger and text. A
// plugin that answers with success=false is reported as an error.
func (a *App) RunAction(ctx context.Context, act *store.Action, trigger, text string) (*plugin.Response, error) {
	p, err := a.pluginMgr.Lookup(act.PluginName, act.ActionName)
	if err != nil {
		return nil, fmt.Errorf("action %s: %w", act.ID, err)
	}

	resp, err := a.pluginExec.Execute(ctx, p, &plugin.Request{
		Action:  act.ActionName,
		Trigger: trigger,
		Text:    text,
		Config:  act.Config,
	})
	if err == nil {
		err = resp.Err()
	}
	a.metrics.RecordPluginExecution(ctx, p.Manifest.Name, err)
	if err != nil {
		return resp, err
	}

	a.log.Debug("action executed",
		slog.String("action", act.ID),
		slog.String("plugin", p.Manifest.Name),
		slog.String("trigger", trigger),
	)
	return resp, nil
}
