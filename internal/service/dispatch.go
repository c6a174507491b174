package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/telhawk-systems/mirror-notify/common/logging"
	"github.com/telhawk-systems/mirror-notify/internal/demos"
	"github.com/telhawk-systems/mirror-notify/internal/metrics"
	"github.com/telhawk-systems/mirror-notify/internal/mirror"
	"github.com/telhawk-systems/mirror-notify/internal/models"
)

var ErrDemoPanicked = errors.New("demo panicked")

// DispatchResult records what happened when one demo was offered an item.
type DispatchResult struct {
	Demo string

	// Produced is the item the demo returned, nil for no action.
	Produced models.Resource

	// Inserted is the upstream copy of Produced after a successful insert.
	Inserted models.Resource

	// Err is either the demo's own failure or the insert failure.
	Err error

	// InsertFailed distinguishes upstream insert faults from demo faults.
	InsertFailed bool
}

// Dispatcher offers a timeline item to every demo that handles items.
// The module list is fixed at construction.
type Dispatcher struct {
	modules []demos.Module
	logger  *logging.Logger
}

func NewDispatcher(modules []demos.Module, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Dispatcher{
		modules: append([]demos.Module(nil), modules...),
		logger:  logger,
	}
}

// Modules returns the names of the configured demos.
func (d *Dispatcher) Modules() []string {
	names := make([]string, len(d.modules))
	for i, m := range d.modules {
		names[i] = m.Name()
	}
	return names
}

// Dispatch runs every handler against its own copy of item. Demo errors and
// panics are recorded in the results and never stop the remaining demos.
// Insert failures are also isolated, then returned joined once every demo ran.
func (d *Dispatcher) Dispatch(ctx context.Context, timeline mirror.Collection, item models.Resource) ([]DispatchResult, error) {
	log := d.logger.WithContext(ctx)
	results := make([]DispatchResult, 0, len(d.modules))
	var insertErrs []error

	for _, module := range d.modules {
		handler, ok := module.(demos.ItemHandler)
		if !ok {
			continue
		}

		name := module.Name()
		result := DispatchResult{Demo: name}

		produced, err := invoke(ctx, handler, cloneResource(item))
		switch {
		case errors.Is(err, ErrDemoPanicked):
			result.Err = err
			metrics.DemoResultsTotal.WithLabelValues(name, metrics.DemoResultPanicked).Inc()
			log.Error("demo panicked", logging.Demo(name), logging.Error(err))
		case err != nil:
			result.Err = err
			metrics.DemoResultsTotal.WithLabelValues(name, metrics.DemoResultFailed).Inc()
			log.Error("demo failed", logging.Demo(name), logging.Error(err))
		case produced == nil:
			metrics.DemoResultsTotal.WithLabelValues(name, metrics.DemoResultNoAction).Inc()
			log.Debug("demo took no action", logging.Demo(name))
		default:
			result.Produced = produced
			inserted, err := timeline.Insert(ctx, produced)
			if err != nil {
				result.Err = err
				result.InsertFailed = true
				insertErrs = append(insertErrs, fmt.Errorf("insert item from demo %s: %w", name, err))
				metrics.DemoResultsTotal.WithLabelValues(name, metrics.DemoResultRejected).Inc()
				log.Error("timeline insert failed", logging.Demo(name), logging.Error(err))
			} else {
				result.Inserted = inserted
				metrics.DemoResultsTotal.WithLabelValues(name, metrics.DemoResultInserted).Inc()
				log.Info("timeline item inserted", logging.Demo(name), logging.ItemID(inserted.ID()))
			}
		}

		results = append(results, result)
	}

	return results, errors.Join(insertErrs...)
}

func invoke(ctx context.Context, handler demos.ItemHandler, item models.Resource) (out models.Resource, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("%w: %v", ErrDemoPanicked, r)
		}
	}()
	return handler.HandleItem(ctx, item)
}

// cloneResource deep-copies the JSON containers in r so one demo cannot
// change what the next one sees.
func cloneResource(r models.Resource) models.Resource {
	if r == nil {
		return nil
	}
	return cloneValue(map[string]any(r)).(map[string]any)
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = cloneValue(item)
		}
		return out
	case models.Resource:
		return models.Resource(cloneValue(map[string]any(val)).(map[string]any))
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
