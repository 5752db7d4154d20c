// File: internal/usecase/registry.go
package usecase

import (
	"context"
	"sort"
)

// Transform is a registered callback applied to the raw payload a job
// delivered, producing the client-ready value returned by polls. Transforms
// run at poll time, never at delivery time.
type Transform func(ctx context.Context, data any) (any, error)

// CallbackRegistry is the closed set of named transforms a job may request.
// The set is fixed at construction; an unknown client-supplied name is the
// only "not found" case left.
type CallbackRegistry struct {
	transforms map[string]Transform
}

func NewCallbackRegistry() *CallbackRegistry {
	return &CallbackRegistry{transforms: map[string]Transform{
		"passthrough":    passthrough,
		"alarm_overview": alarmOverview,
	}}
}

// Resolve returns the transform for name. The ok flag is false for unknown
// names; lookup never panics or errors.
func (r *CallbackRegistry) Resolve(name string) (Transform, bool) {
	t, ok := r.transforms[name]
	return t, ok
}

// Names lists the registered callback names in stable order.
func (r *CallbackRegistry) Names() []string {
	names := make([]string, 0, len(r.transforms))
	for n := range r.transforms {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// passthrough returns the delivered data unchanged.
func passthrough(_ context.Context, data any) (any, error) {
	return data, nil
}

// alarmOverview folds a raw interpretation payload into a per-site,
// per-turbine alarm map: a node is flagged when its percentage exceeds the
// average percentage of its site/turbine group. Payloads without the
// expected shape pass through untouched.
func alarmOverview(_ context.Context, data any) (any, error) {
	m, ok := data.(map[string]any)
	if !ok {
		return data, nil
	}
	paths, ok := m["high_level_node_path"].(map[string]any)
	if !ok {
		return data, nil
	}
	nodes, _ := m["monitor_node_type_path"].(map[string]any)
	percentages, _ := m["percentage"].(map[string]any)

	// Group measurement keys by their site/turbine path.
	grouped := make(map[string][]string)
	for key, v := range paths {
		siteTurbine, ok := v.(string)
		if !ok {
			continue
		}
		grouped[siteTurbine] = append(grouped[siteTurbine], key)
	}

	overview := make(map[string]any)
	for siteTurbine, keys := range grouped {
		var total float64
		var count int
		for _, key := range keys {
			if p, ok := asFloat(percentages[key]); ok {
				total += p
				count++
			}
		}
		if count == 0 {
			continue
		}
		avg := total / float64(count)

		alarms := make(map[string]bool)
		for _, key := range keys {
			p, ok := asFloat(percentages[key])
			if !ok {
				continue
			}
			alarms[nodeName(nodes, key)] = p > avg
		}
		overview[siteTurbine] = alarms
	}
	return map[string]any{"alarms": overview}, nil
}

func nodeName(nodes map[string]any, key string) string {
	path, _ := nodes[key].(string)
	if path == "" {
		return key
	}
	name := path
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			name = path[i+1:]
			break
		}
	}
	if name == "" {
		return path
	}
	return name
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
