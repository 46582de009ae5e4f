package notify

import (
	"errors"

	"github.com/kilianp07/autoshutdown/core/factory"
)

var registry = factory.NewRegistry[Notifier]()

// Register adds a notifier factory identified by name.
func Register(name string, f factory.Factory[Notifier]) error {
	return registry.Register(name, f)
}

// New builds the notifiers listed in cfgs. Sinks whose factory reports
// ErrDisabled are skipped and their types returned in skipped. No enabled
// sink yields Nop.
func New(cfgs []factory.ModuleConfig) (n Notifier, skipped []string, err error) {
	var out Multi
	for _, c := range cfgs {
		inst, err := registry.Create(c)
		if errors.Is(err, ErrDisabled) {
			skipped = append(skipped, c.Type)
			continue
		}
		if err != nil {
			return nil, skipped, err
		}
		out = append(out, inst)
	}
	switch len(out) {
	case 0:
		return Nop{}, skipped, nil
	case 1:
		return out[0], skipped, nil
	}
	return out, skipped, nil
}
