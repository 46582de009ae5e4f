// Package factory builds pluggable modules (notification and metrics sinks)
// from configuration. A module is declared as a type name plus a map of raw
// settings; the registered constructor decodes the settings into its own
// struct using json tags.
//
//	reg := factory.NewRegistry[notify.Notifier]()
//	_ = reg.Register("slack", func(conf map[string]any) (notify.Notifier, error) {
//	    var c struct{ WebhookURL string `json:"webhook_url"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return NewSlack(c.WebhookURL), nil
//	})
package factory
