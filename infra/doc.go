// Package infra contains technical adapters: the Azure compute client,
// MQTT publishing, notification channels and metrics exporters. These
// packages should depend only on the interfaces defined in the core packages.
package infra
