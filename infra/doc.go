// Package infra holds the adapters behind the core interfaces: the plant
// file provider, result stores, metrics sinks and the MQTT client.
package infra
