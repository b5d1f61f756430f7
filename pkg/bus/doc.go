// Package bus publishes outbox events to Kafka.
package bus
