// Package server hosts the encounter service: the single-writer command
// path, the websocket channel hub, the read-only HTTP projection and the
// gRPC health endpoint.
package server
