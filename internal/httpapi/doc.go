// Package httpapi serves the arbiter to network clients: a status endpoint,
// a request endpoint accepting pipe lines or JSON commands, a WebSocket
// speaking the JSON command protocol and the Prometheus metrics endpoint.
package httpapi
