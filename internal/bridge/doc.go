// Package bridge exposes one dispenser over HTTP for local tooling.
//
// The bridge never retries and never turns a device status into an HTTP
// error: a non-normal status is reported with "ok": false and a 200.
// Link failures map onto 4xx/5xx codes by error class. Routes that exchange
// with the device (/status, /initialize, /exec) require a bearer token when
// Bridge.Auth is set; /healthz and /metrics stay open.
package bridge
