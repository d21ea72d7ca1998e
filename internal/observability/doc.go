// Package observability provides structured logging for the order
// protection gateway.
//
// Loggers are zap-based. Components receive a *zap.Logger and scope it with
// Named/With per storefront operation so every line carries the platform and
// operation that produced it.
package observability
