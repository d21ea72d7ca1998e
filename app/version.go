package app

// Version is the build version reported by the status endpoint. Overridden at
// build time with -ldflags "-X github.com/upb/order-protection/app.Version=...".
var Version = "0.1.0"
