// Package adapter turns decoded channel messages into registry mutations
// and consumer-facing events: touch input, QR markers, tracked images,
// planes, raycasts and camera control.
//
// Adapters are wired to a dispatcher with Register and receive the transport
// connection signal through OnConnectionStateChanged. Poses are converted to
// consumer convention before they reach the registry.
package adapter
