// Package discovery turns scanner output into peripherals and drives the
// periodic discovery cycle.
//
// A cycle runs scan → parse → normalize → reconcile and then waits for the
// next interval or an early wake. Each stage returns an explicit error kind so
// the loop can tell an expected empty scan from a broken document.
package discovery
