// Package adapter wraps the external scanner.
//
// NmapScanner runs nmap with the modbus-discover NSE script against the
// gateway and returns the decoded result. FileScanner replays a saved XML
// document, which is how one-shot reconciles and tests avoid a live scan.
package adapter
