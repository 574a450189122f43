// Package common holds argument helpers and the instrumentation wrapper
// shared by the MCP tool packages.
package common
