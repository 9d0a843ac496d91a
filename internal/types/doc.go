// Package types provides shared data structures for the bash server.
//
// This package defines the service surface consumed by the tool dispatch
// layer, ensuring consistent shapes across providers and handlers.
//
// Core Types:
//   - Service: Service provider definition
//   - Tool: Tool specification within a service
//   - Context: Execution context for operations
//   - Result: Standard operation result
//
// Request Types:
//   - ExecuteRequest: Tool execution request
package types
