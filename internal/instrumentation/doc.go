// Package instrumentation wires OpenTelemetry metrics and tracing into
// sheetmail.
//
// Metrics:
//   - google_api_operations_total, google_api_operation_duration_seconds:
//     Gmail and Sheets calls by service, operation and status
//   - mcp_tool_invocations_total, mcp_tool_duration_seconds
//   - attachments_total by outcome, message_size_bytes
//   - http_requests_total, http_request_duration_seconds
//
// Spans are named google.<service>.<operation> for API calls and
// tool.<name> for MCP tools.
//
// Configuration comes from the environment, see DefaultConfig:
// INSTRUMENTATION_ENABLED, METRICS_EXPORTER (prometheus, otlp, stdout),
// TRACING_EXPORTER (otlp, stdout, none), OTEL_EXPORTER_OTLP_ENDPOINT,
// OTEL_TRACES_SAMPLER_ARG and OTEL_SERVICE_NAME.
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	done := provider.Metrics().StartGoogleAPICall(instrumentation.ServiceSheets, instrumentation.OperationGet)
//	_, err = call.Do()
//	done(ctx, err)
package instrumentation
