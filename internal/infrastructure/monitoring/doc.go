/*
Package monitoring provides Prometheus metrics for the control service:
HTTP request latency, live surface and view gauges, chat turn outcomes,
settings store operations, and WebSocket traffic.

Expose via the standard endpoint:

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
*/
package monitoring
