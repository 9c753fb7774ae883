// Package metrics provides Prometheus instrumentation for pacer controllers.
//
// Controllers are instrumented through the metrics-enabled wrappers in their
// own packages (ratelimit.NewWithMetrics, queue.NewWithMetrics). Each wrapper
// labels its series with the controller kind and the configured Key, so a
// single Registry can serve many controllers.
//
// Enable metrics and expose them via HTTP:
//
//	limiter, _ := ratelimit.NewWithMetrics(fn, opts, "api_requests", metrics.DefaultConfig())
//	http.Handle("/metrics", promhttp.Handler())
//
// To isolate series per test or per component, pass a private registry:
//
//	reg := prometheus.NewRegistry()
//	registry := metrics.NewRegistry(reg)
package metrics
