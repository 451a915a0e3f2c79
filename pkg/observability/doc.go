/*
Package observability provides Prometheus instrumentation for figflow.

Metrics cover the three moving parts of the system: write-back jobs (started, finished by
outcome, runes written), transformation requests (by transport shape and outcome), and
protocol traffic between the Host and the Panel (by direction and command).

Collectors are registered on a caller-supplied prometheus.Registerer so tests and embedders
can use an isolated registry.
*/
package observability
