// Package health serves liveness and readiness probes for `keyport serve`.
package health
