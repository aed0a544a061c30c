/*
Package resilience guards remote calls with a circuit breaker.

The control client wraps every request to a node in a Breaker so that a
node that is down or wedged fails fast instead of stacking timeouts:

	Closed --[Threshold consecutive failures]--> Open
	Open   --[Cooldown elapsed]----------------> HalfOpen
	HalfOpen --[Probes successes]--> Closed
	HalfOpen --[any failure]-------> Open

Errors for which Settings.IsFailure returns false (a rejected command,
for instance) pass through without counting against the node.

	b := resilience.New("node", resilience.Settings{Threshold: 3})
	status, err := resilience.Do(ctx, b, func(ctx context.Context) (string, error) {
		return client.Status(ctx)
	})
*/
package resilience
