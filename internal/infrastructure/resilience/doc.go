/*
Package resilience provides a circuit breaker for calls to remote services.

The profile store client runs every request through a Breaker so that an
unavailable profile database fails launches fast instead of stacking up
timeouts.

# Usage

	breaker := resilience.New("profile-store", resilience.Settings{
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	resp, err := resilience.Call(breaker, func() (*resty.Response, error) {
		return req.Get("/profiles/" + id)
	})

# States

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                                           |
	                                       [failure]
	                                           v
	                                         Open
*/
package resilience
