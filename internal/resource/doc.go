// Package resource governs how hard a pipeline run may hit the content store.
//
// Two limits are enforced:
//
//   - Concurrency: a weighted semaphore caps in-flight store requests.
//   - Rate: a token bucket caps store requests per second.
//
// All Controller methods are safe for concurrent use and handle a nil
// Controller as "unlimited".
//
//	rc := resource.NewController(resource.Config{
//	    MaxInFlight:       8,
//	    RequestsPerSecond: 50,
//	})
//	release, err := rc.Acquire(ctx)
//	if err != nil {
//	    return err
//	}
//	defer release()
package resource
