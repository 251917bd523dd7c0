// Package resilience retries operations that fail for transient reasons,
// such as a database that is still starting.
//
//	db, err := resilience.Retry(ctx, resilience.Policy{
//	    Attempts: 5,
//	    Delay:    time.Second,
//	    MaxDelay: 10 * time.Second,
//	    Factor:   2,
//	}, func(ctx context.Context, attempt int) (*gorm.DB, error) {
//	    return connect(ctx)
//	})
package resilience
