/*
Package svckit provides the shared plumbing of a backend service: guarded
SQL transactions over a bun connection pool, a process-wide Redis cache
registry, an outbound HTTP client, and uniform JSON error responses.

The companion command cmd/errorgen generates StatusCode and ErrorResponse
methods for service error enums, so handlers can return them directly.

# Pool

	cfg := svckit.DefaultConfig(os.Getenv("DATABASE_URL")).
	    WithLogger(slog.Default()).
	    WithSlowQueryLog(100 * time.Millisecond).
	    WithMetrics(prometheus.DefaultRegisterer)

	pool, err := svckit.New(cfg)
	if err != nil {
	    log.Fatal(err)
	}
	defer pool.Close()

Config.Driver selects pgdriver (default), pgx or lib/pq. MaxOpenConns bounds
the number of guards that can be active at once.

# Guarded transactions

A Guard owns one pooled connection and one transaction. It is finalized
exactly once: by Commit, by Rollback, or by Release, which rolls back a
transaction that is still active and does nothing otherwise.

	g, err := pool.Acquire(ctx)
	if err != nil {
	    return err
	}
	defer g.Release()

	if _, err := svckit.Exec(ctx, g, "UPDATE stock SET available = available - ? WHERE sku = ?", n, sku); err != nil {
	    return err // rolled back by Release
	}
	return g.Commit()

WithTx does the same around a callback, including when it panics:

	err := pool.WithTx(ctx, func(tx *svckit.Guard) error {
	    return svckit.Create(ctx, tx, &order)
	})

Nested runs a callback inside a savepoint. A guard dropped without being
finalized is rolled back once it is garbage collected and reported as
leaked to the transaction hooks.

# Migrations

	result, err := pool.Migrate(ctx, []svckit.Migration{
	    {ID: "001", Description: "stock", SQL: "CREATE TABLE stock (...)"},
	})

# Cache

	caches := svckit.NewCacheRegistry()
	if err := caches.Init(ctx, svckit.DefaultCacheConfig(os.Getenv("REDIS_URL"))); err != nil {
	    log.Fatal(err)
	}
	cache := caches.MustConn().WithPrefix("orders:")

# Responses

	r.Method(http.MethodGet, "/orders/{id}", svckit.Handle(func(w http.ResponseWriter, r *http.Request) error {
	    order, err := svc.Get(r.Context(), id)
	    if err != nil {
	        return err // rendered by ResponseFor
	    }
	    svckit.WriteJSON(w, http.StatusOK, order)
	    return nil
	}))

Errors that implement ResponseError render with their own status and
message; any other error becomes a generic 500.

# Errors

	if err := svckit.Create(ctx, pool, &user); err != nil {
	    if svckit.IsDuplicate(err) {
	        // Handle duplicate key
	    }

	    var dbErr *svckit.Error
	    if errors.As(err, &dbErr) {
	        fmt.Println(dbErr.Code)       // DUPLICATE
	        fmt.Println(dbErr.Constraint) // users_email_key
	    }
	}
*/
package svckit
