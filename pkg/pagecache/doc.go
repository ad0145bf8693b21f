// Package pagecache serves rendered HTML pages from Redis.
//
// The Middleware sits in front of an http.Handler and implements
// cache-aside for complete HTML documents:
//
//   - Requests are classified first. Static assets, POST requests, login and
//     error pages, and anything matching the operator exclusion pattern pass
//     straight through.
//   - Eligible requests are looked up under a key derived from the path, the
//     raw query and the device class (desktop or mobile).
//   - On a hit the stored page is written with diagnostic headers and the
//     downstream handler is not called.
//   - On a miss the downstream response is buffered, forwarded unchanged to
//     the client, and, when a policy exists for the resolved route, minified
//     and stored in the background.
//
// Store failures never reach the client: every store error is treated as a
// miss.
//
// # Basic Usage
//
//	conns := store.NewConnectionManager(store.DefaultConfig(), logger)
//	cache := store.NewCache(conns, nil, logger)
//
//	mw, err := pagecache.New(pagecache.DefaultConfig(), cache, policies, logger)
//	if err != nil {
//		return err
//	}
//	defer mw.Close(ctx)
//
//	http.ListenAndServe(":8080", mw.Handler(site))
//
// # Cache Keys
//
//	{prefix}{path}{?query}:{device}
//
//	/                      -> home:desktop
//	/products?sort=price   -> products?sort=price:desktop
//	/blog/2024/post        -> blog-2024-post:mobile
//	/a%3Fb                 -> a%3Fb:desktop
//
// The path is percent-encoded, so a '?' inside it never reads as a query.
//
// # Response Headers
//
// Hits carry X-Cache-Hit: true, X-Cache-Url (host and path) and
// X-Cache-Device.
//
// # Refresh
//
// A request whose User-Agent contains "refreshcache", or that sends
// X-Refresh-Cache: refreshcache (or the older wis-refreshcache header),
// drops its entry and renders again.
//
// # Metrics
//
//   - pagecache_requests_total{outcome} - Requests by outcome (disabled, skipped, hit, miss)
//   - pagecache_writes_total{result} - Background writes (stored, failed, rejected)
//   - pagecache_device_fallbacks_total - Device detection failures
package pagecache
