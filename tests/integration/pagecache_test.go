//go:build integration

package integration

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Sternrassler/page-cache/internal/testutil"
	"github.com/Sternrassler/page-cache/pkg/jobs"
	"github.com/Sternrassler/page-cache/pkg/pagecache"
	"github.com/Sternrassler/page-cache/pkg/policy"
	"github.com/Sternrassler/page-cache/pkg/store"
)

const browserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/116.0.0.0 Safari/537.36"

// setupRedis starts a Redis container and returns a store config for it and
// a raw client for assertions.
func setupRedis(t *testing.T) (store.Config, *redis.Client) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}
	t.Cleanup(func() { container.Terminate(ctx) })

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	cfg := store.DefaultConfig()
	cfg.Server = host
	cfg.Port, _ = strconv.Atoi(port.Port())

	raw := redis.NewClient(cfg.Options())
	t.Cleanup(func() { raw.Close() })

	return cfg, raw
}

// TestFullRequestFlow covers miss, background store, hit and refresh against a real Redis.
func TestFullRequestFlow(t *testing.T) {
	cfg, raw := setupRedis(t)
	ctx := context.Background()

	conns := store.NewConnectionManager(cfg, zerolog.Nop())
	defer conns.Close()
	cache := store.NewCache(conns, nil, zerolog.Nop())

	policies := policy.NewStatic(policy.Page{Route: "/products/index", FilePath: "views/products.html", CacheExpireSeconds: 600})

	pageCfg := pagecache.DefaultConfig()
	pageCfg.Enabled = true
	pageCfg.KeyPrefix = "it:"
	mw, err := pagecache.New(pageCfg, cache, policies, zerolog.Nop(),
		pagecache.WithRouteResolver(pagecache.ChiRoutes{"/products": {Controller: "products", Action: "index"}}))
	if err != nil {
		t.Fatalf("pagecache.New() error = %v", err)
	}
	defer mw.Close(ctx)

	site := testutil.NewSite()
	site.SetPage("/products", testutil.NewHTMLPage("<html>\n  <body>Products</body>\n</html>"))

	router := chi.NewRouter()
	router.Use(mw.Handler)
	router.Get("/products", site.ServeHTTP)

	do := func(ua string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("GET", "/products?sort=price", nil)
		req.Header.Set("User-Agent", ua)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		mw.Wait()
		return rec
	}

	// Step 1: miss
	if rec := do(browserUA); rec.Header().Get(pagecache.HeaderCacheHit) != "" {
		t.Fatal("first request should miss")
	}

	ttl, err := raw.TTL(ctx, "it:products?sort=price:desktop").Result()
	if err != nil {
		t.Fatalf("TTL error: %v", err)
	}
	if ttl <= 590*time.Second || ttl > 600*time.Second {
		t.Errorf("TTL = %v, want about 10m", ttl)
	}

	// Step 2: hit
	rec := do(browserUA)
	if rec.Header().Get(pagecache.HeaderCacheHit) != "true" {
		t.Fatal("second request should hit")
	}
	if rec.Body.String() != "<html> <body>Products</body> </html>" {
		t.Errorf("hit body = %q", rec.Body.String())
	}
	if site.RequestCount() != 1 {
		t.Errorf("site rendered %d times, want 1", site.RequestCount())
	}

	// Step 3: refresh re-renders
	do(browserUA + " refreshcache")
	if site.RequestCount() != 2 {
		t.Errorf("site rendered %d times after refresh, want 2", site.RequestCount())
	}
	if n, _ := raw.Exists(ctx, "it:products?sort=price:desktop").Result(); n != 1 {
		t.Error("refreshed page should be stored again")
	}
}

// TestQueueAndJobs exercises the queue primitives and the job consumer.
func TestQueueAndJobs(t *testing.T) {
	cfg, raw := setupRedis(t)
	ctx := context.Background()

	conns := store.NewConnectionManager(cfg, zerolog.Nop())
	defer conns.Close()
	cache := store.NewCache(conns, nil, zerolog.Nop())
	queue := store.NewQueue(conns, zerolog.Nop())

	if !queue.Enqueue(ctx, "it:scheduled", "first", 10) || !queue.Enqueue(ctx, "it:scheduled", "second", 0) {
		t.Fatal("Enqueue failed")
	}
	if n := queue.QueueLength(ctx, "it:scheduled"); n != 2 {
		t.Errorf("QueueLength = %d, want 2", n)
	}

	if got := queue.HashIncrement(ctx, "home:desktop", "it:hits"); got != 1 {
		t.Errorf("HashIncrement = %d, want 1", got)
	}

	cache.Set(ctx, "it:page", "<html></html>", time.Minute)
	queue.Push(ctx, jobs.RemoveQueue, "it:page")

	stats := jobs.NewConsumer(queue, jobs.RemoveKeys(cache), jobs.DefaultConfig(), zerolog.Nop()).RunOnce(ctx, jobs.RemoveQueue)
	if stats.Processed != 1 {
		t.Errorf("RunOnce() = %+v", stats)
	}
	if n, _ := raw.Exists(ctx, "it:page").Result(); n != 0 {
		t.Error("page should be removed by the job")
	}
}

// TestReconnectAfterRestart checks that a dropped connection is replaced.
func TestReconnectAfterRestart(t *testing.T) {
	cfg, raw := setupRedis(t)
	cfg.HealthCheckInterval = time.Millisecond
	ctx := context.Background()

	conns := store.NewConnectionManager(cfg, zerolog.Nop())
	defer conns.Close()
	cache := store.NewCache(conns, nil, zerolog.Nop())

	if !cache.Set(ctx, "it:k", "v", 0) {
		t.Fatal("Set failed")
	}

	// Kill every client connection; the next health check recreates ours.
	if err := raw.ClientKillByFilter(ctx, "TYPE", "normal", "SKIPME", "yes").Err(); err != nil {
		t.Fatalf("CLIENT KILL error: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	if v, ok := cache.Get(ctx, "it:k", false); !ok || v != "v" {
		t.Errorf("Get after reconnect = %q, %v", v, ok)
	}
}

func TestServesWithoutRedis(t *testing.T) {
	cfg := store.DefaultConfig()
	cfg.Port = 1
	cfg.Timeout = 200 * time.Millisecond

	conns := store.NewConnectionManager(cfg, zerolog.Nop())
	defer conns.Close()
	cache := store.NewCache(conns, nil, zerolog.Nop())

	pageCfg := pagecache.DefaultConfig()
	pageCfg.Enabled = true
	mw, err := pagecache.New(pageCfg, cache, policy.NewStatic(), zerolog.Nop())
	if err != nil {
		t.Fatalf("pagecache.New() error = %v", err)
	}

	site := testutil.NewSite()
	site.SetPage("/products", testutil.NewHTMLPage("<html>ok</html>"))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/products", nil)
	req.Header.Set("User-Agent", browserUA)
	mw.Handler(site).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || rec.Body.String() != "<html>ok</html>" {
		t.Errorf("response = %d %q", rec.Code, rec.Body.String())
	}
}
