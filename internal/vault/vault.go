// internal/vault/vault.go
//
// Secret references for the configuration loader.
//
// Context
// -------
// Config values written as `vault:<mount>/<path>#<key>` are read from a
// KV-v2 engine once at boot.  The client keeps its token alive for the
// life of the process so later reads (tests, tooling) do not fail on an
// expired lease.
//
// VAULT_ADDR and VAULT_TOKEN come from the environment, as with the vault
// CLI.
package vault

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	vault "github.com/hashicorp/vault/api"
)

// Client reads KV-v2 secrets.  Safe for concurrent use.
type Client struct {
	api   *vault.Client
	logFn func(string, ...any)
}

// New builds a client from the environment and keeps its token renewed
// until ctx ends.
func New(ctx context.Context, logFn func(string, ...any)) (*Client, error) {
	if logFn == nil {
		logFn = func(string, ...any) {}
	}
	cfg := vault.DefaultConfig()
	if err := cfg.ReadEnvironment(); err != nil {
		return nil, fmt.Errorf("vault: environment: %w", err)
	}
	api, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault: client: %w", err)
	}
	if tok := os.Getenv("VAULT_TOKEN"); tok != "" {
		api.SetToken(tok)
	}
	c := &Client{api: api, logFn: logFn}
	go c.keepAlive(ctx)
	return c, nil
}

// Resolve returns the string stored under ref ("<mount>/<path>#<key>").
func (c *Client) Resolve(ctx context.Context, ref string) (string, error) {
	path, key, err := ParseRef(ref)
	if err != nil {
		return "", err
	}
	mount, rel, _ := strings.Cut(path, "/")
	sec, err := c.api.KVv2(mount).Get(ctx, rel)
	if err != nil {
		return "", fmt.Errorf("vault: read %s: %w", path, err)
	}
	s, ok := sec.Data[key].(string)
	if !ok {
		return "", fmt.Errorf("vault: %s has no string %q", path, key)
	}
	return s, nil
}

// ParseRef splits "<mount>/<path>#<key>".
func ParseRef(ref string) (path, key string, err error) {
	path, key, ok := strings.Cut(ref, "#")
	if !ok || key == "" || !strings.Contains(path, "/") {
		return "", "", fmt.Errorf("vault: malformed reference %q, want mount/path#key", ref)
	}
	return path, key, nil
}

// keepAlive renews the token through a lifetime watcher, starting over
// after a pause whenever the watcher gives up.
func (c *Client) keepAlive(ctx context.Context) {
	for ctx.Err() == nil {
		pause := c.watchToken(ctx)
		sleep(ctx, pause)
	}
}

// watchToken runs one watcher and returns how long to wait before the next.
func (c *Client) watchToken(ctx context.Context) time.Duration {
	sec, err := c.api.Auth().Token().RenewSelf(0)
	if err != nil {
		c.logFn("vault: renew self: %v", err)
		return 30 * time.Second
	}
	if sec == nil || sec.Auth == nil || !sec.Auth.Renewable {
		c.logFn("vault: token not renewable")
		return time.Hour
	}
	w, err := c.api.NewLifetimeWatcher(&vault.LifetimeWatcherInput{Secret: sec})
	if err != nil {
		c.logFn("vault: lifetime watcher: %v", err)
		return 30 * time.Second
	}
	go w.Start()
	defer w.Stop()
	for {
		select {
		case <-ctx.Done():
			return 0
		case err := <-w.DoneCh():
			if err != nil {
				c.logFn("vault: token watcher stopped: %v", err)
			}
			return 15 * time.Second
		case ev := <-w.RenewCh():
			c.logFn("vault: token renewed at %s", ev.RenewedAt.Format(time.RFC3339))
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
