// internal/requestinfo/requestinfo.go
//
// Per-request client metadata for the login page.
//
/*
Context
--------
The Enrich middleware sits directly after RealIP and the request logger.
For every request it:

  1. Extracts the client IP from r.RemoteAddr (RealIP has already applied
     X-Forwarded-For and X-Real-IP).
  2. Parses the User-Agent header with uasurfer.
  3. Performs an optional GeoLite2 lookup.
  4. Records the preferred language from Accept-Language.

The resulting *Info rides in request.Context, so the auth component can
attach it to login audit logs without reparsing.

Notes
-----
  • Info is inert.  It holds no handles or buffers and is safe to log.
  • The GeoLite2 database is optional.  Without it Country and City stay
    empty.
  • Oxford commas, two spaces after periods.
*/
package requestinfo

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/avct/uasurfer"
	"github.com/oschwald/geoip2-golang"
	"go.uber.org/zap"
)

// Info describes the client behind a request.
type Info struct {
	IP      string
	Country string // ISO code, e.g. "TH"
	City    string
	Browser string // "Chrome", "Firefox", ...
	Version string // "124.0.6367"
	OS      string // "macOS", "Windows", "Android", ...
	Device  string // "Desktop", "Phone", "Tablet", ...
	IsBot   bool
	Lang    string // first Accept-Language tag, lower-cased
}

// Fields flattens Info into zap key/value pairs.
func (i *Info) Fields() []interface{} {
	if i == nil {
		return nil
	}
	return []interface{}{
		"ip", i.IP,
		"country", i.Country,
		"browser", i.Browser,
		"os", i.OS,
		"device", i.Device,
		"bot", i.IsBot,
	}
}

// Resolver builds Info values.  A nil geo reader disables geolocation.
type Resolver struct {
	geo *geoip2.Reader
}

// NewResolver opens the GeoLite2-City database at dbPath.  An empty path
// yields a Resolver without geolocation.
func NewResolver(dbPath string) (*Resolver, error) {
	if dbPath == "" {
		return &Resolver{}, nil
	}
	rd, err := geoip2.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("requestinfo: open GeoLite2 %s: %w", dbPath, err)
	}
	return &Resolver{geo: rd}, nil
}

// Close releases the GeoLite2 handle.
func (res *Resolver) Close() error {
	if res.geo == nil {
		return nil
	}
	return res.geo.Close()
}

// Resolve inspects r.
func (res *Resolver) Resolve(r *http.Request) *Info {
	info := &Info{Lang: primaryLang(r.Header.Get("Accept-Language"))}

	ip := clientIP(r)
	if ip != nil {
		info.IP = ip.String()
		if res.geo != nil {
			if rec, err := res.geo.City(ip); err == nil {
				info.Country = rec.Country.IsoCode
				info.City = rec.City.Names["en"]
			}
		}
	}

	ua := uasurfer.Parse(r.UserAgent())
	info.Browser = strings.TrimPrefix(ua.Browser.Name.String(), "Browser")
	info.Version = trimVersion(ua.Browser.Version)
	info.OS = strings.TrimPrefix(ua.OS.Name.String(), "OS")
	if info.OS == "MacOSX" {
		info.OS = "macOS"
	}
	info.Device = deviceName(ua.DeviceType)
	info.IsBot = ua.IsBot()
	return info
}

/*──────────────────────────── middleware ───────────────────────────────────*/

type ctxKey struct{}

// Enrich attaches *Info to the request context.
func (res *Resolver) Enrich(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := res.Resolve(r)
		zap.S().Debugw("request info", append(info.Fields(), "path", r.URL.Path)...)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, info)))
	})
}

// FromContext returns the Info stored by Enrich, or nil.
func FromContext(ctx context.Context) *Info {
	v, _ := ctx.Value(ctxKey{}).(*Info)
	return v
}

/*──────────────────────────── helpers ──────────────────────────────────────*/

func clientIP(r *http.Request) net.IP {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return net.ParseIP(strings.TrimSpace(host))
}

// trimVersion builds "major.minor.patch" without trailing ".0" parts.
func trimVersion(v uasurfer.Version) string {
	parts := []string{strconv.Itoa(v.Major), strconv.Itoa(v.Minor), strconv.Itoa(v.Patch)}
	for len(parts) > 1 && parts[len(parts)-1] == "0" {
		parts = parts[:len(parts)-1]
	}
	return strings.Join(parts, ".")
}

func deviceName(dt uasurfer.DeviceType) string {
	switch dt {
	case uasurfer.DeviceComputer:
		return "Desktop"
	case uasurfer.DevicePhone:
		return "Phone"
	case uasurfer.DeviceTablet:
		return "Tablet"
	case uasurfer.DeviceConsole:
		return "Console"
	case uasurfer.DeviceWearable:
		return "Wearable"
	case uasurfer.DeviceTV:
		return "TV"
	default:
		return "Unknown"
	}
}

// primaryLang returns the first tag before any ";q=" parameter.
func primaryLang(al string) string {
	tag, _, _ := strings.Cut(al, ",")
	tag, _, _ = strings.Cut(tag, ";")
	return strings.ToLower(strings.TrimSpace(tag))
}
