package httpx

import "golang.org/x/crypto/acme/autocert"

const defaultCertCache = "assets/cache"

// newCertManager makes Let's Encrypt certificates for the host,
// any host is allowed with the empty value.
func newCertManager(host, cacheDir string) *autocert.Manager {
	m := &autocert.Manager{Prompt: autocert.AcceptTOS, Cache: autocert.DirCache(cacheDir)}
	if host != "" {
		m.HostPolicy = autocert.HostWhitelist(host)
	}
	return m
}
