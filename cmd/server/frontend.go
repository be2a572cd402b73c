package main

import (
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"
)

// frontendHandler serves the questionnaire UI for non-API paths. A static
// directory wins over a dev proxy; neither configured returns nil.
func frontendHandler(staticDir, devURL string) http.Handler {
	if staticDir != "" {
		return http.FileServer(http.Dir(staticDir))
	}
	if devURL == "" {
		return nil
	}
	u, err := url.Parse(devURL)
	if err != nil || u.Host == "" {
		log.Printf("invalid PSYSCORE_DEV_FRONTEND_URL=%q: %v", devURL, err)
		return nil
	}
	rp := httputil.NewSingleHostReverseProxy(u)
	// proxied responses get the same no-store headers as the API
	rp.ModifyResponse = func(res *http.Response) error {
		res.Header.Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
		res.Header.Set("Pragma", "no-cache")
		res.Header.Set("Expires", "0")
		return nil
	}
	return rp
}
