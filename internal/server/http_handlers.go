package server

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"atsmatch/internal/errors"
	"atsmatch/internal/formatters"
	"atsmatch/internal/types"
)

// certExpiryCritical marks the certificate unhealthy
const certExpiryCritical = 24 * time.Hour

// healthHandler reports liveness plus circuit breaker and certificate state
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status":   "healthy",
		"service":  "atsmatch",
		"version":  s.Version,
		"provider": s.Matcher.ProviderInfo(),
		"store":    s.Matcher.StoreMode(),
	}

	healthy := true

	if s.Breaker != nil {
		breaker := s.Breaker.CircuitBreakerStats()
		response["circuit_breaker"] = breaker
		if state, ok := breaker["state"].(string); ok && state == "open" {
			healthy = false
		}
	}

	if certStatus := s.checkCertificateHealth(); certStatus != nil {
		response["certificates"] = certStatus
		if certHealthy, ok := certStatus["healthy"].(bool); ok && !certHealthy {
			healthy = false
		}
	}

	status := http.StatusOK
	if !healthy {
		response["status"] = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response)
}

// checkCertificateHealth checks the serving certificate's expiry
func (s *Server) checkCertificateHealth() map[string]any {
	if s.CertReloader == nil {
		return nil
	}

	certStatus := map[string]any{
		"auto_reload":   s.CertReloader.Watching(),
		"watched_files": s.CertReloader.WatchedFiles(),
	}

	stats := s.CertReloader.Stats()
	certStatus["reload_count"] = stats.ReloadCount
	certStatus["reload_failures"] = stats.ReloadFailureCount
	if stats.LastReloadError != "" {
		certStatus["last_reload_error"] = stats.LastReloadError
	}

	timeToExpiry := s.CertReloader.TimeToExpiry()
	certStatus["time_to_expiry_hours"] = int(timeToExpiry.Hours())

	switch {
	case timeToExpiry <= 0:
		certStatus["healthy"] = false
		certStatus["status"] = "expired"
	case timeToExpiry <= certExpiryCritical:
		certStatus["healthy"] = false
		certStatus["status"] = "critical"
	default:
		certStatus["healthy"] = true
		certStatus["status"] = "ok"
	}

	return certStatus
}

// statsHandler provides server statistics including rate limiting info
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"service": "atsmatch",
		"version": s.Version,
		"server": map[string]any{
			"max_request_size_bytes": s.MaxRequestSize,
			"max_file_size_bytes":    s.AppConfig.App.MaxFileSize,
			"auth_enabled":           len(s.APIKeys) > 0,
			"tls_mode":               s.TLSConfig.Mode,
		},
		"provider": s.Matcher.ProviderInfo(),
		"store":    s.Matcher.StoreMode(),
		"formats":  s.Formatters.GetSupportedFormats(),
	}

	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.GetStats()
	} else {
		response["rate_limiting"] = map[string]any{"enabled": false}
	}

	if s.RateLimit != nil {
		response["rate_limit_config"] = map[string]any{
			"enabled":          s.RateLimit.Enabled,
			"requests_per_min": s.RateLimit.RequestsPerMin,
			"burst_capacity":   s.RateLimit.BurstCapacity,
			"by_ip":            s.RateLimit.ByIP,
			"by_api_key":       s.RateLimit.ByAPIKey,
		}
	}

	if s.Breaker != nil {
		response["circuit_breaker"] = s.Breaker.CircuitBreakerStats()
	}

	writeJSON(w, http.StatusOK, response)
}

// providerHandler returns the active language model backend
func (s *Server) providerHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Matcher.ProviderInfo())
}

// indexHandler serves the upload form
func (s *Server) indexHandler(w http.ResponseWriter, r *http.Request) {
	s.renderHTML(w, http.StatusOK, "index.html", resultPage{Provider: s.Matcher.ProviderInfo()})
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

// writeErrorResponse writes a standardized error response
func writeErrorResponse(w http.ResponseWriter, error, message string, statusCode int) {
	writeJSON(w, statusCode, ErrorResponse{
		Error:   error,
		Message: message,
	})
}

// writeAppError maps an application error onto its status code
func writeAppError(w http.ResponseWriter, err error) {
	appErr, ok := errors.As(err)
	if !ok {
		writeErrorResponse(w, "Internal error", err.Error(), http.StatusInternalServerError)
		return
	}

	response := ErrorResponse{
		Error:   appErr.Message,
		Code:    appErr.Code,
		Context: appErr.Context,
	}
	if appErr.Cause != nil {
		response.Message = appErr.Cause.Error()
	}
	writeJSON(w, appErr.HTTPStatus(), response)
}

func rawJSON(a *types.Assessment) (string, error) {
	return formatters.RawJSON(a)
}
