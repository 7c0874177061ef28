package server

import "fmt"

// displayServerInfo shows server configuration information
func (s *Server) displayServerInfo() {
	s.displayEndpoints()
	s.displayTLSInfo()
	s.displayAuthInfo()
	s.displayRequestLimitInfo()
	s.displayRateLimitInfo()
}

// displayEndpoints shows available endpoints
func (s *Server) displayEndpoints() {
	scheme := "http"
	if s.CertReloader != nil {
		scheme = "https"
	}
	provider := s.Matcher.ProviderInfo()
	fmt.Printf("Serving on %s://%s:%s (%s, model %s, store %s)\n",
		scheme, s.Host, s.Port, provider.DisplayName, provider.Model, s.Matcher.StoreMode())
	fmt.Println("Available endpoints:")
	fmt.Println("  GET  /                 - Upload form")
	fmt.Println("  POST /analyze          - Analyze from the form (HTML)")
	fmt.Println("  POST /api/v1/analyze   - Analyze (JSON, ?format=text|markdown)")
	fmt.Println("  GET  /api/v1/provider  - Active AI provider")
	fmt.Println("  GET  /health           - Health check")
	fmt.Println("  GET  /stats            - Server statistics")
}

// displayTLSInfo shows the TLS mode
func (s *Server) displayTLSInfo() {
	switch s.TLSConfig.Mode {
	case "server":
		fmt.Println("TLS mode: Server-only (no client certificates required)")
	case "mutual":
		fmt.Println("TLS mode: Mutual (client certificates required)")
	default:
		fmt.Println("TLS mode: Disabled (HTTP only)")
	}
	if s.CertReloader != nil && s.CertReloader.Watching() {
		fmt.Println("TLS auto-reload: ENABLED")
	}
}

// displayAuthInfo shows authentication configuration
func (s *Server) displayAuthInfo() {
	if len(s.APIKeys) > 0 {
		fmt.Printf("API authentication: ENABLED (%d keys configured)\n", len(s.APIKeys))
		fmt.Println("Include 'X-API-Key: <your-key>' header in requests to /api/")
	} else {
		fmt.Println("API authentication: DISABLED (no API keys configured)")
		fmt.Println("WARNING: API endpoints are publicly accessible!")
	}
}

// displayRequestLimitInfo shows request size limit configuration
func (s *Server) displayRequestLimitInfo() {
	if s.MaxRequestSize > 0 {
		fmt.Printf("Request size limit: %d bytes (%.1f MB)\n", s.MaxRequestSize, float64(s.MaxRequestSize)/(1024*1024))
	} else {
		fmt.Println("Request size limit: DISABLED")
		fmt.Println("WARNING: No request size limits configured!")
	}
}

// displayRateLimitInfo shows rate limiting configuration
func (s *Server) displayRateLimitInfo() {
	if s.RateLimit != nil && s.RateLimit.Enabled {
		fmt.Printf("Rate limiting: ENABLED (%d requests/min, burst: %d)\n",
			s.RateLimit.RequestsPerMin, s.RateLimit.BurstCapacity)
		if s.RateLimit.ByAPIKey {
			fmt.Println("  - Per API key rate limiting enabled")
		}
		if s.RateLimit.ByIP {
			fmt.Println("  - Per IP address rate limiting enabled")
		}
	} else {
		fmt.Println("Rate limiting: DISABLED")
		fmt.Println("WARNING: No rate limiting configured!")
	}
}
