// Package routes defines the API paths shared by the client and the backend
package routes

import (
	"fmt"
	"net/url"
)

// API base configuration
const (
	// DefaultPort is the default port of the buckets backend
	DefaultPort = "8080"
	// APIv1Prefix is the prefix for all v1 API endpoints
	APIv1Prefix = "/api/v1"

	// WorkPath is the collection endpoint for work items
	WorkPath = APIv1Prefix + "/work"
	// WithdrawPath is the claim endpoint
	WithdrawPath = WorkPath + "/withdraw"
	// HealthPath is the health check endpoint
	HealthPath = "/health"
)

// DefaultBaseURL is the default base URL of the buckets backend
var DefaultBaseURL = fmt.Sprintf("http://localhost:%s", DefaultPort)

// HealthCheckURL returns the health check endpoint
func HealthCheckURL() string {
	return HealthPath
}

// WithdrawURL returns the endpoint for claiming one queued work item
func WithdrawURL() string {
	return WithdrawPath
}

// DepositURL returns the endpoint for inserting work items. When returnIDs
// is set the backend includes the assigned ids in the response.
func DepositURL(returnIDs bool) string {
	if returnIDs {
		return WorkPath + "?return_ids=true"
	}
	return WorkPath
}

// WorkItemURL returns the endpoint for a single work item record
func WorkItemURL(id string) string {
	return fmt.Sprintf("%s/%s", WorkPath, url.PathEscape(id))
}
