package handlers

import (
	"net/http"

	"invoice-generator/internal/pkg/response"
)

const (
	ServiceName = "Invoice Generator API"
	Version     = "0.1.0"
)

type Endpoints struct {
	Health string `json:"health"`
	API    string `json:"api"`
	Auth   string `json:"auth"`
}

type ServiceInfo struct {
	Name      string    `json:"name"`
	Version   string    `json:"version"`
	Status    string    `json:"status"`
	Endpoints Endpoints `json:"endpoints"`
}

type APIInfo struct {
	Message string `json:"message"`
	Version string `json:"version"`
}

// Root describes the service and where its endpoints live.
func Root(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, ServiceInfo{
		Name:    ServiceName,
		Version: Version,
		Status:  "running",
		Endpoints: Endpoints{
			Health: "/health",
			API:    "/api",
			Auth:   "/auth/callback",
		},
	})
}

func APIRoot(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, APIInfo{Message: ServiceName, Version: Version})
}

func NotFound(w http.ResponseWriter, r *http.Request) {
	response.Message(w, http.StatusNotFound, "Not Found")
}

func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	response.Message(w, http.StatusMethodNotAllowed, "Method Not Allowed")
}
