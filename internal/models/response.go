package models

import "time"

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Version   string            `json:"version"`
	ASTDB     *ASTDBHealth      `json:"astdb,omitempty"`
	Pool      []PoolHealth      `json:"ami_pool,omitempty"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// ASTDBHealth summarizes the loaded node database
type ASTDBHealth struct {
	Records  int    `json:"records"`
	LoadedAt string `json:"loaded_at,omitempty"`
}

// PoolHealth is the occupancy of one AMI pool key
type PoolHealth struct {
	Key   string `json:"key"`
	Idle  int    `json:"idle"`
	InUse int    `json:"in_use"`
	Max   int    `json:"max"`
}

// NodeStatusListResponse is returned for multi-node status requests
type NodeStatusListResponse struct {
	Nodes  map[string]*NodeStatus `json:"nodes"`
	Errors map[string]ErrorDetail `json:"errors,omitempty"`
}

// ASTDBSearchResponse represents an ASTDB search
type ASTDBSearchResponse struct {
	Query   string        `json:"query"`
	Count   int           `json:"count"`
	Results []ASTDBRecord `json:"results"`
}

// ASTDBRecord is one node identity entry
type ASTDBRecord struct {
	Node        string `json:"node"`
	Callsign    string `json:"callsign"`
	Description string `json:"description"`
	Location    string `json:"location"`
	Info        string `json:"info"`
}

// ASTDBReloadResponse is returned after reloading the node database
type ASTDBReloadResponse struct {
	Records  int    `json:"records"`
	LoadedAt string `json:"loaded_at"`
}

// ErrorResponse represents error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Path    string                 `json:"path,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// SystemInfo describes the host the console runs on
type SystemInfo struct {
	Hostname      string    `json:"hostname"`
	OS            string    `json:"os"`
	Platform      string    `json:"platform"`
	Kernel        string    `json:"kernel"`
	UptimeSeconds uint64    `json:"uptime_seconds"`
	CPUPercent    float64   `json:"cpu_percent"`
	CPUCores      int       `json:"cpu_cores"`
	Load1         float64   `json:"load1"`
	Load5         float64   `json:"load5"`
	Load15        float64   `json:"load15"`
	MemoryTotal   uint64    `json:"memory_total"`
	MemoryUsed    uint64    `json:"memory_used"`
	MemoryPercent float64   `json:"memory_percent"`
	DiskPath      string    `json:"disk_path"`
	DiskTotal     uint64    `json:"disk_total"`
	DiskUsed      uint64    `json:"disk_used"`
	DiskPercent   float64   `json:"disk_percent"`
	CPUTempC      *float64  `json:"cpu_temp_c"`
	CollectedAt   time.Time `json:"collected_at"`
}
